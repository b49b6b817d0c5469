// Package yamlfile reads and writes templates as YAML or JSON documents.
//
//	id: 1
//	name: Goblin Ambush
//	entry: 1
//	nodes:
//	  - id: 1
//	    description: The road narrows.
//	    destinations: [2, 3]
//
// JSON is accepted on the same path since YAML is a superset of it.
package yamlfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aretw0/questline/pkg/domain"
	"gopkg.in/yaml.v3"
)

// ErrEmptyDocument is returned when a file holds no YAML document.
var ErrEmptyDocument = errors.New("empty template document")

// Document is the on-disk shape of a template.
type Document struct {
	ID    int            `yaml:"id,omitempty" json:"id,omitempty"`
	Name  string         `yaml:"name" json:"name"`
	Entry *int           `yaml:"entry,omitempty" json:"entry,omitempty"`
	Nodes []NodeDocument `yaml:"nodes" json:"nodes"`
}

// NodeDocument is one node in a Document.
type NodeDocument struct {
	ID           int    `yaml:"id" json:"id"`
	Description  string `yaml:"description" json:"description"`
	Destinations []int  `yaml:"destinations,omitempty" json:"destinations,omitempty"`
}

// Decode reads a single template document.
func Decode(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyDocument
		}
		return nil, fmt.Errorf("failed to decode template: %w", err)
	}
	return &doc, nil
}

// Template converts the document into a domain template stamped with at.
// A missing entry defaults to the first listed node.
func (d *Document) Template(at time.Time) (*domain.Template, error) {
	entry := 0
	switch {
	case d.Entry != nil:
		entry = *d.Entry
	case len(d.Nodes) > 0:
		entry = d.Nodes[0].ID
	}

	tpl := domain.NewTemplate(d.ID, d.Name, entry, at)
	for i, n := range d.Nodes {
		node := domain.TemplateNode{ID: n.ID, Description: n.Description, Destinations: n.Destinations}
		if err := tpl.AddNode(node, at); err != nil {
			return nil, fmt.Errorf("nodes[%d]: %w", i, err)
		}
	}
	return tpl, nil
}

// FromTemplate builds a document with nodes in ascending id order.
func FromTemplate(t *domain.Template) *Document {
	entry := t.EntryNodeID
	doc := &Document{ID: t.ID, Name: t.Name, Entry: &entry}
	for _, n := range t.SortedNodes() {
		doc.Nodes = append(doc.Nodes, NodeDocument{
			ID:           n.ID,
			Description:  n.Description,
			Destinations: n.Destinations,
		})
	}
	return doc
}

// Encode writes the template as YAML, or JSON when format is "json".
func Encode(w io.Writer, t *domain.Template, format string) error {
	doc := FromTemplate(t)
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode template: %w", err)
	}
	return enc.Close()
}
