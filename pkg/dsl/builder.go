package dsl

import (
	"fmt"
	"time"

	"github.com/aretw0/questline/pkg/domain"
)

// Builder manages the template construction.
type Builder struct {
	id       int
	name     string
	entry    int
	hasEntry bool
	at       time.Time
	order    []int
	nodes    map[int]*NodeBuilder
}

// New creates a new template builder.
func New(id int, name string) *Builder {
	return &Builder{
		id:    id,
		name:  name,
		nodes: make(map[int]*NodeBuilder),
	}
}

// Add creates a new node in the template.
// If the node already exists, it returns the existing builder.
// The first node added becomes the entry node unless Entry is called.
func (b *Builder) Add(id int) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node: domain.TemplateNode{
			ID:         id,
			TemplateID: b.id,
		},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Entry sets the entry node id.
func (b *Builder) Entry(id int) *Builder {
	b.entry = id
	b.hasEntry = true
	return b
}

// At sets the creation timestamp (default: time of Build).
func (b *Builder) At(at time.Time) *Builder {
	b.at = at
	return b
}

// Build compiles the nodes into a Template.
// It fails on empty descriptions; structural problems are left to engine.Validate.
func (b *Builder) Build() (*domain.Template, error) {
	at := b.at
	if at.IsZero() {
		at = time.Now()
	}

	entry := b.entry
	if !b.hasEntry && len(b.order) > 0 {
		entry = b.order[0]
	}

	tpl := domain.NewTemplate(b.id, b.name, entry, at)
	if tpl.Name == "" {
		return nil, domain.ErrEmptyName
	}
	for _, id := range b.order {
		if err := tpl.AddNode(b.nodes[id].node, at); err != nil {
			return nil, fmt.Errorf("failed to build template %d: %w", b.id, err)
		}
	}
	return tpl, nil
}

// MustBuild is like Build but panics on error. Intended for tests and fixtures.
func (b *Builder) MustBuild() *domain.Template {
	tpl, err := b.Build()
	if err != nil {
		panic(err)
	}
	return tpl
}
