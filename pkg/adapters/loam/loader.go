// Package loam loads templates from a Loam repository: one markdown document per
// node, frontmatter for the graph, body for the description.
package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/loam"
	"github.com/aretw0/questline/pkg/domain"
)

// Loader implements ports.TemplateLoader. A repository holds exactly one template.
type Loader struct {
	Repo       *loam.TypedRepository[NodeMetadata]
	TemplateID int
	Name       string
	now        func() time.Time
}

// Option configures a Loader.
type Option func(*Loader)

// WithTemplate sets the id and name of the loaded template.
func WithTemplate(id int, name string) Option {
	return func(l *Loader) {
		l.TemplateID = id
		l.Name = name
	}
}

// WithClock sets the clock used for CreatedAt/UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(l *Loader) {
		l.now = now
	}
}

// New creates a loader over an existing typed repository.
func New(repo *loam.TypedRepository[NodeMetadata], opts ...Option) *Loader {
	l := &Loader{Repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open initializes a read-only Loam repository at dir. The template name
// defaults to the directory name.
func Open(dir string, opts ...Option) (*Loader, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	// Strict mode returns json.Number for every numeric field.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}

	l := New(loam.NewTypedRepository[NodeMetadata](repo), opts...)
	if l.Name == "" {
		l.Name = filepath.Base(absPath)
	}
	return l, nil
}

// Load reads every document and assembles the template. The entry node is the
// one flagged `entry: true`, or the lowest id when none is flagged.
func (l *Loader) Load(ctx context.Context) ([]*domain.Template, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	at := l.now()
	name := l.Name
	if strings.TrimSpace(name) == "" {
		name = "template-" + strconv.Itoa(l.TemplateID)
	}
	tpl := domain.NewTemplate(l.TemplateID, name, 0, at)

	seen := make(map[int]string, len(docs))
	entry, hasEntry := 0, false

	for _, doc := range docs {
		node, err := l.buildNode(doc.ID, doc.Data, doc.Content)
		if err != nil {
			return nil, err
		}

		if existing, ok := seen[node.ID]; ok {
			return nil, fmt.Errorf("collision detected: node %d is defined in both '%s' and '%s'", node.ID, existing, doc.ID)
		}
		seen[node.ID] = doc.ID

		if err := tpl.AddNode(node, at); err != nil {
			return nil, fmt.Errorf("%s: %w", doc.ID, err)
		}

		if doc.Data.Entry {
			if hasEntry {
				return nil, fmt.Errorf("%s: entry already declared by node %d", doc.ID, entry)
			}
			entry, hasEntry = node.ID, true
		}
	}

	if !hasEntry {
		if ids := tpl.NodeIDs(); len(ids) > 0 {
			entry = ids[0]
		}
	}
	tpl.EntryNodeID = entry

	return []*domain.Template{tpl}, nil
}

func (l *Loader) buildNode(docID string, meta NodeMetadata, content string) (domain.TemplateNode, error) {
	var (
		id  int
		err error
	)
	if meta.ID != nil {
		id, err = toInt(meta.ID)
	} else {
		// Fall back to the file name, e.g. "3.md".
		id, err = strconv.Atoi(trimExtension(filepath.Base(docID)))
	}
	if err != nil {
		return domain.TemplateNode{}, fmt.Errorf("%s: invalid node id: %w", docID, err)
	}

	dests := make([]int, 0, len(meta.Destinations))
	for i, raw := range meta.Destinations {
		d, err := toInt(raw)
		if err != nil {
			return domain.TemplateNode{}, fmt.Errorf("%s: destinations[%d]: %w", docID, i, err)
		}
		dests = append(dests, d)
	}

	return domain.TemplateNode{
		ID:           id,
		Description:  strings.TrimSpace(content),
		Destinations: dests,
	}, nil
}

func trimExtension(id string) string {
	return strings.TrimSuffix(id, filepath.Ext(id))
}
