package memory

import (
	"context"
	"sort"

	"github.com/aretw0/questline/pkg/domain"
)

// Loader implements ports.TemplateLoader over a fixed set of templates.
type Loader struct {
	templates []*domain.Template
}

// NewLoader creates a loader serving copies of the given templates.
func NewLoader(templates ...*domain.Template) *Loader {
	return &Loader{templates: templates}
}

// Load returns copies of the templates ordered by ID.
func (l *Loader) Load(ctx context.Context) ([]*domain.Template, error) {
	out := make([]*domain.Template, 0, len(l.templates))
	for _, tpl := range l.templates {
		out = append(out, tpl.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID }) // Deterministic order
	return out, nil
}
