package ports

import (
	"context"

	"github.com/aretw0/questline/pkg/domain"
)

// TemplateLoader reads template definitions from an external source
// (YAML files, Loam repositories). Loaders never validate; callers run the engine.
type TemplateLoader interface {
	Load(ctx context.Context) ([]*domain.Template, error)
}
