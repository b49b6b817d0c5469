package ports

import (
	"context"

	"github.com/aretw0/questline/pkg/domain"
)

// TemplateStore defines the interface for persisting templates.
type TemplateStore interface {
	// Save persists the template under its ID, replacing any previous version.
	Save(ctx context.Context, tpl *domain.Template) error

	// Load retrieves a template.
	// Returns domain.ErrTemplateNotFound if the template does not exist.
	Load(ctx context.Context, id int) (*domain.Template, error)

	// Delete removes a template. Deleting a missing template is not an error.
	Delete(ctx context.Context, id int) error

	// List returns all template IDs in ascending order.
	List(ctx context.Context) ([]int, error)

	// NextID reserves a fresh template ID.
	NextID(ctx context.Context) (int, error)
}

// SessionStore defines the interface for persisting game sessions.
// This allows sessions to survive restarts and move between replicas.
type SessionStore interface {
	// Save persists the session under its ID.
	Save(ctx context.Context, sess *domain.GameSession) error

	// Load retrieves a session.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, id int) (*domain.GameSession, error)

	// Delete removes a session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id int) error

	// List returns all session IDs in ascending order.
	List(ctx context.Context) ([]int, error)

	// NextID reserves a fresh session ID.
	NextID(ctx context.Context) (int, error)
}
