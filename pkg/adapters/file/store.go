package file

import (
	"context"
	"path/filepath"

	"github.com/aretw0/questline/pkg/domain"
)

// DefaultDir is the base directory used when none is configured.
var DefaultDir = ".questline"

// SessionStore implements ports.SessionStore using the local filesystem.
// It stores sessions as JSON files in <base>/sessions.
type SessionStore struct {
	dir jsonDir[domain.GameSession]
}

// NewSessionStore creates a SessionStore under basePath.
// If basePath is empty, it defaults to ".questline".
func NewSessionStore(basePath string) *SessionStore {
	if basePath == "" {
		basePath = DefaultDir
	}
	return &SessionStore{
		dir: newJSONDir[domain.GameSession](filepath.Join(basePath, "sessions"), domain.ErrSessionNotFound),
	}
}

// Save persists the session to a JSON file atomically.
func (s *SessionStore) Save(ctx context.Context, sess *domain.GameSession) error {
	return s.dir.save(sess.ID, sess)
}

// Load retrieves the session from its JSON file.
func (s *SessionStore) Load(ctx context.Context, id int) (*domain.GameSession, error) {
	return s.dir.load(id)
}

// Delete removes the session file.
func (s *SessionStore) Delete(ctx context.Context, id int) error {
	return s.dir.delete(id)
}

// List returns all stored session IDs.
func (s *SessionStore) List(ctx context.Context) ([]int, error) {
	return s.dir.list()
}

// NextID reserves the next session ID.
func (s *SessionStore) NextID(ctx context.Context) (int, error) {
	return s.dir.nextID()
}

// TemplateStore implements ports.TemplateStore using the local filesystem.
// It stores templates as JSON files in <base>/templates.
type TemplateStore struct {
	dir jsonDir[domain.Template]
}

// NewTemplateStore creates a TemplateStore under basePath.
// If basePath is empty, it defaults to ".questline".
func NewTemplateStore(basePath string) *TemplateStore {
	if basePath == "" {
		basePath = DefaultDir
	}
	return &TemplateStore{
		dir: newJSONDir[domain.Template](filepath.Join(basePath, "templates"), domain.ErrTemplateNotFound),
	}
}

// Save persists the template to a JSON file atomically.
func (s *TemplateStore) Save(ctx context.Context, tpl *domain.Template) error {
	return s.dir.save(tpl.ID, tpl)
}

// Load retrieves the template from its JSON file.
func (s *TemplateStore) Load(ctx context.Context, id int) (*domain.Template, error) {
	return s.dir.load(id)
}

// Delete removes the template file.
func (s *TemplateStore) Delete(ctx context.Context, id int) error {
	return s.dir.delete(id)
}

// List returns all stored template IDs.
func (s *TemplateStore) List(ctx context.Context) ([]int, error) {
	return s.dir.list()
}

// NextID reserves the next template ID.
func (s *TemplateStore) NextID(ctx context.Context) (int, error) {
	return s.dir.nextID()
}
