package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/aretw0/questline/pkg/domain"
)

// SessionStore implements ports.SessionStore in memory.
// Safe for concurrent use.
type SessionStore struct {
	data   map[int]*domain.GameSession
	lastID int
	mu     sync.RWMutex
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		data: make(map[int]*domain.GameSession),
	}
}

// Save persists a copy of the session.
func (s *SessionStore) Save(ctx context.Context, sess *domain.GameSession) error {
	copied := sess.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sess.ID] = copied
	s.lastID = max(s.lastID, sess.ID)
	return nil
}

// Load retrieves a copy of the session so callers can't mutate stored state by pointer.
func (s *SessionStore) Load(ctx context.Context, id int) (*domain.GameSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.data[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// Delete removes the session.
func (s *SessionStore) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns stored session IDs in ascending order.
func (s *SessionStore) List(ctx context.Context) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.data)), nil
}

// NextID reserves the next session ID.
func (s *SessionStore) NextID(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	return s.lastID, nil
}

// TemplateStore implements ports.TemplateStore in memory.
// Safe for concurrent use.
type TemplateStore struct {
	data   map[int]*domain.Template
	lastID int
	mu     sync.RWMutex
}

// NewTemplateStore creates a new in-memory template store.
func NewTemplateStore() *TemplateStore {
	return &TemplateStore{
		data: make(map[int]*domain.Template),
	}
}

// Save persists a copy of the template.
func (s *TemplateStore) Save(ctx context.Context, tpl *domain.Template) error {
	copied := tpl.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[tpl.ID] = copied
	s.lastID = max(s.lastID, tpl.ID)
	return nil
}

// Load retrieves a copy of the template.
func (s *TemplateStore) Load(ctx context.Context, id int) (*domain.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tpl, ok := s.data[id]
	if !ok {
		return nil, domain.ErrTemplateNotFound
	}
	return tpl.Clone(), nil
}

// Delete removes the template.
func (s *TemplateStore) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns stored template IDs in ascending order.
func (s *TemplateStore) List(ctx context.Context) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.data)), nil
}

// NextID reserves the next template ID.
func (s *TemplateStore) NextID(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID++
	return s.lastID, nil
}
