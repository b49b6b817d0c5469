package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/questline/pkg/domain"
)

// TemplateStore implements ports.TemplateStore.
type TemplateStore struct {
	db *sql.DB
}

// Save upserts the template.
func (s *TemplateStore) Save(ctx context.Context, tpl *domain.Template) error {
	body, err := json.Marshal(tpl)
	if err != nil {
		return fmt.Errorf("failed to marshal template: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO templates(id, name, body, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, body = excluded.body, updated_at = excluded.updated_at`,
		tpl.ID, tpl.Name, string(body), tpl.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save template %d: %w", tpl.ID, err)
	}
	return nil
}

// Load fetches a template by id.
func (s *TemplateStore) Load(ctx context.Context, id int) (*domain.Template, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM templates WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTemplateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load template %d: %w", id, err)
	}

	var tpl domain.Template
	if err := json.Unmarshal([]byte(body), &tpl); err != nil {
		return nil, fmt.Errorf("failed to unmarshal template %d: %w", id, err)
	}
	return &tpl, nil
}

// Delete removes a template row.
func (s *TemplateStore) Delete(ctx context.Context, id int) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete template %d: %w", id, err)
	}
	return nil
}

// List returns template ids in ascending order.
func (s *TemplateStore) List(ctx context.Context) ([]int, error) {
	return listIDs(ctx, s.db, "templates")
}

// NextID reserves a template id.
func (s *TemplateStore) NextID(ctx context.Context) (int, error) {
	return nextID(ctx, s.db, "template", "templates")
}

// SessionStore implements ports.SessionStore.
type SessionStore struct {
	db *sql.DB
}

// Save upserts the session.
func (s *SessionStore) Save(ctx context.Context, sess *domain.GameSession) error {
	body, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions(id, template_id, body, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET template_id = excluded.template_id, body = excluded.body, updated_at = excluded.updated_at`,
		sess.ID, sess.TemplateID, string(body), sess.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save session %d: %w", sess.ID, err)
	}
	return nil
}

// Load fetches a session by id.
func (s *SessionStore) Load(ctx context.Context, id int) (*domain.GameSession, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM sessions WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %d: %w", id, err)
	}

	var sess domain.GameSession
	if err := json.Unmarshal([]byte(body), &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session %d: %w", id, err)
	}
	return &sess, nil
}

// Delete removes a session row.
func (s *SessionStore) Delete(ctx context.Context, id int) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session %d: %w", id, err)
	}
	return nil
}

// List returns session ids in ascending order.
func (s *SessionStore) List(ctx context.Context) ([]int, error) {
	return listIDs(ctx, s.db, "sessions")
}

// NextID reserves a session id.
func (s *SessionStore) NextID(ctx context.Context) (int, error) {
	return nextID(ctx, s.db, "session", "sessions")
}

// ListByTemplate returns the ids of sessions started from templateID.
func (s *SessionStore) ListByTemplate(ctx context.Context, templateID int) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM sessions WHERE template_id = ? ORDER BY id`, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions for template %d: %w", templateID, err)
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
