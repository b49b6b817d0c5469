// Package sqlite persists templates and sessions in a single SQLite file.
// Records are stored as JSON documents; ids come from a sequence table.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS templates (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	body TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS sessions (
	id INTEGER PRIMARY KEY,
	template_id INTEGER NOT NULL,
	body TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_template ON sessions(template_id);
CREATE TABLE IF NOT EXISTS sequences (
	name TEXT PRIMARY KEY,
	value INTEGER NOT NULL
);
`

// DB wraps the SQLite handle shared by the template and session stores.
type DB struct {
	db *sql.DB
}

// Open creates (or reuses) the database at path and applies the schema.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY between
	// our own goroutines.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close releases the database handle.
func (d *DB) Close() error {
	return d.db.Close()
}

// Templates returns a ports.TemplateStore backed by this database.
func (d *DB) Templates() *TemplateStore {
	return &TemplateStore{db: d.db}
}

// Sessions returns a ports.SessionStore backed by this database.
func (d *DB) Sessions() *SessionStore {
	return &SessionStore{db: d.db}
}

func nextID(ctx context.Context, db *sql.DB, name, table string) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Seed from the table so rows inserted out of band are never reused.
	seed := fmt.Sprintf(`INSERT INTO sequences(name, value)
		SELECT ?, COALESCE(MAX(id), 0) FROM %s
		WHERE NOT EXISTS (SELECT 1 FROM sequences WHERE name = ?)`, table)
	if _, err := tx.ExecContext(ctx, seed, name, name); err != nil {
		return 0, fmt.Errorf("failed to seed sequence %s: %w", name, err)
	}

	var id int
	err = tx.QueryRowContext(ctx,
		`UPDATE sequences SET value = value + 1 WHERE name = ? RETURNING value`, name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to advance sequence %s: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit sequence %s: %w", name, err)
	}
	return id, nil
}

func listIDs(ctx context.Context, db *sql.DB, table string) ([]int, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT id FROM %s ORDER BY id`, table))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
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
