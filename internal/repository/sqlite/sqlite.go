// Package sqlite implements the editorial repository on an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/knoguchi/editorialbot/internal/repository"

	_ "modernc.org/sqlite"
)

// EditorialRepo implements repository.EditorialRepository on SQLite
type EditorialRepo struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema
func Open(ctx context.Context, path string) (*EditorialRepo, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS editorials (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			title TEXT NOT NULL,
			full_text TEXT NOT NULL,
			url TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_editorials_position ON editorials(position);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	return &EditorialRepo{db: db}, nil
}

// Close closes the database
func (r *EditorialRepo) Close() error {
	return r.db.Close()
}

// Upsert inserts editorials or replaces existing rows with the same ID
func (r *EditorialRepo) Upsert(ctx context.Context, editorials []*repository.Editorial) error {
	if len(editorials) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO editorials (id, position, title, full_text, url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			position = excluded.position, title = excluded.title,
			full_text = excluded.full_text, url = excluded.url, updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, e := range editorials {
		if e.ID == uuid.Nil {
			e.ID = repository.EditorialID(e.URL)
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		e.UpdatedAt = now
		if _, err := stmt.ExecContext(ctx, e.ID.String(), e.Position, e.Title, e.FullText, e.URL,
			e.CreatedAt.Format(time.RFC3339Nano), e.UpdatedAt.Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("failed to upsert editorial: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}
	return nil
}

// GetByID retrieves an editorial by ID
func (r *EditorialRepo) GetByID(ctx context.Context, id uuid.UUID) (*repository.Editorial, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, position, title, full_text, url, created_at, updated_at
		FROM editorials WHERE id = ?
	`, id.String())
	e, err := scanEditorial(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get editorial: %w", err)
	}
	return e, nil
}

// ListAll returns all editorials in corpus order
func (r *EditorialRepo) ListAll(ctx context.Context) ([]*repository.Editorial, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, position, title, full_text, url, created_at, updated_at
		FROM editorials ORDER BY position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list editorials: %w", err)
	}
	defer rows.Close()

	var out []*repository.Editorial
	for rows.Next() {
		e, err := scanEditorial(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan editorial: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate editorials: %w", err)
	}
	return out, nil
}

// Count returns the number of stored editorials
func (r *EditorialRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM editorials`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count editorials: %w", err)
	}
	return n, nil
}

// DeleteAll removes all editorials
func (r *EditorialRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM editorials`); err != nil {
		return fmt.Errorf("failed to delete editorials: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEditorial(s scanner) (*repository.Editorial, error) {
	var e repository.Editorial
	var id, created, updated string
	if err := s.Scan(&id, &e.Position, &e.Title, &e.FullText, &e.URL, &created, &updated); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid editorial id %q: %w", id, err)
	}
	e.ID = parsed
	e.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &e, nil
}

var _ repository.EditorialRepository = (*EditorialRepo)(nil)
