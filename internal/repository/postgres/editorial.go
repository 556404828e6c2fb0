package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/knoguchi/editorialbot/internal/repository"
)

// EditorialRepo implements repository.EditorialRepository
type EditorialRepo struct {
	db *DB
}

// NewEditorialRepo creates a new editorial repository
func NewEditorialRepo(db *DB) *EditorialRepo {
	return &EditorialRepo{db: db}
}

// Upsert inserts editorials or updates the existing rows with the same ID
func (r *EditorialRepo) Upsert(ctx context.Context, editorials []*repository.Editorial) error {
	if len(editorials) == 0 {
		return nil
	}

	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for _, e := range editorials {
		if e.ID == uuid.Nil {
			e.ID = repository.EditorialID(e.URL)
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		e.UpdatedAt = now
		batch.Queue(`
			INSERT INTO editorials (id, position, title, full_text, url, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE
			SET position = EXCLUDED.position, title = EXCLUDED.title,
			    full_text = EXCLUDED.full_text, url = EXCLUDED.url, updated_at = EXCLUDED.updated_at
		`, e.ID, e.Position, e.Title, e.FullText, e.URL, e.CreatedAt, e.UpdatedAt)
	}

	results := r.db.Pool.SendBatch(ctx, batch)
	defer results.Close()

	for range editorials {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert editorial: %w", err)
		}
	}
	return nil
}

// GetByID retrieves an editorial by ID
func (r *EditorialRepo) GetByID(ctx context.Context, id uuid.UUID) (*repository.Editorial, error) {
	var e repository.Editorial
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, position, title, full_text, url, created_at, updated_at
		FROM editorials
		WHERE id = $1
	`, id).Scan(&e.ID, &e.Position, &e.Title, &e.FullText, &e.URL, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get editorial: %w", err)
	}
	return &e, nil
}

// ListAll returns all editorials in corpus order
func (r *EditorialRepo) ListAll(ctx context.Context) ([]*repository.Editorial, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, position, title, full_text, url, created_at, updated_at
		FROM editorials
		ORDER BY position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list editorials: %w", err)
	}
	defer rows.Close()

	var out []*repository.Editorial
	for rows.Next() {
		var e repository.Editorial
		if err := rows.Scan(&e.ID, &e.Position, &e.Title, &e.FullText, &e.URL, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan editorial: %w", err)
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate editorials: %w", err)
	}
	return out, nil
}

// Count returns the number of stored editorials
func (r *EditorialRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM editorials`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count editorials: %w", err)
	}
	return n, nil
}

// DeleteAll removes all editorials
func (r *EditorialRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM editorials`); err != nil {
		return fmt.Errorf("failed to delete editorials: %w", err)
	}
	return nil
}

var _ repository.EditorialRepository = (*EditorialRepo)(nil)
