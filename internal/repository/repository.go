// Package repository defines the persisted editorial model and its data access interface.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Editorial is a stored editorial record
type Editorial struct {
	ID        uuid.UUID
	Position  int // corpus order; rankings break ties by it
	Title     string
	FullText  string
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EditorialID derives a stable identifier from an editorial URL so that
// re-importing the same corpus updates rows instead of duplicating them.
func EditorialID(url string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(url))
}

// EditorialRepository defines operations for editorial persistence
type EditorialRepository interface {
	// Upsert inserts or replaces editorials, keyed by ID.
	Upsert(ctx context.Context, editorials []*Editorial) error
	// GetByID retrieves one editorial.
	GetByID(ctx context.Context, id uuid.UUID) (*Editorial, error)
	// ListAll returns every editorial ordered by Position.
	ListAll(ctx context.Context) ([]*Editorial, error)
	// Count returns the number of stored editorials.
	Count(ctx context.Context) (int, error)
	// DeleteAll removes every editorial.
	DeleteAll(ctx context.Context) error
}
