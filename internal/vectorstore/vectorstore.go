// Package vectorstore provides a nearest-neighbour index over editorial embeddings.
package vectorstore

import (
	"context"
)

// Point is one editorial embedding to index
type Point struct {
	ID       string // UUID
	Position int    // corpus position of the editorial
	Vector   []float32
	Title    string
	URL      string
}

// Hit is a search result
type Hit struct {
	ID       string
	Position int
	Score    float32
}

// Index defines the operations the service needs from a vector store
type Index interface {
	// EnsureCollection creates the collection if it does not exist
	EnsureCollection(ctx context.Context, dimension int) error

	// Recreate drops and recreates the collection
	Recreate(ctx context.Context, dimension int) error

	// Upsert inserts or updates points
	Upsert(ctx context.Context, points []Point) error

	// Search returns up to limit nearest points to vector
	Search(ctx context.Context, vector []float32, limit int) ([]Hit, error)

	// Count returns the number of indexed points
	Count(ctx context.Context) (uint64, error)
}
