package port

import (
	"context"

	"kbase/internal/domain"
)

// Point is a vector plus its payload as stored in the collection. The id is
// derived from chunk identity, so re-ingesting the same chunk overwrites the
// old point.
type Point struct {
	ID      uint64
	Vector  []float32
	Payload domain.Payload
}

// SearchHit is a single similarity search result.
type SearchHit struct {
	ID      uint64
	Score   float64
	Payload domain.Payload
}

// VectorStore owns the collection lifecycle and similarity search against an
// external vector database.
type VectorStore interface {
	// EnsureCollection creates the collection if absent. An existing
	// collection with a different dimension yields domain.ErrDimensionMismatch.
	EnsureCollection(ctx context.Context, dimension int) error

	// Upsert writes points with overwrite-by-id semantics.
	Upsert(ctx context.Context, points []Point) error

	// Search returns up to topK nearest points, descending by score.
	// A missing or empty collection yields an empty result, not an error.
	Search(ctx context.Context, vector []float32, topK int) ([]SearchHit, error)

	// DeleteBySource removes every point ingested from the given file.
	DeleteBySource(ctx context.Context, sourcePath string) error

	// Count returns the number of stored points.
	Count(ctx context.Context) (int, error)

	// Clear drops the collection and everything in it.
	Clear(ctx context.Context) error
}
