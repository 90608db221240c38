package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks ytrag/internal/vectorstore VectorStore

import (
	"context"
	"errors"
)

// ErrCollectionNotFound is returned when an operation names a missing collection.
var ErrCollectionNotFound = errors.New("collection not found")

// Point represents a vector point with metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// CollectionInfo describes a collection.
type CollectionInfo struct {
	VectorSize  int
	PointsCount int
	Status      string
}

// VectorStore defines the interface for vector storage operations.
// Each processing run owns one collection.
type VectorStore interface {
	// EnsureCollection creates the collection, or validates its vector size if it exists.
	EnsureCollection(ctx context.Context, collection string, vectorSize int) error

	// Upsert inserts or updates points in the collection.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search performs a cosine similarity search. Filters match payload values exactly.
	Search(ctx context.Context, collection string, query []float32, k int, filters map[string]any) ([]SearchResult, error)

	// DropCollection deletes the collection and all its points.
	DropCollection(ctx context.Context, collection string) error

	// CollectionInfo returns size and point count of a collection.
	CollectionInfo(ctx context.Context, collection string) (*CollectionInfo, error)

	// Health reports whether the store is reachable.
	Health(ctx context.Context) error
}
