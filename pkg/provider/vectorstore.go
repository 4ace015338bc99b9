package provider

import (
	"context"

	"github.com/donbr/graphiti-qdrant/pkg/types"
)

// VectorStore stores and searches embedded documentation pages.
type VectorStore interface {
	// EnsureCollection creates the collection if it does not exist.
	EnsureCollection(ctx context.Context) error

	// Upsert writes documents with their embeddings. Vectors and documents
	// are matched by index and must have equal length.
	Upsert(ctx context.Context, docs []*types.Document, vectors [][]float32) error

	// Query returns the documents closest to the query vector, optionally
	// restricted to a single source.
	Query(ctx context.Context, vector []float32, limit int, source string) ([]*types.SearchResult, error)

	// Count returns the number of stored points, optionally restricted to
	// a single source.
	Count(ctx context.Context, source string) (uint64, error)

	// SourceCounts returns the number of stored points per source name.
	SourceCounts(ctx context.Context, sources []string) (map[string]uint64, error)

	// Info returns collection status for validation and reporting.
	Info(ctx context.Context) (*types.CollectionStatus, error)

	// EnsureSourceIndex creates the payload index used for source
	// filtering. Safe to call repeatedly.
	EnsureSourceIndex(ctx context.Context) error

	// Close releases the connection.
	Close() error
}
