package driven

import (
	"context"

	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
)

// VectorIndex stores chunk embeddings and answers similarity queries.
//
// Upsert is idempotent on chunk ID: re-ingesting identical content must
// not create duplicate entries. ReplaceDocument swaps the whole entry
// set of one document in a single atomic operation; a concurrent query
// observes either the old set or the new set, never an empty or mixed
// one. DeleteDocument removes every chunk of a document as one logical
// unit; a concurrent query must never observe a partial deletion.
type VectorIndex interface {
	// Upsert inserts or replaces entries keyed by chunk ID.
	Upsert(ctx context.Context, entries []domain.VectorEntry) error

	// ReplaceDocument atomically replaces all entries of a document
	// with the given set. Every entry must belong to the document.
	// An empty set removes the document from the index.
	ReplaceDocument(ctx context.Context, documentID string, entries []domain.VectorEntry) error

	// DeleteDocument removes all entries belonging to a document.
	DeleteDocument(ctx context.Context, documentID string) error

	// Query finds the k nearest entries to the query vector.
	// Results are ordered by similarity descending; ties are broken by
	// chunk LastUpdated descending, then chunk ID ascending.
	Query(ctx context.Context, embedding []float32, k int, filter QueryFilter) ([]VectorHit, error)

	// Count returns the number of live entries, used to verify
	// ingestion idempotency.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// QueryFilter restricts a similarity query.
type QueryFilter struct {
	// Locale restricts hits to chunks with the given locale.
	// Empty means no locale restriction.
	Locale string

	// Category restricts hits to one policy category. Empty means all.
	Category string
}

// VectorHit is one similarity search result.
type VectorHit struct {
	// Chunk is the matched chunk.
	Chunk domain.Chunk

	// Similarity is the distance-derived score in [0, 1], higher is
	// more relevant.
	Similarity float64
}
