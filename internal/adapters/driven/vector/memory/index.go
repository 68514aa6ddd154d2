// Package memory provides an in-memory vector index. It is the default
// index for single-node deployments and for tests; the pgvector adapter
// covers shared deployments.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
	"github.com/hrdesk-labs/hrdesk/internal/core/ports/driven"
)

var _ driven.VectorIndex = (*Index)(nil)

// Index is a thread-safe in-memory vector index using exhaustive
// cosine search. Entries are grouped by document so ReplaceDocument and
// DeleteDocument can swap or drop a whole document in one map
// operation, which keeps queries from ever seeing a half-replaced
// document.
type Index struct {
	mu sync.RWMutex

	// docs maps documentID -> chunkID -> entry.
	docs map[string]map[string]domain.VectorEntry
}

// NewIndex creates an empty in-memory index.
func NewIndex() *Index {
	return &Index{docs: make(map[string]map[string]domain.VectorEntry)}
}

// Upsert inserts or replaces entries keyed by chunk ID.
func (idx *Index) Upsert(ctx context.Context, entries []domain.VectorEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for _, entry := range entries {
		if entry.Chunk.ID == "" {
			return fmt.Errorf("upsert: entry with empty chunk ID (document %q)", entry.Chunk.DocumentID)
		}
		if len(entry.Embedding) == 0 {
			return fmt.Errorf("upsert: entry %q has no embedding", entry.Chunk.ID)
		}
		chunks, ok := idx.docs[entry.Chunk.DocumentID]
		if !ok {
			chunks = make(map[string]domain.VectorEntry)
			idx.docs[entry.Chunk.DocumentID] = chunks
		}
		chunks[entry.Chunk.ID] = entry
	}
	return nil
}

// ReplaceDocument atomically swaps the entry set of one document. The
// replacement map is built before the lock is taken, so concurrent
// queries observe either the old set or the new set in full.
func (idx *Index) ReplaceDocument(ctx context.Context, documentID string, entries []domain.VectorEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if documentID == "" {
		return fmt.Errorf("replace: empty document ID")
	}

	chunks := make(map[string]domain.VectorEntry, len(entries))
	for _, entry := range entries {
		if entry.Chunk.ID == "" {
			return fmt.Errorf("replace: entry with empty chunk ID (document %q)", documentID)
		}
		if len(entry.Embedding) == 0 {
			return fmt.Errorf("replace: entry %q has no embedding", entry.Chunk.ID)
		}
		if entry.Chunk.DocumentID != documentID {
			return fmt.Errorf("replace: entry %q belongs to document %q, not %q",
				entry.Chunk.ID, entry.Chunk.DocumentID, documentID)
		}
		chunks[entry.Chunk.ID] = entry
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if len(chunks) == 0 {
		delete(idx.docs, documentID)
		return nil
	}
	idx.docs[documentID] = chunks
	return nil
}

// DeleteDocument removes all entries belonging to a document.
// Deleting an unknown document is a no-op.
func (idx *Index) DeleteDocument(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.docs, documentID)
	return nil
}

// Query finds the k nearest entries to the query vector.
func (idx *Index) Query(ctx context.Context, embedding []float32, k int, filter driven.QueryFilter) ([]driven.VectorHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("query: empty embedding")
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var hits []driven.VectorHit
	for _, chunks := range idx.docs {
		for _, entry := range chunks {
			if filter.Locale != "" && entry.Chunk.Locale != filter.Locale {
				continue
			}
			if filter.Category != "" && entry.Chunk.Category != filter.Category {
				continue
			}
			if len(entry.Embedding) != len(embedding) {
				return nil, fmt.Errorf("query: dimension mismatch for chunk %q: index %d, query %d",
					entry.Chunk.ID, len(entry.Embedding), len(embedding))
			}
			hits = append(hits, driven.VectorHit{
				Chunk:      entry.Chunk,
				Similarity: cosineSimilarity(embedding, entry.Embedding),
			})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		iu, ju := hits[i].Chunk.LastUpdated, hits[j].Chunk.LastUpdated
		if !iu.Equal(ju) {
			return iu.After(ju)
		}
		return hits[i].Chunk.ID < hits[j].Chunk.ID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the number of live entries.
func (idx *Index) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	total := 0
	for _, chunks := range idx.docs {
		total += len(chunks)
	}
	return total, nil
}

// Close releases resources.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.docs = make(map[string]map[string]domain.VectorEntry)
	return nil
}

// cosineSimilarity maps the cosine of the angle between two vectors
// from [-1, 1] onto [0, 1], higher meaning more similar.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return (cos + 1) / 2
}
