package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
	"github.com/hrdesk-labs/hrdesk/internal/core/ports/driven"
	"github.com/hrdesk-labs/hrdesk/internal/core/ports/driving"
	"github.com/hrdesk-labs/hrdesk/internal/logger"
)

// DefaultConfidenceFloor is the similarity score below which a
// retrieval is flagged low-confidence.
const DefaultConfidenceFloor = 0.5

// DefaultTopK is the result count used when the caller passes none.
const DefaultTopK = 4

// DefaultTopKCeiling bounds caller-supplied top-k values. Values above
// the ceiling are clamped, not rejected.
const DefaultTopKCeiling = 10

// Ensure Retriever implements the interface.
var _ driving.Retriever = (*Retriever)(nil)

// Retriever turns a query into ranked, cited evidence from the policy
// index.
type Retriever struct {
	vectorIndex driven.VectorIndex
	embedder    driven.EmbeddingService

	confidenceFloor float64
	defaultTopK     int
	topKCeiling     int
}

// RetrieverOption configures the retriever.
type RetrieverOption func(*Retriever)

// WithConfidenceFloor sets the low-confidence threshold.
func WithConfidenceFloor(floor float64) RetrieverOption {
	return func(r *Retriever) {
		if floor > 0 && floor < 1 {
			r.confidenceFloor = floor
		}
	}
}

// WithTopKBounds sets the default and maximum top-k.
func WithTopKBounds(def, ceiling int) RetrieverOption {
	return func(r *Retriever) {
		if def > 0 {
			r.defaultTopK = def
		}
		if ceiling > 0 {
			r.topKCeiling = ceiling
		}
	}
}

// NewRetriever creates a retriever.
func NewRetriever(vectorIndex driven.VectorIndex, embedder driven.EmbeddingService, opts ...RetrieverOption) *Retriever {
	r := &Retriever{
		vectorIndex:     vectorIndex,
		embedder:        embedder,
		confidenceFloor: DefaultConfidenceFloor,
		defaultTopK:     DefaultTopK,
		topKCeiling:     DefaultTopKCeiling,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve embeds the query, searches the index and assembles
// citations. When the top hit scores below the confidence floor the
// result carries LowConfidence=true; callers must answer with a caveat
// or decline rather than cite weak matches.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, locale string) (domain.RetrievalResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.RetrievalResult{}, fmt.Errorf("retrieve: empty query: %w", domain.ErrInvalidInput)
	}

	switch {
	case topK <= 0:
		topK = r.defaultTopK
	case topK > r.topKCeiling:
		logger.Debug("Clamping top-k %d to ceiling %d", topK, r.topKCeiling)
		topK = r.topKCeiling
	}

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return domain.RetrievalResult{}, fmt.Errorf("embed query: %w", err)
	}

	hits, err := r.vectorIndex.Query(ctx, embedding, topK, driven.QueryFilter{Locale: locale})
	if err != nil {
		return domain.RetrievalResult{}, fmt.Errorf("query vector index: %w", err)
	}

	result := domain.RetrievalResult{
		Query:          query,
		QueryEmbedding: embedding,
		Chunks:         make([]domain.RetrievedChunk, len(hits)),
	}

	for i, hit := range hits {
		result.Chunks[i] = domain.RetrievedChunk{
			Chunk: hit.Chunk,
			Score: hit.Similarity,
			Rank:  i + 1,
			Citation: domain.Citation{
				DocumentID:    hit.Chunk.DocumentID,
				PolicyID:      hit.Chunk.PolicyID,
				SectionTitle:  hit.Chunk.SectionTitle,
				EffectiveDate: hit.Chunk.EffectiveDate,
				Score:         hit.Similarity,
			},
		}
	}

	result.LowConfidence = len(hits) == 0 || hits[0].Similarity < r.confidenceFloor
	if result.LowConfidence {
		logger.Info("Low-confidence retrieval for %q (%d hits)", query, len(hits))
	}

	return result, nil
}
