package domain

// RetrievedChunk is one ranked hit in a RetrievalResult.
type RetrievedChunk struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Score is the similarity score in [0, 1], higher is more relevant.
	Score float64

	// Rank is the 1-based position in the result ordering.
	Rank int

	// Citation is the attribution payload for this hit.
	Citation Citation
}

// RetrievalResult is the ephemeral outcome of one retrieval query.
// It is produced per request and never persisted.
type RetrievalResult struct {
	// Query is the original query text.
	Query string

	// Chunks are the ranked hits, at most the requested top-k.
	Chunks []RetrievedChunk

	// QueryEmbedding is the embedding used for the similarity search.
	QueryEmbedding []float32

	// LowConfidence is set when the top hit scored below the configured
	// confidence floor. Callers must answer with a caveat or decline
	// rather than cite weak matches.
	LowConfidence bool
}

// TopCitations returns the citations of the ranked hits, in order.
func (r RetrievalResult) TopCitations() []Citation {
	citations := make([]Citation, len(r.Chunks))
	for i := range r.Chunks {
		citations[i] = r.Chunks[i].Citation
	}
	return citations
}
