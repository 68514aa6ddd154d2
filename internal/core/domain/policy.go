package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// PolicyDocument represents an ingested HR policy document.
// It is immutable once ingested: re-ingesting under the same PolicyID
// replaces the previous version wholesale (old chunks are deleted and
// new ones written, never mutated in place).
type PolicyDocument struct {
	// ID is the stable document identifier, derived from the source path.
	ID string

	// PolicyID is the business identifier from frontmatter (e.g. "POL-001").
	PolicyID string

	// Title is the human-readable title.
	Title string

	// Content is the full normalised text after frontmatter removal.
	Content string

	// Department owns the policy (e.g. "HR").
	Department string

	// Category groups the policy (e.g. "leave", "benefits").
	Category string

	// EffectiveDate is when the policy takes effect.
	EffectiveDate time.Time

	// LastUpdated is when the policy was last revised at the source.
	LastUpdated time.Time

	// Locale is the BCP 47 language tag, empty for the default locale.
	Locale string

	// SourcePath is the original file location.
	SourcePath string
}

// Chunk is a contiguous span of normalised text from one PolicyDocument.
// Chunks are the unit of retrieval; together they cover the full document
// text with a configured overlap between neighbours.
type Chunk struct {
	// ID is deterministic over (DocumentID, StartOffset) so that
	// re-ingesting identical content yields identical chunk IDs.
	ID string

	// DocumentID links to the parent PolicyDocument.
	DocumentID string

	// Text is the chunk content.
	Text string

	// TokenCount is the token length of Text.
	TokenCount int

	// SectionTitle is the nearest preceding heading in the source.
	SectionTitle string

	// StartOffset and EndOffset delimit the span within the normalised
	// document text. EndOffset is exclusive.
	StartOffset int
	EndOffset   int

	// OverlapWithPrev is the number of bytes shared with the previous
	// chunk, zero for the first chunk of a document.
	OverlapWithPrev int

	// Inherited document metadata, duplicated here so a chunk can be
	// cited without re-reading the parent document.
	PolicyID      string
	Department    string
	Category      string
	EffectiveDate time.Time
	LastUpdated   time.Time
	Locale        string
}

// ChunkID derives the deterministic chunk identifier for a span.
func ChunkID(documentID string, startOffset int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", documentID, startOffset)))
	return hex.EncodeToString(sum[:])[:16]
}

// VectorEntry pairs a chunk with its embedding for the vector index.
// For a given chunk ID there is at most one live entry at any time.
type VectorEntry struct {
	Chunk     Chunk
	Embedding []float32
}

// Citation identifies the source of a retrieved chunk for user-facing
// attribution.
type Citation struct {
	// DocumentID is the cited document.
	DocumentID string

	// PolicyID is the business identifier of the cited policy.
	PolicyID string

	// SectionTitle is the heading the chunk falls under.
	SectionTitle string

	// EffectiveDate is the cited policy's effective date.
	EffectiveDate time.Time

	// Score is the raw similarity score of the cited chunk.
	Score float64
}
