package tokencount

import (
	"github.com/pkoukk/tiktoken-go"

	"github.com/hrdesk-labs/hrdesk/internal/core/ports/driven"
)

// DefaultEncoding is the BPE encoding used when none is configured.
const DefaultEncoding = "cl100k_base"

// Ensure Tiktoken implements the interface.
var _ driven.TokenCounter = (*Tiktoken)(nil)

// Tiktoken counts tokens with a BPE encoding. Counting is exact for
// models sharing the encoding and deterministic for identical input.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken creates a BPE-backed counter for the given encoding name.
func NewTiktoken(encoding string) (*Tiktoken, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return &Tiktoken{enc: enc}, nil
}

// Count returns the exact BPE token count of text.
func (t *Tiktoken) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// NewCounter returns a BPE counter when the encoding loads, falling
// back to the heuristic counter otherwise. The encoding data is fetched
// lazily by tiktoken-go and may be unavailable offline.
func NewCounter(encoding string) driven.TokenCounter {
	if t, err := NewTiktoken(encoding); err == nil {
		return t
	}
	return NewHeuristic()
}
