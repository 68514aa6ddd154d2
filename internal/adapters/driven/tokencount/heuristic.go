// Package tokencount provides token counters for chunk sizing and
// budget preflight.
package tokencount

import (
	"strings"

	"github.com/hrdesk-labs/hrdesk/internal/core/ports/driven"
)

// Ensure Heuristic implements the interface.
var _ driven.TokenCounter = (*Heuristic)(nil)

// Heuristic estimates tokens without encoding data, blending word and
// character counts (roughly 4 characters per token for English text).
// Used as the fallback when the BPE encoding cannot be loaded, and in
// tests.
type Heuristic struct{}

// NewHeuristic creates a heuristic counter.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Count estimates the token count of text.
func (h *Heuristic) Count(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	chars := len(text)
	n := (words + chars/4) / 2
	if n < 1 {
		n = 1
	}
	return n
}
