package driven

// TokenCounter estimates token counts for chunk sizing and budget
// preflight. Counting must be deterministic for identical input.
//
// Implementations:
//   - tiktoken BPE counting (accurate, needs the encoding data)
//   - heuristic word/character blend (approximate, dependency-free)
type TokenCounter interface {
	// Count returns the token count of the given text.
	Count(text string) int
}
