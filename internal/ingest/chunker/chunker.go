// Package chunker splits normalised policy text into token-bounded,
// overlapping chunks tagged with section titles.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
	"github.com/hrdesk-labs/hrdesk/internal/core/ports/driven"
)

// DefaultMinTokens is the default lower bound of the chunk window.
const DefaultMinTokens = 512

// DefaultMaxTokens is the default hard upper bound of the chunk window.
const DefaultMaxTokens = 1024

// DefaultOverlapFraction is the default share of a chunk repeated at
// the start of its successor to preserve cross-boundary context.
const DefaultOverlapFraction = 0.15

// approxBytesPerToken is used only when a single sentence exceeds the
// hard maximum and must be force-split.
const approxBytesPerToken = 4

// Chunker splits document content into chunks.
type Chunker struct {
	minTokens int
	maxTokens int
	overlap   float64
	counter   driven.TokenCounter
}

// Option configures the chunker.
type Option func(*Chunker)

// WithWindow sets the [min, max] token window.
func WithWindow(minTokens, maxTokens int) Option {
	return func(c *Chunker) {
		if minTokens > 0 {
			c.minTokens = minTokens
		}
		if maxTokens > 0 {
			c.maxTokens = maxTokens
		}
	}
}

// WithOverlapFraction sets the overlap between consecutive chunks as a
// fraction of the maximum chunk size.
func WithOverlapFraction(f float64) Option {
	return func(c *Chunker) {
		if f >= 0 && f < 1 {
			c.overlap = f
		}
	}
}

// New creates a chunker using the given token counter.
func New(counter driven.TokenCounter, opts ...Option) *Chunker {
	c := &Chunker{
		minTokens: DefaultMinTokens,
		maxTokens: DefaultMaxTokens,
		overlap:   DefaultOverlapFraction,
		counter:   counter,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.minTokens > c.maxTokens {
		c.minTokens = c.maxTokens / 2
	}
	return c
}

// Chunk splits a document's normalised content into ordered chunks.
// Chunk spans tile the full content: the union of [StartOffset,
// EndOffset) covers every byte, and consecutive chunks overlap by
// roughly the configured fraction. Sentences are never split unless a
// single sentence alone exceeds the hard maximum.
func (c *Chunker) Chunk(doc *domain.PolicyDocument) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, domain.ErrInvalidInput
	}
	if doc.Content == "" {
		return nil, nil
	}

	var chunks []domain.Chunk
	for _, sec := range splitSections(doc.Content) {
		spans := c.packSection(doc.Content, sec)
		for _, sp := range spans {
			chunks = append(chunks, c.build(doc, sec.title, sp))
		}
	}

	// Record overlap sizes now that spans are final.
	for i := 1; i < len(chunks); i++ {
		if prev := chunks[i-1].EndOffset - chunks[i].StartOffset; prev > 0 {
			chunks[i].OverlapWithPrev = prev
		}
	}

	return chunks, nil
}

// section is a heading-delimited region of the document. The heading
// line itself belongs to the section so that spans tile the content.
type section struct {
	title      string
	start, end int
}

// span is a byte range within the document content.
type span struct {
	start, end int
}

// packSection packs a section's sentences into token-bounded spans.
func (c *Chunker) packSection(content string, sec section) []span {
	sentences := splitSentenceSpans(content, sec.start, sec.end)
	if len(sentences) == 0 {
		return nil
	}

	counts := make([]int, len(sentences))
	for i, s := range sentences {
		counts[i] = c.counter.Count(content[s.start:s.end])
	}

	overlapTokens := int(float64(c.maxTokens) * c.overlap)

	var spans []span
	start := 0
	for start < len(sentences) {
		// Oversized single sentence: force-split, the only case where
		// a sentence boundary is not respected.
		if counts[start] > c.maxTokens {
			spans = append(spans, c.forceSplit(content, sentences[start])...)
			start++
			continue
		}

		end := start
		tokens := 0
		for end < len(sentences) {
			if counts[end] > c.maxTokens {
				break
			}
			if tokens > 0 && tokens+counts[end] > c.maxTokens {
				break
			}
			tokens += counts[end]
			end++
		}

		spans = append(spans, span{sentences[start].start, sentences[end-1].end})
		if end >= len(sentences) {
			break
		}
		if counts[end] > c.maxTokens {
			start = end
			continue
		}

		// Step the next chunk back over the tail of this one so
		// neighbours share context.
		next := end
		acc := 0
		for next > start+1 && acc+counts[next-1] <= overlapTokens {
			next--
			acc += counts[next]
		}
		start = next
	}

	return c.foldShortTail(content, spans)
}

// foldShortTail merges an under-filled final span into its predecessor
// when the combined size still fits the hard maximum. Slight under-fill
// is preferred over mid-sentence breaks, but a lone trailing fragment
// is folded away when possible.
func (c *Chunker) foldShortTail(content string, spans []span) []span {
	n := len(spans)
	if n < 2 {
		return spans
	}
	tail := spans[n-1]
	if c.counter.Count(content[tail.start:tail.end]) >= c.minTokens {
		return spans
	}
	merged := span{spans[n-2].start, tail.end}
	if c.counter.Count(content[merged.start:merged.end]) > c.maxTokens {
		return spans
	}
	return append(spans[:n-2], merged)
}

// forceSplit cuts an oversized sentence into byte windows at rune
// boundaries.
func (c *Chunker) forceSplit(content string, s span) []span {
	window := c.maxTokens * approxBytesPerToken
	var spans []span
	start := s.start
	for start < s.end {
		end := start + window
		if end >= s.end {
			end = s.end
		} else {
			for end > start && !utf8.RuneStart(content[end]) {
				end--
			}
			if end == start {
				end = start + window
			}
		}
		spans = append(spans, span{start, end})
		start = end
	}
	return spans
}

// build converts a span into a chunk with inherited document metadata.
func (c *Chunker) build(doc *domain.PolicyDocument, title string, sp span) domain.Chunk {
	text := doc.Content[sp.start:sp.end]
	return domain.Chunk{
		ID:            domain.ChunkID(doc.ID, sp.start),
		DocumentID:    doc.ID,
		Text:          text,
		TokenCount:    c.counter.Count(text),
		SectionTitle:  title,
		StartOffset:   sp.start,
		EndOffset:     sp.end,
		PolicyID:      doc.PolicyID,
		Department:    doc.Department,
		Category:      doc.Category,
		EffectiveDate: doc.EffectiveDate,
		LastUpdated:   doc.LastUpdated,
		Locale:        doc.Locale,
	}
}

// splitSections splits content at markdown headings. Text before the
// first heading forms an untitled section.
func splitSections(content string) []section {
	var sections []section
	cur := section{start: 0}

	offset := 0
	for offset < len(content) {
		lineEnd := strings.IndexByte(content[offset:], '\n')
		if lineEnd < 0 {
			lineEnd = len(content)
		} else {
			lineEnd += offset + 1
		}
		line := content[offset:lineEnd]

		if title, ok := headingTitle(line); ok {
			if offset > cur.start {
				cur.end = offset
				sections = append(sections, cur)
			}
			cur = section{title: title, start: offset}
		}
		offset = lineEnd
	}

	cur.end = len(content)
	if cur.end > cur.start {
		sections = append(sections, cur)
	}
	return sections
}

// headingTitle extracts the title from a markdown heading line.
func headingTitle(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "#") {
		return "", false
	}
	title := strings.TrimLeft(trimmed, "#")
	if title == trimmed {
		return "", false
	}
	return strings.TrimSpace(title), true
}

// splitSentenceSpans splits [start, end) into sentence spans that tile
// the region exactly. A sentence ends after '.', '!', '?' or a newline;
// trailing text without a terminator forms the final span.
func splitSentenceSpans(content string, start, end int) []span {
	var spans []span
	segStart := start
	for i := start; i < end; i++ {
		switch content[i] {
		case '.', '!', '?', '\n':
			spans = append(spans, span{segStart, i + 1})
			segStart = i + 1
		}
	}
	if segStart < end {
		spans = append(spans, span{segStart, end})
	}

	// Drop spans that are pure whitespace by gluing them to the
	// previous span, keeping the tiling intact.
	var merged []span
	for _, sp := range spans {
		if len(merged) > 0 && strings.TrimSpace(content[sp.start:sp.end]) == "" {
			merged[len(merged)-1].end = sp.end
			continue
		}
		merged = append(merged, sp)
	}
	return merged
}
