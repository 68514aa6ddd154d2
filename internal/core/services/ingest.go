package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
	"github.com/hrdesk-labs/hrdesk/internal/core/ports/driven"
	"github.com/hrdesk-labs/hrdesk/internal/core/ports/driving"
	"github.com/hrdesk-labs/hrdesk/internal/ingest/chunker"
	"github.com/hrdesk-labs/hrdesk/internal/ingest/frontmatter"
	"github.com/hrdesk-labs/hrdesk/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// PDFExtractor converts a PDF file to plain text.
type PDFExtractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// IngestService turns policy files into tagged chunks and vector
// entries. Re-ingestion under the same policy ID replaces the previous
// version: the index swaps the document's whole entry set in one
// atomic operation, so a concurrent query sees either the old chunks
// or the new ones, never an empty or mixed set.
type IngestService struct {
	docStore    driven.DocumentStore
	vectorIndex driven.VectorIndex
	embedder    driven.EmbeddingService
	chunker     *chunker.Chunker
	pdf         PDFExtractor

	// docLocks serialises writers per document ID while unrelated
	// documents ingest concurrently.
	docLocks *keyedMutex
}

// IngestOption configures an IngestService.
type IngestOption func(*IngestService)

// WithPDFExtractor enables PDF ingestion. A PDF's metadata comes from
// a YAML sidecar file next to it (policy.pdf + policy.yaml).
func WithPDFExtractor(extractor PDFExtractor) IngestOption {
	return func(s *IngestService) { s.pdf = extractor }
}

// NewIngestService creates an ingest service.
func NewIngestService(
	docStore driven.DocumentStore,
	vectorIndex driven.VectorIndex,
	embedder driven.EmbeddingService,
	ch *chunker.Chunker,
	opts ...IngestOption,
) *IngestService {
	s := &IngestService{
		docStore:    docStore,
		vectorIndex: vectorIndex,
		embedder:    embedder,
		chunker:     ch,
		docLocks:    newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IngestDir ingests every policy file in a directory: markdown always,
// PDF when an extractor is configured. A file with invalid metadata is
// reported in the result and does not abort the run.
func (s *IngestService) IngestDir(ctx context.Context, dir string) (driving.IngestReport, error) {
	report := driving.IngestReport{Rejected: make(map[string]error)}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return report, fmt.Errorf("read policy directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !s.supported(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)

	logger.Section("Policy Ingestion")
	logger.Info("Ingesting %d files from %s", len(paths), dir)

	for _, path := range paths {
		doc, err := s.IngestFile(ctx, path)
		if err != nil {
			logger.Warn("Rejected %s: %v", path, err)
			report.Rejected[path] = err
			continue
		}
		chunks, err := s.docStore.GetChunks(ctx, doc.ID)
		if err != nil {
			return report, fmt.Errorf("count chunks for %s: %w", doc.ID, err)
		}
		report.Ingested++
		report.Chunks += len(chunks)
	}

	logger.Info("Ingestion complete: %d documents, %d chunks, %d rejected",
		report.Ingested, report.Chunks, len(report.Rejected))
	return report, nil
}

// supported reports whether a file name is an ingestable policy file.
func (s *IngestService) supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md":
		return true
	case ".pdf":
		return s.pdf != nil
	default:
		return false
	}
}

// IngestFile ingests a single policy file.
func (s *IngestService) IngestFile(ctx context.Context, path string) (*domain.PolicyDocument, error) {
	var (
		meta frontmatter.Metadata
		body string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		meta, body, err = s.loadPDF(ctx, path)
	default:
		meta, body, err = loadMarkdown(path)
	}
	if err != nil {
		return nil, err
	}

	doc := &domain.PolicyDocument{
		// The document ID is the policy ID: re-ingestion under the same
		// policy supersedes the previous version instead of adding one.
		ID:            meta.PolicyID,
		PolicyID:      meta.PolicyID,
		Title:         documentTitle(meta.Title, body, path),
		Content:       body,
		Department:    meta.Department,
		Category:      meta.Category,
		EffectiveDate: meta.EffectiveDate,
		LastUpdated:   meta.LastUpdated,
		Locale:        meta.Locale,
		SourcePath:    path,
	}

	chunks, err := s.chunker.Chunk(doc)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", doc.ID, err)
	}
	logger.Debug("Document %s: %d chunks", doc.ID, len(chunks))

	// Embed outside the document lock; only the index swap needs to be
	// serialised.
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks for %s: %w", doc.ID, err)
	}
	if len(embeddings) != len(chunks) {
		return nil, fmt.Errorf("embed chunks for %s: got %d embeddings for %d chunks: %w",
			doc.ID, len(embeddings), len(chunks), domain.ErrIndexConsistency)
	}

	entries := make([]domain.VectorEntry, len(chunks))
	for i := range chunks {
		entries[i] = domain.VectorEntry{Chunk: chunks[i], Embedding: embeddings[i]}
	}

	unlock := s.docLocks.Lock(doc.ID)
	defer unlock()

	if err := s.vectorIndex.ReplaceDocument(ctx, doc.ID, entries); err != nil {
		return nil, fmt.Errorf("replace chunks for %s: %w", doc.ID, err)
	}
	if err := s.docStore.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document %s: %w", doc.ID, err)
	}
	if err := s.docStore.SaveChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("save chunks for %s: %w", doc.ID, err)
	}

	return doc, nil
}

// loadMarkdown reads a markdown policy and parses its frontmatter.
func loadMarkdown(path string) (frontmatter.Metadata, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return frontmatter.Metadata{}, "", fmt.Errorf("read policy file: %w", err)
	}
	return frontmatter.Parse(path, string(data))
}

// loadPDF extracts a PDF's text and reads its metadata from the YAML
// sidecar next to it (policy.pdf + policy.yaml, or .yml).
func (s *IngestService) loadPDF(ctx context.Context, path string) (frontmatter.Metadata, string, error) {
	if s.pdf == nil {
		return frontmatter.Metadata{}, "", fmt.Errorf("ingest %s: PDF support is not enabled", path)
	}

	sidecar, err := readSidecar(path)
	if err != nil {
		return frontmatter.Metadata{}, "", err
	}
	meta, err := frontmatter.ParseSidecar(path, sidecar)
	if err != nil {
		return frontmatter.Metadata{}, "", err
	}

	body, err := s.pdf.Extract(ctx, path)
	if err != nil {
		return frontmatter.Metadata{}, "", err
	}
	return meta, body, nil
}

// readSidecar loads the metadata file paired with a PDF.
func readSidecar(pdfPath string) (string, error) {
	stem := strings.TrimSuffix(pdfPath, filepath.Ext(pdfPath))
	for _, ext := range []string{".yaml", ".yml"} {
		data, err := os.ReadFile(stem + ext)
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("read sidecar for %s: %w", pdfPath, err)
		}
	}
	return "", &domain.MetadataError{
		Path: pdfPath, Field: "sidecar",
		Reason: "missing metadata sidecar (" + filepath.Base(stem) + ".yaml)",
	}
}

// Remove deletes a document and all its index entries.
func (s *IngestService) Remove(ctx context.Context, documentID string) error {
	unlock := s.docLocks.Lock(documentID)
	defer unlock()

	if err := s.vectorIndex.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete vectors for %s: %w", documentID, err)
	}
	if err := s.docStore.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete document %s: %w", documentID, err)
	}
	return nil
}

// documentTitle picks the title from frontmatter, the first heading, or
// the file name, in that order.
func documentTitle(metaTitle, body, path string) string {
	if metaTitle != "" {
		return metaTitle
	}
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ReplaceAll(name, "-", " ")
}
