package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storemem "github.com/hrdesk-labs/hrdesk/internal/adapters/driven/storage/memory"
	vecmem "github.com/hrdesk-labs/hrdesk/internal/adapters/driven/vector/memory"
	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
	"github.com/hrdesk-labs/hrdesk/internal/core/ports/driven"
	"github.com/hrdesk-labs/hrdesk/internal/ingest/chunker"
)

const casualLeavePolicy = `---
policy_id: POL-001
title: Casual Leave Policy
effective_date: 2025-01-01
last_updated: 2025-06-01
department: HR
category: leave
---

# Casual Leave

Employees receive 12 casual leave days per calendar year. Unused days
lapse on 31 December and cannot be encashed.

# Applying

Requests must be filed at least one working day in advance.
`

const sickLeavePolicy = `---
policy_id: POL-002
effective_date: 2025-01-01
last_updated: 2025-03-01
department: HR
category: leave
---

# Sick Leave

Employees receive 10 sick leave days per calendar year. A medical
certificate is required from the third consecutive day.
`

func writePolicy(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newIngestHarness() (*IngestService, *storemem.DocumentStore, *vecmem.Index) {
	docs := storemem.NewDocumentStore()
	index := vecmem.NewIndex()
	embedder := &mockEmbedder{fallback: []float32{1, 0, 0}}
	svc := NewIngestService(docs, index, embedder, chunker.New(wordCounter{}, chunker.WithWindow(16, 32)))
	return svc, docs, index
}

func TestIngestService_IngestDir(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writePolicy(t, dir, "casual.md", casualLeavePolicy)
	writePolicy(t, dir, "sick.md", sickLeavePolicy)
	badPath := writePolicy(t, dir, "broken.md", "# No frontmatter here\n\nJust text.\n")
	writePolicy(t, dir, "notes.txt", "ignored, not markdown")

	svc, docs, index := newIngestHarness()

	report, err := svc.IngestDir(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Ingested)
	assert.Positive(t, report.Chunks)

	require.Len(t, report.Rejected, 1)
	var metaErr *domain.MetadataError
	require.ErrorAs(t, report.Rejected[badPath], &metaErr)

	// A rejected file is never partially ingested.
	_, err = docs.GetDocument(ctx, "broken")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	count, err := index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.Chunks, count)

	listed, err := docs.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestIngestService_IngestFile(t *testing.T) {
	ctx := context.Background()

	t.Run("document carries frontmatter metadata", func(t *testing.T) {
		dir := t.TempDir()
		path := writePolicy(t, dir, "casual.md", casualLeavePolicy)
		svc, docs, _ := newIngestHarness()

		doc, err := svc.IngestFile(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "POL-001", doc.ID)
		assert.Equal(t, "POL-001", doc.PolicyID)
		assert.Equal(t, "Casual Leave Policy", doc.Title)
		assert.Equal(t, "HR", doc.Department)
		assert.Equal(t, "leave", doc.Category)

		chunks, err := docs.GetChunks(ctx, doc.ID)
		require.NoError(t, err)
		require.NotEmpty(t, chunks)
		for _, chunk := range chunks {
			assert.Equal(t, doc.ID, chunk.DocumentID)
			assert.Equal(t, "POL-001", chunk.PolicyID)
			assert.Equal(t, "leave", chunk.Category)
		}
	})

	t.Run("re-ingestion is idempotent", func(t *testing.T) {
		dir := t.TempDir()
		path := writePolicy(t, dir, "casual.md", casualLeavePolicy)
		svc, docs, index := newIngestHarness()

		doc, err := svc.IngestFile(ctx, path)
		require.NoError(t, err)
		first, err := docs.GetChunks(ctx, doc.ID)
		require.NoError(t, err)
		countBefore, err := index.Count(ctx)
		require.NoError(t, err)

		_, err = svc.IngestFile(ctx, path)
		require.NoError(t, err)
		second, err := docs.GetChunks(ctx, doc.ID)
		require.NoError(t, err)
		countAfter, err := index.Count(ctx)
		require.NoError(t, err)

		assert.Equal(t, countBefore, countAfter)
		require.Equal(t, len(first), len(second))
		for i := range first {
			assert.Equal(t, first[i].ID, second[i].ID)
		}
	})

	t.Run("same policy id supersedes the previous version", func(t *testing.T) {
		dir := t.TempDir()
		path := writePolicy(t, dir, "casual.md", casualLeavePolicy)
		svc, docs, index := newIngestHarness()

		_, err := svc.IngestFile(ctx, path)
		require.NoError(t, err)

		revised := `---
policy_id: POL-001
title: Casual Leave Policy v2
effective_date: 2026-01-01
last_updated: 2026-01-01
department: HR
category: leave
---

# Casual Leave

Employees now receive 15 casual leave days per calendar year.
`
		path = writePolicy(t, dir, "casual.md", revised)
		doc, err := svc.IngestFile(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "Casual Leave Policy v2", doc.Title)

		chunks, err := docs.GetChunks(ctx, doc.ID)
		require.NoError(t, err)
		count, err := index.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, len(chunks), count)

		stored, err := docs.GetDocumentByPolicyID(ctx, "POL-001")
		require.NoError(t, err)
		assert.Contains(t, stored.Content, "15 casual leave days")
	})

	t.Run("missing file", func(t *testing.T) {
		svc, _, _ := newIngestHarness()
		_, err := svc.IngestFile(ctx, filepath.Join(t.TempDir(), "absent.md"))
		assert.Error(t, err)
	})
}

// stubPDFExtractor stands in for pdftotext.
type stubPDFExtractor struct {
	text string
	err  error
}

func (s *stubPDFExtractor) Extract(_ context.Context, _ string) (string, error) {
	return s.text, s.err
}

const parentalLeaveSidecar = `policy_id: POL-010
title: Parental Leave Policy
effective_date: 2025-04-01
last_updated: 2025-04-01
department: HR
category: leave
`

func TestIngestService_IngestFile_PDF(t *testing.T) {
	ctx := context.Background()

	newPDFHarness := func(extractor PDFExtractor) (*IngestService, *storemem.DocumentStore, *vecmem.Index) {
		docs := storemem.NewDocumentStore()
		index := vecmem.NewIndex()
		embedder := &mockEmbedder{fallback: []float32{1, 0, 0}}
		svc := NewIngestService(docs, index, embedder, chunker.New(wordCounter{}, chunker.WithWindow(16, 32)),
			WithPDFExtractor(extractor))
		return svc, docs, index
	}

	t.Run("metadata comes from the sidecar", func(t *testing.T) {
		dir := t.TempDir()
		path := writePolicy(t, dir, "parental.pdf", "%PDF-1.4 stand-in")
		writePolicy(t, dir, "parental.yaml", parentalLeaveSidecar)

		extractor := &stubPDFExtractor{text: "Employees receive 26 weeks of parental leave.\n"}
		svc, docs, index := newPDFHarness(extractor)

		doc, err := svc.IngestFile(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, "POL-010", doc.ID)
		assert.Equal(t, "Parental Leave Policy", doc.Title)
		assert.Equal(t, "leave", doc.Category)
		assert.Contains(t, doc.Content, "26 weeks")

		chunks, err := docs.GetChunks(ctx, doc.ID)
		require.NoError(t, err)
		require.NotEmpty(t, chunks)

		count, err := index.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, len(chunks), count)
	})

	t.Run("missing sidecar is rejected", func(t *testing.T) {
		dir := t.TempDir()
		path := writePolicy(t, dir, "parental.pdf", "%PDF-1.4 stand-in")

		svc, docs, _ := newPDFHarness(&stubPDFExtractor{text: "text"})
		_, err := svc.IngestFile(ctx, path)

		var metaErr *domain.MetadataError
		require.ErrorAs(t, err, &metaErr)
		assert.Equal(t, "sidecar", metaErr.Field)

		listed, err := docs.ListDocuments(ctx)
		require.NoError(t, err)
		assert.Empty(t, listed)
	})

	t.Run("extraction failure is reported", func(t *testing.T) {
		dir := t.TempDir()
		path := writePolicy(t, dir, "parental.pdf", "%PDF-1.4 stand-in")
		writePolicy(t, dir, "parental.yaml", parentalLeaveSidecar)

		svc, _, _ := newPDFHarness(&stubPDFExtractor{err: assert.AnError})
		_, err := svc.IngestFile(ctx, path)
		assert.ErrorIs(t, err, assert.AnError)
	})

	t.Run("directory scan includes pdf only with an extractor", func(t *testing.T) {
		dir := t.TempDir()
		writePolicy(t, dir, "casual.md", casualLeavePolicy)
		writePolicy(t, dir, "parental.pdf", "%PDF-1.4 stand-in")
		writePolicy(t, dir, "parental.yaml", parentalLeaveSidecar)

		svc, _, _ := newIngestHarness()
		report, err := svc.IngestDir(ctx, dir)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Ingested)

		pdfSvc, _, _ := newPDFHarness(&stubPDFExtractor{text: "Parental leave content.\n"})
		report, err = pdfSvc.IngestDir(ctx, dir)
		require.NoError(t, err)
		assert.Equal(t, 2, report.Ingested)
	})
}

// TestIngestService_ReingestVisibleThroughout re-ingests one policy in
// a loop while a concurrent reader queries the index. The policy must
// stay queryable on every read; a zero-hit read means the replacement
// exposed a window with the old chunks gone and the new ones absent.
func TestIngestService_ReingestVisibleThroughout(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writePolicy(t, dir, "casual.md", casualLeavePolicy)
	svc, _, index := newIngestHarness()

	_, err := svc.IngestFile(ctx, path)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			if _, err := svc.IngestFile(ctx, path); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	gaps := 0
	for {
		select {
		case <-done:
			assert.Zero(t, gaps, "queries observed the policy missing during re-ingestion")
			return
		default:
			hits, err := index.Query(ctx, []float32{1, 0, 0}, 1, driven.QueryFilter{})
			require.NoError(t, err)
			if len(hits) == 0 {
				gaps++
			}
		}
	}
}

func TestIngestService_Remove(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writePolicy(t, dir, "casual.md", casualLeavePolicy)
	svc, docs, index := newIngestHarness()

	doc, err := svc.IngestFile(ctx, path)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, doc.ID))

	count, err := index.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = docs.GetDocument(ctx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
