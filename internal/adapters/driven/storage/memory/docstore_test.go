package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
)

func TestDocumentStore_Documents(t *testing.T) {
	ctx := context.Background()

	t.Run("save and get", func(t *testing.T) {
		store := NewDocumentStore()
		doc := &domain.PolicyDocument{ID: "POL-001", PolicyID: "POL-001", Title: "Casual Leave"}
		require.NoError(t, store.SaveDocument(ctx, doc))

		got, err := store.GetDocument(ctx, "POL-001")
		require.NoError(t, err)
		assert.Equal(t, "Casual Leave", got.Title)

		byPolicy, err := store.GetDocumentByPolicyID(ctx, "POL-001")
		require.NoError(t, err)
		assert.Equal(t, doc.ID, byPolicy.ID)
	})

	t.Run("save replaces", func(t *testing.T) {
		store := NewDocumentStore()
		require.NoError(t, store.SaveDocument(ctx, &domain.PolicyDocument{ID: "POL-001", Title: "v1"}))
		require.NoError(t, store.SaveDocument(ctx, &domain.PolicyDocument{ID: "POL-001", Title: "v2"}))

		got, err := store.GetDocument(ctx, "POL-001")
		require.NoError(t, err)
		assert.Equal(t, "v2", got.Title)

		listed, err := store.ListDocuments(ctx)
		require.NoError(t, err)
		assert.Len(t, listed, 1)
	})

	t.Run("unknown document", func(t *testing.T) {
		store := NewDocumentStore()
		_, err := store.GetDocument(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = store.GetDocumentByPolicyID(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("invalid input rejected", func(t *testing.T) {
		store := NewDocumentStore()
		assert.ErrorIs(t, store.SaveDocument(ctx, nil), domain.ErrInvalidInput)
		assert.ErrorIs(t, store.SaveDocument(ctx, &domain.PolicyDocument{}), domain.ErrInvalidInput)
	})

	t.Run("list sorted by id", func(t *testing.T) {
		store := NewDocumentStore()
		require.NoError(t, store.SaveDocument(ctx, &domain.PolicyDocument{ID: "POL-002"}))
		require.NoError(t, store.SaveDocument(ctx, &domain.PolicyDocument{ID: "POL-001"}))

		listed, err := store.ListDocuments(ctx)
		require.NoError(t, err)
		require.Len(t, listed, 2)
		assert.Equal(t, "POL-001", listed[0].ID)
		assert.Equal(t, "POL-002", listed[1].ID)
	})
}

func TestDocumentStore_Chunks(t *testing.T) {
	ctx := context.Background()

	t.Run("stored in offset order", func(t *testing.T) {
		store := NewDocumentStore()
		require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
			{ID: "c2", DocumentID: "POL-001", StartOffset: 100},
			{ID: "c1", DocumentID: "POL-001", StartOffset: 0},
		}))

		chunks, err := store.GetChunks(ctx, "POL-001")
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, "c1", chunks[0].ID)
		assert.Equal(t, "c2", chunks[1].ID)
	})

	t.Run("replaces the previous set", func(t *testing.T) {
		store := NewDocumentStore()
		require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
			{ID: "c1", DocumentID: "POL-001"},
			{ID: "c2", DocumentID: "POL-001", StartOffset: 10},
		}))
		require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{
			{ID: "c3", DocumentID: "POL-001"},
		}))

		chunks, err := store.GetChunks(ctx, "POL-001")
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, "c3", chunks[0].ID)
	})

	t.Run("mixed documents rejected", func(t *testing.T) {
		store := NewDocumentStore()
		err := store.SaveChunks(ctx, []domain.Chunk{
			{ID: "c1", DocumentID: "POL-001"},
			{ID: "c2", DocumentID: "POL-002"},
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("delete removes document and chunks", func(t *testing.T) {
		store := NewDocumentStore()
		require.NoError(t, store.SaveDocument(ctx, &domain.PolicyDocument{ID: "POL-001"}))
		require.NoError(t, store.SaveChunks(ctx, []domain.Chunk{{ID: "c1", DocumentID: "POL-001"}}))

		require.NoError(t, store.DeleteDocument(ctx, "POL-001"))

		_, err := store.GetDocument(ctx, "POL-001")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		chunks, err := store.GetChunks(ctx, "POL-001")
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})
}
