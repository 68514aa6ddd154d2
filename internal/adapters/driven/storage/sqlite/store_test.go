package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testDocument() *domain.PolicyDocument {
	return &domain.PolicyDocument{
		ID:            "POL-001",
		PolicyID:      "POL-001",
		Title:         "Casual Leave Policy",
		Content:       "Employees receive 12 casual leave days per year.",
		Department:    "HR",
		Category:      "leave",
		Locale:        "en-IN",
		EffectiveDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		LastUpdated:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		SourcePath:    "/policies/casual.md",
	}
}

func TestStore_Migrate(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.DocumentStore().SaveDocument(context.Background(), testDocument()))
	require.NoError(t, store.Close())

	// Reopening replays no migrations and keeps the data.
	store, err = NewStore(dir)
	require.NoError(t, err)
	defer store.Close()

	doc, err := store.DocumentStore().GetDocument(context.Background(), "POL-001")
	require.NoError(t, err)
	assert.Equal(t, "Casual Leave Policy", doc.Title)
}

func TestStore_Documents(t *testing.T) {
	ctx := context.Background()

	t.Run("roundtrip", func(t *testing.T) {
		store := newTestStore(t)
		docs := store.DocumentStore()

		want := testDocument()
		require.NoError(t, docs.SaveDocument(ctx, want))

		got, err := docs.GetDocument(ctx, want.ID)
		require.NoError(t, err)
		assert.Equal(t, want.Title, got.Title)
		assert.Equal(t, want.Content, got.Content)
		assert.Equal(t, want.Locale, got.Locale)
		assert.True(t, want.EffectiveDate.Equal(got.EffectiveDate))
		assert.True(t, want.LastUpdated.Equal(got.LastUpdated))

		byPolicy, err := docs.GetDocumentByPolicyID(ctx, want.PolicyID)
		require.NoError(t, err)
		assert.Equal(t, want.ID, byPolicy.ID)
	})

	t.Run("save replaces", func(t *testing.T) {
		store := newTestStore(t)
		docs := store.DocumentStore()

		doc := testDocument()
		require.NoError(t, docs.SaveDocument(ctx, doc))
		doc.Title = "Casual Leave Policy v2"
		require.NoError(t, docs.SaveDocument(ctx, doc))

		got, err := docs.GetDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, "Casual Leave Policy v2", got.Title)

		listed, err := docs.ListDocuments(ctx)
		require.NoError(t, err)
		assert.Len(t, listed, 1)
	})

	t.Run("unknown document", func(t *testing.T) {
		store := newTestStore(t)
		_, err := store.DocumentStore().GetDocument(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("chunks roundtrip in offset order", func(t *testing.T) {
		store := newTestStore(t)
		docs := store.DocumentStore()
		require.NoError(t, docs.SaveDocument(ctx, testDocument()))

		chunks := []domain.Chunk{
			{
				ID: "c2", DocumentID: "POL-001", Text: "second", TokenCount: 1,
				SectionTitle: "Applying", StartOffset: 50, EndOffset: 56,
				OverlapWithPrev: 6, PolicyID: "POL-001", Department: "HR",
				Category: "leave", Locale: "en-IN",
				EffectiveDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
				LastUpdated:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			},
			{
				ID: "c1", DocumentID: "POL-001", Text: "first", TokenCount: 1,
				SectionTitle: "Eligibility", StartOffset: 0, EndOffset: 5,
				PolicyID: "POL-001", Department: "HR", Category: "leave",
			},
		}
		require.NoError(t, docs.SaveChunks(ctx, chunks))

		got, err := docs.GetChunks(ctx, "POL-001")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "c1", got[0].ID)
		assert.Equal(t, "c2", got[1].ID)
		assert.Equal(t, "Applying", got[1].SectionTitle)
		assert.Equal(t, 6, got[1].OverlapWithPrev)

		// Saving again replaces the set.
		require.NoError(t, docs.SaveChunks(ctx, chunks[:1]))
		got, err = docs.GetChunks(ctx, "POL-001")
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("delete cascades to chunks", func(t *testing.T) {
		store := newTestStore(t)
		docs := store.DocumentStore()
		require.NoError(t, docs.SaveDocument(ctx, testDocument()))
		require.NoError(t, docs.SaveChunks(ctx, []domain.Chunk{
			{ID: "c1", DocumentID: "POL-001", Text: "x", EndOffset: 1},
		}))

		require.NoError(t, docs.DeleteDocument(ctx, "POL-001"))

		_, err := docs.GetDocument(ctx, "POL-001")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		chunks, err := docs.GetChunks(ctx, "POL-001")
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})
}

func TestStore_Sessions(t *testing.T) {
	ctx := context.Background()

	t.Run("roundtrip with slots", func(t *testing.T) {
		store := newTestStore(t)
		sessions := store.SessionStore()

		state := domain.ConversationState{
			SessionID: "s-1",
			UserID:    "emp-42",
			Intent:    domain.IntentLeaveApplication,
			Slots: domain.LeaveSlots{
				Type:      domain.LeaveSick,
				StartDate: time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
				EndDate:   time.Date(2026, 9, 11, 0, 0, 0, 0, time.UTC),
				Reason:    "fever",
			},
			TurnID:    3,
			UpdatedAt: time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC),
		}
		require.NoError(t, sessions.Save(ctx, state))

		got, err := sessions.Get(ctx, "s-1")
		require.NoError(t, err)
		assert.Equal(t, state.Intent, got.Intent)
		assert.Equal(t, state.TurnID, got.TurnID)
		assert.Equal(t, domain.LeaveSick, got.Slots.Type)
		assert.True(t, state.Slots.StartDate.Equal(got.Slots.StartDate))
		assert.True(t, state.Slots.EndDate.Equal(got.Slots.EndDate))
		assert.Equal(t, "fever", got.Slots.Reason)
	})

	t.Run("empty slots survive", func(t *testing.T) {
		store := newTestStore(t)
		sessions := store.SessionStore()

		require.NoError(t, sessions.Save(ctx, domain.ConversationState{
			SessionID: "s-2",
			UserID:    "emp-42",
			Intent:    domain.IntentUnset,
			UpdatedAt: time.Now().UTC(),
		}))

		got, err := sessions.Get(ctx, "s-2")
		require.NoError(t, err)
		assert.Empty(t, got.Slots.Type)
		assert.True(t, got.Slots.StartDate.IsZero())
	})

	t.Run("save replaces", func(t *testing.T) {
		store := newTestStore(t)
		sessions := store.SessionStore()

		state := domain.ConversationState{SessionID: "s-3", UserID: "emp-42", Intent: domain.IntentUnset, UpdatedAt: time.Now().UTC()}
		require.NoError(t, sessions.Save(ctx, state))
		state.Intent = domain.IntentLeaveApplication
		state.TurnID = 1
		require.NoError(t, sessions.Save(ctx, state))

		got, err := sessions.Get(ctx, "s-3")
		require.NoError(t, err)
		assert.Equal(t, domain.IntentLeaveApplication, got.Intent)
		assert.Equal(t, 1, got.TurnID)
	})

	t.Run("delete", func(t *testing.T) {
		store := newTestStore(t)
		sessions := store.SessionStore()

		require.NoError(t, sessions.Save(ctx, domain.ConversationState{
			SessionID: "s-4", UserID: "emp-42", UpdatedAt: time.Now().UTC(),
		}))
		require.NoError(t, sessions.Delete(ctx, "s-4"))

		_, err := sessions.Get(ctx, "s-4")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("stale session expires and its row is dropped", func(t *testing.T) {
		store := newTestStore(t)
		sessions := store.SessionStoreWithTTL(30 * time.Minute)

		base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
		impl := sessions.(*sessionStore)
		impl.now = func() time.Time { return base }

		require.NoError(t, sessions.Save(ctx, domain.ConversationState{
			SessionID: "s-5", UserID: "emp-42", UpdatedAt: base,
		}))

		// Inside the window the session is live.
		impl.now = func() time.Time { return base.Add(29 * time.Minute) }
		_, err := sessions.Get(ctx, "s-5")
		require.NoError(t, err)

		// Past the window it reads as absent, and the row is gone even
		// for a store with no ttl of its own.
		impl.now = func() time.Time { return base.Add(31 * time.Minute) }
		_, err = sessions.Get(ctx, "s-5")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = store.SessionStore().Get(ctx, "s-5")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("zero ttl never expires", func(t *testing.T) {
		store := newTestStore(t)
		sessions := store.SessionStore()

		require.NoError(t, sessions.Save(ctx, domain.ConversationState{
			SessionID: "s-6", UserID: "emp-42",
			UpdatedAt: time.Now().UTC().Add(-365 * 24 * time.Hour),
		}))

		_, err := sessions.Get(ctx, "s-6")
		assert.NoError(t, err)
	})
}
