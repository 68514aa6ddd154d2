// Package memory provides in-memory store implementations for tests
// and ephemeral single-process runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
	"github.com/hrdesk-labs/hrdesk/internal/core/ports/driven"
)

var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is a thread-safe in-memory document store.
type DocumentStore struct {
	mu     sync.RWMutex
	docs   map[string]domain.PolicyDocument
	chunks map[string][]domain.Chunk
}

// NewDocumentStore creates an empty document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		docs:   make(map[string]domain.PolicyDocument),
		chunks: make(map[string][]domain.Chunk),
	}
}

// SaveDocument stores or replaces a document.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.PolicyDocument) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = *doc
	return nil
}

// SaveChunks stores the chunk set for a document, replacing any
// previous set. All chunks must belong to the same document.
func (s *DocumentStore) SaveChunks(_ context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	documentID := chunks[0].DocumentID
	for _, c := range chunks {
		if c.DocumentID != documentID {
			return domain.ErrInvalidInput
		}
	}

	stored := make([]domain.Chunk, len(chunks))
	copy(stored, chunks)
	sort.Slice(stored, func(i, j int) bool {
		return stored[i].StartOffset < stored[j].StartOffset
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[documentID] = stored
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.PolicyDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// GetDocumentByPolicyID retrieves the live document for a policy.
func (s *DocumentStore) GetDocumentByPolicyID(_ context.Context, policyID string) (*domain.PolicyDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.docs {
		if doc.PolicyID == policyID {
			d := doc
			return &d, nil
		}
	}
	return nil, domain.ErrNotFound
}

// GetChunks retrieves all chunks of a document ordered by offset.
func (s *DocumentStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.chunks[documentID]
	if !ok {
		return nil, nil
	}
	out := make([]domain.Chunk, len(stored))
	copy(out, stored)
	return out, nil
}

// DeleteDocument removes a document and its chunks.
// Deleting an unknown document is a no-op.
func (s *DocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	delete(s.chunks, id)
	return nil
}

// ListDocuments returns all stored documents sorted by ID.
func (s *DocumentStore) ListDocuments(_ context.Context) ([]domain.PolicyDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.PolicyDocument, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
