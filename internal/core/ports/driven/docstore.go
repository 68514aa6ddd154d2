package driven

import (
	"context"

	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
)

// DocumentStore persists policy documents and their chunks.
// Backed by SQLite for durable metadata storage, or memory for tests.
type DocumentStore interface {
	// SaveDocument stores or replaces a document.
	SaveDocument(ctx context.Context, doc *domain.PolicyDocument) error

	// SaveChunks stores the chunk set for a document, replacing any
	// previous set.
	SaveChunks(ctx context.Context, chunks []domain.Chunk) error

	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound when absent.
	GetDocument(ctx context.Context, id string) (*domain.PolicyDocument, error)

	// GetDocumentByPolicyID retrieves the live document for a policy.
	GetDocumentByPolicyID(ctx context.Context, policyID string) (*domain.PolicyDocument, error)

	// GetChunks retrieves all chunks of a document ordered by offset.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// DeleteDocument removes a document and its chunks.
	DeleteDocument(ctx context.Context, id string) error

	// ListDocuments returns all stored documents.
	ListDocuments(ctx context.Context) ([]domain.PolicyDocument, error)
}

// SessionStore persists conversation state keyed by session ID.
// Keeping session state out of process memory lets stateless workers
// scale horizontally.
type SessionStore interface {
	// Save stores or replaces the state for a session.
	Save(ctx context.Context, state domain.ConversationState) error

	// Get retrieves the state for a session.
	// Returns domain.ErrNotFound when the session is unknown.
	Get(ctx context.Context, sessionID string) (domain.ConversationState, error)

	// Delete discards a session's state.
	Delete(ctx context.Context, sessionID string) error
}
