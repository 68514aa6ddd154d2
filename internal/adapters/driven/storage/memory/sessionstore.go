package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
	"github.com/hrdesk-labs/hrdesk/internal/core/ports/driven"
)

var _ driven.SessionStore = (*SessionStore)(nil)

// SessionStore is a thread-safe in-memory session state store with an
// optional idle timeout. Expired sessions read as not found, matching
// the session lifecycle of the durable store.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.ConversationState
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates a session store. A zero ttl disables expiry.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]domain.ConversationState),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Save stores or replaces the state for a session.
func (s *SessionStore) Save(_ context.Context, state domain.ConversationState) error {
	if state.SessionID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[state.SessionID] = state
	return nil
}

// Get retrieves the state for a session.
func (s *SessionStore) Get(_ context.Context, sessionID string) (domain.ConversationState, error) {
	s.mu.RLock()
	state, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if !ok {
		return domain.ConversationState{}, domain.ErrNotFound
	}
	if s.ttl > 0 && s.now().Sub(state.UpdatedAt) > s.ttl {
		s.mu.Lock()
		delete(s.sessions, sessionID)
		s.mu.Unlock()
		return domain.ConversationState{}, domain.ErrNotFound
	}
	return state, nil
}

// Delete discards a session's state.
func (s *SessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
