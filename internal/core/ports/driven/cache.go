package driven

import (
	"context"

	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
)

// CompletionCache stores completions for deterministic sub-requests,
// keyed by a hash of (route, normalised prompt, model id). Cache hits
// bypass provider calls entirely.
//
// Writes must be all-or-nothing: a cancelled request must never leave a
// partially written entry behind.
type CompletionCache interface {
	// Get returns the cached completion for a key, if present.
	Get(ctx context.Context, key string) (text string, usage domain.TokenUsage, ok bool)

	// Put stores a completion under a key, replacing any previous value.
	Put(ctx context.Context, key string, text string, usage domain.TokenUsage) error
}

// AuditSink receives the routing decision emitted by every governed
// completion, successful or not. The core does not retain decisions;
// telemetry is an external collaborator's concern.
type AuditSink interface {
	// Record delivers one routing decision.
	Record(ctx context.Context, decision domain.RoutingDecision)
}
