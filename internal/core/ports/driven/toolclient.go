package driven

import "context"

// ToolCall is one request to the HR back end.
type ToolCall struct {
	// Tool is the schema-declared operation name (e.g. "leave.apply").
	Tool string

	// Arguments is the already-validated argument payload.
	Arguments map[string]any

	// IdempotencyKey deduplicates retried calls. The back end must
	// treat two calls with the same key as one logical submission.
	IdempotencyKey string
}

// ToolResponse is the raw decoded reply from the HR back end.
// The tool invocation service translates it into a domain.ToolResult,
// a domain.ToolConflict, or a domain.ToolError before it crosses into
// the intent router.
type ToolResponse struct {
	// Status is "ok", "conflict", or "error".
	Status string

	// Payload is the response body for ok results.
	Payload map[string]any

	// Code is the machine-readable code for conflict/error statuses.
	Code string

	// Message is the human-readable explanation.
	Message string
}

// ToolClient reaches the HR back-end APIs. Transport failures that may
// succeed on retry must be reported as domain.ErrProviderTransient so
// the invoker can retry under the same idempotency key.
type ToolClient interface {
	// Call executes one tool operation.
	Call(ctx context.Context, call ToolCall) (ToolResponse, error)
}
