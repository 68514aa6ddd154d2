package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors: every adapter
// translates its library errors into one of these kinds before the
// error crosses a port boundary.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrBudgetExceeded indicates a prompt could not be fitted under the
	// request token budget even after context compression. Fatal to the
	// turn; the user is asked to narrow the request.
	ErrBudgetExceeded = errors.New("token budget exceeded")

	// ErrAllProvidersExhausted indicates every configured provider in
	// the fallback chain failed. Fatal to the turn; the caller degrades
	// to a static message.
	ErrAllProvidersExhausted = errors.New("all providers exhausted")

	// ErrProviderTransient indicates a retryable provider failure.
	// It is consumed inside the governor's retry loop and only becomes
	// visible if retries and failover both exhaust.
	ErrProviderTransient = errors.New("transient provider error")

	// ErrIndexConsistency indicates a partial delete or upsert was
	// observed in the vector index. This must never occur; observing it
	// is treated as a fatal invariant violation.
	ErrIndexConsistency = errors.New("vector index consistency violation")

	// ErrSessionBusy indicates a turn arrived while the previous turn
	// for the same session was still being processed.
	ErrSessionBusy = errors.New("session turn already in progress")
)

// MetadataError reports unparsable or incomplete document frontmatter.
// The document is rejected as a whole and never partially ingested.
type MetadataError struct {
	// Path is the source file.
	Path string

	// Field is the missing or invalid frontmatter field.
	Field string

	// Reason explains what was wrong with the field.
	Reason string
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("metadata error in %s: field %q: %s", e.Path, e.Field, e.Reason)
}

// SchemaError reports tool arguments that failed validation against the
// tool's declared schema. The call is rejected locally, before dispatch.
type SchemaError struct {
	// Tool is the tool whose schema was violated.
	Tool string

	// Violations lists the individual validation failures.
	Violations []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("tool %s: arguments failed schema validation: %v", e.Tool, e.Violations)
}

// ToolError reports a non-conflict failure from the tool layer.
type ToolError struct {
	// Tool is the invoked tool name.
	Tool string

	// Code is the machine-readable error code from the back end.
	Code string

	// Message is the human-readable explanation.
	Message string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s failed: %s: %s", e.Tool, e.Code, e.Message)
}

// ConflictError wraps a structured ToolConflict as an error so it can
// travel through error returns without losing the payload.
type ConflictError struct {
	Conflict ToolConflict
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("tool %s: %s", e.Conflict.Tool, e.Conflict.Reason)
}

// GuardrailBlockedError indicates the guardrail gate suppressed a
// request or response. The user sees a generic safety message; Reason
// is logged internally only and must not be shown to the caller.
type GuardrailBlockedError struct {
	// Stage is "input" or "output".
	Stage string

	// Reason is the internal block reason.
	Reason string
}

func (e *GuardrailBlockedError) Error() string {
	return fmt.Sprintf("guardrail blocked %s", e.Stage)
}
