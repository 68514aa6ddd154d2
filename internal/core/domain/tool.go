package domain

import "time"

// Tool names exposed by the HR back end.
const (
	ToolBalanceGet    = "balance.get"
	ToolLeaveApply    = "leave.apply"
	ToolValidateRange = "calendar.validate_range"
)

// UserContext carries the caller identity attached to tool invocations.
type UserContext struct {
	// UserID is the employee identifier.
	UserID string

	// SessionID is the originating conversation.
	SessionID string

	// TurnID is the turn that triggered the invocation. Together with
	// UserID and SessionID it seeds the idempotency key so a retried
	// network call cannot file a duplicate request.
	TurnID int
}

// ToolResult is the structured outcome of a successful tool invocation.
type ToolResult struct {
	// Tool is the invoked tool name.
	Tool string

	// Payload is the decoded response body.
	Payload map[string]any

	// IdempotencyKey is the deduplication token that was attached.
	IdempotencyKey string
}

// DateRange is an inclusive [Start, End] span of days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ToolConflict is the structured payload for a date_overlap/conflict
// response from the tool layer. It is surfaced to the intent router,
// which re-prompts for a corrected range instead of failing the session.
type ToolConflict struct {
	// Tool is the tool that reported the conflict.
	Tool string

	// Reason is the machine-readable conflict code (e.g. "date_overlap",
	// "public_holiday").
	Reason string

	// Conflicting is the range that could not be booked.
	Conflicting DateRange

	// Alternatives are suggested replacement ranges, possibly empty.
	Alternatives []DateRange

	// Message is the human-readable explanation from the back end.
	Message string
}
