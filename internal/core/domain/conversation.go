package domain

import "time"

// Intent is the classified purpose of a user utterance.
type Intent string

const (
	// IntentUnset means no classification has happened yet this turn.
	IntentUnset Intent = "unset"

	// IntentPolicySearch is a question answered from the policy index.
	IntentPolicySearch Intent = "policy_search"

	// IntentLeaveApplication is a request to file or amend leave.
	IntentLeaveApplication Intent = "leave_application"

	// IntentFallback means classification confidence was too low and
	// the assistant should ask for clarification instead of guessing.
	IntentFallback Intent = "fallback"
)

// LeaveType is a leave category code used by the HR back end.
type LeaveType string

const (
	LeaveCasual    LeaveType = "CL"
	LeaveSick      LeaveType = "SL"
	LeaveEarned    LeaveType = "EL"
	LeaveMaternity LeaveType = "ML"
)

// LeaveSlots holds the structured values extracted for a leave
// application. Fields are filled incrementally across turns; a zero
// value means the slot has not been confirmed yet.
type LeaveSlots struct {
	// Type is the leave category.
	Type LeaveType

	// StartDate is the first day of leave (inclusive).
	StartDate time.Time

	// EndDate is the last day of leave (inclusive).
	EndDate time.Time

	// Reason is the optional free-text justification.
	Reason string
}

// Complete reports whether every required slot is filled.
// Reason is optional and does not gate completion.
func (s LeaveSlots) Complete() bool {
	return s.Type != "" && !s.StartDate.IsZero() && !s.EndDate.IsZero()
}

// Merge overlays newly extracted values onto existing slots without
// resetting previously confirmed ones. Zero values in next are ignored.
func (s LeaveSlots) Merge(next LeaveSlots) LeaveSlots {
	merged := s
	if next.Type != "" {
		merged.Type = next.Type
	}
	if !next.StartDate.IsZero() {
		merged.StartDate = next.StartDate
	}
	if !next.EndDate.IsZero() {
		merged.EndDate = next.EndDate
	}
	if next.Reason != "" {
		merged.Reason = next.Reason
	}
	return merged
}

// ConversationState is the per-session state owned by the intent router.
// It is created at the first utterance and discarded at session end or
// timeout. State is passed by value through turn processing and persisted
// through a SessionStore so workers stay stateless.
type ConversationState struct {
	// SessionID identifies the conversation.
	SessionID string

	// UserID identifies the employee, used for idempotency keys.
	UserID string

	// Intent is the current classified intent.
	Intent Intent

	// Slots is the accumulated leave-application slot state.
	Slots LeaveSlots

	// TurnID increases monotonically with each processed utterance.
	TurnID int

	// UpdatedAt is when the state last changed.
	UpdatedAt time.Time
}

// NewConversationState creates the initial state for a session.
func NewConversationState(sessionID, userID string) ConversationState {
	return ConversationState{
		SessionID: sessionID,
		UserID:    userID,
		Intent:    IntentUnset,
		UpdatedAt: time.Now().UTC(),
	}
}
