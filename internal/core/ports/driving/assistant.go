package driving

import (
	"context"

	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
)

// Retriever turns a query into ranked, cited evidence.
type Retriever interface {
	// Retrieve embeds the query, searches the vector index (restricted
	// to locale when given) and assembles citations. topK is clamped to
	// the configured ceiling; non-positive values use the default.
	Retrieve(ctx context.Context, query string, topK int, locale string) (domain.RetrievalResult, error)
}

// PolicyAnswer is the caller-facing result of a policy query.
type PolicyAnswer struct {
	// Answer is the generated, guardrail-approved response text.
	Answer string

	// Citations attribute the answer to source policy sections.
	Citations []domain.Citation

	// Confidence is the top retrieval score backing the answer.
	Confidence float64

	// LowConfidence is set when the answer carries a caveat because
	// retrieval fell below the confidence floor.
	LowConfidence bool
}

// LeaveTurnResult is the caller-facing result of one leave-dialogue turn.
type LeaveTurnResult struct {
	// State is the conversation state after the turn.
	State domain.ConversationState

	// Reply is the assistant's message for this turn (clarification,
	// slot prompt, confirmation, or conflict explanation).
	Reply string

	// Result is the tool outcome once a leave request was filed,
	// nil until then.
	Result *domain.ToolResult

	// Conflict is the structured alternative-suggestion payload when
	// the back end reported a date conflict, nil otherwise.
	Conflict *domain.ToolConflict
}

// Assistant is the conversational surface of the system.
type Assistant interface {
	// AnswerPolicyQuery answers a policy question with citations.
	AnswerPolicyQuery(ctx context.Context, text string, locale string, topK int) (PolicyAnswer, error)

	// SubmitLeaveTurn processes one utterance of a leave dialogue for a
	// session. Turns of the same session are processed in arrival order.
	SubmitLeaveTurn(ctx context.Context, sessionID, userID, utterance string) (LeaveTurnResult, error)
}
