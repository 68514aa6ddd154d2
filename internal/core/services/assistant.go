package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
	"github.com/hrdesk-labs/hrdesk/internal/core/ports/driven"
	"github.com/hrdesk-labs/hrdesk/internal/core/ports/driving"
	"github.com/hrdesk-labs/hrdesk/internal/logger"
)

// DefaultPolicyAnswerPrompt is the system prompt for the policy-search
// route. Deployments can override it through an AssistantOption.
const DefaultPolicyAnswerPrompt = `You are an HR policy assistant. Answer strictly from the numbered
context passages and cite them as [n]. If the context does not answer
the question, say so and suggest contacting HR. Never invent policy
details or citations.`

// Ensure Assistant implements the interface.
var _ driving.Assistant = (*Assistant)(nil)

// Assistant orchestrates the two conversational paths: policy search
// (retrieve, generate, cite) and leave application (classify, fill
// slots, invoke tools). The guardrail gate runs on every inbound
// utterance and on every outbound reply.
type Assistant struct {
	retriever driving.Retriever
	governor  *Governor
	router    *IntentRouter
	invoker   *ToolInvoker
	sessions  driven.SessionStore
	guardrail driven.Guardrail

	// sessionLocks serialises turns of one session in arrival order;
	// independent sessions proceed concurrently.
	sessionLocks *keyedMutex

	now func() time.Time

	policyPrompt     string
	extractionPrompt string
}

// AssistantOption customises assistant construction.
type AssistantOption func(*Assistant)

// WithPolicyPrompt overrides the policy-answer system prompt.
func WithPolicyPrompt(prompt string) AssistantOption {
	return func(a *Assistant) {
		if prompt != "" {
			a.policyPrompt = prompt
		}
	}
}

// WithExtractionPrompt overrides the slot-extraction system prompt.
func WithExtractionPrompt(prompt string) AssistantOption {
	return func(a *Assistant) {
		if prompt != "" {
			a.extractionPrompt = prompt
		}
	}
}

// NewAssistant creates the assistant. guardrail may be nil, in which
// case the gate passes everything through.
func NewAssistant(
	retriever driving.Retriever,
	governor *Governor,
	router *IntentRouter,
	invoker *ToolInvoker,
	sessions driven.SessionStore,
	guardrail driven.Guardrail,
	opts ...AssistantOption,
) *Assistant {
	a := &Assistant{
		retriever:        retriever,
		governor:         governor,
		router:           router,
		invoker:          invoker,
		sessions:         sessions,
		guardrail:        guardrail,
		sessionLocks:     newKeyedMutex(),
		now:              time.Now,
		policyPrompt:     DefaultPolicyAnswerPrompt,
		extractionPrompt: DefaultLeaveExtractionPrompt,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnswerPolicyQuery answers a policy question with citations.
func (a *Assistant) AnswerPolicyQuery(ctx context.Context, text, locale string, topK int) (driving.PolicyAnswer, error) {
	if err := a.gateInput(ctx, text); err != nil {
		return driving.PolicyAnswer{}, err
	}

	result, err := a.retriever.Retrieve(ctx, text, topK, locale)
	if err != nil {
		return driving.PolicyAnswer{}, err
	}

	if len(result.Chunks) == 0 {
		// Nothing to cite: decline rather than fabricate.
		answer := driving.PolicyAnswer{
			Answer:        "I could not find a policy covering that. Please rephrase, or contact HR directly.",
			LowConfidence: true,
		}
		return answer, a.gateOutput(ctx, answer.Answer)
	}

	user := "Question: " + text
	if result.LowConfidence {
		user += "\nThe context matches are weak; answer cautiously and say the answer may be incomplete."
	}

	completion, err := a.governor.Complete(ctx, domain.RoutePolicySearch, PromptSpec{
		System:      a.policyPrompt,
		User:        user,
		Context:     result.Chunks,
		Temperature: 0.2,
	}, 0)
	if err != nil {
		return driving.PolicyAnswer{}, err
	}

	answer := driving.PolicyAnswer{
		Answer:        completion.Text,
		Citations:     result.TopCitations(),
		Confidence:    result.Chunks[0].Score,
		LowConfidence: result.LowConfidence,
	}
	return answer, a.gateOutput(ctx, answer.Answer)
}

// SubmitLeaveTurn processes one utterance of a session. The session
// lock is held for the whole turn so the state transition and its
// routing decisions commit before the next turn is accepted.
func (a *Assistant) SubmitLeaveTurn(ctx context.Context, sessionID, userID, utterance string) (driving.LeaveTurnResult, error) {
	unlock := a.lockSession(sessionID)
	defer unlock()

	if err := a.gateInput(ctx, utterance); err != nil {
		return driving.LeaveTurnResult{}, err
	}

	state, err := a.sessions.Get(ctx, sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		state = domain.NewConversationState(sessionID, userID)
	} else if err != nil {
		return driving.LeaveTurnResult{}, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	state, confidence, err := a.router.RouteTurn(ctx, state, utterance)
	if err != nil {
		return driving.LeaveTurnResult{}, err
	}

	var result driving.LeaveTurnResult
	switch state.Intent {
	case domain.IntentPolicySearch:
		result, err = a.policyTurn(ctx, state, utterance)
	case domain.IntentLeaveApplication:
		result, err = a.leaveTurn(ctx, state, utterance, confidence)
	default:
		state.Intent = domain.IntentFallback
		result = driving.LeaveTurnResult{
			State: state,
			Reply: "I'm not sure whether you're asking about a policy or filing leave. Could you rephrase?",
		}
	}
	if err != nil {
		return driving.LeaveTurnResult{}, err
	}

	if err := a.gateOutput(ctx, result.Reply); err != nil {
		return driving.LeaveTurnResult{}, err
	}

	result.State.UpdatedAt = a.now().UTC()
	if err := a.sessions.Save(ctx, result.State); err != nil {
		return driving.LeaveTurnResult{}, fmt.Errorf("save session %s: %w", sessionID, err)
	}
	return result, nil
}

// policyTurn answers a policy question raised mid-conversation.
func (a *Assistant) policyTurn(ctx context.Context, state domain.ConversationState, utterance string) (driving.LeaveTurnResult, error) {
	answer, err := a.answerWithoutGate(ctx, utterance)
	if err != nil {
		return driving.LeaveTurnResult{}, err
	}
	// Answer delivered: the state machine terminates for this turn and
	// the next utterance re-enters at unset.
	state.Intent = domain.IntentUnset
	return driving.LeaveTurnResult{State: state, Reply: answer.Answer}, nil
}

// answerWithoutGate is the policy path minus the guardrail gates, which
// SubmitLeaveTurn applies once per turn.
func (a *Assistant) answerWithoutGate(ctx context.Context, text string) (driving.PolicyAnswer, error) {
	result, err := a.retriever.Retrieve(ctx, text, 0, "")
	if err != nil {
		return driving.PolicyAnswer{}, err
	}
	if len(result.Chunks) == 0 {
		return driving.PolicyAnswer{
			Answer:        "I could not find a policy covering that. Please rephrase, or contact HR directly.",
			LowConfidence: true,
		}, nil
	}
	completion, err := a.governor.Complete(ctx, domain.RoutePolicySearch, PromptSpec{
		System:      a.policyPrompt,
		User:        "Question: " + text,
		Context:     result.Chunks,
		Temperature: 0.2,
	}, 0)
	if err != nil {
		return driving.PolicyAnswer{}, err
	}
	return driving.PolicyAnswer{
		Answer:        completion.Text,
		Citations:     result.TopCitations(),
		Confidence:    result.Chunks[0].Score,
		LowConfidence: result.LowConfidence,
	}, nil
}

// leaveTurn advances the slot-filling dialogue and files the request
// once every required slot is confirmed.
func (a *Assistant) leaveTurn(
	ctx context.Context, state domain.ConversationState, utterance string, confidence float64,
) (driving.LeaveTurnResult, error) {
	extracted, err := ExtractLeaveSlots(ctx, a.governor, a.extractionPrompt, utterance, a.now())
	if err != nil {
		return driving.LeaveTurnResult{}, err
	}
	state.Slots = state.Slots.Merge(extracted)
	logger.Debug("Session %s slots after merge: %+v (confidence %.3f)", state.SessionID, state.Slots, confidence)

	if !state.Slots.Complete() {
		return driving.LeaveTurnResult{
			State: state,
			Reply: missingSlotPrompt(state.Slots),
		}, nil
	}

	userCtx := domain.UserContext{
		UserID:    state.UserID,
		SessionID: state.SessionID,
		TurnID:    state.TurnID,
	}
	rangeArgs := map[string]any{
		"start_date": state.Slots.StartDate.Format("2006-01-02"),
		"end_date":   state.Slots.EndDate.Format("2006-01-02"),
	}

	if _, err := a.invoker.Invoke(ctx, domain.ToolValidateRange, rangeArgs, userCtx); err != nil {
		if result, ok := a.conflictTurn(state, err); ok {
			return result, nil
		}
		return driving.LeaveTurnResult{}, err
	}

	applyArgs := map[string]any{
		"leave_type": string(state.Slots.Type),
		"start_date": state.Slots.StartDate.Format("2006-01-02"),
		"end_date":   state.Slots.EndDate.Format("2006-01-02"),
	}
	if state.Slots.Reason != "" {
		applyArgs["reason"] = state.Slots.Reason
	}

	toolResult, err := a.invoker.Invoke(ctx, domain.ToolLeaveApply, applyArgs, userCtx)
	if err != nil {
		if result, ok := a.conflictTurn(state, err); ok {
			return result, nil
		}
		return driving.LeaveTurnResult{}, err
	}

	// Request filed: terminal outcome, next utterance starts fresh.
	filed := state.Slots
	state.Intent = domain.IntentUnset
	state.Slots = domain.LeaveSlots{}

	return driving.LeaveTurnResult{
		State: state,
		Reply: fmt.Sprintf("Your %s leave from %s to %s has been filed.",
			filed.Type, filed.StartDate.Format("2006-01-02"), filed.EndDate.Format("2006-01-02")),
		Result: &toolResult,
	}, nil
}

// conflictTurn converts a tool conflict into a re-prompt that stays in
// the leave flow with the date slots cleared for correction.
func (a *Assistant) conflictTurn(state domain.ConversationState, err error) (driving.LeaveTurnResult, bool) {
	var conflictErr *domain.ConflictError
	if !errors.As(err, &conflictErr) {
		return driving.LeaveTurnResult{}, false
	}
	conflict := conflictErr.Conflict

	state.Intent = domain.IntentLeaveApplication
	state.Slots.StartDate = time.Time{}
	state.Slots.EndDate = time.Time{}

	reply := "Those dates conflict with existing leave or a holiday."
	if len(conflict.Alternatives) > 0 {
		alt := conflict.Alternatives[0]
		reply += fmt.Sprintf(" The nearest available range is %s to %s.",
			alt.Start.Format("2006-01-02"), alt.End.Format("2006-01-02"))
	}
	reply += " Which dates would you like instead?"

	return driving.LeaveTurnResult{
		State:    state,
		Reply:    reply,
		Conflict: &conflict,
	}, true
}

// gateInput runs the guardrail over an inbound utterance.
func (a *Assistant) gateInput(ctx context.Context, text string) error {
	return a.gate(ctx, "input", text, func(g driven.Guardrail) (driven.GuardrailVerdict, error) {
		return g.ValidateInput(ctx, text)
	})
}

// gateOutput runs the guardrail over an outbound reply.
func (a *Assistant) gateOutput(ctx context.Context, text string) error {
	return a.gate(ctx, "output", text, func(g driven.Guardrail) (driven.GuardrailVerdict, error) {
		return g.ValidateOutput(ctx, text)
	})
}

func (a *Assistant) gate(
	_ context.Context, stage, text string,
	check func(driven.Guardrail) (driven.GuardrailVerdict, error),
) error {
	if a.guardrail == nil || text == "" {
		return nil
	}
	verdict, err := check(a.guardrail)
	if err != nil {
		return fmt.Errorf("guardrail %s check: %w", stage, err)
	}
	if !verdict.Allowed {
		// The reason stays in internal logs; callers only see a
		// generic safety message.
		logger.Warn("Guardrail blocked %s: %s", stage, verdict.Reason)
		return &domain.GuardrailBlockedError{Stage: stage, Reason: verdict.Reason}
	}
	return nil
}

// lockSession acquires the per-session mutex and returns its release
// function.
func (a *Assistant) lockSession(sessionID string) func() {
	return a.sessionLocks.Lock(sessionID)
}
