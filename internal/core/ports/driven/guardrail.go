package driven

import "context"

// GuardrailVerdict is the outcome of a guardrail check.
type GuardrailVerdict struct {
	// Allowed is true when the text may pass.
	Allowed bool

	// Reason is the internal block reason. Never shown to the caller.
	Reason string
}

// Guardrail is the content-policy gate consumed as a pass/fail
// capability. It is invoked immediately before any answer or
// confirmation is returned to the caller.
type Guardrail interface {
	// ValidateInput checks a user utterance before processing.
	ValidateInput(ctx context.Context, text string) (GuardrailVerdict, error)

	// ValidateOutput checks an assistant response before delivery.
	ValidateOutput(ctx context.Context, text string) (GuardrailVerdict, error)
}
