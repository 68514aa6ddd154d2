package domain

import "fmt"

// Route identifies which assistant path a completion serves.
// Each route carries its own default token cap.
type Route string

const (
	// RoutePolicySearch answers policy questions with retrieved context.
	RoutePolicySearch Route = "policy_search"

	// RouteLeaveApplication extracts structured slots for leave filing.
	RouteLeaveApplication Route = "leave_application"
)

// Valid reports whether the route is a known value.
func (r Route) Valid() bool {
	return r == RoutePolicySearch || r == RouteLeaveApplication
}

// Tier is a cost/capability class of model, selectable per route.
type Tier int

const (
	// TierDefault is the baseline model class used unless routing rules
	// escalate the request.
	TierDefault Tier = iota

	// TierPremium is the higher-capability, higher-cost model class.
	TierPremium
)

// String returns the human-readable name of the tier.
func (t Tier) String() string {
	switch t {
	case TierDefault:
		return "default"
	case TierPremium:
		return "premium"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// TokenUsage reports provider-measured token consumption.
type TokenUsage struct {
	// InputTokens is the prompt token count.
	InputTokens int

	// OutputTokens is the completion token count.
	OutputTokens int
}

// Total returns input plus output tokens.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// RoutingDecision is the audit record of one completion attempt chain.
// One is emitted per Complete call regardless of success or failure.
// The core hands it to an external audit sink and does not retain it.
type RoutingDecision struct {
	// Route is the assistant path the completion served.
	Route Route

	// Provider is the provider that ultimately handled (or last failed)
	// the request.
	Provider string

	// Model is the concrete model identifier used.
	Model string

	// Tier is the selected cost tier.
	Tier Tier

	// EstimatedTokens is the preflight estimate for prompt plus
	// completion.
	EstimatedTokens int

	// Usage is the provider-reported actual consumption. Zero when the
	// request never reached a provider (cache hit or budget failure).
	Usage TokenUsage

	// EstimatedCostCents is the estimated cost of the call.
	EstimatedCostCents float64

	// FallbackCount is how many provider failovers occurred.
	FallbackCount int

	// CompressionPasses is how many context-compression passes ran
	// before the prompt fit the budget.
	CompressionPasses int

	// CacheHit is set when the response was served from the
	// deterministic-prompt cache without a provider call.
	CacheHit bool

	// Err records the terminal failure kind, empty on success.
	Err string
}

// Completion is the successful result of a governed model invocation.
type Completion struct {
	// Text is the completion content.
	Text string

	// Usage is the provider-reported token consumption.
	Usage TokenUsage

	// Decision is the audit record for this invocation.
	Decision RoutingDecision
}
