package driven

import (
	"context"

	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
)

// LLMProvider is a single configured completion provider.
//
// The governor owns retry, failover and budget enforcement; providers
// only translate one request into one API call. Providers must report
// token usage so the governor can account against the request budget,
// and must map their transport failures onto domain.ErrProviderTransient
// when a retry could plausibly succeed.
type LLMProvider interface {
	// Name returns the provider identifier used in routing decisions
	// (e.g. "openai", "anthropic", "ollama").
	Name() string

	// ModelFor returns the concrete model identifier serving a tier.
	ModelFor(tier domain.Tier) string

	// Complete sends one chat completion request.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// Ping validates the provider is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}

// CompletionRequest configures one provider call.
type CompletionRequest struct {
	// Tier selects the model class for this call.
	Tier domain.Tier

	// Messages is the conversation to complete.
	Messages []ChatMessage

	// MaxTokens caps the completion length.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64

	// JSONMode requests a structured JSON response where the provider
	// supports it.
	JSONMode bool
}

// CompletionResponse is the provider's answer to one call.
type CompletionResponse struct {
	// Text is the completion content.
	Text string

	// Model is the concrete model that served the request.
	Model string

	// Usage is the provider-reported token consumption.
	Usage domain.TokenUsage
}
