package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
	"github.com/hrdesk-labs/hrdesk/internal/core/ports/driven"
	"github.com/hrdesk-labs/hrdesk/internal/logger"
)

// DefaultMaxCompressionPasses bounds how many context-compression
// passes run before a request fails with ErrBudgetExceeded.
const DefaultMaxCompressionPasses = 3

// Default per-route token budgets (prompt plus completion).
const (
	DefaultPolicySearchBudget = 4096
	DefaultLeaveBudget        = 1024
)

// tierPricing holds input and output pricing per 1K tokens in cents.
type tierPricing struct {
	input  float64
	output float64
}

// Indicative pricing per tier, used only for the audit record.
var defaultPricing = map[domain.Tier]tierPricing{
	domain.TierDefault: {input: 0.025, output: 0.125},
	domain.TierPremium: {input: 0.3, output: 1.5},
}

// RouteConfig carries the per-route defaults for governed completions.
type RouteConfig struct {
	// Budget is the default token cap (prompt + completion) when the
	// caller does not override it.
	Budget int

	// MaxCompletionTokens caps the completion length.
	MaxCompletionTokens int

	// Timeout bounds each provider call for this route.
	Timeout time.Duration
}

// PromptSpec describes one completion request before rendering.
type PromptSpec struct {
	// System is the system prompt.
	System string

	// User is the rendered user message, without retrieved context.
	User string

	// Context is the retrieved evidence, ranked best-first. Compression
	// drops entries from the tail (lowest-scored first).
	Context []domain.RetrievedChunk

	// Temperature controls randomness. Zero-temperature requests are
	// deterministic and eligible for caching.
	Temperature float64

	// JSONMode requests structured output.
	JSONMode bool

	// Confidence is the upstream classification confidence, consulted
	// by the tier rules.
	Confidence float64
}

// TierRules is a pure function deciding the model tier from the route,
// classification confidence and compressed context size.
type TierRules struct {
	// PremiumContextTokens escalates to premium when the compressed
	// context still exceeds this many tokens. Zero disables the rule.
	PremiumContextTokens int

	// PremiumBelowConfidence escalates to premium when classification
	// confidence is positive but below this value. Zero disables.
	PremiumBelowConfidence float64
}

// Select returns the tier for a request.
func (r TierRules) Select(route domain.Route, confidence float64, contextTokens int) domain.Tier {
	if r.PremiumContextTokens > 0 && contextTokens > r.PremiumContextTokens {
		return domain.TierPremium
	}
	if r.PremiumBelowConfidence > 0 && confidence > 0 && confidence < r.PremiumBelowConfidence {
		return domain.TierPremium
	}
	_ = route
	return domain.TierDefault
}

// Governor enforces token budgets and provider failover for every model
// invocation. Providers are tried in the configured order; each gets
// one retry on transient failure before the chain moves on, preserving
// the same tier across providers.
type Governor struct {
	providers []driven.LLMProvider
	counter   driven.TokenCounter
	cache     driven.CompletionCache
	audit     driven.AuditSink

	routes    map[domain.Route]RouteConfig
	rules     TierRules
	maxPasses int
}

// GovernorOption configures the governor.
type GovernorOption func(*Governor)

// WithRouteConfig overrides the defaults for one route.
func WithRouteConfig(route domain.Route, cfg RouteConfig) GovernorOption {
	return func(g *Governor) { g.routes[route] = cfg }
}

// WithTierRules sets the tier selection rules.
func WithTierRules(rules TierRules) GovernorOption {
	return func(g *Governor) { g.rules = rules }
}

// WithMaxCompressionPasses bounds the compression loop.
func WithMaxCompressionPasses(n int) GovernorOption {
	return func(g *Governor) {
		if n >= 0 {
			g.maxPasses = n
		}
	}
}

// NewGovernor creates a governor over an ordered provider fallback
// list. cache and audit are optional.
func NewGovernor(
	providers []driven.LLMProvider,
	counter driven.TokenCounter,
	cache driven.CompletionCache,
	audit driven.AuditSink,
	opts ...GovernorOption,
) *Governor {
	g := &Governor{
		providers: providers,
		counter:   counter,
		cache:     cache,
		audit:     audit,
		maxPasses: DefaultMaxCompressionPasses,
		routes: map[domain.Route]RouteConfig{
			domain.RoutePolicySearch: {
				Budget:              DefaultPolicySearchBudget,
				MaxCompletionTokens: 512,
				Timeout:             3 * time.Second,
			},
			domain.RouteLeaveApplication: {
				Budget:              DefaultLeaveBudget,
				MaxCompletionTokens: 256,
				Timeout:             5 * time.Second,
			},
		},
		rules: TierRules{PremiumContextTokens: 3072},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Complete runs one governed completion. budget overrides the route
// default when positive. Every call emits exactly one RoutingDecision
// to the audit sink, success or failure.
func (g *Governor) Complete(ctx context.Context, route domain.Route, spec PromptSpec, budget int) (domain.Completion, error) {
	if !route.Valid() {
		return domain.Completion{}, fmt.Errorf("complete: unknown route %q: %w", route, domain.ErrInvalidInput)
	}
	cfg := g.routes[route]
	if budget <= 0 {
		budget = cfg.Budget
	}

	decision := domain.RoutingDecision{Route: route}
	defer func() { g.record(ctx, decision) }()

	// Preflight: estimate the fully rendered prompt plus the requested
	// completion length, compressing context until it fits the budget.
	spec, estimate, passes, err := g.compress(route, spec, cfg, budget)
	decision.EstimatedTokens = estimate
	decision.CompressionPasses = passes
	if err != nil {
		decision.Err = err.Error()
		return domain.Completion{}, err
	}

	contextTokens := g.contextTokens(spec)
	tier := g.rules.Select(route, spec.Confidence, contextTokens)
	decision.Tier = tier

	messages := renderMessages(spec)

	// Deterministic sub-requests are cache-keyed on the route, the
	// normalised prompt and the model that would serve them.
	var cacheKey string
	if g.cache != nil && spec.Temperature == 0 && len(g.providers) > 0 {
		cacheKey = CacheKey(route, messages, g.providers[0].ModelFor(tier))
		if text, usage, ok := g.cache.Get(ctx, cacheKey); ok {
			logger.Debug("Cache hit for %s request", route)
			decision.CacheHit = true
			decision.Provider = g.providers[0].Name()
			decision.Model = g.providers[0].ModelFor(tier)
			decision.Usage = usage
			return domain.Completion{Text: text, Usage: usage, Decision: decision}, nil
		}
	}

	req := driven.CompletionRequest{
		Tier:        tier,
		Messages:    messages,
		MaxTokens:   cfg.MaxCompletionTokens,
		Temperature: spec.Temperature,
		JSONMode:    spec.JSONMode,
	}

	resp, provider, fallbacks, err := g.invoke(ctx, req, cfg.Timeout)
	decision.FallbackCount = fallbacks
	if provider != nil {
		decision.Provider = provider.Name()
		decision.Model = provider.ModelFor(tier)
	}
	if err != nil {
		decision.Err = err.Error()
		return domain.Completion{}, err
	}

	decision.Usage = resp.Usage
	decision.Model = resp.Model
	decision.EstimatedCostCents = estimateCost(tier, resp.Usage)

	if cacheKey != "" {
		if err := g.cache.Put(ctx, cacheKey, resp.Text, resp.Usage); err != nil {
			logger.Warn("Cache write failed: %v", err)
		}
	}

	return domain.Completion{Text: resp.Text, Usage: resp.Usage, Decision: decision}, nil
}

// compress drops lowest-scored context chunks until the estimate fits
// the budget, up to the configured number of passes. It never truncates
// inside a chunk: a broken span would risk broken citations.
func (g *Governor) compress(route domain.Route, spec PromptSpec, cfg RouteConfig, budget int) (PromptSpec, int, int, error) {
	estimate := g.estimate(spec, cfg)
	passes := 0
	for estimate > budget && passes < g.maxPasses && len(spec.Context) > 0 {
		spec.Context = spec.Context[:len(spec.Context)-1]
		passes++
		estimate = g.estimate(spec, cfg)
	}
	if estimate > budget {
		logger.Info("Budget exceeded on %s: estimate %d > budget %d after %d passes",
			route, estimate, budget, passes)
		return spec, estimate, passes, fmt.Errorf(
			"estimate %d tokens over budget %d: %w", estimate, budget, domain.ErrBudgetExceeded)
	}
	return spec, estimate, passes, nil
}

// estimate computes prompt plus requested completion tokens.
func (g *Governor) estimate(spec PromptSpec, cfg RouteConfig) int {
	total := cfg.MaxCompletionTokens
	for _, msg := range renderMessages(spec) {
		total += g.counter.Count(msg.Content)
	}
	return total
}

// contextTokens sums the token counts of the retrieved context.
func (g *Governor) contextTokens(spec PromptSpec) int {
	total := 0
	for _, rc := range spec.Context {
		total += rc.Chunk.TokenCount
	}
	return total
}

// invoke walks the provider fallback chain: one retry per provider on
// failure, then the next provider under the same tier.
func (g *Governor) invoke(
	ctx context.Context, req driven.CompletionRequest, timeout time.Duration,
) (driven.CompletionResponse, driven.LLMProvider, int, error) {
	if len(g.providers) == 0 {
		return driven.CompletionResponse{}, nil, 0, domain.ErrAllProvidersExhausted
	}

	fallbacks := 0
	var lastErr error
	var lastProvider driven.LLMProvider

	for i, provider := range g.providers {
		if i > 0 {
			fallbacks++
			logger.Info("Failing over to provider %s", provider.Name())
		}
		lastProvider = provider

		for attempt := 0; attempt < 2; attempt++ {
			resp, err := g.call(ctx, provider, req, timeout)
			if err == nil {
				return resp, provider, fallbacks, nil
			}
			lastErr = err
			if ctx.Err() != nil {
				// The caller's deadline or cancellation: stop the chain.
				return driven.CompletionResponse{}, provider, fallbacks, fmt.Errorf(
					"provider %s: %w", provider.Name(), ctx.Err())
			}
			logger.Warn("Provider %s attempt %d failed: %v", provider.Name(), attempt+1, err)
		}
	}

	return driven.CompletionResponse{}, lastProvider, fallbacks, fmt.Errorf(
		"%w: last error: %v", domain.ErrAllProvidersExhausted, lastErr)
}

// call runs one provider request under the route's timeout.
func (g *Governor) call(
	ctx context.Context, provider driven.LLMProvider, req driven.CompletionRequest, timeout time.Duration,
) (driven.CompletionResponse, error) {
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	resp, err := provider.Complete(callCtx, req)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return driven.CompletionResponse{}, fmt.Errorf("%w: timeout after %s", domain.ErrProviderTransient, timeout)
		}
		return driven.CompletionResponse{}, err
	}
	return resp, nil
}

// record delivers the routing decision to the audit sink.
// Recording is best-effort and must not fail the request; a cancelled
// request context must still yield a decision.
func (g *Governor) record(ctx context.Context, decision domain.RoutingDecision) {
	logger.Debug("Routing decision: route=%s provider=%s tier=%s est=%d fallbacks=%d cache=%t err=%q",
		decision.Route, decision.Provider, decision.Tier,
		decision.EstimatedTokens, decision.FallbackCount, decision.CacheHit, decision.Err)
	if g.audit == nil {
		return
	}
	g.audit.Record(context.WithoutCancel(ctx), decision)
}

// renderMessages builds the provider message list from a spec. Context
// chunks are numbered so the model can cite them.
func renderMessages(spec PromptSpec) []driven.ChatMessage {
	var messages []driven.ChatMessage
	if spec.System != "" {
		messages = append(messages, driven.ChatMessage{Role: "system", Content: spec.System})
	}

	var sb strings.Builder
	if len(spec.Context) > 0 {
		sb.WriteString("Context:\n")
		for _, rc := range spec.Context {
			fmt.Fprintf(&sb, "[%d] (%s, %s) %s\n", rc.Rank, rc.Citation.PolicyID, rc.Chunk.SectionTitle, rc.Chunk.Text)
		}
		sb.WriteString("\n")
	}
	sb.WriteString(spec.User)

	messages = append(messages, driven.ChatMessage{Role: "user", Content: sb.String()})
	return messages
}

// CacheKey derives the deterministic-prompt cache key for a request.
func CacheKey(route domain.Route, messages []driven.ChatMessage, model string) string {
	h := sha256.New()
	h.Write([]byte(route))
	h.Write([]byte{0})
	for _, msg := range messages {
		h.Write([]byte(msg.Role))
		h.Write([]byte{0})
		h.Write([]byte(strings.Join(strings.Fields(msg.Content), " ")))
		h.Write([]byte{0})
	}
	h.Write([]byte(model))
	return hex.EncodeToString(h.Sum(nil))
}

// estimateCost converts measured usage into indicative cents.
func estimateCost(tier domain.Tier, usage domain.TokenUsage) float64 {
	pricing, ok := defaultPricing[tier]
	if !ok {
		return 0
	}
	return float64(usage.InputTokens)*pricing.input/1000 +
		float64(usage.OutputTokens)*pricing.output/1000
}
