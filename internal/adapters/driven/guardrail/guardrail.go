// Package guardrail provides content-policy gate adapters.
package guardrail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hrdesk-labs/hrdesk/internal/core/ports/driven"
)

var (
	_ driven.Guardrail = (*HTTPGuardrail)(nil)
	_ driven.Guardrail = (*PassthroughGuardrail)(nil)
)

// DefaultTimeout bounds one moderation call.
const DefaultTimeout = 5 * time.Second

// Config holds configuration for the HTTP guardrail.
type Config struct {
	// Endpoint is the moderation service URL (required).
	Endpoint string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Timeout bounds one check (default: 5s).
	Timeout time.Duration

	// FailOpen controls behaviour when the moderation service is
	// unreachable. The default is fail-closed: the text is blocked.
	FailOpen bool
}

// HTTPGuardrail delegates moderation to an external HTTP service.
type HTTPGuardrail struct {
	client   *http.Client
	endpoint string
	apiKey   string
	failOpen bool
}

type checkRequest struct {
	Text      string `json:"text"`
	Direction string `json:"direction"`
}

type checkResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// NewHTTPGuardrail creates a guardrail backed by a moderation service.
func NewHTTPGuardrail(cfg Config) (*HTTPGuardrail, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("guardrail: endpoint is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &HTTPGuardrail{
		client:   &http.Client{Timeout: cfg.Timeout},
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		failOpen: cfg.FailOpen,
	}, nil
}

// ValidateInput checks a user utterance before processing.
func (g *HTTPGuardrail) ValidateInput(ctx context.Context, text string) (driven.GuardrailVerdict, error) {
	return g.check(ctx, text, "input")
}

// ValidateOutput checks an assistant response before delivery.
func (g *HTTPGuardrail) ValidateOutput(ctx context.Context, text string) (driven.GuardrailVerdict, error) {
	return g.check(ctx, text, "output")
}

func (g *HTTPGuardrail) check(ctx context.Context, text, direction string) (driven.GuardrailVerdict, error) {
	jsonBody, err := json.Marshal(checkRequest{Text: text, Direction: direction})
	if err != nil {
		return driven.GuardrailVerdict{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return driven.GuardrailVerdict{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return driven.GuardrailVerdict{}, err
		}
		return g.unavailable(fmt.Sprintf("moderation unreachable: %v", err)), nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return driven.GuardrailVerdict{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return g.unavailable(fmt.Sprintf("moderation returned status %d", resp.StatusCode)), nil
	}

	var verdict checkResponse
	if err := json.Unmarshal(body, &verdict); err != nil {
		return driven.GuardrailVerdict{}, fmt.Errorf("decode response: %w", err)
	}
	return driven.GuardrailVerdict{Allowed: verdict.Allowed, Reason: verdict.Reason}, nil
}

func (g *HTTPGuardrail) unavailable(reason string) driven.GuardrailVerdict {
	if g.failOpen {
		return driven.GuardrailVerdict{Allowed: true, Reason: reason}
	}
	return driven.GuardrailVerdict{Allowed: false, Reason: reason}
}

// PassthroughGuardrail applies only a local denylist. It keeps the
// gate stages wired in deployments without a moderation service.
type PassthroughGuardrail struct {
	denylist []string
}

// NewPassthroughGuardrail creates a guardrail with an optional
// case-insensitive phrase denylist.
func NewPassthroughGuardrail(denylist ...string) *PassthroughGuardrail {
	lowered := make([]string, 0, len(denylist))
	for _, phrase := range denylist {
		phrase = strings.ToLower(strings.TrimSpace(phrase))
		if phrase != "" {
			lowered = append(lowered, phrase)
		}
	}
	return &PassthroughGuardrail{denylist: lowered}
}

// ValidateInput checks a user utterance against the denylist.
func (g *PassthroughGuardrail) ValidateInput(_ context.Context, text string) (driven.GuardrailVerdict, error) {
	return g.scan(text), nil
}

// ValidateOutput checks an assistant response against the denylist.
func (g *PassthroughGuardrail) ValidateOutput(_ context.Context, text string) (driven.GuardrailVerdict, error) {
	return g.scan(text), nil
}

func (g *PassthroughGuardrail) scan(text string) driven.GuardrailVerdict {
	lowered := strings.ToLower(text)
	for _, phrase := range g.denylist {
		if strings.Contains(lowered, phrase) {
			return driven.GuardrailVerdict{Allowed: false, Reason: "denylist match: " + phrase}
		}
	}
	return driven.GuardrailVerdict{Allowed: true}
}
