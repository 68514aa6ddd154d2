// Package anthropic provides an LLM provider adapter using the
// Anthropic messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
	"github.com/hrdesk-labs/hrdesk/internal/core/ports/driven"
)

var _ driven.LLMProvider = (*Provider)(nil)

// Default configuration values.
const (
	DefaultBaseURL      = "https://api.anthropic.com/v1"
	DefaultDefaultModel = "claude-3-5-haiku-latest"
	DefaultPremiumModel = "claude-sonnet-4-20250514"
	DefaultTimeout      = 120 * time.Second

	apiVersion = "2023-06-01"
)

// Config holds configuration for the Anthropic provider.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com/v1).
	BaseURL string

	// DefaultModel serves routine completions.
	DefaultModel string

	// PremiumModel serves escalated completions.
	PremiumModel string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Provider completes prompts against the Anthropic API.
type Provider struct {
	client       *http.Client
	baseURL      string
	apiKey       string
	defaultModel string
	premiumModel string
}

type messagesRequest struct {
	Model     string         `json:"model"`
	MaxTokens int            `json:"max_tokens"`
	System    string         `json:"system,omitempty"`
	Messages  []inputMessage `json:"messages"`
	// Temperature is a pointer so 0.0 survives serialization.
	Temperature *float64 `json:"temperature,omitempty"`
}

type inputMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewProvider creates a new Anthropic provider.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = DefaultDefaultModel
	}
	if cfg.PremiumModel == "" {
		cfg.PremiumModel = DefaultPremiumModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Provider{
		client:       &http.Client{Timeout: cfg.Timeout},
		baseURL:      cfg.BaseURL,
		apiKey:       cfg.APIKey,
		defaultModel: cfg.DefaultModel,
		premiumModel: cfg.PremiumModel,
	}, nil
}

// Name returns the provider identifier used in routing decisions.
func (p *Provider) Name() string {
	return "anthropic"
}

// ModelFor returns the model serving the given routing tier.
func (p *Provider) ModelFor(tier domain.Tier) string {
	if tier == domain.TierPremium {
		return p.premiumModel
	}
	return p.defaultModel
}

// Complete sends a messages request. The Anthropic API takes the
// system prompt as a top-level field, so system messages are lifted
// out of the conversation before sending.
func (p *Provider) Complete(ctx context.Context, req driven.CompletionRequest) (driven.CompletionResponse, error) {
	model := p.ModelFor(req.Tier)

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	temp := req.Temperature
	body := messagesRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: &temp,
	}
	for _, m := range req.Messages {
		if m.Role == "system" {
			if body.System != "" {
				body.System += "\n\n"
			}
			body.System += m.Content
			continue
		}
		body.Messages = append(body.Messages, inputMessage{Role: m.Role, Content: m.Content})
	}
	if req.JSONMode {
		// No native JSON mode; steer the model and lean on the
		// caller's balanced-brace extraction.
		body.System += "\n\nRespond with a single JSON object and nothing else."
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return driven.CompletionResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, p.baseURL+"/messages", bytes.NewReader(jsonBody))
	if err != nil {
		return driven.CompletionResponse{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return driven.CompletionResponse{}, classifyTransportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return driven.CompletionResponse{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 ||
			resp.StatusCode == 529 {
			return driven.CompletionResponse{}, fmt.Errorf("anthropic: status %d: %s: %w",
				resp.StatusCode, truncate(raw, 200), domain.ErrProviderTransient)
		}
		return driven.CompletionResponse{}, fmt.Errorf("anthropic: status %d: %s",
			resp.StatusCode, truncate(raw, 200))
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(raw, &msgResp); err != nil {
		return driven.CompletionResponse{}, fmt.Errorf("decode response: %w", err)
	}
	if msgResp.Error != nil {
		return driven.CompletionResponse{}, fmt.Errorf("anthropic error: %s", msgResp.Error.Message)
	}

	var text string
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return driven.CompletionResponse{}, fmt.Errorf("anthropic: empty completion")
	}

	respModel := msgResp.Model
	if respModel == "" {
		respModel = model
	}

	return driven.CompletionResponse{
		Text:  text,
		Model: respModel,
		Usage: domain.TokenUsage{
			InputTokens:  msgResp.Usage.InputTokens,
			OutputTokens: msgResp.Usage.OutputTokens,
		},
	}, nil
}

// Ping validates the API key with a minimal models listing.
func (p *Provider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models?limit=1", http.NoBody)
	if err != nil {
		return fmt.Errorf("anthropic: failed to create ping request: %w", err)
	}
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("anthropic: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("anthropic: API returned status %d", resp.StatusCode)
	}
	return nil
}

// Close releases resources.
func (p *Provider) Close() error {
	return nil
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("anthropic: %v: %w", err, domain.ErrProviderTransient)
	}
	return fmt.Errorf("anthropic: send request: %w", err)
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
