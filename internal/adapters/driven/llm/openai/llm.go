// Package openai provides an LLM provider adapter using the OpenAI
// chat completions API.
package openai

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
	DefaultBaseURL      = "https://api.openai.com/v1"
	DefaultDefaultModel = "gpt-4o-mini"
	DefaultPremiumModel = "gpt-4o"
	DefaultTimeout      = 120 * time.Second
)

// Config holds configuration for the OpenAI provider.
type Config struct {
	// APIKey is the OpenAI API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	BaseURL string

	// DefaultModel serves routine completions (default: gpt-4o-mini).
	DefaultModel string

	// PremiumModel serves escalated completions (default: gpt-4o).
	PremiumModel string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// Provider completes prompts against the OpenAI API.
type Provider struct {
	client       *http.Client
	baseURL      string
	apiKey       string
	defaultModel string
	premiumModel string
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewProvider creates a new OpenAI provider.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
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
	return "openai"
}

// ModelFor returns the model serving the given routing tier.
func (p *Provider) ModelFor(tier domain.Tier) string {
	if tier == domain.TierPremium {
		return p.premiumModel
	}
	return p.defaultModel
}

// Complete sends a chat completion request.
func (p *Provider) Complete(ctx context.Context, req driven.CompletionRequest) (driven.CompletionResponse, error) {
	model := p.ModelFor(req.Tier)

	body := chatRequest{
		Model:       model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	if req.JSONMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return driven.CompletionResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return driven.CompletionResponse{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return driven.CompletionResponse{}, classifyTransportError("openai", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return driven.CompletionResponse{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return driven.CompletionResponse{}, classifyStatusError("openai", resp.StatusCode, raw)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(raw, &chatResp); err != nil {
		return driven.CompletionResponse{}, fmt.Errorf("decode response: %w", err)
	}
	if chatResp.Error != nil {
		return driven.CompletionResponse{}, fmt.Errorf("openai error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return driven.CompletionResponse{}, fmt.Errorf("openai: no completion choices returned")
	}

	respModel := chatResp.Model
	if respModel == "" {
		respModel = model
	}

	return driven.CompletionResponse{
		Text:  chatResp.Choices[0].Message.Content,
		Model: respModel,
		Usage: domain.TokenUsage{
			InputTokens:  chatResp.Usage.PromptTokens,
			OutputTokens: chatResp.Usage.CompletionTokens,
		},
	}, nil
}

// Ping validates the API key against the /models endpoint.
func (p *Provider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: failed to create ping request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("openai: API returned status %d", resp.StatusCode)
	}
	return nil
}

// Close releases resources.
func (p *Provider) Close() error {
	return nil
}

// classifyTransportError wraps network-level failures as transient so
// the routing layer advances to the next provider in the chain.
func classifyTransportError(provider string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %v: %w", provider, err, domain.ErrProviderTransient)
	}
	return fmt.Errorf("%s: send request: %w", provider, err)
}

// classifyStatusError maps rate limits and server errors to the
// transient sentinel. Auth and validation failures stay terminal.
func classifyStatusError(provider string, status int, body []byte) error {
	if status == http.StatusTooManyRequests || status >= 500 {
		return fmt.Errorf("%s: status %d: %s: %w",
			provider, status, truncate(body, 200), domain.ErrProviderTransient)
	}
	return fmt.Errorf("%s: status %d: %s", provider, status, truncate(body, 200))
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
