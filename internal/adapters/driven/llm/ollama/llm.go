// Package ollama provides an LLM provider adapter for a local Ollama
// instance. It is typically the last link in the fallback chain since
// it keeps working when external APIs are down.
package ollama

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
	DefaultBaseURL      = "http://localhost:11434"
	DefaultDefaultModel = "llama3.2"
	DefaultPremiumModel = "llama3.1:70b"
	DefaultTimeout      = 300 * time.Second
)

// Config holds configuration for the Ollama provider.
type Config struct {
	// BaseURL is the Ollama server URL (default: http://localhost:11434).
	BaseURL string

	// DefaultModel serves routine completions (default: llama3.2).
	DefaultModel string

	// PremiumModel serves escalated completions (default: llama3.1:70b).
	PremiumModel string

	// Timeout is the request timeout (default: 300s, local inference
	// is slow).
	Timeout time.Duration
}

// Provider completes prompts against a local Ollama server.
type Provider struct {
	client       *http.Client
	baseURL      string
	defaultModel string
	premiumModel string
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
	Options  chatOptions   `json:"options"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	Error           string `json:"error,omitempty"`
}

// NewProvider creates a new Ollama provider.
func NewProvider(cfg Config) (*Provider, error) {
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
		defaultModel: cfg.DefaultModel,
		premiumModel: cfg.PremiumModel,
	}, nil
}

// Name returns the provider identifier used in routing decisions.
func (p *Provider) Name() string {
	return "ollama"
}

// ModelFor returns the model serving the given routing tier.
func (p *Provider) ModelFor(tier domain.Tier) string {
	if tier == domain.TierPremium {
		return p.premiumModel
	}
	return p.defaultModel
}

// Complete sends a chat request to the local server.
func (p *Provider) Complete(ctx context.Context, req driven.CompletionRequest) (driven.CompletionResponse, error) {
	model := p.ModelFor(req.Tier)

	body := chatRequest{
		Model:  model,
		Stream: false,
		Options: chatOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	if req.JSONMode {
		body.Format = "json"
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return driven.CompletionResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return driven.CompletionResponse{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
			return driven.CompletionResponse{}, fmt.Errorf("ollama: %v: %w", err, domain.ErrProviderTransient)
		}
		return driven.CompletionResponse{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return driven.CompletionResponse{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode >= 500 {
			return driven.CompletionResponse{}, fmt.Errorf("ollama: status %d: %s: %w",
				resp.StatusCode, string(raw), domain.ErrProviderTransient)
		}
		return driven.CompletionResponse{}, fmt.Errorf("ollama: status %d: %s", resp.StatusCode, string(raw))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(raw, &chatResp); err != nil {
		return driven.CompletionResponse{}, fmt.Errorf("decode response: %w", err)
	}
	if chatResp.Error != "" {
		return driven.CompletionResponse{}, fmt.Errorf("ollama error: %s", chatResp.Error)
	}

	respModel := chatResp.Model
	if respModel == "" {
		respModel = model
	}

	return driven.CompletionResponse{
		Text:  chatResp.Message.Content,
		Model: respModel,
		Usage: domain.TokenUsage{
			InputTokens:  chatResp.PromptEvalCount,
			OutputTokens: chatResp.EvalCount,
		},
	}, nil
}

// Ping checks that the Ollama server is reachable.
func (p *Provider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: server not reachable at %s: %w", p.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama: server returned status %d", resp.StatusCode)
	}
	return nil
}

// Close releases resources.
func (p *Provider) Close() error {
	return nil
}
