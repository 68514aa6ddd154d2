// Package hrtools provides the HTTP client for the HR back-end tool
// APIs (leave balances, leave applications, date-range validation).
package hrtools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
	"github.com/hrdesk-labs/hrdesk/internal/core/ports/driven"
)

var _ driven.ToolClient = (*Client)(nil)

// Default configuration values.
const (
	DefaultTimeout = 10 * time.Second
	DefaultRPS     = 5
	DefaultBurst   = 10
)

// Config holds configuration for the HR tools client.
type Config struct {
	// BaseURL is the HR back-end API root (required).
	BaseURL string

	// APIKey authenticates against the back end.
	APIKey string

	// Timeout bounds one call (default: 10s).
	Timeout time.Duration

	// RPS caps sustained calls per second (default: 5).
	RPS float64

	// Burst is the rate limiter burst size (default: 10).
	Burst int
}

// Client calls HR back-end tool endpoints over HTTP. A shared rate
// limiter keeps retry storms from hammering the back end.
type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
	limiter *rate.Limiter
}

type toolEnvelope struct {
	Status  string         `json:"status"`
	Payload map[string]any `json:"payload,omitempty"`
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message,omitempty"`
}

// NewClient creates a new HR tools client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("hrtools: base URL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RPS == 0 {
		cfg.RPS = DefaultRPS
	}
	if cfg.Burst == 0 {
		cfg.Burst = DefaultBurst
	}

	return &Client{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
	}, nil
}

// Call executes one tool operation. The tool name maps onto the
// endpoint path, e.g. "leave.apply" becomes POST /tools/leave/apply.
func (c *Client) Call(ctx context.Context, call driven.ToolCall) (driven.ToolResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return driven.ToolResponse{}, fmt.Errorf("rate limit wait: %w", err)
	}

	jsonBody, err := json.Marshal(call.Arguments)
	if err != nil {
		return driven.ToolResponse{}, fmt.Errorf("marshal arguments: %w", err)
	}

	url := c.baseURL + "/tools/" + strings.ReplaceAll(call.Tool, ".", "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return driven.ToolResponse{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if call.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", call.IdempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
			return driven.ToolResponse{}, fmt.Errorf("hrtools: %v: %w", err, domain.ErrProviderTransient)
		}
		return driven.ToolResponse{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return driven.ToolResponse{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return driven.ToolResponse{}, fmt.Errorf("hrtools: status %d: %s: %w",
			resp.StatusCode, truncate(body, 200), domain.ErrProviderTransient)
	}

	var envelope toolEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return driven.ToolResponse{}, fmt.Errorf("hrtools: status %d: decode response: %w",
			resp.StatusCode, err)
	}

	// The back end signals conflicts with 409 plus a structured body.
	// Anything the envelope itself does not classify falls back to the
	// HTTP status.
	if envelope.Status == "" {
		switch {
		case resp.StatusCode == http.StatusConflict:
			envelope.Status = "conflict"
		case resp.StatusCode >= 400:
			envelope.Status = "error"
		default:
			envelope.Status = "ok"
		}
	}

	return driven.ToolResponse{
		Status:  envelope.Status,
		Payload: envelope.Payload,
		Code:    envelope.Code,
		Message: envelope.Message,
	}, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
