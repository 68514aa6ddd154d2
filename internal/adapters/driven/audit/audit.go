// Package audit provides sinks for routing decision records.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
	"github.com/hrdesk-labs/hrdesk/internal/core/ports/driven"
	"github.com/hrdesk-labs/hrdesk/internal/logger"
)

var (
	_ driven.AuditSink = (*LogSink)(nil)
	_ driven.AuditSink = (*JSONLinesSink)(nil)
	_ driven.AuditSink = (*MemorySink)(nil)
)

// LogSink writes each decision to the verbose log. It is the default
// sink for interactive CLI use.
type LogSink struct{}

// NewLogSink creates a log-backed sink.
func NewLogSink() *LogSink {
	return &LogSink{}
}

// Record logs one routing decision.
func (s *LogSink) Record(_ context.Context, d domain.RoutingDecision) {
	logger.Info("routing: route=%s provider=%s model=%s tier=%s est=%d used=%d cost=%.4fc fallbacks=%d compression=%d cache=%t err=%q",
		d.Route, d.Provider, d.Model, d.Tier, d.EstimatedTokens,
		d.Usage.Total(), d.EstimatedCostCents, d.FallbackCount,
		d.CompressionPasses, d.CacheHit, d.Err)
}

// JSONLinesSink appends one JSON object per decision to a writer,
// suitable for shipping to log aggregation.
type JSONLinesSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewJSONLinesSink creates a sink writing JSON lines to w.
func NewJSONLinesSink(w io.Writer) *JSONLinesSink {
	return &JSONLinesSink{w: w}
}

type decisionRecord struct {
	Route              string  `json:"route"`
	Provider           string  `json:"provider"`
	Model              string  `json:"model"`
	Tier               string  `json:"tier"`
	EstimatedTokens    int     `json:"estimated_tokens"`
	InputTokens        int     `json:"input_tokens"`
	OutputTokens       int     `json:"output_tokens"`
	EstimatedCostCents float64 `json:"estimated_cost_cents"`
	FallbackCount      int     `json:"fallback_count"`
	CompressionPasses  int     `json:"compression_passes"`
	CacheHit           bool    `json:"cache_hit"`
	Err                string  `json:"err,omitempty"`
}

// Record appends one decision line. Failures are logged, not returned;
// audit must never fail a user request.
func (s *JSONLinesSink) Record(_ context.Context, d domain.RoutingDecision) {
	rec := decisionRecord{
		Route:              string(d.Route),
		Provider:           d.Provider,
		Model:              d.Model,
		Tier:               d.Tier.String(),
		EstimatedTokens:    d.EstimatedTokens,
		InputTokens:        d.Usage.InputTokens,
		OutputTokens:       d.Usage.OutputTokens,
		EstimatedCostCents: d.EstimatedCostCents,
		FallbackCount:      d.FallbackCount,
		CompressionPasses:  d.CompressionPasses,
		CacheHit:           d.CacheHit,
		Err:                d.Err,
	}

	line, err := json.Marshal(rec)
	if err != nil {
		logger.Warn("audit: marshal decision: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, "%s\n", line); err != nil {
		logger.Warn("audit: write decision: %v", err)
	}
}

// MemorySink retains decisions in memory for inspection in tests.
type MemorySink struct {
	mu        sync.Mutex
	decisions []domain.RoutingDecision
}

// NewMemorySink creates an in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Record stores one decision.
func (s *MemorySink) Record(_ context.Context, d domain.RoutingDecision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, d)
}

// Decisions returns a copy of all recorded decisions.
func (s *MemorySink) Decisions() []domain.RoutingDecision {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.RoutingDecision, len(s.decisions))
	copy(out, s.decisions)
	return out
}
