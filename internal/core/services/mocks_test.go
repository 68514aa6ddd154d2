package services

import (
	"context"
	"strings"

	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
	"github.com/hrdesk-labs/hrdesk/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbedder implements driven.EmbeddingService for testing.
// Texts found in vectors get their assigned embedding; everything else
// gets the fallback vector.
type mockEmbedder struct {
	vectors  map[string][]float32
	fallback []float32
	embedErr error
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return m.fallback, nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int {
	return len(m.fallback)
}

func (m *mockEmbedder) ModelName() string { return "mock-embedder" }

func (m *mockEmbedder) Ping(_ context.Context) error { return nil }

func (m *mockEmbedder) Close() error { return nil }

// providerTurn scripts one Complete call of a mockProvider.
type providerTurn struct {
	resp driven.CompletionResponse
	err  error
}

// mockProvider implements driven.LLMProvider for testing. Responses are
// consumed in order; once the script runs out the last turn repeats.
type mockProvider struct {
	name  string
	turns []providerTurn
	calls []driven.CompletionRequest
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) ModelFor(tier domain.Tier) string {
	return m.name + "-" + tier.String()
}

func (m *mockProvider) Complete(_ context.Context, req driven.CompletionRequest) (driven.CompletionResponse, error) {
	m.calls = append(m.calls, req)
	if len(m.turns) == 0 {
		return driven.CompletionResponse{Text: "ok", Model: m.name + "-model"}, nil
	}
	idx := len(m.calls) - 1
	if idx >= len(m.turns) {
		idx = len(m.turns) - 1
	}
	turn := m.turns[idx]
	return turn.resp, turn.err
}

func (m *mockProvider) Ping(_ context.Context) error { return nil }

func (m *mockProvider) Close() error { return nil }

// toolTurn scripts one Call of a mockToolClient.
type toolTurn struct {
	resp driven.ToolResponse
	err  error
}

// mockToolClient implements driven.ToolClient for testing.
type mockToolClient struct {
	turns []toolTurn
	calls []driven.ToolCall
}

func (m *mockToolClient) Call(_ context.Context, call driven.ToolCall) (driven.ToolResponse, error) {
	m.calls = append(m.calls, call)
	if len(m.turns) == 0 {
		return driven.ToolResponse{Status: "ok", Payload: map[string]any{}}, nil
	}
	idx := len(m.calls) - 1
	if idx >= len(m.turns) {
		idx = len(m.turns) - 1
	}
	turn := m.turns[idx]
	return turn.resp, turn.err
}

// mockGuardrail implements driven.Guardrail for testing.
type mockGuardrail struct {
	blockInput  bool
	blockOutput bool
	reason      string
	err         error
}

func (m *mockGuardrail) ValidateInput(_ context.Context, _ string) (driven.GuardrailVerdict, error) {
	if m.err != nil {
		return driven.GuardrailVerdict{}, m.err
	}
	return driven.GuardrailVerdict{Allowed: !m.blockInput, Reason: m.reason}, nil
}

func (m *mockGuardrail) ValidateOutput(_ context.Context, _ string) (driven.GuardrailVerdict, error) {
	if m.err != nil {
		return driven.GuardrailVerdict{}, m.err
	}
	return driven.GuardrailVerdict{Allowed: !m.blockOutput, Reason: m.reason}, nil
}

// wordCounter counts whitespace-separated words, keeping token maths
// easy to reason about in tests.
type wordCounter struct{}

func (wordCounter) Count(text string) int {
	return len(strings.Fields(text))
}
