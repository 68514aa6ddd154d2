package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
)

func sampleDecision() domain.RoutingDecision {
	return domain.RoutingDecision{
		Route:              domain.RoutePolicySearch,
		Provider:           "openai",
		Model:              "gpt-4o-mini",
		Tier:               domain.TierDefault,
		EstimatedTokens:    120,
		Usage:              domain.TokenUsage{InputTokens: 100, OutputTokens: 40},
		EstimatedCostCents: 0.0075,
		FallbackCount:      1,
		CompressionPasses:  2,
		CacheHit:           false,
	}
}

func TestJSONLinesSink_Record(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONLinesSink(&buf)

	first := sampleDecision()
	second := sampleDecision()
	second.CacheHit = true
	second.Err = "all providers exhausted"
	sink.Record(context.Background(), first)
	sink.Record(context.Background(), second)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	var rec decisionRecord
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "policy_search", rec.Route)
	assert.Equal(t, "openai", rec.Provider)
	assert.Equal(t, "gpt-4o-mini", rec.Model)
	assert.Equal(t, 120, rec.EstimatedTokens)
	assert.Equal(t, 100, rec.InputTokens)
	assert.Equal(t, 40, rec.OutputTokens)
	assert.Equal(t, 1, rec.FallbackCount)
	assert.Equal(t, 2, rec.CompressionPasses)
	assert.Empty(t, rec.Err)

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	assert.True(t, rec.CacheHit)
	assert.Equal(t, "all providers exhausted", rec.Err)
}

func TestJSONLinesSink_OmitsEmptyErr(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONLinesSink(&buf)

	sink.Record(context.Background(), sampleDecision())
	assert.NotContains(t, buf.String(), `"err"`)
}

func TestMemorySink(t *testing.T) {
	sink := NewMemorySink()
	assert.Empty(t, sink.Decisions())

	sink.Record(context.Background(), sampleDecision())
	sink.Record(context.Background(), sampleDecision())

	decisions := sink.Decisions()
	require.Len(t, decisions, 2)
	assert.Equal(t, "openai", decisions[0].Provider)

	// The returned slice is a copy.
	decisions[0].Provider = "mutated"
	assert.Equal(t, "openai", sink.Decisions()[0].Provider)
}
