package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
	"github.com/hrdesk-labs/hrdesk/internal/core/ports/driven"
)

func TestExtractLeaveSlots(t *testing.T) {
	today := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	t.Run("extraction request is deterministic and dated", func(t *testing.T) {
		provider := &mockProvider{name: "openai", turns: []providerTurn{okTurn(
			`{"leave_type":"SL","start_date":"2026-09-02","end_date":"2026-09-02","reason":"fever"}`, 30, 20)}}
		g := NewGovernor([]driven.LLMProvider{provider}, wordCounter{}, nil, nil)

		slots, err := ExtractLeaveSlots(context.Background(), g, "", "I'm sick, taking tomorrow off", today)
		require.NoError(t, err)
		assert.Equal(t, domain.LeaveSick, slots.Type)
		assert.Equal(t, time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC), slots.StartDate)
		assert.Equal(t, slots.StartDate, slots.EndDate)
		assert.Equal(t, "fever", slots.Reason)

		require.Len(t, provider.calls, 1)
		req := provider.calls[0]
		assert.Zero(t, req.Temperature)
		assert.True(t, req.JSONMode)
		assert.Contains(t, req.Messages[1].Content, "Today is 2026-09-01.")
		assert.Equal(t, DefaultLeaveExtractionPrompt, req.Messages[0].Content)
	})

	t.Run("provider failure propagates", func(t *testing.T) {
		provider := &mockProvider{name: "openai", turns: []providerTurn{errTurn(assert.AnError)}}
		g := NewGovernor([]driven.LLMProvider{provider}, wordCounter{}, nil, nil)

		_, err := ExtractLeaveSlots(context.Background(), g, "", "anything", today)
		assert.ErrorIs(t, err, domain.ErrAllProvidersExhausted)
	})
}

func TestParseSlots(t *testing.T) {
	t.Run("full payload", func(t *testing.T) {
		slots, err := parseSlots(`{"leave_type":"cl","start_date":"2026-09-10","end_date":"2026-09-11","reason":" moving house "}`)
		require.NoError(t, err)
		assert.Equal(t, domain.LeaveCasual, slots.Type)
		assert.Equal(t, time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC), slots.StartDate)
		assert.Equal(t, time.Date(2026, 9, 11, 0, 0, 0, 0, time.UTC), slots.EndDate)
		assert.Equal(t, "moving house", slots.Reason)
	})

	t.Run("partial payload leaves slots unset", func(t *testing.T) {
		slots, err := parseSlots(`{"leave_type":"EL","start_date":"","end_date":"","reason":""}`)
		require.NoError(t, err)
		assert.Equal(t, domain.LeaveEarned, slots.Type)
		assert.True(t, slots.StartDate.IsZero())
		assert.False(t, slots.Complete())
	})

	t.Run("fenced payload accepted", func(t *testing.T) {
		slots, err := parseSlots("Here you go:\n```json\n{\"leave_type\":\"ML\",\"start_date\":\"\",\"end_date\":\"\",\"reason\":\"\"}\n```")
		require.NoError(t, err)
		assert.Equal(t, domain.LeaveMaternity, slots.Type)
	})

	t.Run("unknown leave type ignored", func(t *testing.T) {
		slots, err := parseSlots(`{"leave_type":"PTO","start_date":"","end_date":"","reason":""}`)
		require.NoError(t, err)
		assert.Empty(t, slots.Type)
	})

	t.Run("bad date rejected", func(t *testing.T) {
		_, err := parseSlots(`{"leave_type":"CL","start_date":"next tuesday","end_date":"","reason":""}`)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("no JSON object rejected", func(t *testing.T) {
		_, err := parseSlots("I cannot help with that.")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"bare object", `{"a":1}`, `{"a":1}`},
		{"prose wrapped", `Sure: {"a":1} there`, `{"a":1}`},
		{"nested braces", `{"a":{"b":2}}`, `{"a":{"b":2}}`},
		{"brace inside string", `{"a":"}{"}`, `{"a":"}{"}`},
		{"unbalanced", `{"a":1`, ""},
		{"no object", "nothing here", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, extractJSONObject(tc.in))
		})
	}
}

func TestMissingSlotPrompt(t *testing.T) {
	prompt := missingSlotPrompt(domain.LeaveSlots{})
	assert.Contains(t, prompt, "leave type")
	assert.Contains(t, prompt, "start date")
	assert.Contains(t, prompt, "end date")

	prompt = missingSlotPrompt(domain.LeaveSlots{
		Type:      domain.LeaveCasual,
		StartDate: time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
	})
	assert.NotContains(t, prompt, "leave type")
	assert.Contains(t, prompt, "end date")
}
