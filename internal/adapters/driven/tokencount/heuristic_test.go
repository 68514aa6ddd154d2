package tokencount

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristic_Count(t *testing.T) {
	counter := NewHeuristic()

	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"single short word", "hi", 1},
		{"single word", "hello", 1},
		{"sentence", "the quick brown fox jumps", 5},
		{"whitespace only counts chars", "   ", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, counter.Count(tt.text))
		})
	}
}

func TestHeuristic_Count_ScalesWithLength(t *testing.T) {
	counter := NewHeuristic()

	short := strings.Repeat("word ", 10)
	long := strings.Repeat("word ", 100)
	assert.Greater(t, counter.Count(long), counter.Count(short))

	// Roughly one token per four characters for running text.
	n := counter.Count(long)
	assert.InDelta(t, len(long)/4, n, float64(len(long))/8)
}

func TestHeuristic_Count_Deterministic(t *testing.T) {
	counter := NewHeuristic()
	text := "casual leave may be availed for up to seven working days"
	assert.Equal(t, counter.Count(text), counter.Count(text))
}
