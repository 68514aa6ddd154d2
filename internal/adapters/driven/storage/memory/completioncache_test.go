package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
)

func TestCompletionCache(t *testing.T) {
	ctx := context.Background()
	usage := domain.TokenUsage{InputTokens: 40, OutputTokens: 10}

	t.Run("get after put", func(t *testing.T) {
		cache := NewCompletionCache(4)
		require.NoError(t, cache.Put(ctx, "k1", "answer", usage))

		text, got, ok := cache.Get(ctx, "k1")
		require.True(t, ok)
		assert.Equal(t, "answer", text)
		assert.Equal(t, usage, got)
	})

	t.Run("miss", func(t *testing.T) {
		cache := NewCompletionCache(4)
		_, _, ok := cache.Get(ctx, "absent")
		assert.False(t, ok)
	})

	t.Run("empty key rejected", func(t *testing.T) {
		cache := NewCompletionCache(4)
		assert.ErrorIs(t, cache.Put(ctx, "", "x", usage), domain.ErrInvalidInput)
	})

	t.Run("put replaces without growing", func(t *testing.T) {
		cache := NewCompletionCache(4)
		require.NoError(t, cache.Put(ctx, "k1", "v1", usage))
		require.NoError(t, cache.Put(ctx, "k1", "v2", usage))

		assert.Equal(t, 1, cache.Len())
		text, _, ok := cache.Get(ctx, "k1")
		require.True(t, ok)
		assert.Equal(t, "v2", text)
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		cache := NewCompletionCache(3)
		for i := 1; i <= 3; i++ {
			require.NoError(t, cache.Put(ctx, fmt.Sprintf("k%d", i), "v", usage))
		}

		// Touch k1 so k2 becomes the eviction candidate.
		_, _, ok := cache.Get(ctx, "k1")
		require.True(t, ok)

		require.NoError(t, cache.Put(ctx, "k4", "v", usage))
		assert.Equal(t, 3, cache.Len())

		_, _, ok = cache.Get(ctx, "k2")
		assert.False(t, ok)
		_, _, ok = cache.Get(ctx, "k1")
		assert.True(t, ok)
		_, _, ok = cache.Get(ctx, "k4")
		assert.True(t, ok)
	})

	t.Run("non-positive capacity uses the default", func(t *testing.T) {
		cache := NewCompletionCache(0)
		assert.Equal(t, DefaultCacheCapacity, cache.capacity)
	})
}
