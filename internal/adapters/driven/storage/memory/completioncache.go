package memory

import (
	"container/list"
	"context"
	"sync"

	"github.com/hrdesk-labs/hrdesk/internal/core/domain"
	"github.com/hrdesk-labs/hrdesk/internal/core/ports/driven"
)

var _ driven.CompletionCache = (*CompletionCache)(nil)

// DefaultCacheCapacity bounds the deterministic-prompt cache.
const DefaultCacheCapacity = 1024

type cacheEntry struct {
	key   string
	text  string
	usage domain.TokenUsage
}

// CompletionCache is a thread-safe LRU cache for deterministic
// completions. Entries are written whole under one lock, so a reader
// never observes a partial value.
type CompletionCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	entries  map[string]*list.Element
}

// NewCompletionCache creates a cache bounded to capacity entries.
// A non-positive capacity uses DefaultCacheCapacity.
func NewCompletionCache(capacity int) *CompletionCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &CompletionCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

// Get returns the cached completion for a key, if present.
func (c *CompletionCache) Get(_ context.Context, key string) (string, domain.TokenUsage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return "", domain.TokenUsage{}, false
	}
	c.order.MoveToFront(elem)
	entry := elem.Value.(*cacheEntry)
	return entry.text, entry.usage, true
}

// Put stores a completion under a key, replacing any previous value.
func (c *CompletionCache) Put(_ context.Context, key string, text string, usage domain.TokenUsage) error {
	if key == "" {
		return domain.ErrInvalidInput
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.order.MoveToFront(elem)
		entry := elem.Value.(*cacheEntry)
		entry.text = text
		entry.usage = usage
		return nil
	}

	elem := c.order.PushFront(&cacheEntry{key: key, text: text, usage: usage})
	c.entries[key] = elem

	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
	return nil
}

// Len returns the number of cached entries.
func (c *CompletionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
