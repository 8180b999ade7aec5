package memory

import (
	"context"
	"sync"
	"time"

	"ridemeter/internal/clock"
)

type cacheEntry struct {
	data      []byte
	expiresAt time.Time
}

// ResponseCache is an in-process idempotency response cache with per-entry TTL.
// Expired entries are dropped on access and by Sweep.
type ResponseCache struct {
	mu      sync.Mutex
	clock   clock.Clock
	entries map[string]cacheEntry
}

// NewResponseCache creates an empty ResponseCache. A nil clock uses the system clock.
func NewResponseCache(clk clock.Clock) *ResponseCache {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &ResponseCache{clock: clk, entries: make(map[string]cacheEntry)}
}

// GetResponse returns the cached response, or nil, nil on a miss.
func (c *ResponseCache) GetResponse(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	if !c.clock.Now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return nil, nil
	}
	out := make([]byte, len(entry.data))
	copy(out, entry.data)
	return out, nil
}

// SetResponse stores data under key for ttl.
func (c *ResponseCache) SetResponse(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	v := make([]byte, len(data))
	copy(v, data)
	c.mu.Lock()
	c.entries[key] = cacheEntry{data: v, expiresAt: c.clock.Now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// Sweep drops expired entries and returns how many were removed.
func (c *ResponseCache) Sweep() int {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}
