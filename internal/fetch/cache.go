package fetch

import (
	"context"
	"sync"
	"time"
)

// Cache stores successful responses by locator.
type Cache interface {
	Get(ctx context.Context, locator string) (*Response, bool, error)
	Set(ctx context.Context, locator string, resp *Response) error
	Len(ctx context.Context) (int, error)
}

type memoryEntry struct {
	resp    *Response
	expires time.Time
}

// MemoryCache is a process-local cache whose entries expire ttl after write.
type MemoryCache struct {
	ttl   time.Duration
	clock Clock

	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryCache creates an empty cache. A nil clock uses the wall clock.
func NewMemoryCache(ttl time.Duration, clock Clock) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		clock:   clockOrSystem(clock),
		entries: make(map[string]memoryEntry),
	}
}

// Get returns a live entry. Expired entries are evicted on read.
func (c *MemoryCache) Get(_ context.Context, locator string) (*Response, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[locator]
	if !ok {
		return nil, false, nil
	}
	if !c.clock.Now().Before(entry.expires) {
		delete(c.entries, locator)
		return nil, false, nil
	}
	return entry.resp, true, nil
}

// Set stores resp until ttl elapses.
func (c *MemoryCache) Set(_ context.Context, locator string, resp *Response) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[locator] = memoryEntry{resp: resp, expires: c.clock.Now().Add(c.ttl)}
	return nil
}

// Len returns the number of live entries.
func (c *MemoryCache) Len(_ context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
	return len(c.entries), nil
}
