package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCapacity = 1024

// Entry is a stored payload with its absolute expiry
type Entry struct {
	Key       string
	Payload   []byte
	ExpiresAt time.Time
}

// MemoryCache is an in-process Cache bounded by an LRU capacity. It is safe
// for concurrent use; concurrent writers to one key resolve last-write-wins.
type MemoryCache struct {
	// mu serializes writes so expiry removal cannot drop a newer entry
	mu      sync.Mutex
	entries *lru.Cache[string, Entry]
	now     func() time.Time
}

// Option configures a MemoryCache
type Option func(*MemoryCache)

// WithClock replaces the wall clock, letting tests move time forward
func WithClock(now func() time.Time) Option {
	return func(c *MemoryCache) {
		c.now = now
	}
}

// NewMemoryCache creates a cache holding at most capacity entries
func NewMemoryCache(capacity int, opts ...Option) (*MemoryCache, error) {
	if capacity <= 0 {
		capacity = defaultCapacity
	}

	entries, err := lru.New[string, Entry](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}

	c := &MemoryCache{entries: entries, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns a hit only while now <= ExpiresAt. Expired entries are
// dropped on read.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	entry, ok := c.entries.Get(key)
	if !ok {
		return nil, false, nil
	}

	if c.now().After(entry.ExpiresAt) {
		c.removeExpired(key, entry.ExpiresAt)
		return nil, false, nil
	}

	return entry.Payload, true, nil
}

// removeExpired drops key only if it still holds the entry observed with
// expiresAt; a Set that landed in between is kept.
func (c *MemoryCache) removeExpired(key string, expiresAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, ok := c.entries.Peek(key)
	if ok && current.ExpiresAt.Equal(expiresAt) {
		c.entries.Remove(key)
	}
}

// Set stores payload for ttl. A non-positive ttl stores nothing.
func (c *MemoryCache) Set(_ context.Context, key string, payload []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		c.entries.Remove(key)
		return nil
	}

	stored := make([]byte, len(payload))
	copy(stored, payload)

	c.entries.Add(key, Entry{
		Key:       key,
		Payload:   stored,
		ExpiresAt: c.now().Add(ttl),
	})
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries.Remove(key)
	return nil
}

// Len returns the number of stored entries, expired ones included
func (c *MemoryCache) Len() int {
	return c.entries.Len()
}

var _ Cache = (*MemoryCache)(nil)
