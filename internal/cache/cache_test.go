package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache(t *testing.T, capacity int) (*MemoryCache, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c, err := NewMemoryCache(capacity, WithClock(clock.Now))
	require.NoError(t, err)
	return c, clock
}

func TestMemoryCache_SetThenGet(t *testing.T) {
	c, _ := newTestCache(t, 10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	payload, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []byte("v"), payload)
}

func TestMemoryCache_ExpiresAfterTTL(t *testing.T) {
	c, clock := newTestCache(t, 10)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	clock.Advance(time.Minute)
	_, hit, _ := c.Get(ctx, "k")
	assert.True(t, hit, "entry is live while now == expires_at")

	clock.Advance(time.Nanosecond)
	payload, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, payload)
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCache_ExpiredEntryCanBeOverwritten(t *testing.T) {
	c, clock := newTestCache(t, 10)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("old"), time.Second))
	clock.Advance(2 * time.Second)

	require.NoError(t, c.Set(ctx, "k", []byte("new"), time.Second))

	payload, hit, _ := c.Get(ctx, "k")
	assert.True(t, hit)
	assert.Equal(t, []byte("new"), payload)
}

func TestMemoryCache_ExpiryKeepsEntryWrittenDuringRead(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}

	var c *MemoryCache
	var armed bool
	// The first clock read inside Get stands in for a writer racing the reader.
	now := func() time.Time {
		if armed {
			armed = false
			require.NoError(t, c.Set(ctx, "k", []byte("fresh"), time.Minute))
		}
		return clock.Now()
	}
	c, err := NewMemoryCache(10, WithClock(now))
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "k", []byte("stale"), time.Second))
	clock.Advance(2 * time.Second)

	armed = true
	_, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, hit)

	payload, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []byte("fresh"), payload)
}

func TestMemoryCache_Invalidate(t *testing.T) {
	c, _ := newTestCache(t, 10)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Hour))

	require.NoError(t, c.Invalidate(ctx, "k"))
	require.NoError(t, c.Invalidate(ctx, "missing"))

	_, hit, _ := c.Get(ctx, "k")
	assert.False(t, hit)
}

func TestMemoryCache_NonPositiveTTLStoresNothing(t *testing.T) {
	c, _ := newTestCache(t, 10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))

	_, hit, _ := c.Get(ctx, "k")
	assert.False(t, hit)
}

func TestMemoryCache_CapacityEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(t, 2)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Hour))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Hour))
	_, _, _ = c.Get(ctx, "a")

	require.NoError(t, c.Set(ctx, "c", []byte("3"), time.Hour))

	_, hitA, _ := c.Get(ctx, "a")
	_, hitB, _ := c.Get(ctx, "b")
	assert.True(t, hitA)
	assert.False(t, hitB)
}

func TestMemoryCache_StoresCopy(t *testing.T) {
	c, _ := newTestCache(t, 10)
	ctx := context.Background()
	payload := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", payload, time.Hour))

	payload[0] = 'z'

	stored, _, _ := c.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), stored)
}

func TestMemoryCache_ConcurrentWriters(t *testing.T) {
	c, _ := newTestCache(t, 100)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = c.Set(ctx, "shared", []byte("same"), time.Hour)
			_ = c.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), time.Hour)
			_, _, _ = c.Get(ctx, "shared")
		}(i)
	}
	wg.Wait()

	payload, hit, _ := c.Get(ctx, "shared")
	assert.True(t, hit)
	assert.Equal(t, []byte("same"), payload)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, QueryKey("Show  me platform STATS "), QueryKey("show me platform stats"))
	assert.NotEqual(t, QueryKey("show me platform stats"), QueryKey("show me agent stats"))
	assert.Equal(t, "show me stats", NormalizeQuery("  Show\tme   STATS\n"))
	assert.Equal(t, ReportKey("7days", "usage"), ReportKey("7DAYS", "usage"))
	assert.NotEqual(t, ReportKey("7days", "usage"), ReportKey("30days", "usage"))
	assert.NotEqual(t, QueryKey("x"), ReportKey("x", ""))
}
