package cache

import (
	"context"
	"time"
)

// Cache is a TTL key-value store shared by reports and ad hoc queries.
// An entry is never returned once its TTL has elapsed.
type Cache interface {
	// Get returns the payload stored under key and whether it was a live hit
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores payload under key for ttl, overwriting any previous entry
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error

	// Invalidate removes key; removing a missing key is not an error
	Invalidate(ctx context.Context, key string) error
}
