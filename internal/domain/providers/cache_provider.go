package providers

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or expired
var ErrCacheMiss = errors.New("cache miss")

// CacheProvider defines the interface for caching operations
type CacheProvider interface {
	// Get retrieves a value from cache. Expired entries behave as a miss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with a time-to-live
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// EvictExpired physically removes expired entries and reports how many were dropped
	EvictExpired(ctx context.Context) (int, error)
}
