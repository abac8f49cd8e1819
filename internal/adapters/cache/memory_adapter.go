package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/zatekoja/hospitalfinder/internal/domain/providers"
)

// DefaultCapacity is the number of entries kept before the oldest are evicted
const DefaultCapacity = 500

type memoryEntry struct {
	value    []byte
	storedAt time.Time
	ttl      time.Duration
}

func (e memoryEntry) expired(now time.Time) bool {
	return e.ttl > 0 && now.Sub(e.storedAt) > e.ttl
}

// MemoryAdapter implements the CacheProvider interface with a bounded in-process store.
// Reads use Peek so recency is never refreshed: when capacity is exceeded the
// entry stored longest ago is evicted first.
type MemoryAdapter struct {
	mu  sync.Mutex
	lru *simplelru.LRU[string, memoryEntry]
	now func() time.Time
}

// NewMemoryAdapter creates a new in-memory cache adapter
func NewMemoryAdapter(capacity int) (*MemoryAdapter, error) {
	return NewMemoryAdapterWithClock(capacity, time.Now)
}

// NewMemoryAdapterWithClock allows overriding the clock (used for tests).
func NewMemoryAdapterWithClock(capacity int, now func() time.Time) (*MemoryAdapter, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if now == nil {
		now = time.Now
	}
	lru, err := simplelru.NewLRU[string, memoryEntry](capacity, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}
	return &MemoryAdapter{lru: lru, now: now}, nil
}

var _ providers.CacheProvider = (*MemoryAdapter)(nil)

// Get retrieves a value from cache; an expired entry is removed and reported as a miss
func (a *MemoryAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.lru.Peek(key)
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	if entry.expired(a.now()) {
		a.lru.Remove(key)
		return nil, providers.ErrCacheMiss
	}
	return entry.value, nil
}

// Set stores a value in cache with a time-to-live
func (a *MemoryAdapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Add on an existing key moves it to the newest position.
	a.lru.Add(key, memoryEntry{value: value, storedAt: a.now(), ttl: ttl})
	return nil
}

// Delete removes a value from cache
func (a *MemoryAdapter) Delete(ctx context.Context, key string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.lru.Remove(key)
	return nil
}

// EvictExpired drops every expired entry
func (a *MemoryAdapter) EvictExpired(ctx context.Context) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	evicted := 0
	for _, key := range a.lru.Keys() {
		entry, ok := a.lru.Peek(key)
		if ok && entry.expired(now) {
			a.lru.Remove(key)
			evicted++
		}
	}
	return evicted, nil
}

// Len returns the number of stored entries, expired or not
func (a *MemoryAdapter) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lru.Len()
}
