package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/zatekoja/hospitalfinder/internal/domain/providers"
	redisclient "github.com/zatekoja/hospitalfinder/internal/infrastructure/clients/redis"
)

const defaultKeyPrefix = "hospitalfinder:"

// RedisAdapter implements the CacheProvider interface using Redis.
// Redis expires keys on its own, so EvictExpired is a no-op.
type RedisAdapter struct {
	client *redisclient.Client
	prefix string
}

// NewRedisAdapter creates a new Redis cache adapter
func NewRedisAdapter(client *redisclient.Client) *RedisAdapter {
	return &RedisAdapter{
		client: client,
		prefix: defaultKeyPrefix,
	}
}

var _ providers.CacheProvider = (*RedisAdapter)(nil)

// Get retrieves a value from cache
func (a *RedisAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	result, err := a.client.Client().Get(ctx, a.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, providers.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get from cache: %w", err)
	}
	return result, nil
}

// Set stores a value in cache with expiration
func (a *RedisAdapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := a.client.Client().Set(ctx, a.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in cache: %w", err)
	}
	return nil
}

// Delete removes a value from cache
func (a *RedisAdapter) Delete(ctx context.Context, key string) error {
	if err := a.client.Client().Del(ctx, a.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete from cache: %w", err)
	}
	return nil
}

// EvictExpired is handled by Redis key expiry
func (a *RedisAdapter) EvictExpired(ctx context.Context) (int, error) {
	return 0, nil
}
