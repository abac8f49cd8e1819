//go:build integration

package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zatekoja/hospitalfinder/internal/domain/providers"
	redisclient "github.com/zatekoja/hospitalfinder/internal/infrastructure/clients/redis"
	"github.com/zatekoja/hospitalfinder/pkg/config"
)

func TestRedisAdapter_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	cfg := &config.RedisConfig{Host: "localhost", Port: 6379}
	if host := os.Getenv("REDIS_HOST"); host != "" {
		cfg.Host = host
	}
	client, err := redisclient.NewClient(cfg)
	if err != nil {
		t.Skipf("Redis not available for integration test: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	adapter := NewRedisAdapter(client)

	require.NoError(t, adapter.Set(ctx, "test:roundtrip", []byte("payload"), time.Minute))
	got, err := adapter.Get(ctx, "test:roundtrip")
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), got)

	require.NoError(t, adapter.Delete(ctx, "test:roundtrip"))
	_, err = adapter.Get(ctx, "test:roundtrip")
	require.ErrorIs(t, err, providers.ErrCacheMiss)

	n, err := adapter.EvictExpired(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}
