package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/hospitalfinder/internal/adapters/cache"
	"github.com/zatekoja/hospitalfinder/internal/application/services"
)

func TestCacheJanitor_SweepDropsExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	memory, err := cache.NewMemoryAdapterWithClock(10, clock)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, memory.Set(ctx, "short", []byte("a"), time.Minute))
	require.NoError(t, memory.Set(ctx, "long", []byte("b"), time.Hour))

	now = now.Add(2 * time.Minute)

	janitor := services.NewCacheJanitor(memory, time.Hour)
	assert.Equal(t, 1, janitor.Sweep(ctx))
	assert.Equal(t, 1, memory.Len())
}

func TestCacheJanitor_SweepToleratesErrors(t *testing.T) {
	janitor := services.NewCacheJanitor(brokenCache{}, time.Hour)
	assert.Equal(t, 0, janitor.Sweep(context.Background()))
}

func TestCacheJanitor_StartStop(t *testing.T) {
	memory, err := cache.NewMemoryAdapter(10)
	require.NoError(t, err)

	janitor := services.NewCacheJanitor(memory, 10*time.Millisecond)
	janitor.Start()
	time.Sleep(30 * time.Millisecond)
	janitor.Stop()
	janitor.Stop()
}
