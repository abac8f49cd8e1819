package services

import (
	"context"
	"sync"
	"time"

	"github.com/zatekoja/hospitalfinder/internal/domain/providers"
	"github.com/zatekoja/hospitalfinder/internal/infrastructure/observability"
)

// CacheJanitor periodically drops expired cache entries so idle keys do not
// hold memory until they are next read.
type CacheJanitor struct {
	cache    providers.CacheProvider
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	once     sync.Once
}

// NewCacheJanitor creates a janitor sweeping every interval
func NewCacheJanitor(cache providers.CacheProvider, interval time.Duration) *CacheJanitor {
	if interval <= 0 {
		interval = time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheJanitor{
		cache:    cache,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start begins sweeping in the background
func (j *CacheJanitor) Start() {
	go j.run()
	observability.GetLogger().Info().Dur("interval", j.interval).Msg("Cache janitor started")
}

// Stop halts the sweep loop and waits for it to exit
func (j *CacheJanitor) Stop() {
	j.once.Do(func() {
		j.cancel()
		<-j.done
		observability.GetLogger().Info().Msg("Cache janitor stopped")
	})
}

func (j *CacheJanitor) run() {
	defer close(j.done)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.ctx.Done():
			return
		case <-ticker.C:
			j.Sweep(j.ctx)
		}
	}
}

// Sweep runs one eviction pass and returns the number of entries dropped
func (j *CacheJanitor) Sweep(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	evicted, err := j.cache.EvictExpired(ctx)
	if err != nil {
		observability.GetLogger().Warn().Err(err).Msg("Cache sweep failed")
		return 0
	}
	if evicted > 0 {
		observability.GetLogger().Debug().Int("evicted", evicted).Msg("Cache sweep completed")
	}
	return evicted
}
