package services

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/zatekoja/hospitalfinder/internal/domain/entities"
	"github.com/zatekoja/hospitalfinder/internal/domain/providers"
	"github.com/zatekoja/hospitalfinder/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/hospitalfinder/pkg/errors"
)

// SchedulerOptions tunes failure isolation for every adapter
type SchedulerOptions struct {
	// ConsecutiveFailures opens an adapter's breaker
	ConsecutiveFailures uint32
	// OpenTimeout is how long an open breaker rejects calls before probing again
	OpenTimeout time.Duration
}

// DefaultSchedulerOptions returns the production breaker settings
func DefaultSchedulerOptions() SchedulerOptions {
	return SchedulerOptions{
		ConsecutiveFailures: 5,
		OpenTimeout:         time.Minute,
	}
}

// SourceResult is the outcome of one adapter slot in a scheduled run
type SourceResult struct {
	Provider string
	Records  []*entities.FacilityRecord
	Err      error
	// Skipped is set when the adapter was disabled or filtered out
	Skipped  bool
	Duration time.Duration
}

type scheduledSource struct {
	source  providers.FacilitySource
	config  entities.ProviderConfig
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// Scheduler calls facility adapters one after another in priority order,
// spacing calls to the same adapter by its configured rate limit.
type Scheduler struct {
	sources []*scheduledSource
	metrics *observability.Metrics
}

// NewScheduler builds a scheduler over sources, highest priority first
func NewScheduler(sources []providers.FacilitySource, opts SchedulerOptions, metrics *observability.Metrics) *Scheduler {
	if opts.ConsecutiveFailures == 0 {
		opts.ConsecutiveFailures = DefaultSchedulerOptions().ConsecutiveFailures
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = DefaultSchedulerOptions().OpenTimeout
	}

	s := &Scheduler{metrics: metrics}
	for _, src := range sources {
		cfg := src.Config()
		limit := rate.Inf
		if cfg.RateLimit > 0 {
			limit = rate.Every(cfg.RateLimit)
		}
		name := src.Name()
		s.sources = append(s.sources, &scheduledSource{
			source:  src,
			config:  cfg,
			limiter: rate.NewLimiter(limit, 1),
			breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
				Name:    name,
				Timeout: opts.OpenTimeout,
				ReadyToTrip: func(counts gobreaker.Counts) bool {
					return counts.ConsecutiveFailures >= opts.ConsecutiveFailures
				},
				// A caller walking away says nothing about the provider's health
				IsSuccessful: func(err error) bool {
					return err == nil || errors.Is(err, context.Canceled)
				},
				OnStateChange: func(name string, from, to gobreaker.State) {
					observability.GetLogger().Warn().
						Str("provider", name).
						Str("from", from.String()).
						Str("to", to.String()).
						Msg("provider breaker state changed")
				},
			}),
		})
	}
	return s
}

// Configs returns the static description of every scheduled adapter, in priority order
func (s *Scheduler) Configs() []entities.ProviderConfig {
	out := make([]entities.ProviderConfig, 0, len(s.sources))
	for _, src := range s.sources {
		out = append(out, src.config)
	}
	return out
}

// Run calls every enabled adapter accepted by include, sequentially. A failing
// adapter is recorded in its SourceResult and the run continues. When ctx is
// done the remaining adapters are not called.
func (s *Scheduler) Run(ctx context.Context, coord entities.Coordinate, radiusKm float64, include func(entities.ProviderConfig) bool) []SourceResult {
	results := make([]SourceResult, 0, len(s.sources))
	for _, src := range s.sources {
		name := src.source.Name()
		if !src.config.Enabled || (include != nil && !include(src.config)) {
			results = append(results, SourceResult{Provider: name, Skipped: true})
			observability.RecordAdapterCall(ctx, s.metrics, name, "skipped", 0)
			continue
		}
		if ctx.Err() != nil {
			break
		}
		results = append(results, s.call(ctx, src, coord, radiusKm))
	}
	return results
}

func (s *Scheduler) call(ctx context.Context, src *scheduledSource, coord entities.Coordinate, radiusKm float64) SourceResult {
	name := src.source.Name()
	ctx, span := observability.StartSpan(ctx, "provider.search",
		attribute.String("provider", name),
		attribute.Float64("radius_km", radiusKm),
	)
	defer span.End()

	result := SourceResult{Provider: name}
	start := time.Now()

	if err := src.limiter.Wait(ctx); err != nil {
		result.Err = apperrors.NewProviderError(name, "abandoned while waiting for rate limit", err)
		return result
	}

	out, err := src.breaker.Execute(func() (interface{}, error) {
		return src.source.Search(ctx, coord, radiusKm)
	})
	result.Duration = time.Since(start)

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		result.Err = apperrors.NewProviderError(name, "circuit open", err)
	case err != nil:
		result.Err = err
	default:
		result.Records, _ = out.([]*entities.FacilityRecord)
	}

	outcome := "ok"
	if result.Err != nil {
		outcome = "error"
		observability.RecordError(span, result.Err)
	}
	span.SetAttributes(attribute.Int("records", len(result.Records)))
	observability.RecordAdapterCall(ctx, s.metrics, name, outcome, result.Duration)
	return result
}
