package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/zatekoja/hospitalfinder/internal/domain/entities"
	"github.com/zatekoja/hospitalfinder/internal/domain/providers"
	"github.com/zatekoja/hospitalfinder/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/hospitalfinder/pkg/errors"
	"github.com/zatekoja/hospitalfinder/pkg/geo"
)

const facilityCacheNamespace = "facilities"

// DefaultFetchTimeout bounds a provider fan-out when AggregatorConfig leaves it unset
const DefaultFetchTimeout = 30 * time.Second

// AggregatorConfig holds nearby-search limits
type AggregatorConfig struct {
	MaxRadiusKm float64
	CacheTTL    time.Duration
	// FetchTimeout bounds one shared provider fan-out, independent of any caller
	FetchTimeout time.Duration
}

// FacilityAggregator merges the output of every facility adapter into one
// deduplicated, distance-sorted list.
type FacilityAggregator struct {
	scheduler *Scheduler
	seed      providers.FacilitySource
	cache     providers.CacheProvider
	cfg       AggregatorConfig
	metrics   *observability.Metrics
	inflight  singleflight.Group
}

// NewFacilityAggregator creates an aggregator. seed is the adapter of last
// resort used when nothing else yields a result in range; cache may be nil.
func NewFacilityAggregator(
	scheduler *Scheduler,
	seed providers.FacilitySource,
	cache providers.CacheProvider,
	cfg AggregatorConfig,
	metrics *observability.Metrics,
) *FacilityAggregator {
	if cfg.MaxRadiusKm <= 0 {
		cfg.MaxRadiusKm = 50
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Minute
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	return &FacilityAggregator{
		scheduler: scheduler,
		seed:      seed,
		cache:     cache,
		cfg:       cfg,
		metrics:   metrics,
	}
}

// MaxRadiusKm returns the largest accepted search radius
func (a *FacilityAggregator) MaxRadiusKm() float64 {
	return a.cfg.MaxRadiusKm
}

// Providers returns the scheduled adapter configurations in priority order
func (a *FacilityAggregator) Providers() []entities.ProviderConfig {
	return a.scheduler.Configs()
}

// FindNearby returns facilities within radiusKm of coord. The only error it
// returns is a validation error; upstream and cache failures degrade the
// result instead.
func (a *FacilityAggregator) FindNearby(ctx context.Context, coord entities.Coordinate, radiusKm float64, opts entities.SearchOptions) ([]*entities.FacilityRecord, error) {
	if err := coord.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(radiusKm) || radiusKm <= 0 || radiusKm > a.cfg.MaxRadiusKm {
		return nil, apperrors.NewValidationError(fmt.Sprintf("radius must be greater than 0 and at most %g km", a.cfg.MaxRadiusKm))
	}
	opts = opts.Normalized()

	ctx, span := observability.StartSpan(ctx, "aggregator.find_nearby",
		attribute.Float64("lat", coord.Lat),
		attribute.Float64("lng", coord.Lng),
		attribute.Float64("radius_km", radiusKm),
	)
	defer span.End()

	key := facilityCacheKey(coord, radiusKm, opts)
	if records, ok := a.fromCache(ctx, key); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return records, nil
	}

	if ctx.Err() != nil {
		return a.abandoned(ctx, key, coord, radiusKm, opts), nil
	}

	// The shared fetch outlives any single caller; each caller stops waiting on its own ctx.
	ch := a.inflight.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.FetchTimeout)
		defer cancel()
		return a.fetch(fetchCtx, coord, radiusKm, opts, key), nil
	})

	select {
	case res := <-ch:
		records := res.Val.([]*entities.FacilityRecord)
		if res.Shared {
			records = cloneRecords(records)
		}
		return records, nil
	case <-ctx.Done():
		return a.abandoned(ctx, key, coord, radiusKm, opts), nil
	}
}

func (a *FacilityAggregator) abandoned(ctx context.Context, key string, coord entities.Coordinate, radiusKm float64, opts entities.SearchOptions) []*entities.FacilityRecord {
	observability.LoggerFromContext(ctx).Warn().Err(ctx.Err()).Str("key", key).Msg("nearby search abandoned, serving seed dataset")
	return a.seedFallback(context.WithoutCancel(ctx), coord, radiusKm, opts)
}

func (a *FacilityAggregator) fetch(ctx context.Context, coord entities.Coordinate, radiusKm float64, opts entities.SearchOptions, key string) []*entities.FacilityRecord {
	logger := observability.LoggerFromContext(ctx)

	results := a.scheduler.Run(ctx, coord, radiusKm, func(cfg entities.ProviderConfig) bool {
		return cfg.ReliabilityTier >= opts.MinReliability
	})

	var merged []*entities.FacilityRecord
	for _, res := range results {
		if res.Skipped {
			continue
		}
		if res.Err != nil {
			event := logger.Warn().Err(res.Err).Str("provider", res.Provider).Dur("duration", res.Duration)
			if provErr, ok := apperrors.AsProviderError(res.Err); ok && provErr.StatusCode != 0 {
				event = event.Int("status", provErr.StatusCode)
			}
			event.Msg("provider search failed, skipping")
			continue
		}
		merged = append(merged, res.Records...)
	}

	records := rank(dedupe(merged), coord, radiusKm, opts)
	if len(records) == 0 {
		logger.Info().Str("key", key).Msg("no live results in range, falling back to seed dataset")
		records = a.seedFallback(ctx, coord, radiusKm, opts)
	}

	if ctx.Err() == nil {
		a.toCache(ctx, key, records)
	} else {
		logger.Warn().Err(ctx.Err()).Str("key", key).Msg("provider fan-out cut short, result not cached")
	}
	return records
}

func (a *FacilityAggregator) seedFallback(ctx context.Context, coord entities.Coordinate, radiusKm float64, opts entities.SearchOptions) []*entities.FacilityRecord {
	if a.seed == nil {
		return []*entities.FacilityRecord{}
	}
	seeded, err := a.seed.Search(ctx, coord, radiusKm)
	if err != nil {
		observability.LoggerFromContext(ctx).Error().Err(err).Msg("seed dataset search failed")
		return []*entities.FacilityRecord{}
	}
	return rank(dedupe(seeded), coord, radiusKm, opts)
}

func (a *FacilityAggregator) fromCache(ctx context.Context, key string) ([]*entities.FacilityRecord, bool) {
	if a.cache == nil {
		return nil, false
	}
	payload, err := a.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			observability.LoggerFromContext(ctx).Debug().Err(err).Str("key", key).Msg("cache read failed, treating as miss")
		}
		observability.RecordCacheMiss(ctx, a.metrics, facilityCacheNamespace)
		return nil, false
	}

	var records []*entities.FacilityRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		observability.LoggerFromContext(ctx).Debug().Err(err).Str("key", key).Msg("discarding undecodable cache entry")
		_ = a.cache.Delete(ctx, key)
		observability.RecordCacheMiss(ctx, a.metrics, facilityCacheNamespace)
		return nil, false
	}
	observability.RecordCacheHit(ctx, a.metrics, facilityCacheNamespace)
	return records, true
}

func (a *FacilityAggregator) toCache(ctx context.Context, key string, records []*entities.FacilityRecord) {
	if a.cache == nil {
		return
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, payload, a.cfg.CacheTTL); err != nil {
		observability.LoggerFromContext(ctx).Debug().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// facilityCacheKey rounds the coordinate to 3 decimals (about 110 m) so nearby
// queries share an entry.
func facilityCacheKey(coord entities.Coordinate, radiusKm float64, opts entities.SearchOptions) string {
	return fmt.Sprintf("%s:v1:%.3f,%.3f|r=%g|%s",
		facilityCacheNamespace,
		geo.Round(coord.Lat, 3), geo.Round(coord.Lng, 3),
		radiusKm, opts.Fingerprint())
}

type dedupeCell struct {
	name     string
	lat, lng int64
}

// dedupe drops records whose lowercase name matches an earlier record in the
// same or an adjacent 4-decimal grid cell (about 11 m). Earlier records come
// from higher-priority adapters, so the first one seen wins.
func dedupe(records []*entities.FacilityRecord) []*entities.FacilityRecord {
	seen := make(map[dedupeCell]struct{}, len(records))
	out := make([]*entities.FacilityRecord, 0, len(records))
	for _, rec := range records {
		name := strings.ToLower(strings.Join(strings.Fields(rec.Name), " "))
		lat := int64(math.Round(rec.Coordinate.Lat * 1e4))
		lng := int64(math.Round(rec.Coordinate.Lng * 1e4))

		duplicate := false
		for dLat := int64(-1); dLat <= 1 && !duplicate; dLat++ {
			for dLng := int64(-1); dLng <= 1; dLng++ {
				if _, ok := seen[dedupeCell{name, lat + dLat, lng + dLng}]; ok {
					duplicate = true
					break
				}
			}
		}
		if duplicate {
			continue
		}
		seen[dedupeCell{name, lat, lng}] = struct{}{}
		out = append(out, rec)
	}
	return out
}

// rank attaches distances, filters to the radius and the verification option,
// sorts and truncates. Input records are copied, never modified.
func rank(records []*entities.FacilityRecord, coord entities.Coordinate, radiusKm float64, opts entities.SearchOptions) []*entities.FacilityRecord {
	out := make([]*entities.FacilityRecord, 0, len(records))
	for _, rec := range records {
		d := geo.Round(geo.DistanceKm(coord.Lat, coord.Lng, rec.Coordinate.Lat, rec.Coordinate.Lng), 3)
		if d > radiusKm {
			continue
		}
		if !rec.Verified && !opts.IncludesUnverified() {
			continue
		}
		cp := *rec
		cp.DistanceKm = &d
		if cp.Specialties == nil {
			cp.Specialties = []string{}
		}
		out = append(out, &cp)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if *a.DistanceKm != *b.DistanceKm {
			return *a.DistanceKm < *b.DistanceKm
		}
		if a.Verified != b.Verified {
			return a.Verified
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})

	if len(out) > opts.MaxResults {
		out = out[:opts.MaxResults]
	}
	return out
}

func cloneRecords(records []*entities.FacilityRecord) []*entities.FacilityRecord {
	out := make([]*entities.FacilityRecord, len(records))
	for i, rec := range records {
		cp := *rec
		cp.Specialties = append([]string{}, rec.Specialties...)
		out[i] = &cp
	}
	return out
}
