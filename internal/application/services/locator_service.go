package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/zatekoja/hospitalfinder/internal/domain/entities"
	"github.com/zatekoja/hospitalfinder/internal/domain/providers"
	"github.com/zatekoja/hospitalfinder/internal/infrastructure/observability"
)

const (
	locationCacheNamespace = "locate"

	// StaticFallbackAccuracyMeters marks a static-default position as low confidence
	StaticFallbackAccuracyMeters = 50000
)

// LocatorConfig holds locate-chain timings
type LocatorConfig struct {
	GPSTimeout time.Duration
	FixMaxAge  time.Duration
	IPTimeout  time.Duration
	CacheTTL   time.Duration
	// FallbackRegion forces the static fallback region, e.g. "delhi"
	FallbackRegion string
}

// LocateRequest carries the per-call inputs of Locate
type LocateRequest struct {
	// Position overrides the service's default position source, e.g. with a
	// fix reported by the client device
	Position providers.PositionSource
	// Precise callers are never served a cached IP-derived position
	Precise bool
	// TimezoneHint picks the static fallback region, e.g. "Asia/Kolkata"
	TimezoneHint string
	// ClientIP is forwarded to IP locators; empty means the caller's own address
	ClientIP string
}

type fallbackRegion struct {
	name  string
	coord entities.Coordinate
}

var (
	regionDelhi   = fallbackRegion{"delhi", entities.Coordinate{Lat: 28.6139, Lng: 77.2090}}
	regionMumbai  = fallbackRegion{"mumbai", entities.Coordinate{Lat: 19.0760, Lng: 72.8777}}
	regionLagos   = fallbackRegion{"lagos", entities.Coordinate{Lat: 6.5244, Lng: 3.3792}}
	regionLondon  = fallbackRegion{"london", entities.Coordinate{Lat: 51.5074, Lng: -0.1278}}
	regionNewYork = fallbackRegion{"new-york", entities.Coordinate{Lat: 40.7128, Lng: -74.0060}}
	regionSydney  = fallbackRegion{"sydney", entities.Coordinate{Lat: -33.8688, Lng: 151.2093}}

	fallbackRegions = map[string]fallbackRegion{
		regionDelhi.name:   regionDelhi,
		regionMumbai.name:  regionMumbai,
		regionLagos.name:   regionLagos,
		regionLondon.name:  regionLondon,
		regionNewYork.name: regionNewYork,
		regionSydney.name:  regionSydney,
	}

	timezoneRegions = map[string]fallbackRegion{
		"Asia/Kolkata":     regionDelhi,
		"Asia/Calcutta":    regionDelhi,
		"Africa/Lagos":     regionLagos,
		"Europe/London":    regionLondon,
		"America/New_York": regionNewYork,
		"Australia/Sydney": regionSydney,
	}

	continentRegions = map[string]fallbackRegion{
		"Asia":      regionDelhi,
		"Indian":    regionMumbai,
		"Africa":    regionLagos,
		"Europe":    regionLondon,
		"America":   regionNewYork,
		"Australia": regionSydney,
		"Pacific":   regionSydney,
	}
)

// LocatorService resolves an approximate user position. It degrades through
// device fix, IP locators in priority order, and a static regional default.
type LocatorService struct {
	position   providers.PositionSource
	ipLocators []providers.IPLocator
	cache      providers.CacheProvider
	cfg        LocatorConfig
	metrics    *observability.Metrics
	now        func() time.Time
	inflight   singleflight.Group
}

// NewLocatorService creates a locator. position is the default device source
// and may be nil; ipLocators are tried in slice order; cache may be nil.
func NewLocatorService(
	position providers.PositionSource,
	ipLocators []providers.IPLocator,
	cache providers.CacheProvider,
	cfg LocatorConfig,
	metrics *observability.Metrics,
) *LocatorService {
	return NewLocatorServiceWithClock(position, ipLocators, cache, cfg, metrics, time.Now)
}

// NewLocatorServiceWithClock is NewLocatorService with an injectable clock (used for tests).
func NewLocatorServiceWithClock(
	position providers.PositionSource,
	ipLocators []providers.IPLocator,
	cache providers.CacheProvider,
	cfg LocatorConfig,
	metrics *observability.Metrics,
	now func() time.Time,
) *LocatorService {
	if cfg.GPSTimeout <= 0 {
		cfg.GPSTimeout = 10 * time.Second
	}
	if cfg.FixMaxAge <= 0 {
		cfg.FixMaxAge = 5 * time.Minute
	}
	if cfg.IPTimeout <= 0 || cfg.IPTimeout > 5*time.Second {
		cfg.IPTimeout = 5 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &LocatorService{
		position:   position,
		ipLocators: ipLocators,
		cache:      cache,
		cfg:        cfg,
		metrics:    metrics,
		now:        now,
	}
}

// Locate always returns a valid position. Concurrent identical requests
// without a client-supplied fix share one resolution.
func (s *LocatorService) Locate(ctx context.Context, req LocateRequest) *entities.LocationResult {
	if req.Position != nil {
		return s.locate(ctx, req)
	}

	if ctx.Err() != nil {
		return s.staticFallback(req.TimezoneHint)
	}

	key := strings.Join([]string{req.ClientIP, boolKey(req.Precise), req.TimezoneHint}, "|")
	ch := s.inflight.DoChan(key, func() (interface{}, error) {
		resolveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.resolveTimeout())
		defer cancel()
		return s.locate(resolveCtx, req), nil
	})

	select {
	case res := <-ch:
		result := *res.Val.(*entities.LocationResult)
		return &result
	case <-ctx.Done():
		observability.LoggerFromContext(ctx).Warn().Err(ctx.Err()).Msg("locate abandoned, serving static fallback")
		return s.staticFallback(req.TimezoneHint)
	}
}

// resolveTimeout is the longest a full device then IP chain can take
func (s *LocatorService) resolveTimeout() time.Duration {
	return s.cfg.GPSTimeout + time.Duration(len(s.ipLocators))*s.cfg.IPTimeout + time.Second
}

func (s *LocatorService) locate(ctx context.Context, req LocateRequest) *entities.LocationResult {
	ctx, span := observability.StartSpan(ctx, "locator.locate", attribute.Bool("precise", req.Precise))
	defer span.End()

	result := s.fromDevice(ctx, req)
	if result == nil {
		result = s.fromIP(ctx, req)
	}
	if result == nil {
		result = s.staticFallback(req.TimezoneHint)
	}

	span.SetAttributes(attribute.String("source", string(result.Source)))
	observability.RecordLocatorResult(ctx, s.metrics, sourceLabel(result.Source))
	return result
}

// fromDevice reads a fix from the request's position source or, failing that,
// the host's own. Only host fixes are cached: a client-reported fix belongs to
// that client alone and is never served to anyone else.
func (s *LocatorService) fromDevice(ctx context.Context, req LocateRequest) *entities.LocationResult {
	logger := observability.LoggerFromContext(ctx)
	gpsKey := locationCacheNamespace + ":v1:gps:device"

	source := req.Position
	clientReported := source != nil
	if !clientReported {
		if cached := s.cachedResult(ctx, gpsKey); cached != nil && s.now().Sub(cached.CapturedAt) <= s.cfg.FixMaxAge {
			return cached
		}
		source = s.position
	}
	if source == nil {
		return nil
	}

	gpsCtx, cancel := context.WithTimeout(ctx, s.cfg.GPSTimeout)
	defer cancel()
	gpsCtx, span := observability.StartSpan(gpsCtx, "locator.gps")
	defer span.End()

	fix, err := source.CurrentPosition(gpsCtx)
	if err != nil {
		observability.RecordError(span, err)
		switch {
		case errors.Is(err, providers.ErrPermissionDenied):
			logger.Info().Msg("device position denied, trying ip locators")
		case errors.Is(err, providers.ErrPositionUnavailable):
			logger.Debug().Msg("no device position available")
		default:
			logger.Warn().Err(err).Msg("device position failed")
		}
		return nil
	}
	if fix == nil || !fix.Coordinate.IsValid() {
		return nil
	}

	capturedAt := fix.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = s.now()
	}
	result := &entities.LocationResult{
		Coordinate:     fix.Coordinate,
		AccuracyMeters: fix.AccuracyMeters,
		Source:         entities.LocationSourceGPS,
		CapturedAt:     capturedAt,
	}
	if !clientReported && s.now().Sub(capturedAt) <= s.cfg.FixMaxAge {
		s.storeResult(ctx, gpsKey, result)
	}
	return result
}

func (s *LocatorService) fromIP(ctx context.Context, req LocateRequest) *entities.LocationResult {
	logger := observability.LoggerFromContext(ctx)

	for i, locator := range s.ipLocators {
		source := entities.IPProviderSource(i + 1)
		key := s.cacheKey("ip:"+locator.Name(), req.ClientIP)

		if !req.Precise {
			if cached := s.cachedResult(ctx, key); cached != nil {
				cached.Source = source
				return cached
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.IPTimeout)
		attemptCtx, span := observability.StartSpan(attemptCtx, "locator.ip", attribute.String("provider", locator.Name()))
		start := time.Now()
		loc, err := locator.Locate(attemptCtx, req.ClientIP)
		duration := time.Since(start)
		span.End()
		cancel()

		if err != nil {
			logger.Warn().Err(err).Str("provider", locator.Name()).Dur("duration", duration).Msg("ip locator failed, trying next")
			continue
		}
		if loc == nil || !loc.Coordinate.IsValid() {
			logger.Warn().Str("provider", locator.Name()).Msg("ip locator returned an invalid coordinate, trying next")
			continue
		}

		result := &entities.LocationResult{
			Coordinate:     loc.Coordinate,
			AccuracyMeters: loc.AccuracyMeters,
			Source:         source,
			Provider:       locator.Name(),
			CapturedAt:     s.now(),
		}
		s.storeResult(ctx, key, result)
		return result
	}

	if ctx.Err() != nil {
		logger.Warn().Err(ctx.Err()).Msg("locate abandoned before any ip locator answered")
	}
	return nil
}

func (s *LocatorService) staticFallback(timezoneHint string) *entities.LocationResult {
	region := s.fallbackRegion(timezoneHint)
	return &entities.LocationResult{
		Coordinate:     region.coord,
		AccuracyMeters: StaticFallbackAccuracyMeters,
		Source:         entities.LocationSourceStaticDefault,
		Provider:       region.name,
		CapturedAt:     s.now(),
	}
}

func (s *LocatorService) fallbackRegion(timezoneHint string) fallbackRegion {
	if region, ok := fallbackRegions[strings.ToLower(strings.TrimSpace(s.cfg.FallbackRegion))]; ok {
		return region
	}
	tz := strings.TrimSpace(timezoneHint)
	if region, ok := timezoneRegions[tz]; ok {
		return region
	}
	if continent, _, found := strings.Cut(tz, "/"); found {
		if region, ok := continentRegions[continent]; ok {
			return region
		}
	}
	return regionDelhi
}

func (s *LocatorService) cacheKey(kind, clientIP string) string {
	if clientIP == "" {
		clientIP = "self"
	}
	return locationCacheNamespace + ":v1:" + kind + ":" + clientIP
}

func (s *LocatorService) cachedResult(ctx context.Context, key string) *entities.LocationResult {
	if s.cache == nil {
		return nil
	}
	payload, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			observability.LoggerFromContext(ctx).Debug().Err(err).Str("key", key).Msg("cache read failed, treating as miss")
		}
		observability.RecordCacheMiss(ctx, s.metrics, locationCacheNamespace)
		return nil
	}
	var result entities.LocationResult
	if err := json.Unmarshal(payload, &result); err != nil || !result.Coordinate.IsValid() {
		observability.RecordCacheMiss(ctx, s.metrics, locationCacheNamespace)
		return nil
	}
	observability.RecordCacheHit(ctx, s.metrics, locationCacheNamespace)
	return &result
}

func (s *LocatorService) storeResult(ctx context.Context, key string, result *entities.LocationResult) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.cfg.CacheTTL); err != nil {
		observability.LoggerFromContext(ctx).Debug().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func sourceLabel(source entities.LocationSource) string {
	if strings.HasPrefix(string(source), "ip-provider-") {
		return "ip"
	}
	return string(source)
}

func boolKey(b bool) string {
	if b {
		return "precise"
	}
	return "any"
}
