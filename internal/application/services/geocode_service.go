package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/hospitalfinder/internal/domain/entities"
	"github.com/zatekoja/hospitalfinder/internal/domain/providers"
	"github.com/zatekoja/hospitalfinder/internal/infrastructure/observability"
)

const geocodeCacheNamespace = "geocode"

// GeocodeService performs best-effort reverse geocoding.
type GeocodeService struct {
	geocoder providers.ReverseGeocoder
	cache    providers.CacheProvider
	ttl      time.Duration
	metrics  *observability.Metrics
}

// NewGeocodeService creates a new geocode service; cache may be nil
func NewGeocodeService(geocoder providers.ReverseGeocoder, cache providers.CacheProvider, ttl time.Duration, metrics *observability.Metrics) *GeocodeService {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &GeocodeService{
		geocoder: geocoder,
		cache:    cache,
		ttl:      ttl,
		metrics:  metrics,
	}
}

// ReverseGeocode returns the address at coord, or nil when the coordinate is
// invalid, nothing is known there, or the upstream failed.
func (s *GeocodeService) ReverseGeocode(ctx context.Context, coord entities.Coordinate) *entities.AddressInfo {
	if s.geocoder == nil || !coord.IsValid() {
		return nil
	}

	ctx, span := observability.StartSpan(ctx, "geocode.reverse", attribute.String("provider", s.geocoder.Name()))
	defer span.End()

	logger := observability.LoggerFromContext(ctx)
	key := fmt.Sprintf("%s:v1:%s:%.5f,%.5f", geocodeCacheNamespace, s.geocoder.Name(), coord.Lat, coord.Lng)

	if s.cache != nil {
		payload, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			var addr entities.AddressInfo
			if json.Unmarshal(payload, &addr) == nil {
				observability.RecordCacheHit(ctx, s.metrics, geocodeCacheNamespace)
				return &addr
			}
		case !errors.Is(err, providers.ErrCacheMiss):
			logger.Debug().Err(err).Str("key", key).Msg("cache read failed, treating as miss")
		}
		observability.RecordCacheMiss(ctx, s.metrics, geocodeCacheNamespace)
	}

	addr, err := s.geocoder.ReverseGeocode(ctx, coord)
	if err != nil {
		observability.RecordError(span, err)
		logger.Warn().Err(err).Str("provider", s.geocoder.Name()).Msg("reverse geocode failed")
		return nil
	}
	if addr == nil {
		return nil
	}

	if s.cache != nil {
		if payload, err := json.Marshal(addr); err == nil {
			if err := s.cache.Set(ctx, key, payload, s.ttl); err != nil {
				logger.Debug().Err(err).Str("key", key).Msg("cache write failed")
			}
		}
	}
	return addr
}
