package services_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/zatekoja/hospitalfinder/internal/domain/entities"
	"github.com/zatekoja/hospitalfinder/internal/domain/providers"
	apperrors "github.com/zatekoja/hospitalfinder/pkg/errors"
)

// MockFacilitySource is a mock implementation of FacilitySource
type MockFacilitySource struct {
	mock.Mock
	name string
	cfg  entities.ProviderConfig
}

func newMockSource(name string, reliability entities.Reliability) *MockFacilitySource {
	return &MockFacilitySource{
		name: name,
		cfg: entities.ProviderConfig{
			Name:            name,
			CostTier:        entities.CostTierFree,
			ReliabilityTier: reliability,
			Enabled:         true,
		},
	}
}

func (m *MockFacilitySource) Name() string { return m.name }

func (m *MockFacilitySource) Config() entities.ProviderConfig { return m.cfg }

func (m *MockFacilitySource) Search(ctx context.Context, coord entities.Coordinate, radiusKm float64) ([]*entities.FacilityRecord, error) {
	args := m.Called(ctx, coord, radiusKm)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.FacilityRecord), args.Error(1)
}

// MockPositionSource is a mock implementation of PositionSource
type MockPositionSource struct {
	mock.Mock
}

func (m *MockPositionSource) CurrentPosition(ctx context.Context) (*entities.DeviceFix, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.DeviceFix), args.Error(1)
}

// MockIPLocator is a mock implementation of IPLocator
type MockIPLocator struct {
	mock.Mock
	name string
}

func (m *MockIPLocator) Name() string { return m.name }

func (m *MockIPLocator) Locate(ctx context.Context, clientIP string) (*providers.IPLocation, error) {
	args := m.Called(ctx, clientIP)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*providers.IPLocation), args.Error(1)
}

// MockReverseGeocoder is a mock implementation of ReverseGeocoder
type MockReverseGeocoder struct {
	mock.Mock
}

func (m *MockReverseGeocoder) Name() string { return "mock" }

func (m *MockReverseGeocoder) ReverseGeocode(ctx context.Context, coord entities.Coordinate) (*entities.AddressInfo, error) {
	args := m.Called(ctx, coord)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.AddressInfo), args.Error(1)
}

// brokenCache fails every operation with a CacheError
type brokenCache struct{}

func (brokenCache) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, apperrors.NewCacheError("connection refused", nil)
}

func (brokenCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return apperrors.NewCacheError("connection refused", nil)
}

func (brokenCache) Delete(ctx context.Context, key string) error {
	return apperrors.NewCacheError("connection refused", nil)
}

func (brokenCache) EvictExpired(ctx context.Context) (int, error) {
	return 0, apperrors.NewCacheError("connection refused", nil)
}

func providerFailure(name string) error {
	return apperrors.NewProviderStatusError(name, 503)
}

func strPtr(s string) *string { return &s }
