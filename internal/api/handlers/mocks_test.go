package handlers_test

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/zatekoja/hospitalfinder/internal/application/services"
	"github.com/zatekoja/hospitalfinder/internal/domain/entities"
)

type MockFacilityFinder struct {
	mock.Mock
}

func (m *MockFacilityFinder) FindNearby(ctx context.Context, coord entities.Coordinate, radiusKm float64, opts entities.SearchOptions) ([]*entities.FacilityRecord, error) {
	args := m.Called(ctx, coord, radiusKm, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.FacilityRecord), args.Error(1)
}

func (m *MockFacilityFinder) Providers() []entities.ProviderConfig {
	args := m.Called()
	return args.Get(0).([]entities.ProviderConfig)
}

type MockLocator struct {
	mock.Mock
}

func (m *MockLocator) Locate(ctx context.Context, req services.LocateRequest) *entities.LocationResult {
	args := m.Called(ctx, req)
	return args.Get(0).(*entities.LocationResult)
}

type MockAddressResolver struct {
	mock.Mock
}

func (m *MockAddressResolver) ReverseGeocode(ctx context.Context, coord entities.Coordinate) *entities.AddressInfo {
	args := m.Called(ctx, coord)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*entities.AddressInfo)
}
