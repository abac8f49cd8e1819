package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/hospitalfinder/internal/application/services"
	"github.com/zatekoja/hospitalfinder/internal/domain/entities"
	"github.com/zatekoja/hospitalfinder/internal/domain/providers"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)}
}

func locatorConfig() services.LocatorConfig {
	return services.LocatorConfig{
		GPSTimeout: 50 * time.Millisecond,
		FixMaxAge:  5 * time.Minute,
		IPTimeout:  50 * time.Millisecond,
		CacheTTL:   5 * time.Minute,
	}
}

func newLocator(t *testing.T, clock *fakeClock, position providers.PositionSource, locators ...providers.IPLocator) *services.LocatorService {
	t.Helper()
	return services.NewLocatorServiceWithClock(position, locators, newMemoryCache(t), locatorConfig(), nil, clock.Now)
}

func ipLocation(lat, lng float64) *providers.IPLocation {
	return &providers.IPLocation{Coordinate: entities.Coordinate{Lat: lat, Lng: lng}, AccuracyMeters: 10000}
}

func TestLocatorService_UsesDeviceFix(t *testing.T) {
	clock := newClock()
	position := new(MockPositionSource)
	position.On("CurrentPosition", mock.Anything).Return(&entities.DeviceFix{
		Coordinate:     entities.Coordinate{Lat: 28.5672, Lng: 77.2100},
		AccuracyMeters: 15,
		CapturedAt:     clock.Now(),
	}, nil).Once()

	locator := newLocator(t, clock, nil)
	result := locator.Locate(context.Background(), services.LocateRequest{Position: position})

	assert.Equal(t, entities.LocationSourceGPS, result.Source)
	assert.Equal(t, 28.5672, result.Coordinate.Lat)
	assert.Equal(t, 15.0, result.AccuracyMeters)
	position.AssertExpectations(t)
}

func TestLocatorService_ReusesRecentFix(t *testing.T) {
	clock := newClock()
	position := new(MockPositionSource)
	position.On("CurrentPosition", mock.Anything).Return(&entities.DeviceFix{
		Coordinate: entities.Coordinate{Lat: 19.0760, Lng: 72.8777},
		CapturedAt: clock.Now(),
	}, nil).Once()
	position.On("CurrentPosition", mock.Anything).Return(nil, providers.ErrPositionUnavailable)
	ip := &MockIPLocator{name: "ipapi"}
	ip.On("Locate", mock.Anything, "1.2.3.4").Return(ipLocation(28.6, 77.2), nil).Once()

	locator := newLocator(t, clock, position, ip)

	first := locator.Locate(context.Background(), services.LocateRequest{ClientIP: "1.2.3.4"})
	require.Equal(t, entities.LocationSourceGPS, first.Source)

	clock.Advance(2 * time.Minute)
	reused := locator.Locate(context.Background(), services.LocateRequest{ClientIP: "1.2.3.4"})
	assert.Equal(t, entities.LocationSourceGPS, reused.Source)
	assert.Equal(t, first.Coordinate, reused.Coordinate)
	ip.AssertNotCalled(t, "Locate", mock.Anything, mock.Anything)
	position.AssertNumberOfCalls(t, "CurrentPosition", 1)

	clock.Advance(4 * time.Minute)
	stale := locator.Locate(context.Background(), services.LocateRequest{ClientIP: "1.2.3.4"})
	assert.Equal(t, entities.IPProviderSource(1), stale.Source)
	position.AssertNumberOfCalls(t, "CurrentPosition", 2)
}

func TestLocatorService_ClientFixIsNotShared(t *testing.T) {
	clock := newClock()
	clientFix := new(MockPositionSource)
	clientFix.On("CurrentPosition", mock.Anything).Return(&entities.DeviceFix{
		Coordinate:     entities.Coordinate{Lat: 12.971599, Lng: 77.594566},
		AccuracyMeters: 5,
		CapturedAt:     clock.Now(),
	}, nil).Once()
	ip := &MockIPLocator{name: "ipapi"}
	ip.On("Locate", mock.Anything, mock.Anything).Return(ipLocation(28.6, 77.2), nil)

	locator := newLocator(t, clock, nil, ip)

	reported := locator.Locate(context.Background(), services.LocateRequest{Position: clientFix, ClientIP: "1.2.3.4"})
	require.Equal(t, entities.LocationSourceGPS, reported.Source)

	for _, clientIP := range []string{"1.2.3.4", ""} {
		other := locator.Locate(context.Background(), services.LocateRequest{ClientIP: clientIP})
		assert.Equal(t, entities.IPProviderSource(1), other.Source, "client %q", clientIP)
		assert.NotEqual(t, reported.Coordinate, other.Coordinate)
	}
	clientFix.AssertExpectations(t)
}

func TestLocatorService_JoinerOutlivesCancelledCaller(t *testing.T) {
	clock := newClock()
	ip := &MockIPLocator{name: "ipapi"}
	ip.On("Locate", mock.Anything, "1.2.3.4").
		Run(func(mock.Arguments) { time.Sleep(40 * time.Millisecond) }).
		Return(ipLocation(6.4541, 3.3947), nil).Once()

	locator := newLocator(t, clock, nil, ip)
	req := services.LocateRequest{ClientIP: "1.2.3.4"}

	var wg sync.WaitGroup
	var impatient *entities.LocationResult
	wg.Add(1)
	go func() {
		defer wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		impatient = locator.Locate(ctx, req)
	}()

	time.Sleep(5 * time.Millisecond)
	joined := locator.Locate(context.Background(), req)
	wg.Wait()

	assert.Equal(t, entities.LocationSourceStaticDefault, impatient.Source)
	assert.Equal(t, entities.IPProviderSource(1), joined.Source)
	assert.Equal(t, 6.4541, joined.Coordinate.Lat)
	ip.AssertExpectations(t)
}

func TestLocatorService_FallsThroughIPLocators(t *testing.T) {
	clock := newClock()
	position := new(MockPositionSource)
	position.On("CurrentPosition", mock.Anything).Return(nil, providers.ErrPermissionDenied)

	failing := &MockIPLocator{name: "ipapi"}
	failing.On("Locate", mock.Anything, "").Return(nil, errors.New("connection reset")).Once()
	invalid := &MockIPLocator{name: "ipwhois"}
	invalid.On("Locate", mock.Anything, "").Return(ipLocation(999, 0), nil).Once()
	working := &MockIPLocator{name: "ipinfo"}
	working.On("Locate", mock.Anything, "").Return(ipLocation(6.4541, 3.3947), nil).Once()

	locator := newLocator(t, clock, position, failing, invalid, working)
	result := locator.Locate(context.Background(), services.LocateRequest{})

	assert.Equal(t, entities.IPProviderSource(3), result.Source)
	assert.Equal(t, "ip-provider-3", string(result.Source))
	assert.Equal(t, "ipinfo", result.Provider)
	assert.Equal(t, 6.4541, result.Coordinate.Lat)
	failing.AssertExpectations(t)
	invalid.AssertExpectations(t)
	working.AssertExpectations(t)
}

func TestLocatorService_TimeoutsMoveOn(t *testing.T) {
	clock := newClock()
	hanging := new(MockPositionSource)
	hanging.On("CurrentPosition", mock.Anything).Return(nil, context.DeadlineExceeded).
		Run(func(args mock.Arguments) { <-args.Get(0).(context.Context).Done() })

	slow := &MockIPLocator{name: "ipapi"}
	slow.On("Locate", mock.Anything, "").Return(nil, context.DeadlineExceeded).
		Run(func(args mock.Arguments) { <-args.Get(0).(context.Context).Done() })
	fast := &MockIPLocator{name: "ipwhois"}
	fast.On("Locate", mock.Anything, "").Return(ipLocation(51.5, -0.12), nil)

	locator := newLocator(t, clock, hanging, slow, fast)

	start := time.Now()
	result := locator.Locate(context.Background(), services.LocateRequest{})
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, entities.IPProviderSource(2), result.Source)
}

func TestLocatorService_StaticFallback(t *testing.T) {
	cases := []struct {
		name     string
		timezone string
		region   string
		want     entities.Coordinate
	}{
		{"india", "Asia/Kolkata", "", entities.Coordinate{Lat: 28.6139, Lng: 77.2090}},
		{"nigeria", "Africa/Lagos", "", entities.Coordinate{Lat: 6.5244, Lng: 3.3792}},
		{"continent match", "Europe/Paris", "", entities.Coordinate{Lat: 51.5074, Lng: -0.1278}},
		{"no hint", "", "", entities.Coordinate{Lat: 28.6139, Lng: 77.2090}},
		{"configured region wins", "Africa/Lagos", "mumbai", entities.Coordinate{Lat: 19.0760, Lng: 72.8777}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			failing := &MockIPLocator{name: "ipapi"}
			failing.On("Locate", mock.Anything, mock.Anything).Return(nil, errors.New("unavailable"))

			cfg := locatorConfig()
			cfg.FallbackRegion = tc.region
			locator := services.NewLocatorServiceWithClock(nil, []providers.IPLocator{failing}, nil, cfg, nil, newClock().Now)

			result := locator.Locate(context.Background(), services.LocateRequest{TimezoneHint: tc.timezone})
			require.NotNil(t, result)
			assert.Equal(t, entities.LocationSourceStaticDefault, result.Source)
			assert.Equal(t, tc.want, result.Coordinate)
			assert.GreaterOrEqual(t, result.AccuracyMeters, 50000.0)
			assert.True(t, result.Coordinate.IsValid())
		})
	}
}

func TestLocatorService_NothingConfigured(t *testing.T) {
	locator := services.NewLocatorService(nil, nil, brokenCache{}, services.LocatorConfig{}, nil)
	result := locator.Locate(context.Background(), services.LocateRequest{})
	assert.Equal(t, entities.LocationSourceStaticDefault, result.Source)
	assert.True(t, result.Coordinate.IsValid())
}

func TestLocatorService_PreciseSkipsCachedIP(t *testing.T) {
	clock := newClock()
	ip := &MockIPLocator{name: "ipapi"}
	ip.On("Locate", mock.Anything, "5.6.7.8").Return(ipLocation(28.6, 77.2), nil).Twice()

	locator := newLocator(t, clock, nil, ip)
	req := services.LocateRequest{ClientIP: "5.6.7.8"}

	first := locator.Locate(context.Background(), req)
	cached := locator.Locate(context.Background(), req)
	assert.Equal(t, first.Source, cached.Source)
	ip.AssertNumberOfCalls(t, "Locate", 1)

	req.Precise = true
	locator.Locate(context.Background(), req)
	ip.AssertNumberOfCalls(t, "Locate", 2)
}
