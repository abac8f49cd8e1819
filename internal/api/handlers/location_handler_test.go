package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/hospitalfinder/internal/api/handlers"
	"github.com/zatekoja/hospitalfinder/internal/application/services"
	"github.com/zatekoja/hospitalfinder/internal/domain/entities"
	"github.com/zatekoja/hospitalfinder/internal/domain/providers"
)

func TestLocationHandler_Locate_IPFallback(t *testing.T) {
	locator := new(MockLocator)
	handler := handlers.NewLocationHandler(locator, new(MockAddressResolver))

	result := &entities.LocationResult{
		Coordinate:     entities.Coordinate{Lat: 6.5244, Lng: 3.3792},
		AccuracyMeters: 10000,
		Source:         entities.IPProviderSource(2),
		Provider:       "ipwhois",
	}
	locator.On("Locate", mock.Anything, services.LocateRequest{ClientIP: "198.51.100.20"}).Return(result)

	req := httptest.NewRequest(http.MethodGet, "/api/locate", nil)
	req.RemoteAddr = "198.51.100.20:52100"
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	w := httptest.NewRecorder()

	handler.Locate(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "ip-provider-2", body["source"])
	assert.Equal(t, "ipwhois", body["provider"])
	locator.AssertExpectations(t)
}

func TestLocationHandler_Locate_PrivateAddressIsDropped(t *testing.T) {
	locator := new(MockLocator)
	handler := handlers.NewLocationHandler(locator, new(MockAddressResolver))

	locator.On("Locate", mock.Anything, services.LocateRequest{Precise: true, TimezoneHint: "Europe/London"}).
		Return(&entities.LocationResult{Source: entities.LocationSourceStaticDefault})

	req := httptest.NewRequest(http.MethodGet, "/api/locate?precise=true&tz=Europe/London", nil)
	req.RemoteAddr = "127.0.0.1:40000"
	w := httptest.NewRecorder()

	handler.Locate(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	locator.AssertExpectations(t)
}

func TestLocationHandler_Locate_DeviceFix(t *testing.T) {
	locator := new(MockLocator)
	handler := handlers.NewLocationHandler(locator, new(MockAddressResolver))

	captured := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	var got services.LocateRequest
	locator.On("Locate", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { got = args.Get(1).(services.LocateRequest) }).
		Return(&entities.LocationResult{Source: entities.LocationSourceGPS})

	req := httptest.NewRequest(http.MethodGet,
		"/api/locate?lat=28.6139&lng=77.209&accuracy=12.5&captured_at=2026-03-01T09:30:00Z", nil)
	w := httptest.NewRecorder()

	handler.Locate(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got.Position)
	fix, err := got.Position.CurrentPosition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entities.Coordinate{Lat: 28.6139, Lng: 77.209}, fix.Coordinate)
	assert.Equal(t, 12.5, fix.AccuracyMeters)
	assert.True(t, captured.Equal(fix.CapturedAt))
}

func TestLocationHandler_Locate_Denied(t *testing.T) {
	locator := new(MockLocator)
	handler := handlers.NewLocationHandler(locator, new(MockAddressResolver))

	var got services.LocateRequest
	locator.On("Locate", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { got = args.Get(1).(services.LocateRequest) }).
		Return(&entities.LocationResult{Source: entities.IPProviderSource(1)})

	req := httptest.NewRequest(http.MethodGet, "/api/locate?denied=true&lat=1&lng=2", nil)
	w := httptest.NewRecorder()

	handler.Locate(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got.Position)
	_, err := got.Position.CurrentPosition(context.Background())
	assert.ErrorIs(t, err, providers.ErrPermissionDenied)
}

func TestLocationHandler_Locate_BadDeviceFix(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"lat without lng", "lat=28.6"},
		{"out of range", "lat=95&lng=10"},
		{"negative accuracy", "lat=28.6&lng=77.2&accuracy=-3"},
		{"bad timestamp", "lat=28.6&lng=77.2&captured_at=yesterday"},
		{"bad precise", "precise=sometimes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			locator := new(MockLocator)
			handler := handlers.NewLocationHandler(locator, new(MockAddressResolver))

			req := httptest.NewRequest(http.MethodGet, "/api/locate?"+tt.query, nil)
			w := httptest.NewRecorder()

			handler.Locate(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			locator.AssertNotCalled(t, "Locate", mock.Anything, mock.Anything)
		})
	}
}

func TestLocationHandler_ReverseGeocode(t *testing.T) {
	resolver := new(MockAddressResolver)
	handler := handlers.NewLocationHandler(new(MockLocator), resolver)

	coord := entities.Coordinate{Lat: 28.6139, Lng: 77.209}
	resolver.On("ReverseGeocode", mock.Anything, coord).Return(&entities.AddressInfo{
		FormattedAddress: "Janpath, New Delhi, Delhi 110001, India",
		Locality:         "New Delhi",
		Coordinate:       coord,
		Provider:         "nominatim",
	})

	req := httptest.NewRequest(http.MethodGet, "/api/reverse-geocode?lat=28.6139&lng=77.209", nil)
	w := httptest.NewRecorder()

	handler.ReverseGeocode(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "New Delhi", body["locality"])
	assert.Equal(t, "nominatim", body["provider"])
}

func TestLocationHandler_ReverseGeocode_Unknown(t *testing.T) {
	resolver := new(MockAddressResolver)
	handler := handlers.NewLocationHandler(new(MockLocator), resolver)
	resolver.On("ReverseGeocode", mock.Anything, mock.Anything).Return(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/reverse-geocode?lat=0&lng=0", nil)
	w := httptest.NewRecorder()

	handler.ReverseGeocode(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null\n", w.Body.String())
}

func TestLocationHandler_ReverseGeocode_Invalid(t *testing.T) {
	resolver := new(MockAddressResolver)
	handler := handlers.NewLocationHandler(new(MockLocator), resolver)

	req := httptest.NewRequest(http.MethodGet, "/api/reverse-geocode?lat=10&lng=200", nil)
	w := httptest.NewRecorder()

	handler.ReverseGeocode(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resolver.AssertNotCalled(t, "ReverseGeocode", mock.Anything, mock.Anything)
}
