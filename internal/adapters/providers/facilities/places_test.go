package facilities

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/hospitalfinder/internal/domain/entities"
	apperrors "github.com/zatekoja/hospitalfinder/pkg/errors"
)

func TestPlacesAdapter_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "test-key", q.Get("key"))
		assert.Equal(t, "28.613900,77.209000", q.Get("location"))
		assert.Equal(t, "3000", q.Get("radius"))
		assert.Equal(t, "hospital", q.Get("type"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "status": "OK",
  "results": [
    {"place_id": "abc", "name": "City Hospital", "vicinity": "Ring Road, New Delhi",
     "types": ["hospital", "health", "point_of_interest"], "rating": 4.1, "business_status": "OPERATIONAL",
     "opening_hours": {"open_now": false},
     "geometry": {"location": {"lat": 28.60, "lng": 77.20}}},
    {"place_id": "def", "name": "Smile Dental", "types": ["dentist", "health"],
     "business_status": "CLOSED_TEMPORARILY",
     "geometry": {"location": {"lat": 28.61, "lng": 77.21}}},
    {"place_id": "ghi", "name": "Broken", "geometry": {}}
  ]
}`))
	}))
	defer server.Close()

	adapter := NewPlacesAdapter(entities.ProviderConfig{EndpointTemplate: server.URL}, "test-key", server.Client(), NewSynthesizer(""))
	records, err := adapter.Search(context.Background(), entities.Coordinate{Lat: 28.6139, Lng: 77.2090}, 3)
	require.NoError(t, err)
	require.Len(t, records, 2)

	city := records[0]
	assert.Equal(t, "places:abc", city.ID)
	assert.Equal(t, entities.CategoryHospital, city.Category)
	assert.Equal(t, "Ring Road, New Delhi", city.Address)
	assert.Equal(t, 4.1, city.Rating)
	assert.False(t, city.RatingSynthesized)
	assert.True(t, city.Verified)
	if assert.NotNil(t, city.OpenNowEstimate) {
		assert.False(t, *city.OpenNowEstimate)
	}

	dental := records[1]
	assert.Equal(t, entities.CategoryClinic, dental.Category)
	assert.Equal(t, []string{"dentist"}, dental.Specialties)
	assert.False(t, dental.Verified)
	assert.True(t, dental.RatingSynthesized)
	assert.Equal(t, entities.AddressNotAvailable, dental.Address)
}

func TestPlacesAdapter_ZeroResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	}))
	defer server.Close()

	adapter := NewPlacesAdapter(entities.ProviderConfig{EndpointTemplate: server.URL}, "k", server.Client(), nil)
	records, err := adapter.Search(context.Background(), entities.Coordinate{Lat: 1, Lng: 1}, 1)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPlacesAdapter_Errors(t *testing.T) {
	t.Run("missing api key", func(t *testing.T) {
		adapter := NewPlacesAdapter(entities.ProviderConfig{EndpointTemplate: "http://unused"}, "", nil, nil)
		_, err := adapter.Search(context.Background(), entities.Coordinate{Lat: 1, Lng: 1}, 1)
		provErr, ok := apperrors.AsProviderError(err)
		require.True(t, ok)
		assert.Equal(t, PlacesName, provErr.Provider)
		assert.True(t, adapter.Config().RequiresAPIKey)
	})

	t.Run("request denied", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status": "REQUEST_DENIED", "error_message": "The provided API key is invalid."}`))
		}))
		defer server.Close()

		adapter := NewPlacesAdapter(entities.ProviderConfig{EndpointTemplate: server.URL}, "bad", server.Client(), nil)
		_, err := adapter.Search(context.Background(), entities.Coordinate{Lat: 1, Lng: 1}, 1)
		provErr, ok := apperrors.AsProviderError(err)
		require.True(t, ok)
		assert.Contains(t, provErr.Error(), "REQUEST_DENIED")
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		adapter := NewPlacesAdapter(entities.ProviderConfig{EndpointTemplate: server.URL}, "k", server.Client(), nil)
		_, err := adapter.Search(context.Background(), entities.Coordinate{Lat: 1, Lng: 1}, 1)
		provErr, ok := apperrors.AsProviderError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusInternalServerError, provErr.StatusCode)
	})
}
