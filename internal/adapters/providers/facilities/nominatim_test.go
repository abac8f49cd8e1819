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

func TestNominatimAdapter_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "hospitalfinder-test", r.Header.Get("User-Agent"))
		q := r.URL.Query()
		assert.Equal(t, "hospital", q.Get("q"))
		assert.Equal(t, "1", q.Get("bounded"))
		assert.NotEmpty(t, q.Get("viewbox"))

		_, _ = w.Write([]byte(`[
  {"place_id": 1, "osm_type": "way", "osm_id": 55, "lat": "28.6258", "lon": "77.2005",
   "category": "amenity", "type": "hospital", "name": "Ram Manohar Lohia Hospital",
   "display_name": "Ram Manohar Lohia Hospital, Baba Kharak Singh Marg, New Delhi",
   "address": {"road": "Baba Kharak Singh Marg", "city": "New Delhi", "state": "Delhi", "postcode": "110001"},
   "extratags": {"website": "https://rmlh.nic.in", "opening_hours": "24/7"}},
  {"place_id": 2, "lat": "not-a-number", "lon": "77.2", "type": "clinic", "name": "Bad Row"},
  {"place_id": 3, "lat": "28.61", "lon": "77.21", "category": "amenity", "type": "clinic",
   "display_name": "Sunrise Clinic, Janpath, New Delhi", "address": {}}
]`))
	}))
	defer server.Close()

	adapter := NewNominatimAdapter(entities.ProviderConfig{EndpointTemplate: server.URL}, "hospitalfinder-test", server.Client(), NewSynthesizer(""))
	records, err := adapter.Search(context.Background(), entities.Coordinate{Lat: 28.6139, Lng: 77.2090}, 5)
	require.NoError(t, err)
	require.Len(t, records, 2)

	rml := records[0]
	assert.Equal(t, "nominatim:way/55", rml.ID)
	assert.Equal(t, "Baba Kharak Singh Marg, New Delhi, Delhi, 110001", rml.Address)
	assert.Equal(t, entities.CategoryHospital, rml.Category)
	if assert.NotNil(t, rml.Website) {
		assert.Equal(t, "https://rmlh.nic.in", *rml.Website)
	}
	assert.True(t, rml.PhoneSynthesized)

	clinic := records[1]
	assert.Equal(t, "nominatim:3", clinic.ID)
	assert.Equal(t, "Sunrise Clinic", clinic.Name)
	assert.Equal(t, entities.CategoryClinic, clinic.Category)
	assert.Equal(t, entities.AddressNotAvailable, clinic.Address)
}

func TestNominatimAdapter_UnrecognizedShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error": "Unable to geocode"}`))
	}))
	defer server.Close()

	adapter := NewNominatimAdapter(entities.ProviderConfig{EndpointTemplate: server.URL}, "", server.Client(), nil)
	_, err := adapter.Search(context.Background(), entities.Coordinate{Lat: 28.6, Lng: 77.2}, 5)
	provErr, ok := apperrors.AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, NominatimName, provErr.Provider)
}
