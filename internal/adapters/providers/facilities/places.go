package facilities

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/zatekoja/hospitalfinder/internal/adapters/providers/upstream"
	"github.com/zatekoja/hospitalfinder/internal/domain/entities"
	"github.com/zatekoja/hospitalfinder/internal/domain/providers"
	apperrors "github.com/zatekoja/hospitalfinder/pkg/errors"
)

// PlacesName is the provider prefix for Google Places results
const PlacesName = "places"

// PlacesAdapter queries the Google Places Nearby Search API.
type PlacesAdapter struct {
	cfg        entities.ProviderConfig
	apiKey     string
	httpClient *http.Client
	synth      *Synthesizer
}

// NewPlacesAdapter creates a new places adapter. httpClient may be nil.
func NewPlacesAdapter(cfg entities.ProviderConfig, apiKey string, httpClient *http.Client, synth *Synthesizer) *PlacesAdapter {
	cfg.Name = PlacesName
	cfg.RequiresAPIKey = true
	return &PlacesAdapter{
		cfg:        cfg,
		apiKey:     apiKey,
		httpClient: upstream.NewHTTPClient(httpClient, cfg.Timeout),
		synth:      synth,
	}
}

var _ providers.FacilitySource = (*PlacesAdapter)(nil)

// Name returns the provider prefix
func (a *PlacesAdapter) Name() string { return a.cfg.Name }

// Config returns the static provider description
func (a *PlacesAdapter) Config() entities.ProviderConfig { return a.cfg }

// Search finds hospitals within radiusKm of coord
func (a *PlacesAdapter) Search(ctx context.Context, coord entities.Coordinate, radiusKm float64) ([]*entities.FacilityRecord, error) {
	if strings.TrimSpace(a.apiKey) == "" {
		return nil, apperrors.NewProviderError(a.Name(), "api key is not configured", nil)
	}

	params := url.Values{}
	params.Set("location", fmt.Sprintf("%.6f,%.6f", coord.Lat, coord.Lng))
	params.Set("radius", strconv.Itoa(int(radiusKm*1000)))
	params.Set("type", "hospital")
	params.Set("key", a.apiKey)

	reqURL := fmt.Sprintf("%s?%s", a.cfg.EndpointTemplate, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build places request: %w", err)
	}

	var payload placesNearbyResponse
	if err := upstream.DoJSON(ctx, a.httpClient, a.Name(), req, &payload); err != nil {
		return nil, err
	}

	switch payload.Status {
	case "OK":
	case "ZERO_RESULTS":
		return []*entities.FacilityRecord{}, nil
	case "":
		return nil, upstream.Unrecognized(a.Name(), "missing status")
	default:
		msg := payload.Status
		if payload.ErrorMessage != "" {
			msg += " - " + payload.ErrorMessage
		}
		return nil, apperrors.NewProviderError(a.Name(), msg, nil)
	}

	records := make([]*entities.FacilityRecord, 0, len(payload.Results))
	for _, result := range payload.Results {
		if rec := a.normalize(result); rec != nil {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (a *PlacesAdapter) normalize(result placesResult) *entities.FacilityRecord {
	loc := result.Geometry.Location
	if loc == nil || result.PlaceID == "" {
		return nil
	}
	coord := entities.Coordinate{Lat: loc.Lat, Lng: loc.Lng}
	if !coord.IsValid() {
		return nil
	}

	category := MapCategory(result.Types...)
	rec := &entities.FacilityRecord{
		ID:             RecordID(a.Name(), result.PlaceID),
		Name:           fallbackName(result.Name, category),
		Coordinate:     coord,
		Address:        SynthesizeAddress(AddressParts{Street: result.Vicinity}),
		Category:       category,
		Specialties:    placeSpecialties(result.Types),
		SourceProvider: a.Name(),
		Verified:       result.BusinessStatus == "" || result.BusinessStatus == "OPERATIONAL",
		Rating:         result.Rating,
	}
	if result.OpeningHours != nil && result.OpeningHours.OpenNow != nil {
		rec.OpenNowEstimate = boolPtr(*result.OpeningHours.OpenNow)
	}
	a.synth.fillSynthesized(rec)
	return rec
}

// placeSpecialties keeps the medical place types that are more specific than the category
func placeSpecialties(types []string) []string {
	out := []string{}
	for _, t := range types {
		switch t {
		case "dentist", "physiotherapist", "veterinary_care":
			out = append(out, strings.ReplaceAll(t, "_", " "))
		}
	}
	return out
}

type placesNearbyResponse struct {
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Results      []placesResult `json:"results"`
}

type placesResult struct {
	PlaceID        string               `json:"place_id"`
	Name           string               `json:"name"`
	Vicinity       string               `json:"vicinity"`
	Types          []string             `json:"types"`
	Rating         float64              `json:"rating"`
	BusinessStatus string               `json:"business_status"`
	OpeningHours   *placesOpeningHours  `json:"opening_hours"`
	Geometry       placesResultGeometry `json:"geometry"`
}

type placesOpeningHours struct {
	OpenNow *bool `json:"open_now"`
}

type placesResultGeometry struct {
	Location *placesLocation `json:"location"`
}

type placesLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
