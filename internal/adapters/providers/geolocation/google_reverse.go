package geolocation

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/zatekoja/hospitalfinder/internal/adapters/providers/upstream"
	"github.com/zatekoja/hospitalfinder/internal/domain/entities"
	"github.com/zatekoja/hospitalfinder/internal/domain/providers"
	apperrors "github.com/zatekoja/hospitalfinder/pkg/errors"
)

const (
	GoogleGeocoderName = "google"
	googleGeocodeURL   = "https://maps.googleapis.com/maps/api/geocode/json"
)

// GoogleReverseGeocoder implements ReverseGeocoder using the Google Geocoding API.
type GoogleReverseGeocoder struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

// NewGoogleReverseGeocoder creates a new Google reverse geocoder.
func NewGoogleReverseGeocoder(apiKey string) *GoogleReverseGeocoder {
	return NewGoogleReverseGeocoderWithOptions(apiKey, googleGeocodeURL, nil)
}

// NewGoogleReverseGeocoderWithOptions allows overriding base URL and HTTP client (used for tests).
func NewGoogleReverseGeocoderWithOptions(apiKey, baseURL string, httpClient *http.Client) *GoogleReverseGeocoder {
	return &GoogleReverseGeocoder{
		apiKey:     apiKey,
		httpClient: upstream.NewHTTPClient(httpClient, 0),
		baseURL:    orDefault(baseURL, googleGeocodeURL),
	}
}

var _ providers.ReverseGeocoder = (*GoogleReverseGeocoder)(nil)

// Name returns the geocoder name
func (g *GoogleReverseGeocoder) Name() string { return GoogleGeocoderName }

// ReverseGeocode converts coordinates to an address. A nil address with a nil
// error means the service has nothing for this point.
func (g *GoogleReverseGeocoder) ReverseGeocode(ctx context.Context, coord entities.Coordinate) (*entities.AddressInfo, error) {
	if strings.TrimSpace(g.apiKey) == "" {
		return nil, apperrors.NewProviderError(g.Name(), "google maps api key is required", nil)
	}

	params := url.Values{}
	params.Set("latlng", fmt.Sprintf("%f,%f", coord.Lat, coord.Lng))
	params.Set("key", g.apiKey)

	reqURL := fmt.Sprintf("%s?%s", g.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build geocode request: %w", err)
	}

	var payload googleGeocodeResponse
	if err := upstream.DoJSON(ctx, g.httpClient, g.Name(), req, &payload); err != nil {
		return nil, err
	}

	switch payload.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, nil
	default:
		msg := "geocode request failed: " + payload.Status
		if payload.ErrorMessage != "" {
			msg += " - " + payload.ErrorMessage
		}
		return nil, apperrors.NewProviderError(g.Name(), msg, nil)
	}
	if len(payload.Results) == 0 {
		return nil, nil
	}

	result := payload.Results[0]
	return &entities.AddressInfo{
		FormattedAddress: result.FormattedAddress,
		HouseNumber:      component(result.AddressComponents, "street_number"),
		Street:           buildStreet(result.AddressComponents),
		Locality:         component(result.AddressComponents, "locality", "administrative_area_level_2"),
		Region:           component(result.AddressComponents, "administrative_area_level_1"),
		PostalCode:       component(result.AddressComponents, "postal_code"),
		Country:          component(result.AddressComponents, "country"),
		Coordinate:       coord,
		Provider:         g.Name(),
	}, nil
}

func component(components []googleAddressComponent, primary string, fallback ...string) string {
	for _, t := range append([]string{primary}, fallback...) {
		for _, comp := range components {
			if containsType(comp.Types, t) {
				return comp.LongName
			}
		}
	}
	return ""
}

func buildStreet(components []googleAddressComponent) string {
	streetNumber := component(components, "street_number")
	route := component(components, "route")
	if streetNumber != "" && route != "" {
		return streetNumber + " " + route
	}
	if route != "" {
		return route
	}
	return streetNumber
}

func containsType(types []string, target string) bool {
	for _, t := range types {
		if t == target {
			return true
		}
	}
	return false
}

type googleGeocodeResponse struct {
	Status       string                `json:"status"`
	ErrorMessage string                `json:"error_message,omitempty"`
	Results      []googleGeocodeResult `json:"results"`
}

type googleGeocodeResult struct {
	FormattedAddress  string                   `json:"formatted_address"`
	AddressComponents []googleAddressComponent `json:"address_components"`
}

type googleAddressComponent struct {
	LongName string   `json:"long_name"`
	Types    []string `json:"types"`
}
