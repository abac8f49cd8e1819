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
)

const (
	NominatimGeocoderName = "nominatim"
	nominatimReverseURL   = "https://nominatim.openstreetmap.org/reverse"
)

// NominatimReverseGeocoder implements ReverseGeocoder against a Nominatim /reverse endpoint.
type NominatimReverseGeocoder struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewNominatimReverseGeocoder creates a reverse geocoder. baseURL and httpClient may be empty/nil.
func NewNominatimReverseGeocoder(baseURL, userAgent string, httpClient *http.Client) *NominatimReverseGeocoder {
	return &NominatimReverseGeocoder{
		baseURL:    orDefault(baseURL, nominatimReverseURL),
		userAgent:  orDefault(userAgent, "hospitalfinder/1.0"),
		httpClient: upstream.NewHTTPClient(httpClient, 0),
	}
}

var _ providers.ReverseGeocoder = (*NominatimReverseGeocoder)(nil)

// Name returns the geocoder name
func (n *NominatimReverseGeocoder) Name() string { return NominatimGeocoderName }

// ReverseGeocode converts coordinates to an address; (nil, nil) when nothing is mapped there
func (n *NominatimReverseGeocoder) ReverseGeocode(ctx context.Context, coord entities.Coordinate) (*entities.AddressInfo, error) {
	params := url.Values{}
	params.Set("lat", fmt.Sprintf("%f", coord.Lat))
	params.Set("lon", fmt.Sprintf("%f", coord.Lng))
	params.Set("format", "jsonv2")
	params.Set("addressdetails", "1")

	reqURL := fmt.Sprintf("%s?%s", n.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build reverse request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept-Language", "en")

	var payload nominatimReverseResponse
	if err := upstream.DoJSON(ctx, n.httpClient, n.Name(), req, &payload); err != nil {
		return nil, err
	}
	if payload.Error != "" {
		return nil, nil
	}
	if strings.TrimSpace(payload.DisplayName) == "" {
		return nil, upstream.Unrecognized(n.Name(), "missing display_name")
	}

	addr := payload.Address
	return &entities.AddressInfo{
		FormattedAddress: payload.DisplayName,
		HouseNumber:      addr.HouseNumber,
		Street:           addr.Road,
		Locality:         firstNonEmpty(addr.City, addr.Town, addr.Village, addr.Suburb),
		Region:           addr.State,
		PostalCode:       addr.Postcode,
		Country:          addr.Country,
		Coordinate:       coord,
		Provider:         n.Name(),
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

type nominatimReverseResponse struct {
	Error       string `json:"error"`
	DisplayName string `json:"display_name"`
	Address     struct {
		HouseNumber string `json:"house_number"`
		Road        string `json:"road"`
		Suburb      string `json:"suburb"`
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
		State       string `json:"state"`
		Postcode    string `json:"postcode"`
		Country     string `json:"country"`
	} `json:"address"`
}
