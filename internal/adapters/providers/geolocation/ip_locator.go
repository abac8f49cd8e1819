package geolocation

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zatekoja/hospitalfinder/internal/adapters/providers/upstream"
	"github.com/zatekoja/hospitalfinder/internal/domain/entities"
	"github.com/zatekoja/hospitalfinder/internal/domain/providers"
	apperrors "github.com/zatekoja/hospitalfinder/pkg/errors"
)

const (
	IPAPIName   = "ipapi"
	IPWhoisName = "ipwhois"
	IPInfoName  = "ipinfo"

	ipapiURL   = "https://ipapi.co"
	ipwhoisURL = "https://ipwho.is"
	ipinfoURL  = "https://ipinfo.io"

	// ipAccuracyMeters is the nominal city-level precision of IP geolocation
	ipAccuracyMeters = 10000
)

// JSONIPLocator resolves an approximate position from one of the public
// IP-geolocation JSON APIs. The request path and payload shape differ per
// service; everything else is shared.
type JSONIPLocator struct {
	name       string
	baseURL    string
	token      string
	httpClient *http.Client
	path       func(clientIP string) string
	decode     func(body *ipPayload) (*providers.IPLocation, error)
}

var _ providers.IPLocator = (*JSONIPLocator)(nil)

// NewIPAPILocator queries ipapi.co
func NewIPAPILocator(baseURL string, httpClient *http.Client) *JSONIPLocator {
	return &JSONIPLocator{
		name:       IPAPIName,
		baseURL:    orDefault(baseURL, ipapiURL),
		httpClient: upstream.NewHTTPClient(httpClient, 0),
		path: func(ip string) string {
			if ip == "" {
				return "/json/"
			}
			return "/" + ip + "/json/"
		},
		decode: func(p *ipPayload) (*providers.IPLocation, error) {
			if p.Error {
				return nil, apperrors.NewProviderError(IPAPIName, "lookup rejected: "+p.Reason, nil)
			}
			return p.location(IPAPIName, p.Latitude, p.Longitude, p.CountryName)
		},
	}
}

// NewIPWhoisLocator queries ipwho.is
func NewIPWhoisLocator(baseURL string, httpClient *http.Client) *JSONIPLocator {
	return &JSONIPLocator{
		name:       IPWhoisName,
		baseURL:    orDefault(baseURL, ipwhoisURL),
		httpClient: upstream.NewHTTPClient(httpClient, 0),
		path: func(ip string) string {
			return "/" + ip
		},
		decode: func(p *ipPayload) (*providers.IPLocation, error) {
			if p.Success != nil && !*p.Success {
				return nil, apperrors.NewProviderError(IPWhoisName, "lookup rejected: "+p.Message, nil)
			}
			return p.location(IPWhoisName, p.Latitude, p.Longitude, p.Country)
		},
	}
}

// NewIPInfoLocator queries ipinfo.io. token may be empty for the anonymous tier.
func NewIPInfoLocator(baseURL, token string, httpClient *http.Client) *JSONIPLocator {
	return &JSONIPLocator{
		name:       IPInfoName,
		baseURL:    orDefault(baseURL, ipinfoURL),
		token:      token,
		httpClient: upstream.NewHTTPClient(httpClient, 0),
		path: func(ip string) string {
			if ip == "" {
				return "/json"
			}
			return "/" + ip + "/json"
		},
		decode: func(p *ipPayload) (*providers.IPLocation, error) {
			if p.Bogon {
				return nil, apperrors.NewProviderError(IPInfoName, "address is not routable", nil)
			}
			lat, lng, ok := parseLoc(p.Loc)
			if !ok {
				return nil, upstream.Unrecognized(IPInfoName, "missing loc")
			}
			return p.location(IPInfoName, &lat, &lng, p.Country)
		},
	}
}

// NewIPLocators builds locators by name, preserving priority order. Unknown
// names are reported as an error so misconfiguration fails at startup.
func NewIPLocators(names []string, ipinfoToken string, timeout time.Duration) ([]providers.IPLocator, error) {
	client := upstream.NewHTTPClient(nil, timeout)
	out := make([]providers.IPLocator, 0, len(names))
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case IPAPIName:
			out = append(out, NewIPAPILocator("", client))
		case IPWhoisName:
			out = append(out, NewIPWhoisLocator("", client))
		case IPInfoName:
			out = append(out, NewIPInfoLocator("", ipinfoToken, client))
		case "":
		default:
			return nil, fmt.Errorf("unknown ip locator %q", name)
		}
	}
	return out, nil
}

// Name returns the locator name
func (l *JSONIPLocator) Name() string { return l.name }

// Locate looks up clientIP, or the address the request originates from when empty
func (l *JSONIPLocator) Locate(ctx context.Context, clientIP string) (*providers.IPLocation, error) {
	reqURL := strings.TrimSuffix(l.baseURL, "/") + l.path(strings.TrimSpace(clientIP))
	if l.token != "" {
		reqURL += "?token=" + l.token
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", l.name, err)
	}
	req.Header.Set("Accept", "application/json")

	var payload ipPayload
	if err := upstream.DoJSON(ctx, l.httpClient, l.name, req, &payload); err != nil {
		return nil, err
	}
	return l.decode(&payload)
}

// ipPayload is the union of the fields read from all supported services
type ipPayload struct {
	// ipapi.co
	Error       bool   `json:"error"`
	Reason      string `json:"reason"`
	CountryName string `json:"country_name"`

	// ipwho.is
	Success *bool  `json:"success"`
	Message string `json:"message"`

	// ipinfo.io
	Loc   string `json:"loc"`
	Bogon bool   `json:"bogon"`

	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	City      string   `json:"city"`
	Region    string   `json:"region"`
	Country   string   `json:"country"`
}

// location validates the coordinate pair before accepting it
func (p *ipPayload) location(provider string, lat, lng *float64, country string) (*providers.IPLocation, error) {
	if lat == nil || lng == nil {
		return nil, upstream.Unrecognized(provider, "missing latitude/longitude")
	}
	coord := entities.Coordinate{Lat: *lat, Lng: *lng}
	if !coord.IsValid() {
		return nil, upstream.Unrecognized(provider, "coordinate out of range (%s)", coord)
	}
	return &providers.IPLocation{
		Coordinate:     coord,
		AccuracyMeters: ipAccuracyMeters,
		City:           p.City,
		Region:         p.Region,
		Country:        country,
	}, nil
}

func parseLoc(loc string) (float64, float64, bool) {
	latStr, lngStr, found := strings.Cut(loc, ",")
	if !found {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return 0, 0, false
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lng, true
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
