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
	"github.com/zatekoja/hospitalfinder/pkg/geo"
)

// NominatimName is the provider prefix for Nominatim geocoding-search results
const NominatimName = "nominatim"

// NominatimAdapter runs a bounded free-text search against a Nominatim instance.
type NominatimAdapter struct {
	cfg        entities.ProviderConfig
	userAgent  string
	query      string
	httpClient *http.Client
	synth      *Synthesizer
}

// NewNominatimAdapter creates a new Nominatim adapter. Nominatim's usage policy
// requires an identifying User-Agent.
func NewNominatimAdapter(cfg entities.ProviderConfig, userAgent string, httpClient *http.Client, synth *Synthesizer) *NominatimAdapter {
	cfg.Name = NominatimName
	if userAgent == "" {
		userAgent = "hospitalfinder/1.0"
	}
	return &NominatimAdapter{
		cfg:        cfg,
		userAgent:  userAgent,
		query:      "hospital",
		httpClient: upstream.NewHTTPClient(httpClient, cfg.Timeout),
		synth:      synth,
	}
}

var _ providers.FacilitySource = (*NominatimAdapter)(nil)

// Name returns the provider prefix
func (a *NominatimAdapter) Name() string { return a.cfg.Name }

// Config returns the static provider description
func (a *NominatimAdapter) Config() entities.ProviderConfig { return a.cfg }

// Search finds facilities inside the bounding box of the search circle
func (a *NominatimAdapter) Search(ctx context.Context, coord entities.Coordinate, radiusKm float64) ([]*entities.FacilityRecord, error) {
	south, west, north, east := geo.BoundingBox(coord.Lat, coord.Lng, radiusKm)

	params := url.Values{}
	params.Set("q", a.query)
	params.Set("format", "jsonv2")
	params.Set("addressdetails", "1")
	params.Set("extratags", "1")
	params.Set("limit", "50")
	params.Set("bounded", "1")
	params.Set("viewbox", fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", west, north, east, south))

	reqURL := fmt.Sprintf("%s?%s", a.cfg.EndpointTemplate, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build nominatim request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("Accept-Language", "en")

	var payload []nominatimPlace
	if err := upstream.DoJSON(ctx, a.httpClient, a.Name(), req, &payload); err != nil {
		return nil, err
	}

	records := make([]*entities.FacilityRecord, 0, len(payload))
	for _, place := range payload {
		if rec := a.normalize(place); rec != nil {
			records = append(records, rec)
		}
	}
	return records, nil
}

func (a *NominatimAdapter) normalize(place nominatimPlace) *entities.FacilityRecord {
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(place.Lat), 64)
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(place.Lon), 64)
	if errLat != nil || errLng != nil {
		return nil
	}
	coord := entities.Coordinate{Lat: lat, Lng: lng}
	if !coord.IsValid() {
		return nil
	}

	nativeID := strconv.FormatInt(place.PlaceID, 10)
	if place.OsmType != "" && place.OsmID != 0 {
		nativeID = fmt.Sprintf("%s/%d", place.OsmType, place.OsmID)
	}

	name := place.Name
	if name == "" {
		name, _, _ = strings.Cut(place.DisplayName, ",")
	}

	addr := place.Address
	category := MapCategory(place.Type, place.Category)
	rec := &entities.FacilityRecord{
		ID:         RecordID(a.Name(), nativeID),
		Name:       fallbackName(name, category),
		Coordinate: coord,
		Address: SynthesizeAddress(AddressParts{
			Number:     addr.HouseNumber,
			Street:     addr.Road,
			Locality:   firstNonEmpty(addr.City, addr.Town, addr.Village, addr.Suburb),
			Region:     addr.State,
			PostalCode: addr.Postcode,
		}),
		Phone:          optionalString(place.ExtraTags["phone"], place.ExtraTags["contact:phone"]),
		Website:        optionalString(place.ExtraTags["website"], place.ExtraTags["contact:website"]),
		Category:       category,
		Specialties:    splitSpecialties(place.ExtraTags["healthcare:speciality"]),
		SourceProvider: a.Name(),
		Verified:       false,
	}
	if strings.TrimSpace(place.ExtraTags["opening_hours"]) == "24/7" {
		rec.OpenNowEstimate = boolPtr(true)
	}
	a.synth.fillSynthesized(rec)
	return rec
}

type nominatimPlace struct {
	PlaceID     int64             `json:"place_id"`
	OsmType     string            `json:"osm_type"`
	OsmID       int64             `json:"osm_id"`
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	Category    string            `json:"category"`
	Type        string            `json:"type"`
	Name        string            `json:"name"`
	DisplayName string            `json:"display_name"`
	Address     nominatimAddress  `json:"address"`
	ExtraTags   map[string]string `json:"extratags"`
}

type nominatimAddress struct {
	HouseNumber string `json:"house_number"`
	Road        string `json:"road"`
	Suburb      string `json:"suburb"`
	City        string `json:"city"`
	Town        string `json:"town"`
	Village     string `json:"village"`
	State       string `json:"state"`
	Postcode    string `json:"postcode"`
	Country     string `json:"country"`
}
