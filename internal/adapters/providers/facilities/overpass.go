package facilities

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

// OverpassName is the provider prefix for OpenStreetMap map-feature results
const OverpassName = "overpass"

// OverpassAdapter queries the Overpass API (OpenStreetMap map features) with Overpass QL.
type OverpassAdapter struct {
	cfg        entities.ProviderConfig
	httpClient *http.Client
	synth      *Synthesizer
}

// NewOverpassAdapter creates a new Overpass adapter. httpClient may be nil.
func NewOverpassAdapter(cfg entities.ProviderConfig, httpClient *http.Client, synth *Synthesizer) *OverpassAdapter {
	cfg.Name = OverpassName
	return &OverpassAdapter{
		cfg:        cfg,
		httpClient: upstream.NewHTTPClient(httpClient, cfg.Timeout),
		synth:      synth,
	}
}

var _ providers.FacilitySource = (*OverpassAdapter)(nil)

// Name returns the provider prefix
func (a *OverpassAdapter) Name() string { return a.cfg.Name }

// Config returns the static provider description
func (a *OverpassAdapter) Config() entities.ProviderConfig { return a.cfg }

// Search finds medical amenities within radiusKm of coord
func (a *OverpassAdapter) Search(ctx context.Context, coord entities.Coordinate, radiusKm float64) ([]*entities.FacilityRecord, error) {
	form := url.Values{}
	form.Set("data", buildOverpassQuery(coord, radiusKm))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.EndpointTemplate, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var payload overpassResponse
	if err := upstream.DoJSON(ctx, a.httpClient, a.Name(), req, &payload); err != nil {
		return nil, err
	}
	if payload.Elements == nil {
		return nil, upstream.Unrecognized(a.Name(), "missing elements")
	}

	records := make([]*entities.FacilityRecord, 0, len(*payload.Elements))
	for _, el := range *payload.Elements {
		if rec := a.normalize(el); rec != nil {
			records = append(records, rec)
		}
	}
	return records, nil
}

func buildOverpassQuery(coord entities.Coordinate, radiusKm float64) string {
	around := fmt.Sprintf("(around:%.0f,%.6f,%.6f)", radiusKm*1000, coord.Lat, coord.Lng)
	amenity := `["amenity"~"^(hospital|clinic|doctors|pharmacy)$"]`
	healthcare := `["healthcare"~"^(hospital|clinic|centre|pharmacy)$"]`

	var b strings.Builder
	b.WriteString("[out:json][timeout:25];\n(\n")
	for _, kind := range []string{"node", "way", "relation"} {
		fmt.Fprintf(&b, "  %s%s%s;\n", kind, amenity, around)
		fmt.Fprintf(&b, "  %s%s%s;\n", kind, healthcare, around)
	}
	b.WriteString(");\nout center tags;")
	return b.String()
}

func (a *OverpassAdapter) normalize(el overpassElement) *entities.FacilityRecord {
	lat, lng, ok := el.position()
	if !ok {
		return nil
	}
	coord := entities.Coordinate{Lat: lat, Lng: lng}
	if !coord.IsValid() {
		return nil
	}

	tags := el.Tags
	category := MapCategory(tags["amenity"], tags["healthcare"])
	rec := &entities.FacilityRecord{
		ID:         RecordID(a.Name(), fmt.Sprintf("%s/%d", el.Type, el.ID)),
		Name:       fallbackName(tags["name"], category),
		Coordinate: coord,
		Address: SynthesizeAddress(AddressParts{
			Number:     tags["addr:housenumber"],
			Street:     tags["addr:street"],
			Locality:   firstNonEmpty(tags["addr:city"], tags["addr:suburb"]),
			Region:     tags["addr:state"],
			PostalCode: tags["addr:postcode"],
		}),
		Phone:          optionalString(tags["phone"], tags["contact:phone"]),
		Website:        optionalString(tags["website"], tags["contact:website"]),
		Category:       category,
		Specialties:    splitSpecialties(tags["healthcare:speciality"]),
		SourceProvider: a.Name(),
		Verified:       false,
	}
	if strings.TrimSpace(tags["opening_hours"]) == "24/7" || tags["emergency"] == "yes" {
		rec.OpenNowEstimate = boolPtr(true)
	}
	a.synth.fillSynthesized(rec)
	return rec
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

type overpassResponse struct {
	Elements *[]overpassElement `json:"elements"`
}

type overpassElement struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat"`
	Lon    *float64          `json:"lon"`
	Center *overpassCenter   `json:"center"`
	Tags   map[string]string `json:"tags"`
}

type overpassCenter struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// position returns node coordinates, or the computed center for ways and relations
func (e overpassElement) position() (float64, float64, bool) {
	if e.Lat != nil && e.Lon != nil {
		return *e.Lat, *e.Lon, true
	}
	if e.Center != nil {
		return e.Center.Lat, e.Center.Lon, true
	}
	return 0, 0, false
}
