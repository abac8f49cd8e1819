package facilities

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/zatekoja/hospitalfinder/internal/domain/entities"
	"github.com/zatekoja/hospitalfinder/internal/domain/providers"
	"github.com/zatekoja/hospitalfinder/pkg/geo"
)

// SeedName is the provider prefix for the bundled curated dataset
const SeedName = "seed"

//go:embed seeddata/facilities.json
var embeddedSeed []byte

// SeedAdapter serves the human-curated facility list. It never performs network
// I/O and is always enabled.
type SeedAdapter struct {
	cfg     entities.ProviderConfig
	records []*entities.FacilityRecord
}

// NewSeedAdapter loads the embedded dataset
func NewSeedAdapter(cfg entities.ProviderConfig) (*SeedAdapter, error) {
	return NewSeedAdapterFromJSON(cfg, embeddedSeed)
}

// NewSeedAdapterFromFile loads a curated dataset from disk instead of the embedded copy
func NewSeedAdapterFromFile(cfg entities.ProviderConfig, path string) (*SeedAdapter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed dataset: %w", err)
	}
	return NewSeedAdapterFromJSON(cfg, data)
}

// NewSeedAdapterFromJSON parses a dataset; entries with invalid coordinates are rejected
func NewSeedAdapterFromJSON(cfg entities.ProviderConfig, data []byte) (*SeedAdapter, error) {
	var entries []seedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse seed dataset: %w", err)
	}

	cfg.Name = SeedName
	cfg.Enabled = true
	cfg.RateLimit = 0
	a := &SeedAdapter{cfg: cfg, records: make([]*entities.FacilityRecord, 0, len(entries))}

	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		coord := entities.Coordinate{Lat: e.Lat, Lng: e.Lng}
		if err := coord.Validate(); err != nil {
			return nil, fmt.Errorf("seed entry %q: %w", e.ID, err)
		}
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("seed entry %q is duplicated", e.ID)
		}
		seen[e.ID] = struct{}{}
		a.records = append(a.records, e.toRecord(coord))
	}
	return a, nil
}

var _ providers.FacilitySource = (*SeedAdapter)(nil)

// Name returns the provider prefix
func (a *SeedAdapter) Name() string { return a.cfg.Name }

// Config returns the static provider description
func (a *SeedAdapter) Config() entities.ProviderConfig { return a.cfg }

// Len returns the number of curated entries
func (a *SeedAdapter) Len() int { return len(a.records) }

// Search returns copies of the curated entries within radiusKm of coord
func (a *SeedAdapter) Search(ctx context.Context, coord entities.Coordinate, radiusKm float64) ([]*entities.FacilityRecord, error) {
	out := make([]*entities.FacilityRecord, 0)
	for _, rec := range a.records {
		d := geo.DistanceKm(coord.Lat, coord.Lng, rec.Coordinate.Lat, rec.Coordinate.Lng)
		if d > radiusKm {
			continue
		}
		cp := *rec
		cp.Specialties = append([]string(nil), rec.Specialties...)
		out = append(out, &cp)
	}
	return out, nil
}

type seedEntry struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address struct {
		Number     string `json:"number"`
		Street     string `json:"street"`
		Locality   string `json:"locality"`
		Region     string `json:"region"`
		PostalCode string `json:"postalCode"`
	} `json:"address"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	Category    string   `json:"category"`
	Phone       string   `json:"phone"`
	Website     string   `json:"website"`
	Specialties []string `json:"specialties"`
	Rating      float64  `json:"rating"`
	Emergency   bool     `json:"emergency"`
}

func (e seedEntry) toRecord(coord entities.Coordinate) *entities.FacilityRecord {
	category := entities.Category(e.Category)
	switch category {
	case entities.CategoryHospital, entities.CategoryClinic, entities.CategoryPharmacy, entities.CategoryMedicalCenter:
	default:
		category = MapCategory(e.Category)
	}

	specialties := e.Specialties
	if specialties == nil {
		specialties = []string{}
	}

	rec := &entities.FacilityRecord{
		ID:         RecordID(SeedName, e.ID),
		Name:       fallbackName(e.Name, category),
		Coordinate: coord,
		Address: SynthesizeAddress(AddressParts{
			Number:     e.Address.Number,
			Street:     e.Address.Street,
			Locality:   e.Address.Locality,
			Region:     e.Address.Region,
			PostalCode: e.Address.PostalCode,
		}),
		Phone:          optionalString(e.Phone),
		Website:        optionalString(e.Website),
		Category:       category,
		Specialties:    specialties,
		SourceProvider: SeedName,
		Verified:       true,
		Rating:         e.Rating,
	}
	if e.Emergency {
		rec.OpenNowEstimate = boolPtr(true)
	}
	return rec
}
