package facilities

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/zatekoja/hospitalfinder/internal/domain/entities"
	"github.com/zatekoja/hospitalfinder/internal/domain/providers"
	"github.com/zatekoja/hospitalfinder/pkg/config"
)

// Sources is the typed adapter list in priority order. The seed adapter is
// always last and is also returned on its own for the aggregator's fallback.
type Sources struct {
	All  []providers.FacilitySource
	Seed *SeedAdapter
}

// NewSources builds every configured facility adapter. Disabled adapters are
// still constructed so they can be listed; the scheduler skips them.
func NewSources(cfg config.ProvidersConfig, userAgent string, httpClient *http.Client, synth *Synthesizer) (*Sources, error) {
	if synth == nil {
		synth = NewSynthesizer("")
	}

	overpassCfg, err := ProviderConfigFromSettings(OverpassName, cfg.Overpass)
	if err != nil {
		return nil, err
	}
	placesCfg, err := ProviderConfigFromSettings(PlacesName, cfg.Places)
	if err != nil {
		return nil, err
	}
	// Places cannot answer without a key.
	if strings.TrimSpace(cfg.Places.APIKey) == "" {
		placesCfg.Enabled = false
	}
	nominatimCfg, err := ProviderConfigFromSettings(NominatimName, cfg.Nominatim)
	if err != nil {
		return nil, err
	}
	seedCfg, err := ProviderConfigFromSettings(SeedName, cfg.Seed)
	if err != nil {
		return nil, err
	}

	seed, err := NewSeedAdapter(seedCfg)
	if err != nil {
		return nil, err
	}

	return &Sources{
		All: []providers.FacilitySource{
			NewOverpassAdapter(overpassCfg, httpClient, synth),
			NewPlacesAdapter(placesCfg, cfg.Places.APIKey, httpClient, synth),
			NewNominatimAdapter(nominatimCfg, userAgent, httpClient, synth),
			seed,
		},
		Seed: seed,
	}, nil
}

// ProviderConfigFromSettings validates raw settings into a ProviderConfig
func ProviderConfigFromSettings(name string, s config.ProviderSettings) (entities.ProviderConfig, error) {
	reliability, err := entities.ParseReliability(s.Reliability)
	if err != nil {
		return entities.ProviderConfig{}, fmt.Errorf("provider %s: %w", name, err)
	}
	if reliability == 0 {
		reliability = entities.ReliabilityLow
	}

	costTier := entities.CostTier(strings.ToLower(strings.TrimSpace(s.CostTier)))
	switch costTier {
	case entities.CostTierFree, entities.CostTierFreemium, entities.CostTierPaid:
	case "":
		costTier = entities.CostTierFree
	default:
		return entities.ProviderConfig{}, fmt.Errorf("provider %s: unknown cost tier %q", name, s.CostTier)
	}

	if s.RateLimit < 0 {
		return entities.ProviderConfig{}, fmt.Errorf("provider %s: rate limit must not be negative", name)
	}

	return entities.ProviderConfig{
		Name:             name,
		EndpointTemplate: s.Endpoint,
		CostTier:         costTier,
		ReliabilityTier:  reliability,
		Enabled:          s.Enabled,
		RateLimit:        s.RateLimit,
		Timeout:          s.Timeout,
	}, nil
}
