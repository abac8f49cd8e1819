package entities

import "time"

// ProviderConfig is the static description of one facility adapter.
// It is read-only at runtime.
type ProviderConfig struct {
	Name             string        `json:"name"`
	EndpointTemplate string        `json:"endpointTemplate"`
	CostTier         CostTier      `json:"costTier"`
	ReliabilityTier  Reliability   `json:"reliabilityTier"`
	Enabled          bool          `json:"enabled"`
	RequiresAPIKey   bool          `json:"requiresApiKey"`
	RateLimit        time.Duration `json:"-"`
	Timeout          time.Duration `json:"-"`
}
