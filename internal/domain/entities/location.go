package entities

import (
	"fmt"
	"time"
)

// LocationSource tags where a LocationResult came from
type LocationSource string

const (
	LocationSourceGPS           LocationSource = "gps"
	LocationSourceStaticDefault LocationSource = "static-default"
)

// IPProviderSource returns the source tag for the n-th (1-based) IP locator in priority order
func IPProviderSource(n int) LocationSource {
	return LocationSource(fmt.Sprintf("ip-provider-%d", n))
}

// LocationResult is an approximate user position produced by the locator.
// Values are never mutated after construction.
type LocationResult struct {
	Coordinate     Coordinate     `json:"coordinate"`
	AccuracyMeters float64        `json:"accuracyMeters"`
	Source         LocationSource `json:"source"`
	Provider       string         `json:"provider,omitempty"`
	CapturedAt     time.Time      `json:"capturedAt"`
}

// DeviceFix is a position reported by on-device positioning hardware
type DeviceFix struct {
	Coordinate     Coordinate `json:"coordinate"`
	AccuracyMeters float64    `json:"accuracyMeters"`
	CapturedAt     time.Time  `json:"capturedAt"`
}
