package entities

import (
	"fmt"
	"strings"

	apperrors "github.com/zatekoja/hospitalfinder/pkg/errors"
)

// Reliability ranks how trustworthy a provider's data is
type Reliability int

const (
	ReliabilityLow Reliability = iota + 1
	ReliabilityMedium
	ReliabilityHigh
)

func (r Reliability) String() string {
	switch r {
	case ReliabilityLow:
		return "low"
	case ReliabilityMedium:
		return "medium"
	case ReliabilityHigh:
		return "high"
	default:
		return "any"
	}
}

// ParseReliability parses "low", "medium" or "high"; an empty string means no minimum.
func ParseReliability(s string) (Reliability, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return 0, nil
	case "low":
		return ReliabilityLow, nil
	case "medium":
		return ReliabilityMedium, nil
	case "high":
		return ReliabilityHigh, nil
	default:
		return 0, apperrors.NewValidationError(fmt.Sprintf("unknown reliability %q", s))
	}
}

// MarshalText encodes the tier by name
func (r Reliability) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText accepts the names produced by MarshalText
func (r *Reliability) UnmarshalText(text []byte) error {
	if string(text) == "any" {
		*r = 0
		return nil
	}
	parsed, err := ParseReliability(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// CostTier describes what a provider costs per call
type CostTier string

const (
	CostTierFree     CostTier = "free"
	CostTierFreemium CostTier = "freemium"
	CostTierPaid     CostTier = "paid"
)

const (
	DefaultMaxResults = 20
	MaxResultsCap     = 100
)

// SearchOptions tunes a findNearby call
type SearchOptions struct {
	MaxResults     int         `json:"maxResults"`
	MinReliability Reliability `json:"minReliability"`
	// IncludeUnverified defaults to true when nil.
	IncludeUnverified *bool `json:"includeUnverified"`
}

// Normalized returns a copy with defaults applied and MaxResults clamped to the hard cap
func (o SearchOptions) Normalized() SearchOptions {
	if o.MaxResults <= 0 {
		o.MaxResults = DefaultMaxResults
	}
	if o.MaxResults > MaxResultsCap {
		o.MaxResults = MaxResultsCap
	}
	if o.IncludeUnverified == nil {
		include := true
		o.IncludeUnverified = &include
	}
	return o
}

// IncludesUnverified reports whether unverified records are wanted
func (o SearchOptions) IncludesUnverified() bool {
	return o.IncludeUnverified == nil || *o.IncludeUnverified
}

// Fingerprint is a stable string form used in cache keys
func (o SearchOptions) Fingerprint() string {
	n := o.Normalized()
	return fmt.Sprintf("n=%d|rel=%s|unv=%t", n.MaxResults, n.MinReliability, n.IncludesUnverified())
}
