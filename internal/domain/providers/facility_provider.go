package providers

import (
	"context"

	"github.com/zatekoja/hospitalfinder/internal/domain/entities"
)

// FacilitySource is implemented by every facility provider adapter
type FacilitySource interface {
	// Name is the provider prefix used in record ids
	Name() string

	// Config returns the static provider description
	Config() entities.ProviderConfig

	// Search returns normalized records near coord. Upstream failures are
	// reported as *errors.ProviderError.
	Search(ctx context.Context, coord entities.Coordinate, radiusKm float64) ([]*entities.FacilityRecord, error)
}
