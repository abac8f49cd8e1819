package entities

import (
	"fmt"
	"math"

	apperrors "github.com/zatekoja/hospitalfinder/pkg/errors"
)

// Coordinate represents a WGS84 latitude/longitude pair
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate rejects non-finite or out-of-range coordinates
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || c.Lat < -90 || c.Lat > 90 {
		return apperrors.NewValidationError(fmt.Sprintf("latitude %v out of range [-90, 90]", c.Lat))
	}
	if math.IsNaN(c.Lng) || math.IsInf(c.Lng, 0) || c.Lng < -180 || c.Lng > 180 {
		return apperrors.NewValidationError(fmt.Sprintf("longitude %v out of range [-180, 180]", c.Lng))
	}
	return nil
}

// IsValid reports whether Validate would succeed
func (c Coordinate) IsValid() bool {
	return c.Validate() == nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}
