package providers

import (
	"context"
	"errors"

	"github.com/zatekoja/hospitalfinder/internal/domain/entities"
)

var (
	// ErrPermissionDenied is returned when the user refused device positioning
	ErrPermissionDenied = errors.New("position permission denied")

	// ErrPositionUnavailable is returned when no device positioning capability exists
	ErrPositionUnavailable = errors.New("position unavailable")
)

// PositionSource provides on-device (GPS) fixes
type PositionSource interface {
	// CurrentPosition blocks until a fix is available or ctx is done
	CurrentPosition(ctx context.Context) (*entities.DeviceFix, error)
}

// IPLocator resolves an approximate position from the caller's IP address
type IPLocator interface {
	Name() string

	// Locate looks up clientIP, or the requesting address when clientIP is empty
	Locate(ctx context.Context, clientIP string) (*IPLocation, error)
}

// IPLocation is the result of an IP geolocation lookup
type IPLocation struct {
	Coordinate     entities.Coordinate
	AccuracyMeters float64
	City           string
	Region         string
	Country        string
}

// ReverseGeocoder converts coordinates to an address
type ReverseGeocoder interface {
	Name() string
	ReverseGeocode(ctx context.Context, coord entities.Coordinate) (*entities.AddressInfo, error)
}
