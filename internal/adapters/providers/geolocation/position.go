package geolocation

import (
	"context"

	"github.com/zatekoja/hospitalfinder/internal/domain/entities"
	"github.com/zatekoja/hospitalfinder/internal/domain/providers"
)

// NoDevicePosition is the position source for hosts without positioning hardware.
type NoDevicePosition struct{}

var _ providers.PositionSource = NoDevicePosition{}

// CurrentPosition always reports that no device position exists
func (NoDevicePosition) CurrentPosition(ctx context.Context) (*entities.DeviceFix, error) {
	return nil, providers.ErrPositionUnavailable
}

// ClientPosition serves a fix reported by the client device (browser or app
// geolocation), or the error the client reported instead.
type ClientPosition struct {
	fix *entities.DeviceFix
	err error
}

// NewClientPosition wraps a client-reported fix
func NewClientPosition(fix entities.DeviceFix) *ClientPosition {
	return &ClientPosition{fix: &fix}
}

// NewDeniedPosition reports that the user refused to share their position
func NewDeniedPosition() *ClientPosition {
	return &ClientPosition{err: providers.ErrPermissionDenied}
}

var _ providers.PositionSource = (*ClientPosition)(nil)

// CurrentPosition returns the wrapped fix after validating its coordinate
func (c *ClientPosition) CurrentPosition(ctx context.Context) (*entities.DeviceFix, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.err != nil {
		return nil, c.err
	}
	if c.fix == nil || !c.fix.Coordinate.IsValid() {
		return nil, providers.ErrPositionUnavailable
	}
	fix := *c.fix
	return &fix, nil
}
