package handlers

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/zatekoja/hospitalfinder/internal/adapters/providers/geolocation"
	"github.com/zatekoja/hospitalfinder/internal/application/services"
	"github.com/zatekoja/hospitalfinder/internal/domain/entities"
	apperrors "github.com/zatekoja/hospitalfinder/pkg/errors"
)

// AddressResolver performs best-effort reverse geocoding
type AddressResolver interface {
	ReverseGeocode(ctx context.Context, coord entities.Coordinate) *entities.AddressInfo
}

// LocationHandler handles locate and reverse geocode requests
type LocationHandler struct {
	locator  Locator
	resolver AddressResolver
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(locator Locator, resolver AddressResolver) *LocationHandler {
	return &LocationHandler{
		locator:  locator,
		resolver: resolver,
	}
}

// Locate handles GET /api/locate
//
// A device fix reported by the client is passed as lat, lng, accuracy and
// captured_at (RFC 3339); denied=true reports that the user refused location
// access. precise=true bypasses cached IP positions; tz is a timezone hint.
func (h *LocationHandler) Locate(w http.ResponseWriter, r *http.Request) {
	req := services.LocateRequest{
		TimezoneHint: strings.TrimSpace(r.URL.Query().Get("tz")),
		ClientIP:     clientIP(r),
	}

	precise, err := parseBoolParam(r, "precise")
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	req.Precise = precise != nil && *precise

	denied, err := parseBoolParam(r, "denied")
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	switch {
	case denied != nil && *denied:
		req.Position = geolocation.NewDeniedPosition()
	case hasParam(r, "lat") || hasParam(r, "lng"):
		fix, err := parseDeviceFix(r)
		if err != nil {
			respondWithAppError(w, err)
			return
		}
		req.Position = geolocation.NewClientPosition(fix)
	}

	respondWithJSON(w, http.StatusOK, h.locator.Locate(r.Context(), req))
}

// ReverseGeocode handles GET /api/reverse-geocode?lat=&lng=
func (h *LocationHandler) ReverseGeocode(w http.ResponseWriter, r *http.Request) {
	coord, err := parseCoordinate(r)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	// nil encodes as JSON null when nothing is known about the point
	respondWithJSON(w, http.StatusOK, h.resolver.ReverseGeocode(r.Context(), coord))
}

func parseDeviceFix(r *http.Request) (entities.DeviceFix, error) {
	coord, err := parseCoordinate(r)
	if err != nil {
		return entities.DeviceFix{}, err
	}
	fix := entities.DeviceFix{Coordinate: coord}

	if hasParam(r, "accuracy") {
		accuracy, err := parseFloatParam(r, "accuracy")
		if err != nil || accuracy < 0 {
			return entities.DeviceFix{}, apperrors.NewValidationError("invalid accuracy parameter")
		}
		fix.AccuracyMeters = accuracy
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("captured_at")); raw != "" {
		capturedAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return entities.DeviceFix{}, apperrors.NewValidationError("invalid captured_at parameter, expected RFC 3339")
		}
		fix.CapturedAt = capturedAt
	}
	return fix, nil
}

// clientIP returns the peer address when it is public. Forwarded headers are
// resolved upstream by the trusted-proxy middleware, never here.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ip := net.ParseIP(host)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() {
		return ""
	}
	return ip.String()
}
