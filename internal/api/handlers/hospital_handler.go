package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/zatekoja/hospitalfinder/internal/application/services"
	"github.com/zatekoja/hospitalfinder/internal/domain/entities"
	"github.com/zatekoja/hospitalfinder/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/hospitalfinder/pkg/errors"
)

// FacilityFinder is the nearby-search capability the handler depends on
type FacilityFinder interface {
	FindNearby(ctx context.Context, coord entities.Coordinate, radiusKm float64, opts entities.SearchOptions) ([]*entities.FacilityRecord, error)
	Providers() []entities.ProviderConfig
}

// Locator resolves the caller's approximate position
type Locator interface {
	Locate(ctx context.Context, req services.LocateRequest) *entities.LocationResult
}

// HospitalHandler handles nearby facility search requests
type HospitalHandler struct {
	finder         FacilityFinder
	locator        Locator
	requestTimeout time.Duration
}

// NewHospitalHandler creates a new hospital handler. locator may be nil, which
// disables auto_locate.
func NewHospitalHandler(finder FacilityFinder, locator Locator, requestTimeout time.Duration) *HospitalHandler {
	return &HospitalHandler{
		finder:         finder,
		locator:        locator,
		requestTimeout: requestTimeout,
	}
}

// FindNearby handles GET /api/hospitals?lat=&lng=&radius=
//
// Optional: max_results, min_reliability (low|medium|high), include_unverified,
// and auto_locate=true to resolve lat/lng from the caller when both are absent.
func (h *HospitalHandler) FindNearby(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}

	radius, err := parseFloatParam(r, "radius")
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	opts, err := parseSearchOptions(r)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	var coord entities.Coordinate
	autoLocate, err := parseBoolParam(r, "auto_locate")
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	if autoLocate != nil && *autoLocate && h.locator != nil && !hasParam(r, "lat") && !hasParam(r, "lng") {
		location := h.locator.Locate(ctx, services.LocateRequest{
			TimezoneHint: r.URL.Query().Get("tz"),
			ClientIP:     clientIP(r),
		})
		coord = location.Coordinate
		w.Header().Set("X-Location-Source", string(location.Source))
	} else {
		coord, err = parseCoordinate(r)
		if err != nil {
			respondWithAppError(w, err)
			return
		}
	}

	records, err := h.finder.FindNearby(ctx, coord, radius, opts)
	if err != nil {
		if !apperrors.IsValidation(err) {
			observability.LoggerFromContext(ctx).Error().Err(err).Msg("nearby search failed")
		}
		respondWithAppError(w, err)
		return
	}

	if records == nil {
		records = []*entities.FacilityRecord{}
	}
	respondWithJSON(w, http.StatusOK, records)
}

// ListProviders handles GET /api/providers
func (h *HospitalHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	configs := h.finder.Providers()
	views := make([]providerView, 0, len(configs))
	for _, cfg := range configs {
		views = append(views, providerView{
			ProviderConfig: cfg,
			RateLimitMs:    cfg.RateLimit.Milliseconds(),
		})
	}
	respondWithJSON(w, http.StatusOK, views)
}

type providerView struct {
	entities.ProviderConfig
	RateLimitMs int64 `json:"rateLimitMs"`
}

func parseSearchOptions(r *http.Request) (entities.SearchOptions, error) {
	var opts entities.SearchOptions

	if raw := strings.TrimSpace(r.URL.Query().Get("max_results")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return opts, apperrors.NewValidationError(fmt.Sprintf("max_results must be a positive integer (at most %d)", entities.MaxResultsCap))
		}
		opts.MaxResults = n
	}

	reliability, err := entities.ParseReliability(r.URL.Query().Get("min_reliability"))
	if err != nil {
		return opts, err
	}
	opts.MinReliability = reliability

	includeUnverified, err := parseBoolParam(r, "include_unverified")
	if err != nil {
		return opts, err
	}
	opts.IncludeUnverified = includeUnverified

	return opts, nil
}
