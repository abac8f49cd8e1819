package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/zatekoja/hospitalfinder/internal/domain/entities"
	apperrors "github.com/zatekoja/hospitalfinder/pkg/errors"
)

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps validation errors to 400 and hides everything else
func respondWithAppError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Type == apperrors.ErrorTypeValidation {
		respondWithError(w, http.StatusBadRequest, appErr.Message)
		return
	}
	respondWithError(w, http.StatusInternalServerError, "internal server error")
}

// parseFloatParam parses a required finite float query parameter
func parseFloatParam(r *http.Request, name string) (float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, apperrors.NewValidationError(fmt.Sprintf("%s parameter is required", name))
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apperrors.NewValidationError(fmt.Sprintf("invalid %s parameter", name))
	}
	return v, nil
}

// parseCoordinate reads and validates lat/lng
func parseCoordinate(r *http.Request) (entities.Coordinate, error) {
	lat, err := parseFloatParam(r, "lat")
	if err != nil {
		return entities.Coordinate{}, err
	}
	lng, err := parseFloatParam(r, "lng")
	if err != nil {
		return entities.Coordinate{}, err
	}
	coord := entities.Coordinate{Lat: lat, Lng: lng}
	if err := coord.Validate(); err != nil {
		return entities.Coordinate{}, err
	}
	return coord, nil
}

func parseBoolParam(r *http.Request, name string) (*bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid %s parameter", name))
	}
	return &v, nil
}

func hasParam(r *http.Request, name string) bool {
	return strings.TrimSpace(r.URL.Query().Get(name)) != ""
}
