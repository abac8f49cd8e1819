package routes

import (
	"net/http"
	"net/netip"

	"github.com/zatekoja/hospitalfinder/internal/api/handlers"
	"github.com/zatekoja/hospitalfinder/internal/api/middleware"
	"github.com/zatekoja/hospitalfinder/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	hospitalHandler *handlers.HospitalHandler
	locationHandler *handlers.LocationHandler

	allowedOrigins []string
	trustedProxies []netip.Prefix
	metrics        *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	hospitalHandler *handlers.HospitalHandler,
	locationHandler *handlers.LocationHandler,
	allowedOrigins []string,
	trustedProxies []netip.Prefix,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:             http.NewServeMux(),
		hospitalHandler: hospitalHandler,
		locationHandler: locationHandler,
		allowedOrigins:  allowedOrigins,
		trustedProxies:  trustedProxies,
		metrics:         metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Facility endpoints
	r.mux.HandleFunc("GET /api/hospitals", r.hospitalHandler.FindNearby)
	r.mux.HandleFunc("GET /api/providers", r.hospitalHandler.ListProviders)

	// Location endpoints
	r.mux.HandleFunc("GET /api/locate", r.locationHandler.Locate)
	r.mux.HandleFunc("GET /api/reverse-geocode", r.locationHandler.ReverseGeocode)

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.ResponseOptimization(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RealIPMiddleware(r.trustedProxies)(handler)

	// CORS wraps everything so preflight requests short-circuit early
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
