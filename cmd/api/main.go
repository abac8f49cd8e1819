package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/hospitalfinder/internal/adapters/cache"
	"github.com/zatekoja/hospitalfinder/internal/adapters/providers/facilities"
	"github.com/zatekoja/hospitalfinder/internal/adapters/providers/geolocation"
	"github.com/zatekoja/hospitalfinder/internal/api/handlers"
	"github.com/zatekoja/hospitalfinder/internal/api/middleware"
	"github.com/zatekoja/hospitalfinder/internal/api/routes"
	"github.com/zatekoja/hospitalfinder/internal/application/services"
	"github.com/zatekoja/hospitalfinder/internal/domain/providers"
	"github.com/zatekoja/hospitalfinder/internal/infrastructure/clients/redis"
	"github.com/zatekoja/hospitalfinder/internal/infrastructure/observability"
	"github.com/zatekoja/hospitalfinder/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env, cfg.Server.LogLevel)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	// Initialize cache
	cacheProvider, closeCache, err := newCacheProvider(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize cache")
	}
	defer closeCache()

	janitor := services.NewCacheJanitor(cacheProvider, cfg.Cache.JanitorInterval)
	janitor.Start()
	defer janitor.Stop()

	// Facility adapters, in priority order
	sources, err := facilities.NewSources(cfg.Providers, cfg.Geolocation.UserAgent, nil, facilities.NewSynthesizer(""))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize facility adapters")
	}
	for _, source := range sources.All {
		pc := source.Config()
		log.Info().
			Str("provider", pc.Name).
			Bool("enabled", pc.Enabled).
			Str("reliability", pc.ReliabilityTier.String()).
			Dur("rate_limit", pc.RateLimit).
			Msg("Facility adapter registered")
	}
	log.Info().Int("entries", sources.Seed.Len()).Msg("Seed dataset loaded")

	scheduler := services.NewScheduler(sources.All, services.DefaultSchedulerOptions(), metrics)
	aggregator := services.NewFacilityAggregator(
		scheduler,
		sources.Seed,
		cacheProvider,
		services.AggregatorConfig{
			MaxRadiusKm:  cfg.Aggregator.MaxRadiusKm,
			CacheTTL:     cfg.Cache.FacilityTTL,
			FetchTimeout: cfg.Aggregator.FetchTimeout,
		},
		metrics,
	)

	// Locator
	ipLocators, err := geolocation.NewIPLocators(cfg.Locator.IPLocators, cfg.Locator.IPInfoToken, cfg.Locator.IPTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize IP locators")
	}
	locator := services.NewLocatorService(
		geolocation.NoDevicePosition{},
		ipLocators,
		cacheProvider,
		services.LocatorConfig{
			GPSTimeout:     cfg.Locator.GPSTimeout,
			FixMaxAge:      cfg.Locator.FixMaxAge,
			IPTimeout:      cfg.Locator.IPTimeout,
			CacheTTL:       cfg.Cache.LocationTTL,
			FallbackRegion: cfg.Locator.FallbackRegion,
		},
		metrics,
	)

	// Reverse geocoding
	var geocoder providers.ReverseGeocoder
	switch cfg.Geolocation.Provider {
	case "google":
		geocoder = geolocation.NewGoogleReverseGeocoder(cfg.Geolocation.APIKey)
	default:
		geocoder = geolocation.NewNominatimReverseGeocoder("", cfg.Geolocation.UserAgent, nil)
	}
	geocodeService := services.NewGeocodeService(geocoder, cacheProvider, cfg.Cache.FacilityTTL, metrics)

	// Initialize handlers
	hospitalHandler := handlers.NewHospitalHandler(aggregator, locator, cfg.Server.RequestTimeout)
	locationHandler := handlers.NewLocationHandler(locator, geocodeService)

	trustedProxies, err := middleware.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid TRUSTED_PROXIES")
	}

	router := routes.NewRouter(hospitalHandler, locationHandler, cfg.Server.AllowedOrigins, trustedProxies, metrics)
	handler := router.SetupRoutes()

	// Create HTTP server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", serverAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	log.Info().Msg("Server stopped")
}

// newCacheProvider picks the configured backend. Redis falls back to memory
// when the server cannot be reached.
func newCacheProvider(cfg *config.Config) (providers.CacheProvider, func(), error) {
	if cfg.Cache.Backend == "redis" {
		redisClient, err := redis.NewClient(&cfg.Redis)
		if err == nil {
			log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Using Redis cache")
			return cache.NewRedisAdapter(redisClient), func() {
				if err := redisClient.Close(); err != nil {
					log.Error().Err(err).Msg("Error closing Redis client")
				}
			}, nil
		}
		log.Warn().Err(err).Msg("Redis unavailable, falling back to in-memory cache")
	}

	memory, err := cache.NewMemoryAdapter(cfg.Cache.Capacity)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Int("capacity", cfg.Cache.Capacity).Msg("Using in-memory cache")
	return memory, func() {}, nil
}
