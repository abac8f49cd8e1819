package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig
	Redis       RedisConfig
	Cache       CacheConfig
	Locator     LocatorConfig
	Aggregator  AggregatorConfig
	Geolocation GeolocationConfig
	Providers   ProvidersConfig
	OTEL        OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	Env            string
	LogLevel       string
	RequestTimeout time.Duration
	AllowedOrigins []string
	// TrustedProxies lists the peers, as IPs or CIDRs, whose X-Forwarded-For is honoured
	TrustedProxies []string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host            string
	Port            int
	Password        string
	DB              int
	ConnectAttempts int
}

// CacheConfig selects and sizes the cache backend
type CacheConfig struct {
	Backend         string // "memory" or "redis"
	Capacity        int
	FacilityTTL     time.Duration
	LocationTTL     time.Duration
	JanitorInterval time.Duration
}

// LocatorConfig holds user-location resolution settings
type LocatorConfig struct {
	GPSTimeout     time.Duration
	FixMaxAge      time.Duration
	IPTimeout      time.Duration
	IPLocators     []string
	IPInfoToken    string
	FallbackRegion string
}

// AggregatorConfig holds nearby-search settings
type AggregatorConfig struct {
	MaxRadiusKm   float64
	DefaultRadius float64
	FetchTimeout  time.Duration
}

// GeolocationConfig holds reverse geocoding configuration
type GeolocationConfig struct {
	Provider  string // "nominatim" or "google"
	APIKey    string
	UserAgent string
}

// ProviderSettings is the raw, per-adapter configuration
type ProviderSettings struct {
	Endpoint    string
	Enabled     bool
	APIKey      string
	CostTier    string
	Reliability string
	RateLimit   time.Duration
	Timeout     time.Duration
}

// ProvidersConfig lists facility adapters in priority order
type ProvidersConfig struct {
	Overpass  ProviderSettings
	Places    ProviderSettings
	Nominatim ProviderSettings
	Seed      ProviderSettings
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Load loads configuration from environment variables, reading a .env file first when present
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Env:            getEnv("APP_ENV", "production"),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			RequestTimeout: getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 25*time.Second),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES", nil),
		},
		Redis: RedisConfig{
			Host:            getEnv("REDIS_HOST", "localhost"),
			Port:            getEnvAsInt("REDIS_PORT", 6379),
			Password:        getEnv("REDIS_PASSWORD", ""),
			DB:              getEnvAsInt("REDIS_DB", 0),
			ConnectAttempts: getEnvAsInt("REDIS_CONNECT_ATTEMPTS", 3),
		},
		Cache: CacheConfig{
			Backend:         strings.ToLower(getEnv("CACHE_BACKEND", "memory")),
			Capacity:        getEnvAsInt("CACHE_CAPACITY", 500),
			FacilityTTL:     getEnvAsDuration("CACHE_FACILITY_TTL", 30*time.Minute),
			LocationTTL:     getEnvAsDuration("CACHE_LOCATION_TTL", 5*time.Minute),
			JanitorInterval: getEnvAsDuration("CACHE_JANITOR_INTERVAL", time.Minute),
		},
		Locator: LocatorConfig{
			GPSTimeout:     getEnvAsDuration("LOCATOR_GPS_TIMEOUT", 10*time.Second),
			FixMaxAge:      getEnvAsDuration("LOCATOR_FIX_MAX_AGE", 5*time.Minute),
			IPTimeout:      getEnvAsDuration("LOCATOR_IP_TIMEOUT", 5*time.Second),
			IPLocators:     getEnvAsList("LOCATOR_IP_PROVIDERS", []string{"ipapi", "ipwhois", "ipinfo"}),
			IPInfoToken:    getEnv("LOCATOR_IPINFO_TOKEN", ""),
			FallbackRegion: getEnv("LOCATOR_FALLBACK_REGION", ""),
		},
		Aggregator: AggregatorConfig{
			MaxRadiusKm:   getEnvAsFloat("AGGREGATOR_MAX_RADIUS_KM", 50),
			DefaultRadius: getEnvAsFloat("AGGREGATOR_DEFAULT_RADIUS_KM", 10),
			FetchTimeout:  getEnvAsDuration("AGGREGATOR_FETCH_TIMEOUT", 30*time.Second),
		},
		Geolocation: GeolocationConfig{
			Provider:  strings.ToLower(getEnv("GEOLOCATION_PROVIDER", "nominatim")),
			APIKey:    getEnv("GEOLOCATION_API_KEY", ""),
			UserAgent: getEnv("GEOLOCATION_USER_AGENT", "hospitalfinder/1.0"),
		},
		Providers: ProvidersConfig{
			Overpass:  loadProvider("OVERPASS", "https://overpass-api.de/api/interpreter", "free", "medium", true, 1*time.Second),
			Places:    loadProvider("PLACES", "https://maps.googleapis.com/maps/api/place/nearbysearch/json", "paid", "high", true, 200*time.Millisecond),
			Nominatim: loadProvider("NOMINATIM", "https://nominatim.openstreetmap.org/search", "free", "medium", true, 1*time.Second),
			Seed:      loadProvider("SEED", "", "free", "high", true, 0),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "hospitalfinder"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported CACHE_BACKEND %q", c.Cache.Backend)
	}
	switch c.Geolocation.Provider {
	case "nominatim", "google":
	default:
		return fmt.Errorf("unsupported GEOLOCATION_PROVIDER %q", c.Geolocation.Provider)
	}
	if c.Aggregator.MaxRadiusKm <= 0 {
		return fmt.Errorf("AGGREGATOR_MAX_RADIUS_KM must be positive")
	}
	// The seed dataset is the adapter of last resort and cannot be switched off.
	c.Providers.Seed.Enabled = true
	return nil
}

func loadProvider(name, endpoint, costTier, reliability string, enabled bool, rateLimit time.Duration) ProviderSettings {
	prefix := "PROVIDER_" + name + "_"
	return ProviderSettings{
		Endpoint:    getEnv(prefix+"ENDPOINT", endpoint),
		Enabled:     getEnvAsBool(prefix+"ENABLED", enabled),
		APIKey:      getEnv(prefix+"API_KEY", ""),
		CostTier:    getEnv(prefix+"COST_TIER", costTier),
		Reliability: getEnv(prefix+"RELIABILITY", reliability),
		RateLimit:   getEnvAsDuration(prefix+"RATE_LIMIT", rateLimit),
		Timeout:     getEnvAsDuration(prefix+"TIMEOUT", 8*time.Second),
	}
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("1500ms") or a bare integer number of milliseconds
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
