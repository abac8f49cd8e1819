package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 500, cfg.Cache.Capacity)
	assert.Equal(t, 30*time.Minute, cfg.Cache.FacilityTTL)
	assert.Equal(t, 10*time.Second, cfg.Locator.GPSTimeout)
	assert.Equal(t, 5*time.Second, cfg.Locator.IPTimeout)
	assert.Equal(t, []string{"ipapi", "ipwhois", "ipinfo"}, cfg.Locator.IPLocators)
	assert.Equal(t, 50.0, cfg.Aggregator.MaxRadiusKm)
	assert.True(t, cfg.Providers.Seed.Enabled)
	assert.Equal(t, time.Second, cfg.Providers.Overpass.RateLimit)
	assert.Equal(t, 30*time.Second, cfg.Aggregator.FetchTimeout)
	assert.Empty(t, cfg.Server.TrustedProxies)
}

func TestLoad_ProviderOverrides(t *testing.T) {
	t.Setenv("PROVIDER_PLACES_ENABLED", "false")
	t.Setenv("PROVIDER_OVERPASS_RATE_LIMIT", "2500")
	t.Setenv("PROVIDER_NOMINATIM_ENDPOINT", "http://nominatim.local/search")
	t.Setenv("PROVIDER_SEED_ENABLED", "false")
	t.Setenv("LOCATOR_IP_PROVIDERS", "ipinfo, ipapi")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Providers.Places.Enabled)
	assert.Equal(t, 2500*time.Millisecond, cfg.Providers.Overpass.RateLimit)
	assert.Equal(t, "http://nominatim.local/search", cfg.Providers.Nominatim.Endpoint)
	assert.True(t, cfg.Providers.Seed.Enabled, "seed adapter is always enabled")
	assert.Equal(t, []string{"ipinfo", "ipapi"}, cfg.Locator.IPLocators)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.1"}, cfg.Server.TrustedProxies)
}

func TestLoad_DurationFormats(t *testing.T) {
	t.Setenv("CACHE_FACILITY_TTL", "45m")
	t.Setenv("LOCATOR_GPS_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Minute, cfg.Cache.FacilityTTL)
	assert.Equal(t, 10*time.Second, cfg.Locator.GPSTimeout)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "memcached")

	_, err := Load()
	assert.Error(t, err)
}

func TestRedisAddr(t *testing.T) {
	cfg := RedisConfig{Host: "cache", Port: 6380}
	assert.Equal(t, "cache:6380", cfg.RedisAddr())
}
