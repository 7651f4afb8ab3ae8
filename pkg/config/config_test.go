package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 5*time.Minute, cfg.Dashboard.CacheTTL)
	assert.Equal(t, 5, cfg.Appeals.SubmitBurst)
	assert.Equal(t, 12*time.Second, cfg.Appeals.SubmitInterval)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "https://portal.city.gov, https://admin.city.gov ,")
	t.Setenv("JWT_EXPIRATION", "not-a-duration")
	t.Setenv("DASHBOARD_CACHE_TTL", "90s")
	t.Setenv("ENABLE_REDIS", "true")
	t.Setenv("APPEALS_SUBMIT_INTERVAL", "1m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, []string{"https://portal.city.gov", "https://admin.city.gov"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, 90*time.Second, cfg.Dashboard.CacheTTL)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, time.Minute, cfg.Appeals.SubmitInterval)
}
