package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMA_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, "gema", cfg.EventSubjectBase)
	require.Equal(t, 10*time.Minute, cfg.CatalogCacheTTL)
	require.Equal(t, 5*time.Minute, cfg.AnalyticsCacheTTL)
	require.Equal(t, 2*time.Hour, cfg.WizardDraftTTL)
	require.Equal(t, 5, cfg.SubmitRateLimit)
	require.Equal(t, time.Minute, cfg.SubmitRateWindow)
	require.False(t, cfg.SeedEnabled)
	require.True(t, cfg.AutoMigrate)
	require.Equal(t, "*", cfg.CORSAllowOrigins)

	pool := cfg.PoolOptions()
	require.Equal(t, 20, pool.MaxOpenConns)
	require.Equal(t, 5, pool.MaxIdleConns)
	require.Equal(t, 30*time.Minute, pool.ConnMaxLifetime)
	require.False(t, pool.Verbose)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GEMA_JWT_SECRET", "secret")
	t.Setenv("GEMA_APP_PORT", ":9090")
	t.Setenv("GEMA_WIZARD_DRAFT_TTL", "30m")
	t.Setenv("GEMA_SUBMIT_RATE_LIMIT", "0")
	t.Setenv("GEMA_SEED_ENABLED", "true")
	t.Setenv("GEMA_SEED_TOKEN", "token")
	t.Setenv("GEMA_DATABASE_MAX_OPEN_CONNS", "50")
	t.Setenv("GEMA_DATABASE_LOG_QUERIES", "true")
	t.Setenv("GEMA_CORS_ALLOW_ORIGINS", "https://gema.example.ac.id")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddress())
	require.Equal(t, 30*time.Minute, cfg.WizardDraftTTL)
	require.Equal(t, 5, cfg.SubmitRateLimit)
	require.True(t, cfg.SeedEnabled)
	require.Equal(t, "token", cfg.SeedToken)
	require.Equal(t, 50, cfg.PoolOptions().MaxOpenConns)
	require.True(t, cfg.PoolOptions().Verbose)
	require.Equal(t, "https://gema.example.ac.id", cfg.CORSAllowOrigins)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("GEMA_JWT_SECRET", "")
	_, err := Load()
	require.ErrorContains(t, err, "jwt secret")

	t.Setenv("GEMA_JWT_SECRET", "secret")
	t.Setenv("GEMA_ANALYTICS_CACHE_TTL", "soon")
	_, err = Load()
	require.ErrorContains(t, err, "analytics.cache_ttl")

	t.Setenv("GEMA_ANALYTICS_CACHE_TTL", "-1m")
	_, err = Load()
	require.ErrorContains(t, err, "must be positive")
}
