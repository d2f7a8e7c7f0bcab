package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/noah-isme/gema-evaluation-api/internal/database"
)

// Config holds runtime configuration values for the evaluation API.
type Config struct {
	AppName           string
	AppEnv            string
	AppPort           string
	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBLogQueries      bool
	RedisURL          string
	NATSURL           string
	EventSubjectBase  string
	JWTSecret         string
	CORSAllowOrigins  string
	CatalogCacheTTL   time.Duration
	AnalyticsCacheTTL time.Duration
	WizardDraftTTL    time.Duration
	SubmitRateLimit   int
	SubmitRateWindow  time.Duration
	SeedEnabled       bool
	SeedToken         string
	AutoMigrate       bool
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("GEMA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "GEMA Evaluation API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("events.subject_base", "gema")
	v.SetDefault("catalog.cache_ttl", "10m")
	v.SetDefault("analytics.cache_ttl", "5m")
	v.SetDefault("wizard.draft_ttl", "2h")
	v.SetDefault("submit.rate_limit", 5)
	v.SetDefault("submit.rate_window", "1m")
	v.SetDefault("seed.enabled", false)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("cors.allow_origins", "*")

	catalogTTL, err := parseDuration(v, "catalog.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	analyticsTTL, err := parseDuration(v, "analytics.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	draftTTL, err := parseDuration(v, "wizard.draft_ttl")
	if err != nil {
		return Config{}, err
	}
	rateWindow, err := parseDuration(v, "submit.rate_window")
	if err != nil {
		return Config{}, err
	}
	connLifetime, err := parseDuration(v, "database.conn_max_lifetime")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:           v.GetString("app.name"),
		AppEnv:            v.GetString("app.env"),
		AppPort:           v.GetString("app.port"),
		DatabaseURL:       v.GetString("database.url"),
		DBMaxOpenConns:    v.GetInt("database.max_open_conns"),
		DBMaxIdleConns:    v.GetInt("database.max_idle_conns"),
		DBConnMaxLifetime: connLifetime,
		DBLogQueries:      v.GetBool("database.log_queries"),
		RedisURL:          v.GetString("redis.url"),
		NATSURL:           v.GetString("nats.url"),
		EventSubjectBase:  strings.TrimSpace(v.GetString("events.subject_base")),
		JWTSecret:         v.GetString("jwt.secret"),
		CORSAllowOrigins:  strings.TrimSpace(v.GetString("cors.allow_origins")),
		CatalogCacheTTL:   catalogTTL,
		AnalyticsCacheTTL: analyticsTTL,
		WizardDraftTTL:    draftTTL,
		SubmitRateLimit:   v.GetInt("submit.rate_limit"),
		SubmitRateWindow:  rateWindow,
		SeedEnabled:       v.GetBool("seed.enabled"),
		SeedToken:         v.GetString("seed.token"),
		AutoMigrate:       v.GetBool("database.auto_migrate"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.SubmitRateLimit <= 0 {
		cfg.SubmitRateLimit = 5
	}
	if cfg.CORSAllowOrigins == "" {
		cfg.CORSAllowOrigins = "*"
	}

	return cfg, nil
}

// PoolOptions maps the database settings onto the connector's pool options.
func (c Config) PoolOptions() database.PoolOptions {
	return database.PoolOptions{
		MaxOpenConns:    c.DBMaxOpenConns,
		MaxIdleConns:    c.DBMaxIdleConns,
		ConnMaxLifetime: c.DBConnMaxLifetime,
		Verbose:         c.DBLogQueries,
	}
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	duration, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return duration, nil
}
