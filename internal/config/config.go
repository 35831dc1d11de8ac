// Package config defines the top-level configuration for the natal chart
// service and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/natalchart/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by NATAL_* environment variables.
type Config struct {
	Chart     ChartConfig     `toml:"chart"`
	Ephemeris EphemerisConfig `toml:"ephemeris"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Batch     BatchConfig     `toml:"batch"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// ChartConfig holds the engine defaults applied under every request.
type ChartConfig struct {
	HouseSystem      string             `toml:"house_system"`
	Bodies           []string           `toml:"bodies"`
	MinorAspects     bool               `toml:"minor_aspects"`
	AspectAngles     bool               `toml:"aspect_angles"`
	ElementAngles    bool               `toml:"element_angles"`
	RetrogradeWindow duration           `toml:"retrograde_window"`
	FixedObliquity   bool               `toml:"fixed_obliquity"`
	Orbs             map[string]float64 `toml:"orbs"`
}

// EphemerisConfig selects and tunes the position provider.
type EphemerisConfig struct {
	// Provider is "analytic" or "fixture".
	Provider     string   `toml:"provider"`
	FixturePath  string   `toml:"fixture_path"`
	CacheEnabled bool     `toml:"cache_enabled"`
	CacheTTL     duration `toml:"cache_ttl"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled      bool     `toml:"enabled"`
	Addr         string   `toml:"addr"`
	Password     string   `toml:"password"`
	DB           int      `toml:"db"`
	PoolSize     int      `toml:"pool_size"`
	MaxRetries   int      `toml:"max_retries"`
	TLSEnabled   bool     `toml:"tls_enabled"`
	Timeout      duration `toml:"timeout"`
	ChartTTL     duration `toml:"chart_ttl"`
	StreamMaxLen int64    `toml:"stream_max_len"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	ExportPrefix   string `toml:"export_prefix"`
}

// BatchConfig holds batch computation parameters.
type BatchConfig struct {
	Concurrency int      `toml:"concurrency"`
	Timeout     duration `toml:"timeout"`
	LockTTL     duration `toml:"lock_ttl"`
	// InputPath is the JSONL file of chart requests read in batch mode.
	InputPath string `toml:"input_path"`
	MaxItems  int    `toml:"max_items"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	// RateLimit is requests per RateWindow per client; 0 disables limiting.
	RateLimit  int      `toml:"rate_limit"`
	RateWindow duration `toml:"rate_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Chart: ChartConfig{
			HouseSystem:      "equal",
			RetrogradeWindow: duration{time.Hour},
			Orbs:             map[string]float64{},
		},
		Ephemeris: EphemerisConfig{
			Provider:     "analytic",
			CacheEnabled: false,
			CacheTTL:     duration{24 * time.Hour},
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "natalchart",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:      false,
			Addr:         "localhost:6379",
			DB:           0,
			PoolSize:     20,
			MaxRetries:   3,
			TLSEnabled:   false,
			Timeout:      duration{3 * time.Second},
			ChartTTL:     duration{6 * time.Hour},
			StreamMaxLen: 10000,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "natalchart-data",
			UseSSL:         false,
			ForcePathStyle: true,
			ExportPrefix:   "exports",
		},
		Batch: BatchConfig{
			Concurrency: 8,
			Timeout:     duration{5 * time.Minute},
			LockTTL:     duration{10 * time.Minute},
			MaxItems:    10000,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
			RateWindow:  duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"batch_completed", "batch_failed", "error"},
		},
		Mode:     "server",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server": true,
	"batch":  true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validProviders = map[string]bool{
	"analytic": true,
	"fixture":  true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, batch, full)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Chart
	for _, b := range c.Chart.Bodies {
		if _, err := domain.ParseBody(b); err != nil {
			errs = append(errs, "chart: "+err.Error())
		}
	}
	for name, orb := range c.Chart.Orbs {
		if orb < 0 || orb > 180 {
			errs = append(errs, fmt.Sprintf("chart: orb for %s must be 0-180, got %v", name, orb))
		}
	}
	if c.Chart.RetrogradeWindow.Duration < 0 {
		errs = append(errs, "chart: retrograde_window must not be negative")
	}

	// Ephemeris
	if !validProviders[strings.ToLower(c.Ephemeris.Provider)] {
		errs = append(errs, fmt.Sprintf("ephemeris: unknown provider %q (valid: analytic, fixture)", c.Ephemeris.Provider))
	}
	if strings.EqualFold(c.Ephemeris.Provider, "fixture") && c.Ephemeris.FixturePath == "" {
		errs = append(errs, "ephemeris: fixture_path is required for the fixture provider")
	}
	if c.Ephemeris.CacheEnabled && !c.Redis.Enabled {
		errs = append(errs, "ephemeris: cache_enabled requires redis.enabled")
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
	}

	// Batch
	if c.Batch.Concurrency < 1 {
		errs = append(errs, "batch: concurrency must be >= 1")
	}
	if c.Batch.Timeout.Duration <= 0 {
		errs = append(errs, "batch: timeout must be > 0")
	}
	if c.Batch.MaxItems < 1 {
		errs = append(errs, "batch: max_items must be >= 1")
	}
	if mode == "batch" && c.Batch.InputPath == "" {
		errs = append(errs, "batch: input_path is required for mode batch")
	}

	// Server
	if c.Server.Enabled || mode == "server" || mode == "full" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
		if c.Server.RateLimit > 0 && c.Server.RateWindow.Duration <= 0 {
			errs = append(errs, "server: rate_window must be > 0 when rate_limit is set")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
