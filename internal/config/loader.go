package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies NATAL_* environment variable overrides, and
// returns the final Config. An empty path skips the file. The returned Config
// has NOT been validated; the caller should invoke Config.Validate() after
// Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known NATAL_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Chart ──
	setStr(&cfg.Chart.HouseSystem, "NATAL_CHART_HOUSE_SYSTEM")
	setStringSlice(&cfg.Chart.Bodies, "NATAL_CHART_BODIES")
	setBool(&cfg.Chart.MinorAspects, "NATAL_CHART_MINOR_ASPECTS")
	setBool(&cfg.Chart.AspectAngles, "NATAL_CHART_ASPECT_ANGLES")
	setBool(&cfg.Chart.ElementAngles, "NATAL_CHART_ELEMENT_ANGLES")
	setDuration(&cfg.Chart.RetrogradeWindow, "NATAL_CHART_RETROGRADE_WINDOW")
	setBool(&cfg.Chart.FixedObliquity, "NATAL_CHART_FIXED_OBLIQUITY")

	// ── Ephemeris ──
	setStr(&cfg.Ephemeris.Provider, "NATAL_EPHEMERIS_PROVIDER")
	setStr(&cfg.Ephemeris.FixturePath, "NATAL_EPHEMERIS_FIXTURE_PATH")
	setBool(&cfg.Ephemeris.CacheEnabled, "NATAL_EPHEMERIS_CACHE_ENABLED")
	setDuration(&cfg.Ephemeris.CacheTTL, "NATAL_EPHEMERIS_CACHE_TTL")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "NATAL_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "NATAL_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "NATAL_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "NATAL_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "NATAL_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "NATAL_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "NATAL_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "NATAL_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "NATAL_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "NATAL_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "NATAL_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "NATAL_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "NATAL_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "NATAL_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "NATAL_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "NATAL_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "NATAL_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "NATAL_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.Timeout, "NATAL_REDIS_TIMEOUT")
	setDuration(&cfg.Redis.ChartTTL, "NATAL_REDIS_CHART_TTL")
	setInt64(&cfg.Redis.StreamMaxLen, "NATAL_REDIS_STREAM_MAX_LEN")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "NATAL_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "NATAL_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "NATAL_S3_REGION")
	setStr(&cfg.S3.Bucket, "NATAL_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "NATAL_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "NATAL_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "NATAL_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "NATAL_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.ExportPrefix, "NATAL_S3_EXPORT_PREFIX")

	// ── Batch ──
	setInt(&cfg.Batch.Concurrency, "NATAL_BATCH_CONCURRENCY")
	setDuration(&cfg.Batch.Timeout, "NATAL_BATCH_TIMEOUT")
	setDuration(&cfg.Batch.LockTTL, "NATAL_BATCH_LOCK_TTL")
	setStr(&cfg.Batch.InputPath, "NATAL_BATCH_INPUT_PATH")
	setInt(&cfg.Batch.MaxItems, "NATAL_BATCH_MAX_ITEMS")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "NATAL_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "NATAL_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "NATAL_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "NATAL_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "NATAL_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "NATAL_SERVER_RATE_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "NATAL_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "NATAL_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "NATAL_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "NATAL_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "NATAL_MODE")
	setStr(&cfg.LogLevel, "NATAL_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
