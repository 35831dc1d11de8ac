package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleTOML = `
mode = "full"
log_level = "debug"

[chart]
house_system = "whole-sign"
bodies = ["Sun", "Moon", "north_node"]
minor_aspects = true
retrograde_window = "30m"

[chart.orbs]
trine = 6.5

[batch]
concurrency = 4
timeout = "90s"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleTOML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "full" || cfg.LogLevel != "debug" {
		t.Fatalf("top-level: got mode=%q level=%q", cfg.Mode, cfg.LogLevel)
	}
	if cfg.Chart.HouseSystem != "whole-sign" || !cfg.Chart.MinorAspects {
		t.Fatalf("chart: got %+v", cfg.Chart)
	}
	if cfg.Chart.RetrogradeWindow.Duration != 30*time.Minute {
		t.Fatalf("retrograde_window: want=30m got=%s", cfg.Chart.RetrogradeWindow.Duration)
	}
	if cfg.Chart.Orbs["trine"] != 6.5 {
		t.Fatalf("orbs: got %v", cfg.Chart.Orbs)
	}
	if cfg.Batch.Concurrency != 4 || cfg.Batch.Timeout.Duration != 90*time.Second {
		t.Fatalf("batch: got %+v", cfg.Batch)
	}
	// Untouched sections keep their defaults.
	if cfg.Server.Port != 8000 || cfg.Ephemeris.Provider != "analytic" {
		t.Fatalf("defaults lost: port=%d provider=%q", cfg.Server.Port, cfg.Ephemeris.Provider)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("NATAL_MODE", "batch")
	t.Setenv("NATAL_BATCH_INPUT_PATH", "/data/requests.jsonl")
	t.Setenv("NATAL_SERVER_PORT", "9100")
	t.Setenv("NATAL_SERVER_CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("NATAL_REDIS_ENABLED", "true")
	t.Setenv("NATAL_REDIS_CHART_TTL", "2h")
	t.Setenv("NATAL_POSTGRES_POOL_MAX_CONNS", "not-a-number")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "batch" || cfg.Batch.InputPath != "/data/requests.jsonl" {
		t.Fatalf("mode/input: got %q %q", cfg.Mode, cfg.Batch.InputPath)
	}
	if cfg.Server.Port != 9100 {
		t.Fatalf("port: want=9100 got=%d", cfg.Server.Port)
	}
	if got := strings.Join(cfg.Server.CORSOrigins, "|"); got != "https://a.example|https://b.example" {
		t.Fatalf("cors: got %q", got)
	}
	if !cfg.Redis.Enabled || cfg.Redis.ChartTTL.Duration != 2*time.Hour {
		t.Fatalf("redis: got %+v", cfg.Redis)
	}
	if cfg.Postgres.PoolMaxConns != 10 {
		t.Fatalf("unparsable override should be ignored, got %d", cfg.Postgres.PoolMaxConns)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadBadFile(t *testing.T) {
	if _, err := Load(writeConfig(t, "mode = [")); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	cfg.LogLevel = "loud"
	cfg.Chart.Bodies = []string{"Vulcan"}
	cfg.Chart.Orbs = map[string]float64{"trine": -1}
	cfg.Ephemeris.Provider = "fixture"
	cfg.Ephemeris.CacheEnabled = true
	cfg.Batch.Concurrency = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{
		`unknown mode "trade"`,
		`unknown log_level "loud"`,
		`unknown body "Vulcan"`,
		"orb for trine",
		"fixture_path is required",
		"cache_enabled requires redis.enabled",
		"concurrency must be >= 1",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("validation error missing %q:\n%s", want, msg)
		}
	}
}

func TestValidateBackends(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Enabled = true
	cfg.Postgres.PoolMinConns = 20
	cfg.S3.Enabled = true
	cfg.S3.Bucket = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"pool_min_conns must not exceed", "s3: bucket must not be empty"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("missing %q in %v", want, err)
		}
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Password = "hunter2"
	cfg.Server.APIKey = "key"
	cfg.Notify.DiscordWebhookURL = "https://discord.example/hook"
	cfg.Chart.Orbs["trine"] = 7

	out := RedactedConfig(&cfg)
	if out.Postgres.Password != redacted || out.Server.APIKey != redacted || out.Notify.DiscordWebhookURL != redacted {
		t.Fatalf("secrets not redacted: %+v", out)
	}
	if out.Redis.Password != "" {
		t.Fatal("empty secrets should stay empty")
	}
	if cfg.Postgres.Password != "hunter2" {
		t.Fatal("original config was modified")
	}
	out.Chart.Orbs["trine"] = 1
	out.Server.CORSOrigins[0] = "changed"
	if cfg.Chart.Orbs["trine"] != 7 || cfg.Server.CORSOrigins[0] == "changed" {
		t.Fatal("redacted copy shares maps or slices with the original")
	}
}
