package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "galaxy.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"GALAXY_SOURCE", "GALAXY_SOURCE_KIND", "DATA_DIR", "SQLITE_PATH",
		"GALAXY_HTTP_ADDR", "GALAXY_GRPC_ADDR", "GALAXY_DURATION_SECONDS",
		"LOG_LEVEL", "APCA_API_KEY_ID", "APCA_API_SECRET_KEY", "APCA_API_BASE_URL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
source:
  kind: "json"
  location: "https://example.com/market_history.json"
storage:
  data_dir: "/tmp/galaxy/data"
  sqlite_path: "/tmp/galaxy/galaxy.db"
server:
  http_addr: "0.0.0.0:8080"
  grpc_addr: "0.0.0.0:9090"
  shutdown_timeout: 5s
playback:
  duration_seconds: 30
  speed: 2
  tick_interval: 33ms
filters:
  min_energy_percent: 25
  sectors: ["tech", "finance"]
  show_positive: true
  show_neutral: false
  show_negative: true
anchors: ["SPY", "QQQ"]
picker:
  radius_px: 12
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
logging:
  level: "debug"
  format: "text"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	// -- Source / Storage --
	if cfg.Source.Location != "https://example.com/market_history.json" {
		t.Errorf("Source.Location = %q", cfg.Source.Location)
	}
	if cfg.SourceLocation() != cfg.Source.Location {
		t.Errorf("SourceLocation() = %q, want the json location", cfg.SourceLocation())
	}
	if cfg.Storage.DataDir != "/tmp/galaxy/data" {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, "/tmp/galaxy/data")
	}

	// -- Server --
	if cfg.Server.HTTPAddr != "0.0.0.0:8080" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "0.0.0.0:8080")
	}
	if cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("Server.ShutdownTimeout = %v, want 5s", cfg.Server.ShutdownTimeout)
	}
	if cfg.Server.ReloadPerMinute != 6 {
		t.Errorf("Server.ReloadPerMinute = %d, want default 6", cfg.Server.ReloadPerMinute)
	}

	// -- Playback --
	if cfg.Playback.DurationSeconds != 30 || cfg.Playback.Speed != 2 {
		t.Errorf("Playback = %+v, want 30s at 2x", cfg.Playback)
	}
	if cfg.Playback.TickInterval != 33*time.Millisecond {
		t.Errorf("Playback.TickInterval = %v, want 33ms", cfg.Playback.TickInterval)
	}
	if cfg.Playback.TrailLookback != 5 {
		t.Errorf("Playback.TrailLookback = %d, want default 5", cfg.Playback.TrailLookback)
	}

	// -- Filters / Anchors / Picker --
	if cfg.Filters.MinEnergyPercent != 25 || cfg.Filters.ShowNeutral {
		t.Errorf("Filters = %+v", cfg.Filters)
	}
	if len(cfg.Filters.Sectors) != 2 {
		t.Errorf("Filters.Sectors = %v, want 2 entries", cfg.Filters.Sectors)
	}
	if len(cfg.Anchors) != 2 || cfg.Anchors[0] != "SPY" {
		t.Errorf("Anchors = %v", cfg.Anchors)
	}
	if cfg.Picker.RadiusPx != 12 {
		t.Errorf("Picker.RadiusPx = %v, want 12", cfg.Picker.RadiusPx)
	}

	// -- Alpaca / Logging --
	if !cfg.Alpaca.Enabled() {
		t.Error("Alpaca.Enabled() = false, want true")
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Playback.DurationSeconds != 60 {
		t.Errorf("DurationSeconds = %v, want 60", cfg.Playback.DurationSeconds)
	}
	if cfg.Picker.RadiusPx != 20 {
		t.Errorf("RadiusPx = %v, want 20", cfg.Picker.RadiusPx)
	}
	if !cfg.Filters.ShowPositive || !cfg.Filters.ShowNeutral || !cfg.Filters.ShowNegative {
		t.Errorf("Filters = %+v, want every sentiment class shown", cfg.Filters)
	}
	if cfg.Alpaca.Enabled() {
		t.Error("Alpaca.Enabled() = true without credentials")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
alpaca:
  api_key: "yaml-key"
  api_secret: "yaml-secret"
storage:
  data_dir: "/original/data"
  sqlite_path: "/original/galaxy.db"
`)

	t.Setenv("APCA_API_KEY_ID", "env-key")
	t.Setenv("DATA_DIR", "/env/data")
	t.Setenv("GALAXY_SOURCE_KIND", "sqlite")
	t.Setenv("GALAXY_DURATION_SECONDS", "90")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Alpaca.APIKey != "env-key" {
		t.Errorf("Alpaca.APIKey = %q, want %q (env override)", cfg.Alpaca.APIKey, "env-key")
	}
	// api_secret should remain from YAML since no env override was set.
	if cfg.Alpaca.APISecret != "yaml-secret" {
		t.Errorf("Alpaca.APISecret = %q, want %q (from YAML)", cfg.Alpaca.APISecret, "yaml-secret")
	}
	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("Storage.DataDir = %q, want %q (env override)", cfg.Storage.DataDir, "/env/data")
	}
	if cfg.SourceLocation() != "/original/galaxy.db" {
		t.Errorf("SourceLocation() = %q, want the sqlite path", cfg.SourceLocation())
	}
	if cfg.Playback.DurationSeconds != 90 {
		t.Errorf("DurationSeconds = %v, want 90", cfg.Playback.DurationSeconds)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad kind", func(c *Config) { c.Source.Kind = "csv" }},
		{"json without location", func(c *Config) { c.Source.Location = "" }},
		{"zero duration", func(c *Config) { c.Playback.DurationSeconds = 0 }},
		{"negative speed", func(c *Config) { c.Playback.Speed = -1 }},
		{"energy above 100", func(c *Config) { c.Filters.MinEnergyPercent = 101 }},
		{"zero radius", func(c *Config) { c.Picker.RadiusPx = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}

	if err := Defaults().Validate(); err != nil {
		t.Errorf("Defaults().Validate() = %v", err)
	}
}
