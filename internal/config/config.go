package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when GALAXY_CONFIG is unset.
const DefaultPath = "config/galaxy.yaml"

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the galaxy services.
type Config struct {
	Source   Source   `yaml:"source"`
	Storage  Storage  `yaml:"storage"`
	Server   Server   `yaml:"server"`
	Playback Playback `yaml:"playback"`
	Filters  Filters  `yaml:"filters"`
	Anchors  []string `yaml:"anchors"`
	Camera   Camera   `yaml:"camera"`
	Picker   Picker   `yaml:"picker"`
	Alpaca   Alpaca   `yaml:"alpaca"`
	Logging  Logging  `yaml:"logging"`
}

// Source selects where raw samples come from. Kind is json, parquet or
// sqlite; Location is a file path or URL for json and is ignored for the
// others, which read Storage.
type Source struct {
	Kind     string `yaml:"kind"`
	Location string `yaml:"location"`
	Attempts int    `yaml:"attempts"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds network listener configuration.
type Server struct {
	HTTPAddr        string        `yaml:"http_addr"`
	GRPCAddr        string        `yaml:"grpc_addr"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	ReloadPerMinute int           `yaml:"reload_per_minute"`
}

// Playback configures the timeline animator.
type Playback struct {
	DurationSeconds float64       `yaml:"duration_seconds"`
	Speed           float64       `yaml:"speed"`
	TickInterval    time.Duration `yaml:"tick_interval"`
	TrailLookback   int           `yaml:"trail_lookback"`
}

// Filters are the initial view filters of new sessions.
type Filters struct {
	MinEnergyPercent float64  `yaml:"min_energy_percent"`
	Sectors          []string `yaml:"sectors"`
	ShowPositive     bool     `yaml:"show_positive"`
	ShowNeutral      bool     `yaml:"show_neutral"`
	ShowNegative     bool     `yaml:"show_negative"`
}

// Camera is the default viewport used for camera fits.
type Camera struct {
	ViewportW float64 `yaml:"viewport_w"`
	ViewportH float64 `yaml:"viewport_h"`
}

// Picker configures hit testing.
type Picker struct {
	RadiusPx float64 `yaml:"radius_px"`
}

// Alpaca holds credentials for the optional remote watchlist.
type Alpaca struct {
	APIKey      string `yaml:"api_key"`
	APISecret   string `yaml:"api_secret"`
	BaseURL     string `yaml:"base_url"`
	WatchlistID string `yaml:"watchlist_id"`
}

// Enabled reports whether credentials are present.
func (a Alpaca) Enabled() bool { return a.APIKey != "" && a.APISecret != "" }

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Defaults returns the configuration used for every field the YAML file
// leaves unset.
func Defaults() *Config {
	return &Config{
		Source: Source{Kind: "json", Location: "data/market_history.json", Attempts: 3},
		Storage: Storage{
			DataDir:    "data",
			SQLitePath: "data/galaxy.db",
		},
		Server: Server{
			HTTPAddr:        ":8080",
			GRPCAddr:        ":9090",
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: 10 * time.Second,
			ReloadPerMinute: 6,
		},
		Playback: Playback{
			DurationSeconds: 60,
			Speed:           1,
			TickInterval:    16 * time.Millisecond,
			TrailLookback:   5,
		},
		Filters: Filters{ShowPositive: true, ShowNeutral: true, ShowNegative: true},
		Camera:  Camera{ViewportW: 1280, ViewportH: 800},
		Picker:  Picker{RadiusPx: 20},
		Logging: Logging{Level: "info", Format: "json"},
	}
}

// Path returns the config file location: GALAXY_CONFIG or DefaultPath.
func Path() string {
	if v := os.Getenv("GALAXY_CONFIG"); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads the YAML configuration file at the given path over Defaults,
// then applies .env and environment variable overrides. A missing file is
// not an error; the defaults and environment are used alone.
func Load(path string) (*Config, error) {
	// .env is optional.
	_ = godotenv.Load()

	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges that would otherwise surface as confusing runtime
// behaviour.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case "json", "parquet", "sqlite":
	default:
		return fmt.Errorf("source.kind %q: want json, parquet or sqlite", c.Source.Kind)
	}
	if c.Source.Kind == "json" && c.Source.Location == "" {
		return errors.New("source.location is required for json sources")
	}
	if c.Playback.DurationSeconds <= 0 {
		return fmt.Errorf("playback.duration_seconds must be positive, got %v", c.Playback.DurationSeconds)
	}
	if c.Playback.Speed <= 0 {
		return fmt.Errorf("playback.speed must be positive, got %v", c.Playback.Speed)
	}
	if c.Filters.MinEnergyPercent < 0 || c.Filters.MinEnergyPercent > 100 {
		return fmt.Errorf("filters.min_energy_percent must be within [0, 100], got %v", c.Filters.MinEnergyPercent)
	}
	if c.Picker.RadiusPx <= 0 {
		return fmt.Errorf("picker.radius_px must be positive, got %v", c.Picker.RadiusPx)
	}
	return nil
}

// SourceLocation is where the configured source reads from.
func (c *Config) SourceLocation() string {
	switch c.Source.Kind {
	case "parquet":
		return c.Storage.DataDir
	case "sqlite":
		return c.Storage.SQLitePath
	default:
		return c.Source.Location
	}
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GALAXY_SOURCE"); v != "" {
		cfg.Source.Location = v
	}
	if v := os.Getenv("GALAXY_SOURCE_KIND"); v != "" {
		cfg.Source.Kind = v
	}

	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("GALAXY_HTTP_ADDR"); v != "" {
		cfg.Server.HTTPAddr = v
	}
	if v := os.Getenv("GALAXY_GRPC_ADDR"); v != "" {
		cfg.Server.GRPCAddr = v
	}

	if v := os.Getenv("GALAXY_DURATION_SECONDS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Playback.DurationSeconds = f
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (canonical names used by the SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("APCA_API_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}
}
