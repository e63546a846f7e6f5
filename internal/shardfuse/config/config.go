// Package config loads server settings from a TOML file with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the server configuration.
type Config struct {
	Data   DataConfig   `toml:"data"`
	Engine EngineConfig `toml:"engine"`
	Bazaar BazaarConfig `toml:"bazaar"`
	Watch  WatchConfig  `toml:"watch"`
	Log    LogConfig    `toml:"log"`
}

// DataConfig locates the input documents and the store.
type DataConfig struct {
	DBPath        string `toml:"db_path" env:"SHARDFUSE_DB_PATH"`
	CatalogFile   string `toml:"catalog_file" env:"SHARDFUSE_CATALOG_FILE"`
	PricesFile    string `toml:"prices_file" env:"SHARDFUSE_PRICES_FILE"`
	CostToMaxFile string `toml:"cost_to_max_file" env:"SHARDFUSE_COST_TO_MAX_FILE"` // optional
	KeepSnapshots int    `toml:"keep_snapshots" env:"SHARDFUSE_KEEP_SNAPSHOTS"`     // 0 = keep all
}

// EngineConfig tunes the pipeline.
type EngineConfig struct {
	ChameleonID string `toml:"chameleon_id" env:"SHARDFUSE_CHAMELEON_ID"`
	Workers     int    `toml:"workers" env:"SHARDFUSE_WORKERS"` // 0 = GOMAXPROCS
}

// BazaarConfig configures price fetching.
type BazaarConfig struct {
	APIURL          string `toml:"api_url" env:"HYPIXEL_API_URL"`
	APIKey          string `toml:"api_key" env:"HYPIXEL_API_KEY"`
	RequestInterval string `toml:"request_interval"` // e.g. "500ms"
	Timeout         string `toml:"timeout"`
	MaxRetries      int    `toml:"max_retries"`
}

// WatchConfig controls recompute on input change.
type WatchConfig struct {
	Enabled  bool   `toml:"enabled" env:"SHARDFUSE_WATCH"`
	Debounce string `toml:"debounce"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `toml:"level" env:"SHARDFUSE_LOG_LEVEL"`   // debug, info, warn, error
	Format string `toml:"format" env:"SHARDFUSE_LOG_FORMAT"` // text or json
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			DBPath:        "shardfuse.db",
			CatalogFile:   "data/shards.json",
			PricesFile:    "data/prices.json",
			KeepSnapshots: 50,
		},
		Engine: EngineConfig{
			ChameleonID: "L4",
		},
		Bazaar: BazaarConfig{
			APIURL:          "https://api.hypixel.net/v2",
			RequestInterval: "1s",
			Timeout:         "30s",
			MaxRetries:      3,
		},
		Watch: WatchConfig{
			Debounce: "500ms",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultPath returns ~/.shardfuse/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".shardfuse", "config.toml"), nil
}

// Load reads the configuration at path on top of the defaults and then
// applies environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config file: %w", err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields whose environment variable is set.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if c.Data.CatalogFile == "" && c.Data.DBPath == "" {
		return errors.New("either data.catalog_file or data.db_path must be set")
	}
	if c.Data.KeepSnapshots < 0 {
		return fmt.Errorf("keep snapshots cannot be negative: %d", c.Data.KeepSnapshots)
	}
	if c.Engine.Workers < 0 {
		return fmt.Errorf("workers cannot be negative: %d", c.Engine.Workers)
	}
	if c.Bazaar.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative: %d", c.Bazaar.MaxRetries)
	}

	durations := []struct{ name, value string }{
		{"bazaar.request_interval", c.Bazaar.RequestInterval},
		{"bazaar.timeout", c.Bazaar.Timeout},
		{"watch.debounce", c.Watch.Debounce},
	}
	for _, d := range durations {
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.name, d.value, err)
		}
	}

	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: must be text or json", c.Log.Format)
	}
	return nil
}

// RequestInterval returns the minimum spacing of bazaar requests.
func (c *Config) RequestInterval() time.Duration {
	d, _ := time.ParseDuration(c.Bazaar.RequestInterval)
	return d
}

// Timeout returns the bazaar HTTP timeout.
func (c *Config) Timeout() time.Duration {
	d, _ := time.ParseDuration(c.Bazaar.Timeout)
	return d
}

// Debounce returns the watch debounce delay.
func (c *Config) Debounce() time.Duration {
	d, _ := time.ParseDuration(c.Watch.Debounce)
	return d
}

// SlogLevel parses the configured log level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.Log.Level))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	return level, nil
}
