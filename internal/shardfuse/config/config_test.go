package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsned/shardfuse-server/internal/shardfuse/config"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := config.DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, time.Second, cfg.RequestInterval())
	assert.Equal(t, 500*time.Millisecond, cfg.Debounce())

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)
}

func TestLoadKeepsDefaultsForUnsetKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[data]
catalog_file = "/srv/shards.json"

[engine]
workers = 4

[log]
level = "debug"
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/srv/shards.json", cfg.Data.CatalogFile)
	assert.Equal(t, "data/prices.json", cfg.Data.PricesFile)
	assert.Equal(t, 4, cfg.Engine.Workers)
	assert.Equal(t, "L4", cfg.Engine.ChameleonID)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[engine]\nworkers = 4\n"), 0o644))

	t.Setenv("SHARDFUSE_WORKERS", "8")
	t.Setenv("SHARDFUSE_DB_PATH", "/tmp/fuse.db")
	t.Setenv("HYPIXEL_API_KEY", "secret")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Engine.Workers)
	assert.Equal(t, "/tmp/fuse.db", cfg.Data.DBPath)
	assert.Equal(t, "secret", cfg.Bazaar.APIKey)
	assert.Equal(t, "data/shards.json", cfg.Data.CatalogFile)
}

func TestLoadRejectsBadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[engine\nworkers = "), 0o644))
	_, err := config.Load(path)
	assert.ErrorContains(t, err, "parse config file")

	t.Setenv("SHARDFUSE_WORKERS", "many")
	_, err = config.Load("")
	assert.ErrorContains(t, err, "parse env")
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := config.DefaultConfig()
	cfg.Data.CostToMaxFile = "cost.json"
	cfg.Watch.Enabled = true
	require.NoError(t, cfg.Save(path))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
		errMsg string
	}{
		{"negative workers", func(c *config.Config) { c.Engine.Workers = -1 }, "workers"},
		{"negative keep", func(c *config.Config) { c.Data.KeepSnapshots = -2 }, "keep snapshots"},
		{"negative retries", func(c *config.Config) { c.Bazaar.MaxRetries = -1 }, "max retries"},
		{"bad interval", func(c *config.Config) { c.Bazaar.RequestInterval = "soon" }, "bazaar.request_interval"},
		{"bad debounce", func(c *config.Config) { c.Watch.Debounce = "" }, "watch.debounce"},
		{"bad level", func(c *config.Config) { c.Log.Level = "loud" }, "log level"},
		{"bad format", func(c *config.Config) { c.Log.Format = "xml" }, "log format"},
		{"no inputs", func(c *config.Config) { c.Data.CatalogFile, c.Data.DBPath = "", "" }, "must be set"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.modify(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.errMsg)
		})
	}
}
