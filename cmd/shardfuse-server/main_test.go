package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsned/shardfuse-server/internal/shardfuse/engine"
	"github.com/rsned/shardfuse-server/internal/shardfuse/sync"
	"github.com/rsned/shardfuse-server/internal/shardfuse/testkit"
)

// setupFiles writes the standard documents to a temp dir and points the
// configuration at them through the environment.
func setupFiles(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	catalog := filepath.Join(dir, "shards.json")
	prices := filepath.Join(dir, "prices.json")
	require.NoError(t, os.WriteFile(catalog, testkit.StandardItems(), 0o644))
	require.NoError(t, os.WriteFile(prices, testkit.StandardPrices(), 0o644))

	t.Setenv("SHARDFUSE_CATALOG_FILE", catalog)
	t.Setenv("SHARDFUSE_PRICES_FILE", prices)
	t.Setenv("SHARDFUSE_DB_PATH", filepath.Join(dir, "store", "shardfuse.db"))
	t.Setenv("SHARDFUSE_LOG_LEVEL", "error")
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "missing.toml")}, args...))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestDumpCommand(t *testing.T) {
	dir := setupFiles(t)
	outPath := filepath.Join(dir, "dump.yaml")

	_, err := execute(t, "dump", "--format", "yaml", "--limit", "1", "--out", outPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "items:")
	assert.Contains(t, string(data), "name: Newt")
	assert.Contains(t, string(data), "total_combinations: 19")
}

func TestImportThenStats(t *testing.T) {
	setupFiles(t)

	out, err := execute(t, "import", "--keep", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "items")
	assert.Contains(t, out, "snapshot")

	out, err = execute(t, "stats", "--history", "3", "--price", "SHARD_NEWT")
	require.NoError(t, err)
	assert.Regexp(t, `items\s+11`, out)
	assert.Regexp(t, `targets\s+8`, out)
	assert.Contains(t, out, "catalog_last_sync")
	assert.Contains(t, out, "SNAPSHOT")
	assert.Contains(t, out, "SHARD_NEWT")
}

func TestInvalidConfiguration(t *testing.T) {
	setupFiles(t)
	t.Setenv("SHARDFUSE_LOG_FORMAT", "xml")

	_, err := execute(t, "stats")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log format")
}

func TestRecomputeFromFilesWarnsOnOriginSwitch(t *testing.T) {
	dir := setupFiles(t)
	files := sync.Files{
		Catalog: filepath.Join(dir, "shards.json"),
		Prices:  filepath.Join(dir, "prices.json"),
	}

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	eng := engine.New(engine.Options{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	onChange := recomputeFromFiles(eng, files, sync.OriginStore, logger)
	require.NoError(t, onChange(context.Background()))
	require.NoError(t, onChange(context.Background()))

	assert.Equal(t, 1, bytes.Count(logs.Bytes(), []byte("level=WARN")), logs.String())
	assert.Contains(t, logs.String(), "instead of the store")

	_, err := eng.Snapshot()
	require.NoError(t, err)

	logs.Reset()
	fromFiles := recomputeFromFiles(eng, files, sync.OriginFiles, logger)
	require.NoError(t, fromFiles(context.Background()))
	assert.Empty(t, logs.String())
}
