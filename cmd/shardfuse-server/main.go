// Shard fusion valuation MCP server
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rsned/shardfuse-server/internal/shardfuse/config"
	"github.com/rsned/shardfuse-server/internal/shardfuse/db"
	"github.com/rsned/shardfuse-server/internal/shardfuse/engine"
	"github.com/rsned/shardfuse-server/internal/shardfuse/sync"
)

var (
	// Global flags
	configPath string
	dbPath     string
	verbose    bool

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "shardfuse-server",
	Short: "Shard fusion valuation engine and MCP server",
	Long: `shardfuse-server loads shard rules and bazaar prices, derives every way each
shard can be fused, ranks the combinations by price per unit and serves the
results to MCP clients over stdio.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			var err error
			if path, err = config.DefaultPath(); err != nil {
				return err
			}
		}

		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}
		if dbPath != "" {
			cfg.Data.DBPath = dbPath
		}
		if verbose {
			cfg.Log.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		logger = newLogger(cfg)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default ~/.shardfuse/config.toml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to SQLite database (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(fetchPricesCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger writes to stderr; stdout carries the MCP protocol.
func newLogger(c *config.Config) *slog.Logger {
	level, _ := c.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

func inputFiles() sync.Files {
	return sync.Files{
		Catalog:   cfg.Data.CatalogFile,
		Prices:    cfg.Data.PricesFile,
		CostToMax: cfg.Data.CostToMaxFile,
	}
}

func engineOptions() engine.Options {
	return engine.Options{
		ChameleonID: cfg.Engine.ChameleonID,
		Workers:     cfg.Engine.Workers,
	}
}

// openStore opens the configured database, or returns nil if none is set.
func openStore(ctx context.Context) (*db.DB, *sync.Syncer, error) {
	if cfg.Data.DBPath == "" {
		return nil, nil, nil
	}
	database, err := db.OpenAndInit(ctx, cfg.Data.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	return database, sync.NewSyncer(database, logger), nil
}

// computeSnapshot builds a snapshot from the store or the configured files.
func computeSnapshot(ctx context.Context) (*engine.Snapshot, error) {
	database, syncer, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	if database != nil {
		defer func() { _ = database.Close() }()
	}

	in, origin, err := sync.LoadInputs(ctx, syncer, inputFiles())
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded inputs", "origin", origin)

	return engine.Compute(ctx, in, engineOptions())
}
