package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rsned/shardfuse-server/internal/shardfuse/engine"
	"github.com/rsned/shardfuse-server/internal/shardfuse/mcp"
	"github.com/rsned/shardfuse-server/internal/shardfuse/sync"
)

var (
	serveWatch     bool
	serveFilesOnly bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Compute a snapshot and serve it over MCP (stdio)",
	Long: `Computes the snapshot from the latest stored inputs, or from the configured
files when the store is empty, then serves MCP tools on stdin/stdout.

With --watch the configured input files are watched and every change triggers
a full recompute from the files. Queries keep seeing the previous snapshot
until the new one is complete.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Recompute when input files change")
	serveCmd.Flags().BoolVar(&serveFilesOnly, "files-only", false, "Ignore the store and compute from files")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	var syncer *sync.Syncer
	if !serveFilesOnly {
		database, s, err := openStore(ctx)
		if err != nil {
			return err
		}
		if database != nil {
			defer func() { _ = database.Close() }()
		}
		syncer = s
	}

	eng := engine.New(engineOptions(), logger)

	files := inputFiles()
	in, origin, err := sync.LoadInputs(ctx, syncer, files)
	if err != nil {
		return err
	}
	if _, err := eng.Recompute(ctx, in); err != nil {
		return fmt.Errorf("computing initial snapshot: %w", err)
	}
	logger.Info("initial snapshot ready", "origin", origin)

	eg, egCtx := errgroup.WithContext(ctx)

	if serveWatch || cfg.Watch.Enabled {
		watcher, err := sync.NewWatcher(files.Paths(), cfg.Debounce(), recomputeFromFiles(eng, files, origin, logger), logger)
		if err != nil {
			return err
		}
		eg.Go(func() error { return watcher.Run(egCtx) })
	}

	server := mcp.NewServer(eng, logger)
	eg.Go(func() error {
		// The client closing stdin ends the session; stop the watcher too.
		defer cancel()
		return server.Run(egCtx)
	})

	if err := eg.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// recomputeFromFiles returns the watch callback. The first recompute after
// starting from stored inputs switches the served snapshot to the files.
func recomputeFromFiles(eng *engine.Engine, files sync.Files, origin string, logger *slog.Logger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		in, err := sync.ReadFiles(files)
		if err != nil {
			return err
		}
		if _, err := eng.Recompute(ctx, in); err != nil {
			return err
		}
		if origin == sync.OriginStore {
			logger.Warn("input files changed; now serving a snapshot computed from files instead of the store",
				"catalog", files.Catalog, "prices", files.Prices)
			origin = sync.OriginFiles
		}
		return nil
	}
}
