package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rsned/shardfuse-server/internal/shardfuse/sync"
)

var (
	fetchOut    string
	fetchImport bool
)

var fetchPricesCmd = &cobra.Command{
	Use:   "fetch-prices",
	Short: "Fetch current shard prices from the bazaar API",
	Long: `Downloads the bazaar, keeps the SHARD_ products and writes them as a price
document. Use --out to write a file and --import to store the result as a new
price snapshot. With neither flag the document is printed to stdout.`,
	RunE: runFetchPrices,
}

func init() {
	fetchPricesCmd.Flags().StringVarP(&fetchOut, "out", "o", "", "Write the price document to this file")
	fetchPricesCmd.Flags().BoolVar(&fetchImport, "import", false, "Store the prices as a new snapshot")
}

func runFetchPrices(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	client := sync.NewBazaarClient(sync.BazaarOptions{
		BaseURL:         cfg.Bazaar.APIURL,
		APIKey:          cfg.Bazaar.APIKey,
		RequestInterval: cfg.RequestInterval(),
		Timeout:         cfg.Timeout(),
		MaxRetries:      cfg.Bazaar.MaxRetries,
	})

	start := time.Now()
	doc, data, err := client.FetchPrices(ctx)
	if err != nil {
		return err
	}
	logger.Info("fetched bazaar prices", "prices", len(doc.Prices), "duration", time.Since(start))

	if fetchOut != "" {
		if dir := filepath.Dir(fetchOut); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating output directory: %w", err)
			}
		}
		if err := os.WriteFile(fetchOut, data, 0o644); err != nil {
			return fmt.Errorf("writing price document: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s prices (%s) to %s\n",
			humanize.Comma(int64(len(doc.Prices))), humanize.Bytes(uint64(len(data))), fetchOut)
	}

	if fetchImport {
		database, syncer, err := openStore(ctx)
		if err != nil {
			return err
		}
		if database == nil {
			return fmt.Errorf("--import requires a database path")
		}
		defer func() { _ = database.Close() }()

		r, err := syncer.ImportPrices(ctx, data, cfg.Bazaar.APIURL)
		if err != nil {
			return fmt.Errorf("importing prices: %w", err)
		}
		if _, err := syncer.PruneSnapshots(ctx, cfg.Data.KeepSnapshots); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "stored snapshot %s\n", r.SnapshotID)
	}

	if fetchOut == "" && !fetchImport {
		_, err := cmd.OutOrStdout().Write(append(data, '\n'))
		return err
	}
	return nil
}
