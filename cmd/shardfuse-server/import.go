package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rsned/shardfuse-server/internal/shardfuse/sync"
)

var (
	importCatalog   string
	importPrices    string
	importCostToMax string
	importKeep      int
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Validate input documents and store them in the database",
	Long: `Imports the item-rule document, a price snapshot and the optional
cost-to-max table. Without flags the files named in the configuration are
imported. Every import is validated first; an invalid document leaves the
store unchanged.`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importCatalog, "catalog", "", "Item-rule document to import")
	importCmd.Flags().StringVar(&importPrices, "prices", "", "Price document to import as a new snapshot")
	importCmd.Flags().StringVar(&importCostToMax, "cost-to-max", "", "Cost-to-max table to import")
	importCmd.Flags().IntVar(&importKeep, "keep", -1, "Price snapshots to keep after import (default from config)")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	files := sync.Files{Catalog: importCatalog, Prices: importPrices, CostToMax: importCostToMax}
	if files == (sync.Files{}) {
		files = inputFiles()
	}

	database, syncer, err := openStore(ctx)
	if err != nil {
		return err
	}
	if database == nil {
		return fmt.Errorf("import requires a database path")
	}
	defer func() { _ = database.Close() }()

	var results []*sync.ImportResult
	if files.Catalog != "" {
		r, err := syncer.ImportCatalogFromFile(ctx, files.Catalog)
		if err != nil {
			return fmt.Errorf("importing catalog: %w", err)
		}
		results = append(results, r)
	}
	if files.CostToMax != "" {
		r, err := syncer.ImportCostToMaxFromFile(ctx, files.CostToMax)
		if err != nil {
			return fmt.Errorf("importing cost-to-max table: %w", err)
		}
		results = append(results, r)
	}
	if files.Prices != "" {
		r, err := syncer.ImportPricesFromFile(ctx, files.Prices)
		if err != nil {
			return fmt.Errorf("importing prices: %w", err)
		}
		results = append(results, r)
	}

	keep := importKeep
	if keep < 0 {
		keep = cfg.Data.KeepSnapshots
	}
	removed, err := syncer.PruneSnapshots(ctx, keep)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, r := range results {
		switch {
		case r.SnapshotID != "":
			fmt.Fprintf(out, "%-12s %s: %d prices, snapshot %s\n", r.Kind, r.Source, r.Prices, r.SnapshotID)
		case r.Changed:
			fmt.Fprintf(out, "%-12s %s: %d entries, updated\n", r.Kind, r.Source, r.Items)
		default:
			fmt.Fprintf(out, "%-12s %s: unchanged\n", r.Kind, r.Source)
		}
	}
	if removed > 0 {
		fmt.Fprintf(out, "pruned %d old price snapshots\n", removed)
	}
	return nil
}
