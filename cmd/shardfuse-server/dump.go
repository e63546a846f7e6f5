package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rsned/shardfuse-server/internal/shardfuse/export"
)

var (
	dumpFormat string
	dumpLimit  int
	dumpOut    string
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Compute a snapshot and write the processed data",
	Long: `Writes the per-item views, grouping indexes, requirement index and
summary statistics of a freshly computed snapshot as JSON or YAML.`,
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().StringVarP(&dumpFormat, "format", "f", "json", "Output format: json or yaml")
	dumpCmd.Flags().IntVar(&dumpLimit, "limit", 0, "Max combinations and contributions per item (0 = all)")
	dumpCmd.Flags().StringVarP(&dumpOut, "out", "o", "", "Output file (default stdout)")
}

func runDump(cmd *cobra.Command, args []string) (err error) {
	format, err := export.ParseFormat(dumpFormat)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	snap, err := computeSnapshot(ctx)
	if err != nil {
		return err
	}
	d, err := export.Build(snap, dumpLimit)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if dumpOut != "" {
		f, err := os.Create(dumpOut)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		bw := bufio.NewWriter(f)
		defer func() {
			if ferr := bw.Flush(); ferr != nil && err == nil {
				err = ferr
			}
		}()
		w = bw
	}

	return export.Write(w, d, format)
}
