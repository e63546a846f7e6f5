package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/rsned/shardfuse-server/internal/shardfuse/db"
)

var (
	statsHistory int
	statsPrice   string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print snapshot statistics and stored price history",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsHistory, "history", 5, "Number of stored price snapshots to list")
	statsCmd.Flags().StringVar(&statsPrice, "price", "", "Show the stored history of one price key, e.g. SHARD_NEWT")
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	snap, err := computeSnapshot(ctx)
	if err != nil {
		return err
	}
	st := snap.Stats()

	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "items\t%s\n", humanize.Comma(int64(st.Items)))
	fmt.Fprintf(tw, "targets\t%s\n", humanize.Comma(int64(st.Targets)))
	fmt.Fprintf(tw, "combinations\t%s\n", humanize.Comma(int64(st.Combinations)))
	fmt.Fprintf(tw, "requirements\t%s\n", humanize.Comma(int64(st.Requirements)))
	fmt.Fprintf(tw, "total cost to max\t%s\n", humanize.Commaf(st.TotalCostToMax))
	fmt.Fprintf(tw, "prices as of\t%s\n", humanize.Time(time.UnixMilli(st.PriceTimestamp)))
	if err := tw.Flush(); err != nil {
		return err
	}

	if cfg.Data.DBPath == "" {
		return nil
	}
	database, syncer, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	status, err := syncer.Status(ctx)
	if err != nil {
		return err
	}
	if len(status) > 0 {
		fmt.Fprintln(out)
		for _, k := range []string{"catalog_last_sync", "prices_last_sync", "cost_to_max_last_sync"} {
			if v, ok := status[k]; ok {
				fmt.Fprintf(out, "%s: %s\n", k, v)
			}
		}
	}

	prices := db.NewPriceStore(database)
	if statsHistory > 0 {
		snaps, err := prices.ListSnapshots(ctx, statsHistory)
		if err != nil {
			return err
		}
		if len(snaps) > 0 {
			fmt.Fprintln(out)
			tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SNAPSHOT\tPRICES\tAS OF\tIMPORTED\tSOURCE")
			for _, s := range snaps {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.ID, humanize.Comma(int64(s.Prices)),
					humanize.Time(time.UnixMilli(s.Timestamp)), humanize.Time(s.ImportedAt), s.Source)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
		}
	}

	if statsPrice != "" {
		points, err := prices.PriceHistory(ctx, statsPrice, statsHistory)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%s\n", statsPrice)
		if len(points) == 0 {
			fmt.Fprintln(out, "  no stored prices")
		}
		for _, p := range points {
			fmt.Fprintf(out, "  %s  %s\n", humanize.Time(time.UnixMilli(p.Timestamp)), humanize.Commaf(p.Price))
		}
	}
	return nil
}
