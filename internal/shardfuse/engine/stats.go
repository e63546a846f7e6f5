package engine

import (
	"context"
	"time"

	"github.com/rsned/shardfuse-server/pkg/shardfuse"
)

// Stats summarizes the current snapshot.
func (e *Engine) Stats(ctx context.Context) (*shardfuse.CatalogStats, error) {
	snap, err := e.Snapshot()
	if err != nil {
		return nil, err
	}
	stats := snap.Stats()
	return &stats, nil
}

// Stats returns the counts and totals of the snapshot.
func (s *Snapshot) Stats() shardfuse.CatalogStats {
	return shardfuse.CatalogStats{
		Items:          s.Catalog.Len(),
		Targets:        len(s.Valuation.Targets()),
		Combinations:   s.Valuation.Total(),
		Requirements:   len(s.Requirements),
		TotalCostToMax: s.TotalCostToMax,
		PriceTimestamp: s.Catalog.PriceTimestamp(),
		ComputedAt:     s.ComputedAt.Format(time.RFC3339),
	}
}
