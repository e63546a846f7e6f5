// Package sync imports input documents into the store, fetches prices from
// the bazaar and watches input files for changes.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/rsned/shardfuse-server/internal/shardfuse/catalog"
	"github.com/rsned/shardfuse-server/internal/shardfuse/db"
	"github.com/rsned/shardfuse-server/internal/shardfuse/engine"
	"github.com/rsned/shardfuse-server/pkg/shardfuse"
)

// Sync metadata keys.
const (
	metaCatalogSync   = "catalog_last_sync"
	metaCatalogItems  = "catalog_items"
	metaPricesSync    = "prices_last_sync"
	metaPricesCount   = "prices_count"
	metaPricesLatest  = "prices_snapshot"
	metaCostToMaxSync = "cost_to_max_last_sync"
)

// Syncer imports validated documents into the store.
type Syncer struct {
	db     *db.DB
	docs   *db.DocumentStore
	prices *db.PriceStore
	logger *slog.Logger
}

// NewSyncer creates a new Syncer.
func NewSyncer(database *db.DB, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Syncer{
		db:     database,
		docs:   db.NewDocumentStore(database),
		prices: db.NewPriceStore(database),
		logger: logger,
	}
}

// ImportResult summarizes one import.
type ImportResult struct {
	Kind       string
	Source     string
	Changed    bool
	Items      int
	Prices     int
	SnapshotID string
}

// ImportCatalogFromFile imports an item-rule document from a JSON file.
func (s *Syncer) ImportCatalogFromFile(ctx context.Context, path string) (*ImportResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return s.ImportCatalog(ctx, data, path)
}

// ImportCatalog validates an item-rule document and stores it as the
// current catalog. Prices are not required at this point.
func (s *Syncer) ImportCatalog(ctx context.Context, data []byte, source string) (*ImportResult, error) {
	doc, err := catalog.ParseItemDocument(data)
	if err != nil {
		return nil, fmt.Errorf("validating catalog: %w", err)
	}
	cat, err := catalog.Build(doc, shardfuse.PriceDocument{}, doc.CostToMax)
	if err != nil {
		return nil, fmt.Errorf("validating catalog: %w", err)
	}

	changed, err := s.docs.Put(ctx, db.DocumentItems, data, source)
	if err != nil {
		return nil, fmt.Errorf("storing catalog: %w", err)
	}

	if err := s.setMetadata(ctx,
		metaCatalogSync, now(),
		metaCatalogItems, strconv.Itoa(cat.Len()),
	); err != nil {
		return nil, err
	}

	s.logger.Info("imported catalog", "source", source, "items", cat.Len(), "changed", changed)
	return &ImportResult{Kind: string(db.DocumentItems), Source: source, Changed: changed, Items: cat.Len()}, nil
}

// ImportPricesFromFile imports a price document from a JSON file.
func (s *Syncer) ImportPricesFromFile(ctx context.Context, path string) (*ImportResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return s.ImportPrices(ctx, data, path)
}

// ImportPrices validates a price document and stores it as a new snapshot.
func (s *Syncer) ImportPrices(ctx context.Context, data []byte, source string) (*ImportResult, error) {
	doc, err := catalog.ParsePriceDocument(data)
	if err != nil {
		return nil, fmt.Errorf("validating prices: %w", err)
	}

	id, err := s.prices.ImportSnapshot(ctx, doc.Timestamp, doc.Prices, data, source)
	if err != nil {
		return nil, fmt.Errorf("storing prices: %w", err)
	}

	if err := s.setMetadata(ctx,
		metaPricesSync, now(),
		metaPricesCount, strconv.Itoa(len(doc.Prices)),
		metaPricesLatest, id,
	); err != nil {
		return nil, err
	}

	s.logger.Info("imported prices", "source", source, "prices", len(doc.Prices), "snapshot", id)
	return &ImportResult{Kind: "prices", Source: source, Changed: true, Prices: len(doc.Prices), SnapshotID: id}, nil
}

// ImportCostToMaxFromFile imports a cost-to-max table from a JSON file.
func (s *Syncer) ImportCostToMaxFromFile(ctx context.Context, path string) (*ImportResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return s.ImportCostToMax(ctx, data, path)
}

// ImportCostToMax validates a cost-to-max table and stores it. A stored table
// overrides the one in the item-rule document.
func (s *Syncer) ImportCostToMax(ctx context.Context, data []byte, source string) (*ImportResult, error) {
	table, err := catalog.ParseCostToMax(data)
	if err != nil {
		return nil, fmt.Errorf("validating cost-to-max table: %w", err)
	}

	changed, err := s.docs.Put(ctx, db.DocumentCostToMax, data, source)
	if err != nil {
		return nil, fmt.Errorf("storing cost-to-max table: %w", err)
	}
	if err := s.setMetadata(ctx, metaCostToMaxSync, now()); err != nil {
		return nil, err
	}

	s.logger.Info("imported cost-to-max table", "source", source, "rarities", len(table), "changed", changed)
	return &ImportResult{Kind: string(db.DocumentCostToMax), Source: source, Changed: changed, Items: len(table)}, nil
}

// PruneSnapshots keeps the newest keep price snapshots. keep == 0 is a no-op.
func (s *Syncer) PruneSnapshots(ctx context.Context, keep int) (int, error) {
	if keep == 0 {
		return 0, nil
	}
	removed, err := s.prices.PruneSnapshots(ctx, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning price snapshots: %w", err)
	}
	if removed > 0 {
		s.logger.Info("pruned price snapshots", "removed", removed, "kept", keep)
	}
	return removed, nil
}

// StoredInputs returns the latest stored documents. ok is false when the
// store lacks either the catalog or a price snapshot.
func (s *Syncer) StoredInputs(ctx context.Context) (in engine.Inputs, ok bool, err error) {
	items, err := s.docs.Get(ctx, db.DocumentItems)
	if err != nil {
		return engine.Inputs{}, false, err
	}
	snap, err := s.prices.LatestSnapshot(ctx)
	if err != nil {
		return engine.Inputs{}, false, err
	}
	if items == nil || snap == nil {
		return engine.Inputs{}, false, nil
	}

	in = engine.Inputs{Items: items.Content, Prices: snap.Content}

	cost, err := s.docs.Get(ctx, db.DocumentCostToMax)
	if err != nil {
		return engine.Inputs{}, false, err
	}
	if cost != nil {
		in.CostToMax = cost.Content
	}
	return in, true, nil
}

// Status returns the sync metadata recorded by previous imports.
func (s *Syncer) Status(ctx context.Context) (map[string]string, error) {
	keys := []string{metaCatalogSync, metaCatalogItems, metaPricesSync, metaPricesCount, metaPricesLatest, metaCostToMaxSync}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		v, err := s.db.GetSyncMetadata(ctx, k)
		if err != nil {
			return nil, err
		}
		if v != "" {
			out[k] = v
		}
	}
	return out, nil
}

func (s *Syncer) setMetadata(ctx context.Context, kv ...string) error {
	for i := 0; i+1 < len(kv); i += 2 {
		if err := s.db.SetSyncMetadata(ctx, kv[i], kv[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
