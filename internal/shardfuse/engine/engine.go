// Package engine runs the fusion pipeline and answers queries against the
// resulting snapshot.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rsned/shardfuse-server/internal/shardfuse/catalog"
	"github.com/rsned/shardfuse-server/internal/shardfuse/contrib"
	"github.com/rsned/shardfuse-server/internal/shardfuse/graph"
	"github.com/rsned/shardfuse-server/internal/shardfuse/valuation"
	"github.com/rsned/shardfuse-server/pkg/shardfuse"
)

// ErrNoSnapshot is returned by queries before the first successful compute.
var ErrNoSnapshot = errors.New("no snapshot computed yet")

// defaultLimit caps list results when a request does not set a limit.
const defaultLimit = 20

// Inputs are the raw documents one snapshot is computed from.
type Inputs struct {
	Items     []byte
	Prices    []byte
	CostToMax []byte // optional; overrides the table in Items
}

// Options configure the pipeline.
type Options struct {
	ChameleonID string
	Workers     int
	// Now stamps snapshots. Defaults to time.Now.
	Now func() time.Time
}

// Snapshot is the complete derived state for one set of inputs. It is never
// modified after Compute returns.
type Snapshot struct {
	Catalog        *catalog.Catalog
	Graph          *graph.Graph
	Valuation      *valuation.Valuation
	Analysis       *contrib.Analysis
	Groups         map[shardfuse.GroupKind][]shardfuse.Group
	Requirements   []shardfuse.RequirementInfo
	TotalCostToMax float64
	ComputedAt     time.Time
}

// Compute runs Catalog Loader, Graph Builder, Valuation Engine and
// Contribution Analyzer in order. It returns a complete snapshot or an error,
// never a partial result.
func Compute(ctx context.Context, in Inputs, opts Options) (*Snapshot, error) {
	cat, err := catalog.Load(in.Items, in.Prices, in.CostToMax)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	g, err := graph.Build(cat, graph.Options{ChameleonID: opts.ChameleonID})
	if err != nil {
		return nil, fmt.Errorf("building fusion graph: %w", err)
	}

	v, err := valuation.Valuate(ctx, g, valuation.Options{Workers: opts.Workers})
	if err != nil {
		return nil, fmt.Errorf("valuating combinations: %w", err)
	}

	a, err := contrib.Analyze(ctx, cat, v, contrib.Options{Workers: opts.Workers})
	if err != nil {
		return nil, fmt.Errorf("analyzing contributions: %w", err)
	}

	total, err := contrib.TotalCostToMax(cat)
	if err != nil {
		return nil, fmt.Errorf("computing total cost to max: %w", err)
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	return &Snapshot{
		Catalog:        cat,
		Graph:          g,
		Valuation:      v,
		Analysis:       a,
		Groups:         buildGroups(cat),
		Requirements:   buildRequirementIndex(g),
		TotalCostToMax: total,
		ComputedAt:     now().UTC(),
	}, nil
}

// Engine holds the current snapshot. Readers always see one complete
// snapshot; Recompute swaps it only on success.
type Engine struct {
	opts    Options
	logger  *slog.Logger
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
}

// New creates an Engine with no snapshot.
func New(opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Engine{opts: opts, logger: logger}
}

// Recompute builds a new snapshot from in and publishes it. On failure the
// previous snapshot stays in place.
func (e *Engine) Recompute(ctx context.Context, in Inputs) (*Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	snap, err := Compute(ctx, in, e.opts)
	if err != nil {
		if e.current.Load() != nil {
			e.logger.Warn("recompute failed, keeping previous snapshot", "error", err)
		}
		return nil, err
	}

	e.current.Store(snap)
	e.logger.Info("snapshot computed",
		"items", snap.Catalog.Len(),
		"targets", len(snap.Valuation.Targets()),
		"combinations", snap.Valuation.Total(),
		"duration", time.Since(start),
	)
	return snap, nil
}

// Snapshot returns the current snapshot.
func (e *Engine) Snapshot() (*Snapshot, error) {
	snap := e.current.Load()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return snap, nil
}

func clampLimit(limit, n int) int {
	if limit <= 0 {
		limit = defaultLimit
	}
	return min(limit, n)
}

// nonNil keeps empty lists serialized as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
