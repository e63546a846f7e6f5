// Package valuation prices, deduplicates and ranks the combinations that
// produce each target.
package valuation

import (
	"cmp"
	"context"
	"fmt"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/rsned/shardfuse-server/internal/shardfuse/graph"
	"github.com/rsned/shardfuse-server/pkg/shardfuse"
)

// PriceSource resolves the unit price of an item.
type PriceSource interface {
	Price(id string) (float64, error)
}

// Options tune the per-target fan-out.
type Options struct {
	// Workers bounds concurrent targets. Zero means GOMAXPROCS.
	Workers int
}

// Valuation holds the ranked combination list of every target.
type Valuation struct {
	targets map[string][]shardfuse.ValuatedCombination
	order   []string
	total   int
}

// For returns the ranked combinations producing target.
func (v *Valuation) For(target string) []shardfuse.ValuatedCombination {
	return v.targets[target]
}

// Targets returns every target with at least one combination, in catalog order.
func (v *Valuation) Targets() []string {
	return v.order
}

// Total is the number of valuated combinations across all targets.
func (v *Valuation) Total() int {
	return v.total
}

// Valuate ranks every target of the graph. Targets are independent once the
// graph is built, so they are processed concurrently; the result does not
// depend on scheduling.
func Valuate(ctx context.Context, g *graph.Graph, opts Options) (*Valuation, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	nodes := g.Nodes()
	results := make([][]shardfuse.ValuatedCombination, len(nodes))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, n := range nodes {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			ranked, err := ValuateTarget(n.Item.ID, n.Combinations, g.Catalog())
			if err != nil {
				return fmt.Errorf("valuating %s: %w", n.Item.ID, err)
			}
			results[i] = ranked
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	v := &Valuation{targets: make(map[string][]shardfuse.ValuatedCombination, len(nodes))}
	for i, n := range nodes {
		if len(results[i]) == 0 {
			continue
		}
		v.targets[n.Item.ID] = results[i]
		v.order = append(v.order, n.Item.ID)
		v.total += len(results[i])
	}
	return v, nil
}

// ValuateTarget prices the combinations producing target, drops pairs that
// consume the target itself, collapses pairs with equal dedupe keys and sorts
// the rest by price per output unit.
func ValuateTarget(target string, combos []shardfuse.FusionCombination, prices PriceSource) ([]shardfuse.ValuatedCombination, error) {
	priced := make([]shardfuse.ValuatedCombination, 0, len(combos))
	for _, c := range combos {
		if c.Contains(target) {
			continue
		}
		price, err := PricePerUnit(c, prices)
		if err != nil {
			return nil, err
		}
		priced = append(priced, shardfuse.ValuatedCombination{
			Combination:  c,
			Output:       target,
			PricePerUnit: price,
			DedupeKey:    shardfuse.DedupeKey(c.Item1, c.Item2),
			Swappable:    c.SelfPair() || c.Derivations > 1,
		})
	}

	deduped := Dedupe(priced)
	Rank(deduped)
	return deduped, nil
}

// PricePerUnit is (price1*cost1 + price2*cost2) / multiplier.
func PricePerUnit(c shardfuse.FusionCombination, prices PriceSource) (float64, error) {
	if c.Multiplier <= 0 {
		return 0, fmt.Errorf("combination %s has non-positive multiplier %d", c.PairID(), c.Multiplier)
	}
	p1, err := prices.Price(c.Item1)
	if err != nil {
		return 0, err
	}
	p2, err := prices.Price(c.Item2)
	if err != nil {
		return 0, err
	}
	return (p1*float64(c.Cost1) + p2*float64(c.Cost2)) / float64(c.Multiplier), nil
}

// Dedupe sorts by dedupe key and keeps the first entry of every run of equal
// keys, marking it swappable. Price is never used to decide equality.
func Dedupe(list []shardfuse.ValuatedCombination) []shardfuse.ValuatedCombination {
	slices.SortStableFunc(list, func(a, b shardfuse.ValuatedCombination) int {
		return cmp.Compare(a.DedupeKey, b.DedupeKey)
	})

	out := list[:0]
	for i := 0; i < len(list); {
		j := i + 1
		for j < len(list) && list[j].DedupeKey == list[i].DedupeKey {
			j++
		}
		keep := list[i]
		if j-i > 1 {
			keep.Swappable = true
		}
		out = append(out, keep)
		i = j
	}
	return out
}

// Rank sorts ascending by price per unit. Equal prices are ordered by dedupe
// key so the output is identical across runs.
func Rank(list []shardfuse.ValuatedCombination) {
	slices.SortStableFunc(list, func(a, b shardfuse.ValuatedCombination) int {
		if c := cmp.Compare(a.PricePerUnit, b.PricePerUnit); c != 0 {
			return c
		}
		return cmp.Compare(a.DedupeKey, b.DedupeKey)
	})
}
