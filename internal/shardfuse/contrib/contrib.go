// Package contrib measures how much each component item pulls a target's
// combination prices up or down.
package contrib

import (
	"cmp"
	"context"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/rsned/shardfuse-server/internal/shardfuse/catalog"
	"github.com/rsned/shardfuse-server/internal/shardfuse/valuation"
	"github.com/rsned/shardfuse-server/pkg/shardfuse"
)

// Options tune the per-target fan-out.
type Options struct {
	Workers int
}

// Analysis indexes contributions by target and by component.
type Analysis struct {
	byTarget    map[string][]shardfuse.Contribution
	byComponent map[string][]shardfuse.Contribution
}

// ToTarget returns the ranked contributions of every component of target.
func (a *Analysis) ToTarget(target string) []shardfuse.Contribution {
	return a.byTarget[target]
}

// FromComponent returns the ranked contributions of component across all targets.
func (a *Analysis) FromComponent(component string) []shardfuse.Contribution {
	return a.byComponent[component]
}

// AnalyzeTarget computes one contribution per item appearing in the ranked
// list, in order of first appearance. An item present in every combination
// has no baseline and is marked required with a zero score.
func AnalyzeTarget(target string, ranked []shardfuse.ValuatedCombination) []shardfuse.Contribution {
	var components []string
	seen := make(map[string]bool)
	for _, vc := range ranked {
		for _, id := range []string{vc.Combination.Item1, vc.Combination.Item2} {
			if !seen[id] {
				seen[id] = true
				components = append(components, id)
			}
		}
	}

	out := make([]shardfuse.Contribution, 0, len(components))
	for _, x := range components {
		var sumIn, sumOut float64
		var nIn, nOut int
		for _, vc := range ranked {
			if vc.Combination.Contains(x) {
				sumIn += vc.PricePerUnit
				nIn++
			} else {
				sumOut += vc.PricePerUnit
				nOut++
			}
		}

		c := shardfuse.Contribution{Target: target, Component: x, InCount: nIn}
		if nOut == 0 {
			c.Required = true
		} else {
			meanIn := sumIn / float64(nIn)
			meanOut := sumOut / float64(nOut)
			c.Score = (meanIn - meanOut) * float64(nIn)
		}
		out = append(out, c)
	}
	return out
}

// Analyze runs AnalyzeTarget for every valuated target and builds both
// ranked indexes.
func Analyze(ctx context.Context, cat *catalog.Catalog, v *valuation.Valuation, opts Options) (*Analysis, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	targets := v.Targets()
	results := make([][]shardfuse.Contribution, len(targets))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, target := range targets {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			results[i] = AnalyzeTarget(target, v.For(target))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	order := itemOrder(cat)
	a := &Analysis{
		byTarget:    make(map[string][]shardfuse.Contribution, len(targets)),
		byComponent: make(map[string][]shardfuse.Contribution),
	}
	for i, target := range targets {
		list := results[i]
		Rank(list, func(c shardfuse.Contribution) string { return c.Component }, order)
		a.byTarget[target] = list
		for _, c := range list {
			a.byComponent[c.Component] = append(a.byComponent[c.Component], c)
		}
	}
	for component, list := range a.byComponent {
		Rank(list, func(c shardfuse.Contribution) string { return c.Target }, order)
		a.byComponent[component] = list
	}
	return a, nil
}

// Rank puts required entries first, ordered by the identifier key returns,
// then the rest by ascending score. order maps identifiers to their catalog
// position.
func Rank(list []shardfuse.Contribution, key func(shardfuse.Contribution) string, order map[string]int) {
	slices.SortStableFunc(list, func(a, b shardfuse.Contribution) int {
		if a.Required != b.Required {
			if a.Required {
				return -1
			}
			return 1
		}
		if !a.Required {
			if c := cmp.Compare(a.Score, b.Score); c != 0 {
				return c
			}
		}
		return cmp.Compare(order[key(a)], order[key(b)])
	})
}

func itemOrder(cat *catalog.Catalog) map[string]int {
	order := make(map[string]int, cat.Len())
	for i, it := range cat.Items() {
		order[it.ID] = i
	}
	return order
}

// TotalCostToMax sums price x cost-to-max over every item. Rarities missing
// from the table count as zero and need no price.
func TotalCostToMax(cat *catalog.Catalog) (float64, error) {
	var total float64
	for _, it := range cat.Items() {
		units := cat.CostToMax(it.Rarity)
		if units == 0 {
			continue
		}
		price, err := cat.Price(it.ID)
		if err != nil {
			return 0, err
		}
		total += price * float64(units)
	}
	return total, nil
}
