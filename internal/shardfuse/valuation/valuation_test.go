package valuation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rsned/shardfuse-server/internal/shardfuse/catalog"
	"github.com/rsned/shardfuse-server/internal/shardfuse/graph"
	"github.com/rsned/shardfuse-server/internal/shardfuse/testkit"
	"github.com/rsned/shardfuse-server/internal/shardfuse/valuation"
	"github.com/rsned/shardfuse-server/pkg/shardfuse"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type priceMap map[string]float64

func (p priceMap) Price(id string) (float64, error) {
	v, ok := p[id]
	if !ok {
		return 0, shardfuse.NewError(shardfuse.CodeMissingPrice, "no price for %s", id)
	}
	return v, nil
}

func buildGraph(t *testing.T, items, prices []byte) *graph.Graph {
	t.Helper()
	cat, err := catalog.Load(items, prices, nil)
	require.NoError(t, err)
	g, err := graph.Build(cat, graph.Options{})
	require.NoError(t, err)
	return g
}

func pairs(list []shardfuse.ValuatedCombination) []string {
	out := make([]string, len(list))
	for i, vc := range list {
		out[i] = vc.DedupeKey
	}
	return out
}

func TestScenarioPricing(t *testing.T) {
	g := buildGraph(t, testkit.ItemDocument(testkit.ScenarioShards), testkit.ScenarioPrices())

	v, err := valuation.Valuate(context.Background(), g, valuation.Options{})
	require.NoError(t, err)

	ranked := v.For("C2")
	require.Len(t, ranked, 2, "the pair consuming C2 itself is excluded")

	assert.Equal(t, "C1-C3", ranked[0].DedupeKey)
	assert.Equal(t, 130.0, ranked[0].PricePerUnit)
	assert.False(t, ranked[0].Swappable)

	assert.Equal(t, "C1-C1", ranked[1].DedupeKey)
	assert.Equal(t, 200.0, ranked[1].PricePerUnit)
	assert.True(t, ranked[1].Swappable, "identical sides are always swappable")
}

func TestStandardRanking(t *testing.T) {
	g := buildGraph(t, testkit.StandardItems(), testkit.StandardPrices())

	v, err := valuation.Valuate(context.Background(), g, valuation.Options{Workers: 2})
	require.NoError(t, err)

	ranked := v.For("C2")
	assert.Equal(t, []string{
		"C1-C3", "C1-C5", "C1-C4", "C1-C1", "C1-U1", "C1-U2", "C1-R2", "C1-R1", "C1-L4", "C1-L1",
	}, pairs(ranked))

	assert.Equal(t, 130.0, ranked[0].PricePerUnit)
	assert.Equal(t, 130.0, ranked[1].PricePerUnit, "C5 costs 3 units at 10 each")
	assert.Equal(t, 8100.0, ranked[8].PricePerUnit)
	assert.True(t, ranked[8].Swappable, "C1+L4 is derived by basic and chameleon rules")
	assert.Equal(t, shardfuse.FusionChameleon, ranked[8].Combination.Type)

	t.Run("special multiplier divides the price", func(t *testing.T) {
		for _, vc := range v.For("U2") {
			if vc.DedupeKey == "R1-R1" {
				// 2 x (1000 x 3) / 2
				assert.Equal(t, 3000.0, vc.PricePerUnit)
				return
			}
		}
		t.Fatal("R1-R1 not found for U2")
	})

	t.Run("targets without combinations are omitted", func(t *testing.T) {
		assert.Empty(t, v.For("C1"))
		assert.NotContains(t, v.Targets(), "C1")
		assert.Contains(t, v.Targets(), "U2")
	})
}

func TestRankedListsAreSortedAndUnique(t *testing.T) {
	g := buildGraph(t, testkit.StandardItems(), testkit.StandardPrices())
	v, err := valuation.Valuate(context.Background(), g, valuation.Options{})
	require.NoError(t, err)

	total := 0
	for _, target := range v.Targets() {
		list := v.For(target)
		total += len(list)
		seen := map[string]bool{}
		for i, vc := range list {
			assert.False(t, seen[vc.DedupeKey], "%s: duplicate key %s", target, vc.DedupeKey)
			seen[vc.DedupeKey] = true
			assert.False(t, vc.Combination.Contains(target), "%s consumes its own output", target)
			if vc.Combination.SelfPair() {
				assert.True(t, vc.Swappable)
			}
			if i > 0 {
				assert.LessOrEqual(t, list[i-1].PricePerUnit, vc.PricePerUnit, target)
			}
		}
	}
	assert.Equal(t, total, v.Total())
}

func TestValuationIsDeterministic(t *testing.T) {
	g := buildGraph(t, testkit.StandardItems(), testkit.StandardPrices())

	serial, err := valuation.Valuate(context.Background(), g, valuation.Options{Workers: 1})
	require.NoError(t, err)
	parallel, err := valuation.Valuate(context.Background(), g, valuation.Options{Workers: 8})
	require.NoError(t, err)

	require.Equal(t, serial.Targets(), parallel.Targets())
	for _, target := range serial.Targets() {
		if diff := cmp.Diff(serial.For(target), parallel.For(target)); diff != "" {
			t.Errorf("%s mismatch (-serial +parallel):\n%s", target, diff)
		}
	}
}

func TestMissingPriceFailsClosed(t *testing.T) {
	g := buildGraph(t, testkit.StandardItems(), testkit.StandardPricesWithout("C3"))

	v, err := valuation.Valuate(context.Background(), g, valuation.Options{})
	require.Error(t, err)
	assert.Nil(t, v)
	assert.True(t, errors.Is(err, shardfuse.ErrMissingPrice))
}

func TestDedupe(t *testing.T) {
	prices := priceMap{"A": 10, "B": 20, "C": 20, "T": 1}

	combos := []shardfuse.FusionCombination{
		{Item1: "A", Cost1: 1, Item2: "B", Cost2: 1, Multiplier: 1, Type: shardfuse.FusionBasic, Derivations: 1},
		{Item1: "B", Cost1: 1, Item2: "A", Cost2: 1, Multiplier: 1, Type: shardfuse.FusionSpecial, Derivations: 1},
		{Item1: "A", Cost1: 1, Item2: "C", Cost2: 1, Multiplier: 1, Type: shardfuse.FusionBasic, Derivations: 1},
	}

	ranked, err := valuation.ValuateTarget("T", combos, prices)
	require.NoError(t, err)
	require.Len(t, ranked, 2, "(A,B) and (B,A) collapse; (A,C) stays despite the equal price")

	assert.Equal(t, "A-B", ranked[0].DedupeKey)
	assert.True(t, ranked[0].Swappable)
	assert.Equal(t, "A-C", ranked[1].DedupeKey)
	assert.False(t, ranked[1].Swappable)
	assert.Equal(t, ranked[0].PricePerUnit, ranked[1].PricePerUnit)
}

func TestSelfReferenceExcludedBeforePricing(t *testing.T) {
	// T has no price; pairs containing T must be dropped without asking for it.
	prices := priceMap{"A": 10}
	combos := []shardfuse.FusionCombination{
		{Item1: "A", Cost1: 1, Item2: "T", Cost2: 1, Multiplier: 1, Derivations: 1},
		{Item1: "A", Cost1: 2, Item2: "A", Cost2: 2, Multiplier: 2, Derivations: 1},
	}

	ranked, err := valuation.ValuateTarget("T", combos, prices)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, 20.0, ranked[0].PricePerUnit)
	assert.Equal(t, "T", ranked[0].Output)
}

func TestPricePerUnitRejectsZeroMultiplier(t *testing.T) {
	_, err := valuation.PricePerUnit(shardfuse.FusionCombination{Item1: "A", Item2: "A"}, priceMap{"A": 1})
	assert.Error(t, err)
}
