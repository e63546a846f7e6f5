package contrib_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rsned/shardfuse-server/internal/shardfuse/catalog"
	"github.com/rsned/shardfuse-server/internal/shardfuse/contrib"
	"github.com/rsned/shardfuse-server/internal/shardfuse/graph"
	"github.com/rsned/shardfuse-server/internal/shardfuse/testkit"
	"github.com/rsned/shardfuse-server/internal/shardfuse/valuation"
	"github.com/rsned/shardfuse-server/pkg/shardfuse"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func analyze(t *testing.T, items, prices []byte) (*catalog.Catalog, *valuation.Valuation, *contrib.Analysis) {
	t.Helper()
	cat, err := catalog.Load(items, prices, nil)
	require.NoError(t, err)
	g, err := graph.Build(cat, graph.Options{})
	require.NoError(t, err)
	v, err := valuation.Valuate(context.Background(), g, valuation.Options{})
	require.NoError(t, err)
	a, err := contrib.Analyze(context.Background(), cat, v, contrib.Options{})
	require.NoError(t, err)
	return cat, v, a
}

func TestScenarioContributions(t *testing.T) {
	_, _, a := analyze(t, testkit.ItemDocument(testkit.ScenarioShards), testkit.ScenarioPrices())

	got := a.ToTarget("C2")
	require.Len(t, got, 2)

	assert.Equal(t, shardfuse.Contribution{Target: "C2", Component: "C1", Score: 0, Required: true, InCount: 2}, got[0])
	assert.Equal(t, "C3", got[1].Component)
	assert.False(t, got[1].Required)
	assert.InDelta(t, -70.0, got[1].Score, 1e-9)
}

func TestAnalyzeTargetScore(t *testing.T) {
	vc := func(a, b string, price float64) shardfuse.ValuatedCombination {
		return shardfuse.ValuatedCombination{
			Combination:  shardfuse.FusionCombination{Item1: a, Item2: b},
			PricePerUnit: price,
			DedupeKey:    shardfuse.DedupeKey(a, b),
		}
	}
	ranked := []shardfuse.ValuatedCombination{
		vc("A", "B", 10),
		vc("A", "C", 20),
		vc("B", "D", 30),
		vc("C", "D", 60),
	}

	got := contrib.AnalyzeTarget("T", ranked)
	byComponent := map[string]shardfuse.Contribution{}
	for _, c := range got {
		byComponent[c.Component] = c
	}

	// A: in {10,20} mean 15, out {30,60} mean 45 -> (15-45) x 2
	assert.InDelta(t, -60.0, byComponent["A"].Score, 1e-9)
	// D: in {30,60} mean 45, out {10,20} mean 15 -> (45-15) x 2
	assert.InDelta(t, 60.0, byComponent["D"].Score, 1e-9)
	// B: in {10,30} mean 20, out {20,60} mean 40 -> -40
	assert.InDelta(t, -40.0, byComponent["B"].Score, 1e-9)
	assert.Equal(t, 2, byComponent["B"].InCount)
	for _, c := range got {
		assert.False(t, c.Required)
	}

	assert.Empty(t, contrib.AnalyzeTarget("T", nil))
}

func TestRequiredItemsScoreZero(t *testing.T) {
	_, v, a := analyze(t, testkit.StandardItems(), testkit.StandardPrices())

	for _, target := range v.Targets() {
		list := v.For(target)
		for _, c := range a.ToTarget(target) {
			if c.Required {
				assert.Equal(t, 0.0, c.Score)
				assert.Equal(t, len(list), c.InCount, "%s required for %s", c.Component, target)
			} else {
				assert.Less(t, c.InCount, len(list))
			}
		}
	}

	c2 := a.ToTarget("C2")
	require.NotEmpty(t, c2)
	assert.Equal(t, "C1", c2[0].Component)
	assert.True(t, c2[0].Required)
}

func TestRankingOrder(t *testing.T) {
	_, v, a := analyze(t, testkit.StandardItems(), testkit.StandardPrices())

	check := func(t *testing.T, list []shardfuse.Contribution) {
		t.Helper()
		seenOptional := false
		for i, c := range list {
			if c.Required {
				assert.False(t, seenOptional, "required entry after optional one")
				continue
			}
			if seenOptional {
				assert.LessOrEqual(t, list[i-1].Score, c.Score)
			}
			seenOptional = true
		}
	}

	for _, target := range v.Targets() {
		check(t, a.ToTarget(target))
	}
	for _, id := range []string{"C1", "C5", "R1", "L4"} {
		list := a.FromComponent(id)
		require.NotEmpty(t, list, id)
		for _, c := range list {
			assert.Equal(t, id, c.Component)
		}
		check(t, list)
	}
}

func TestRankRequiredByCatalogPosition(t *testing.T) {
	order := map[string]int{"C2": 0, "C10": 1, "U1": 2}
	list := []shardfuse.Contribution{
		{Component: "U1", Score: -5},
		{Component: "C10", Required: true},
		{Component: "C2", Score: 3},
		{Component: "U1", Required: true},
		{Component: "C2", Required: true},
	}
	contrib.Rank(list, func(c shardfuse.Contribution) string { return c.Component }, order)

	got := make([]string, len(list))
	for i, c := range list {
		got[i] = c.Component
		if c.Required {
			got[i] += "!"
		}
	}
	assert.Equal(t, []string{"C2!", "C10!", "U1!", "U1", "C2"}, got)
}

func TestTotalCostToMax(t *testing.T) {
	t.Run("embedded table", func(t *testing.T) {
		cat, err := catalog.Load(testkit.StandardItems(), testkit.StandardPrices(), nil)
		require.NoError(t, err)
		total, err := contrib.TotalCostToMax(cat)
		require.NoError(t, err)
		// 210x96 + 500x64 + 2500x48 + 13000x24
		assert.Equal(t, 484160.0, total)
	})

	t.Run("missing rarity counts as zero and needs no price", func(t *testing.T) {
		cat, err := catalog.Load(testkit.StandardItems(), testkit.StandardPricesWithout("L1", "L4"), testkit.CostToMaxDocument())
		require.NoError(t, err)
		total, err := contrib.TotalCostToMax(cat)
		require.NoError(t, err)
		// 210x10 + 500x20 + 2500x30
		assert.Equal(t, 87100.0, total)
	})

	t.Run("missing price", func(t *testing.T) {
		cat, err := catalog.Load(testkit.StandardItems(), testkit.StandardPricesWithout("U2"), nil)
		require.NoError(t, err)
		_, err = contrib.TotalCostToMax(cat)
		assert.True(t, errors.Is(err, shardfuse.ErrMissingPrice))
	})
}
