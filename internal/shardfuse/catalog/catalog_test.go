package catalog_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsned/shardfuse-server/internal/shardfuse/catalog"
	"github.com/rsned/shardfuse-server/internal/shardfuse/testkit"
	"github.com/rsned/shardfuse-server/pkg/shardfuse"
)

func loadStandard(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Load(testkit.StandardItems(), testkit.StandardPrices(), nil)
	require.NoError(t, err)
	return cat
}

func TestLoadStandardCatalog(t *testing.T) {
	cat := loadStandard(t)

	require.Equal(t, 11, cat.Len())

	ids := make([]string, 0, cat.Len())
	for _, it := range cat.Items() {
		ids = append(ids, it.ID)
	}
	assert.Equal(t, []string{"C1", "C2", "C3", "C4", "C5", "U1", "U2", "R1", "R2", "L1", "L4"}, ids)

	c2, ok := cat.Item("C2")
	require.True(t, ok)
	assert.Equal(t, shardfuse.RarityCommon, c2.Rarity)
	assert.Equal(t, 2, c2.Number)
	assert.Equal(t, "SHARD_NEWT", c2.PriceKey)
	assert.True(t, c2.BasicFuseOutput)
	assert.Equal(t, []shardfuse.Source{{Type: "fishing", Description: "Lily pond"}}, c2.Sources)

	t.Run("families are a fixed-domain set", func(t *testing.T) {
		assert.Len(t, c2.Families, len(testkit.Families))
		assert.True(t, c2.InFamily("reptile"))
		assert.False(t, c2.InFamily("bird"))
		_, present := c2.Families["bird"]
		assert.True(t, present)
	})

	t.Run("rarity groups and positions", func(t *testing.T) {
		group := cat.RarityGroup(shardfuse.RarityUncommon)
		require.Len(t, group, 2)
		assert.Equal(t, "U1", group[0].ID)

		it, ok := cat.ItemAt(shardfuse.RarityLegendary, 4)
		require.True(t, ok)
		assert.Equal(t, "L4", it.ID)
		_, ok = cat.ItemAt(shardfuse.RarityLegendary, 2)
		assert.False(t, ok)
	})

	t.Run("requirement filters are normalized to lists", func(t *testing.T) {
		r2, _ := cat.Item("R2")
		require.Len(t, r2.SpecialFuses, 2)
		assert.Equal(t, []string{"C1"}, r2.SpecialFuses[0][0].Items)
		assert.Equal(t, []string{"bird"}, r2.SpecialFuses[0][1].Families)
		assert.Equal(t, []shardfuse.RarityFilter{
			{Rarity: shardfuse.RarityCommon},
			{Rarity: shardfuse.RarityUncommon},
		}, r2.SpecialFuses[1][0].Rarities)
		assert.Equal(t, []shardfuse.Category{shardfuse.CategoryWater}, r2.SpecialFuses[1][0].Categories)

		u2, _ := cat.Item("U2")
		require.Len(t, u2.SpecialFuses, 1)
		assert.Equal(t, []shardfuse.RarityFilter{{Rarity: shardfuse.RarityRare, OrHigher: true}}, u2.SpecialFuses[0][0].Rarities)
	})

	t.Run("fuse cost follows family override order", func(t *testing.T) {
		for id, want := range map[string]int{"C1": 1, "C2": 3, "C4": 2, "C5": 3, "L1": 2} {
			it, _ := cat.Item(id)
			assert.Equal(t, want, cat.FuseCost(it), id)
		}
		assert.Equal(t, 2, cat.SpecialMultiplier())
	})

	t.Run("prices", func(t *testing.T) {
		p, err := cat.Price("R1")
		require.NoError(t, err)
		assert.Equal(t, 1000.0, p)
		assert.Equal(t, testkit.StandardTimestamp, cat.PriceTimestamp())
		assert.Equal(t, 96, cat.CostToMax(shardfuse.RarityCommon))
	})
}

func TestLoadCostToMaxOverride(t *testing.T) {
	cat, err := catalog.Load(testkit.StandardItems(), testkit.StandardPrices(), testkit.CostToMaxDocument())
	require.NoError(t, err)

	assert.Equal(t, 10, cat.CostToMax(shardfuse.RarityCommon))
	assert.Equal(t, 0, cat.CostToMax(shardfuse.RarityLegendary))
}

func TestMissingPriceIsDeferred(t *testing.T) {
	cat, err := catalog.Load(testkit.StandardItems(), testkit.StandardPricesWithout("C3"), nil)
	require.NoError(t, err, "a missing price must not fail the load")

	assert.False(t, cat.HasPrice("C3"))
	_, err = cat.Price("C3")
	assert.True(t, errors.Is(err, shardfuse.ErrMissingPrice))

	_, err = cat.Price("Z9")
	assert.True(t, errors.Is(err, shardfuse.ErrUnknownItemReference))
}

func TestNonPositivePriceIsMissing(t *testing.T) {
	cat, err := catalog.Load(testkit.StandardItems(), testkit.StandardPricesWith(map[string]float64{"R1": 0, "C3": -5}), nil)
	require.NoError(t, err)

	for _, id := range []string{"R1", "C3"} {
		assert.False(t, cat.HasPrice(id), id)
		_, err = cat.Price(id)
		assert.True(t, errors.Is(err, shardfuse.ErrMissingPrice), "%s: got %v", id, err)
	}
	assert.True(t, cat.HasPrice("R2"))
}

func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		shards string
		want   error
	}{
		{
			name:   "identifier too long",
			shards: `{"C100": {"category": "water", "skill": "fishing"}}`,
			want:   shardfuse.ErrInvalidIdentifier,
		},
		{
			name:   "identifier too short",
			shards: `{"C": {"category": "water", "skill": "fishing"}}`,
			want:   shardfuse.ErrInvalidIdentifier,
		},
		{
			name:   "unknown rarity letter",
			shards: `{"X1": {"category": "water", "skill": "fishing"}}`,
			want:   shardfuse.ErrInvalidIdentifier,
		},
		{
			name:   "non-numeric suffix",
			shards: `{"Cx": {"category": "water", "skill": "fishing"}}`,
			want:   shardfuse.ErrInvalidIdentifier,
		},
		{
			name:   "same rarity and number twice",
			shards: `{"C1": {"category": "water", "skill": "fishing"}, "C01": {"category": "water", "skill": "fishing"}}`,
			want:   shardfuse.ErrInvalidIdentifier,
		},
		{
			name:   "unknown category",
			shards: `{"C1": {"category": "desert", "skill": "fishing"}}`,
			want:   shardfuse.ErrInvalidTag,
		},
		{
			name:   "unknown skill",
			shards: `{"C1": {"category": "water", "skill": "alchemy"}}`,
			want:   shardfuse.ErrInvalidTag,
		},
		{
			name:   "unknown family",
			shards: `{"C1": {"category": "water", "skill": "fishing", "families": ["insect"]}}`,
			want:   shardfuse.ErrInvalidTag,
		},
		{
			name:   "unknown effect tag",
			shards: `{"C1": {"category": "water", "skill": "fishing", "effectTags": ["wisdom"]}}`,
			want:   shardfuse.ErrInvalidTag,
		},
		{
			name:   "empty requirement",
			shards: `{"C1": {"category": "water", "skill": "fishing", "specialFuseRequirement": [{}, {"category": "water"}]}}`,
			want:   shardfuse.ErrInvalidRequirement,
		},
		{
			name:   "unknown rarity in requirement",
			shards: `{"C1": {"category": "water", "skill": "fishing", "specialFuseRequirement": [{"rarity": "mythic+"}, {"category": "water"}]}}`,
			want:   shardfuse.ErrInvalidRequirement,
		},
		{
			name:   "single requirement instead of pair",
			shards: `{"C1": {"category": "water", "skill": "fishing", "specialFuseRequirement": [{"category": "water"}]}}`,
			want:   shardfuse.ErrInvalidFuseRequirementFormat,
		},
		{
			name:   "three requirements in a pair",
			shards: `{"C1": {"category": "water", "skill": "fishing", "specialFuseRequirement": [[{"category": "water"}, {"category": "water"}, {"category": "water"}]]}}`,
			want:   shardfuse.ErrInvalidFuseRequirementFormat,
		},
		{
			name:   "requirement given as object",
			shards: `{"C1": {"category": "water", "skill": "fishing", "specialFuseRequirement": {"category": "water"}}}`,
			want:   shardfuse.ErrInvalidFuseRequirementFormat,
		},
		{
			name:   "requirement names unknown item",
			shards: `{"C1": {"category": "water", "skill": "fishing", "specialFuseRequirement": [{"shard": "C9"}, {"category": "water"}]}}`,
			want:   shardfuse.ErrUnknownItemReference,
		},
	}

	prices := testkit.PriceDocument(1, map[string]float64{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat, err := catalog.Load(testkit.ItemDocument(tt.shards), prices, nil)
			require.Error(t, err)
			assert.Nil(t, cat)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestParseDocumentShapes(t *testing.T) {
	t.Run("malformed JSON", func(t *testing.T) {
		_, err := catalog.ParseItemDocument([]byte(`{"shards": `))
		assert.Error(t, err)
		_, err = catalog.ParsePriceDocument([]byte(`nope`))
		assert.Error(t, err)
	})

	t.Run("defaults", func(t *testing.T) {
		doc, err := catalog.ParseItemDocument([]byte(`{"families": [], "shards": {}}`))
		require.NoError(t, err)
		assert.Equal(t, 1, doc.DefaultCost)
		assert.Equal(t, 1, doc.SpecialMultiplier)
		assert.Empty(t, doc.Items)
	})

	t.Run("family cost order is document order", func(t *testing.T) {
		doc, err := catalog.ParseItemDocument([]byte(`{"familyFuseCost": {"zeta": 4, "default": 2, "alpha": 6}, "shards": {}}`))
		require.NoError(t, err)
		assert.Equal(t, 2, doc.DefaultCost)
		assert.Equal(t, []catalog.FamilyCost{{Family: "zeta", Cost: 4}, {Family: "alpha", Cost: 6}}, doc.FamilyCosts)
	})

	t.Run("non-positive special multiplier", func(t *testing.T) {
		_, err := catalog.ParseItemDocument([]byte(`{"specialFuseMultiplier": 0, "shards": {}}`))
		assert.True(t, errors.Is(err, shardfuse.ErrInvalidFuseRequirementFormat))
	})

	t.Run("bare cost-to-max table", func(t *testing.T) {
		costs, err := catalog.ParseCostToMax([]byte(`{"rare": 48, "epic": 32}`))
		require.NoError(t, err)
		assert.Equal(t, shardfuse.CostToMax{shardfuse.RarityRare: 48, shardfuse.RarityEpic: 32}, costs)

		_, err = catalog.ParseCostToMax([]byte(`{"mythic": 1}`))
		assert.True(t, errors.Is(err, shardfuse.ErrInvalidTag))
	})

	t.Run("price document", func(t *testing.T) {
		doc, err := catalog.ParsePriceDocument([]byte(`{"timestamp": 42, "shardPrices": {"SHARD_A": 1.5}}`))
		require.NoError(t, err)
		assert.Equal(t, int64(42), doc.Timestamp)
		assert.Equal(t, map[string]float64{"SHARD_A": 1.5}, doc.Prices)
	})
}

func TestParseIdentifier(t *testing.T) {
	r, n, err := catalog.ParseIdentifier("R12")
	require.NoError(t, err)
	assert.Equal(t, shardfuse.RarityRare, r)
	assert.Equal(t, 12, n)

	_, _, err = catalog.ParseIdentifier("R-1")
	assert.True(t, errors.Is(err, shardfuse.ErrInvalidIdentifier))
}
