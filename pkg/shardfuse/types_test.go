package shardfuse

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRarityOrdering(t *testing.T) {
	all := Rarities()
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Rank(), all[i].Rank())
	}

	next, ok := RarityRare.Next()
	assert.True(t, ok)
	assert.Equal(t, RarityEpic, next)

	_, ok = RarityLegendary.Next()
	assert.False(t, ok)

	assert.Equal(t, -1, Rarity("mythic").Rank())
	assert.Equal(t, byte('U'), RarityUncommon.Letter())

	r, ok := RarityFromLetter('E')
	assert.True(t, ok)
	assert.Equal(t, RarityEpic, r)
	_, ok = RarityFromLetter('X')
	assert.False(t, ok)
}

func TestParseRarityFilter(t *testing.T) {
	tests := []struct {
		in      string
		want    RarityFilter
		wantOK  bool
		matches []Rarity
		misses  []Rarity
	}{
		{
			in:      "rare+",
			want:    RarityFilter{Rarity: RarityRare, OrHigher: true},
			wantOK:  true,
			matches: []Rarity{RarityRare, RarityEpic, RarityLegendary},
			misses:  []Rarity{RarityCommon, RarityUncommon},
		},
		{
			in:      "Epic",
			want:    RarityFilter{Rarity: RarityEpic},
			wantOK:  true,
			matches: []Rarity{RarityEpic},
			misses:  []Rarity{RarityRare, RarityLegendary},
		},
		{in: "shiny+", wantOK: false},
		{in: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRarityFilter(tt.in)
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.want, got)
			for _, r := range tt.matches {
				assert.True(t, got.Matches(r), "expected %s to match %s", got, r)
			}
			for _, r := range tt.misses {
				assert.False(t, got.Matches(r), "expected %s not to match %s", got, r)
			}
		})
	}
}

func TestRequirementSatisfiedBy(t *testing.T) {
	rareCombat := &Item{ID: "R3", Rarity: RarityRare, Category: CategoryCombat, Families: map[string]bool{"reptile": true}}
	commonWater := &Item{ID: "C1", Rarity: RarityCommon, Category: CategoryWater, Families: map[string]bool{"reptile": false}}

	t.Run("filters are combined with AND", func(t *testing.T) {
		req := Requirement{
			Rarities:   []RarityFilter{{Rarity: RarityRare, OrHigher: true}},
			Categories: []Category{CategoryCombat},
		}
		assert.True(t, req.SatisfiedBy(rareCombat))
		assert.False(t, req.SatisfiedBy(commonWater))
	})

	t.Run("entries within a filter are combined with OR", func(t *testing.T) {
		req := Requirement{Categories: []Category{CategoryForest, CategoryWater}}
		assert.True(t, req.SatisfiedBy(commonWater))
		assert.False(t, req.SatisfiedBy(rareCombat))
	})

	t.Run("explicit items and families", func(t *testing.T) {
		assert.True(t, Requirement{Items: []string{"C1", "C2"}}.SatisfiedBy(commonWater))
		assert.False(t, Requirement{Items: []string{"C2"}}.SatisfiedBy(commonWater))
		assert.True(t, Requirement{Families: []string{"reptile"}}.SatisfiedBy(rareCombat))
		assert.False(t, Requirement{Families: []string{"reptile"}}.SatisfiedBy(commonWater))
	})

	t.Run("description", func(t *testing.T) {
		req := Requirement{
			Rarities:   []RarityFilter{{Rarity: RarityRare, OrHigher: true}},
			Categories: []Category{CategoryCombat},
		}
		assert.Equal(t, "rarity rare+; category combat", req.String())
		assert.True(t, Requirement{}.IsEmpty())
	})
}

func TestItemOrdering(t *testing.T) {
	c9 := &Item{ID: "C9", Rarity: RarityCommon, Number: 9}
	u1 := &Item{ID: "U1", Rarity: RarityUncommon, Number: 1}
	c10 := &Item{ID: "C10", Rarity: RarityCommon, Number: 10}

	assert.Negative(t, CompareItems(c9, c10))
	assert.Negative(t, CompareItems(c10, u1))
	assert.Positive(t, CompareItems(u1, c9))
	assert.Equal(t, 0, CompareItems(c9, c9))
}

func TestDedupeKey(t *testing.T) {
	assert.Equal(t, DedupeKey("A", "B"), DedupeKey("B", "A"))
	assert.Equal(t, "C10-C2", DedupeKey("C2", "C10"))
	assert.NotEqual(t, DedupeKey("A", "B"), DedupeKey("A", "C"))
}

func TestErrorIsByCode(t *testing.T) {
	err := fmt.Errorf("loading catalog: %w", NewError(CodeMissingPrice, "no price for %s", "SHARD_X"))

	assert.True(t, errors.Is(err, ErrMissingPrice))
	assert.False(t, errors.Is(err, ErrInvalidTag))

	var typed *Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, CodeMissingPrice, typed.Code)
	assert.Equal(t, "no price for SHARD_X", typed.Error())

	wrapped := WrapError(CodeInvalidTag, errors.New("boom"), "bad tag").WithMetadata("tag", "x")
	assert.Equal(t, "bad tag: boom", wrapped.Error())
	assert.Equal(t, "x", wrapped.Metadata["tag"])
}
