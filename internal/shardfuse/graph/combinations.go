package graph

import (
	"github.com/rsned/shardfuse-server/pkg/shardfuse"
)

// combinationSet collapses repeated derivations of the same pair. A later
// derivation overwrites the stored one; Derivations counts them all.
type combinationSet struct {
	index map[string]int
	list  []shardfuse.FusionCombination
}

func newCombinationSet() *combinationSet {
	return &combinationSet{index: make(map[string]int)}
}

func (s *combinationSet) put(c shardfuse.FusionCombination) {
	key := c.PairID()
	if i, ok := s.index[key]; ok {
		c.Derivations = s.list[i].Derivations + 1
		s.list[i] = c
		return
	}
	s.index[key] = len(s.list)
	s.list = append(s.list, c)
}

// deriveCombinations builds every input pair producing n: basic, then
// chameleon, then special.
func (g *Graph) deriveCombinations(n *Node) ([]shardfuse.FusionCombination, error) {
	set := newCombinationSet()
	items := g.catalog.Items()

	for _, id := range n.BasicFuseTargetedBy {
		fuser, err := g.catalog.Lookup(id)
		if err != nil {
			return nil, err
		}
		for _, other := range items {
			set.put(g.combination(fuser, other, shardfuse.FusionBasic))
		}
	}

	// A catalog without the chameleon item has no chameleon fusions.
	if chameleon, ok := g.catalog.Item(g.chameleonID); ok {
		for _, id := range n.ChameleonTargetedBy {
			fuser, err := g.catalog.Lookup(id)
			if err != nil {
				return nil, err
			}
			set.put(g.combination(fuser, chameleon, shardfuse.FusionChameleon))
		}
	}

	for _, pair := range n.Item.SpecialFuses {
		side1 := g.matching(pair[0])
		side2 := g.matching(pair[1])
		for _, a := range side1 {
			for _, b := range side2 {
				set.put(g.combination(a, b, shardfuse.FusionSpecial))
			}
		}
	}

	return set.list, nil
}

// matching returns the catalog items satisfying req, in catalog order.
func (g *Graph) matching(req shardfuse.Requirement) []*shardfuse.Item {
	var out []*shardfuse.Item
	for _, item := range g.catalog.Items() {
		if req.SatisfiedBy(item) {
			out = append(out, item)
		}
	}
	return out
}

// MatchingItems returns the identifiers of items satisfying req.
func (g *Graph) MatchingItems(req shardfuse.Requirement) []string {
	items := g.matching(req)
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

// combination stores a pair with the lower item first and per-side costs
// from the family override table.
func (g *Graph) combination(a, b *shardfuse.Item, typ shardfuse.FusionType) shardfuse.FusionCombination {
	if shardfuse.CompareItems(b, a) < 0 {
		a, b = b, a
	}
	multiplier := 1
	if typ == shardfuse.FusionSpecial {
		multiplier = g.catalog.SpecialMultiplier()
	}
	return shardfuse.FusionCombination{
		Item1:       a.ID,
		Cost1:       g.catalog.FuseCost(a),
		Item2:       b.ID,
		Cost2:       g.catalog.FuseCost(b),
		Multiplier:  multiplier,
		Type:        typ,
		Derivations: 1,
	}
}
