package engine

import (
	"context"
	"slices"

	"github.com/rsned/shardfuse-server/pkg/shardfuse"
)

// ItemView returns the display view of one item.
func (e *Engine) ItemView(ctx context.Context, req shardfuse.ItemViewRequest) (*shardfuse.ItemView, error) {
	snap, err := e.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.ItemView(req.ItemID, req.Limit)
}

// ItemView builds the display view of id with at most limit entries per list.
func (s *Snapshot) ItemView(id string, limit int) (*shardfuse.ItemView, error) {
	item, err := s.Catalog.Lookup(id)
	if err != nil {
		return nil, err
	}
	node, _ := s.Graph.Node(id)

	view := &shardfuse.ItemView{
		ID:                  item.ID,
		Name:                item.Name,
		Rarity:              item.Rarity,
		Category:            item.Category,
		Skill:               item.Skill,
		Families:            item.MemberFamilies(),
		AttributeName:       item.AttributeName,
		EffectDescription:   item.EffectDescription,
		EffectMax:           item.EffectMax,
		Effect2Max:          item.Effect2Max,
		EffectTags:          nonNil(slices.Clone(item.EffectTags)),
		Sources:             nonNil(slices.Clone(item.Sources)),
		PriceKey:            item.PriceKey,
		CostToMax:           s.Catalog.CostToMax(item.Rarity),
		BasicFuseOutput:     item.BasicFuseOutput,
		BasicFuseTarget:     node.BasicFuseTarget,
		BasicFuseTargetedBy: nonNil(slices.Clone(node.BasicFuseTargetedBy)),
		ChameleonTargets:    nonNil(slices.Clone(node.ChameleonTargets)),
		ChameleonTargetedBy: nonNil(slices.Clone(node.ChameleonTargetedBy)),
		SpecialFuses:        make([]string, 0, len(item.SpecialFuses)),
	}

	if price, err := s.Catalog.Price(id); err == nil {
		view.Price = price
		view.PriceToMax = price * float64(view.CostToMax)
	} else {
		view.PriceMissing = true
	}

	for _, pair := range item.SpecialFuses {
		view.SpecialFuses = append(view.SpecialFuses, pair[0].String()+" + "+pair[1].String())
	}

	combos := s.Valuation.For(id)
	view.TotalCombinations = len(combos)
	view.Combinations = slices.Clone(combos[:clampLimit(limit, len(combos))])
	view.Combinations = nonNil(view.Combinations)

	to := s.Analysis.ToTarget(id)
	view.ContributionsToThis = nonNil(slices.Clone(to[:clampLimit(limit, len(to))]))
	from := s.Analysis.FromComponent(id)
	view.ContributionsToOthers = nonNil(slices.Clone(from[:clampLimit(limit, len(from))]))

	return view, nil
}
