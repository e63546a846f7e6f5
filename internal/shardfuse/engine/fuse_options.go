package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/rsned/shardfuse-server/pkg/shardfuse"
)

// FuseOptions returns the cheapest combinations that produce a target.
func (e *Engine) FuseOptions(ctx context.Context, req shardfuse.FuseOptionsRequest) (*shardfuse.FuseOptionsResponse, error) {
	snap, err := e.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.FuseOptions(req)
}

// FuseOptions filters the ranked list of req.TargetID by fusion type and
// truncates it to req.Limit.
func (s *Snapshot) FuseOptions(req shardfuse.FuseOptionsRequest) (*shardfuse.FuseOptionsResponse, error) {
	if _, err := s.Catalog.Lookup(req.TargetID); err != nil {
		return nil, err
	}

	var typ shardfuse.FusionType
	if req.FusionType != "" {
		typ = shardfuse.FusionType(req.FusionType)
		if !typ.IsValid() {
			return nil, fmt.Errorf("invalid fusion_type %q: must be basic, chameleon or special", req.FusionType)
		}
	}

	ranked := s.Valuation.For(req.TargetID)
	if typ != "" {
		ranked = slices.DeleteFunc(slices.Clone(ranked), func(vc shardfuse.ValuatedCombination) bool {
			return vc.Combination.Type != typ
		})
	}

	return &shardfuse.FuseOptionsResponse{
		TargetID:     req.TargetID,
		Total:        len(ranked),
		Combinations: nonNil(slices.Clone(ranked[:clampLimit(req.Limit, len(ranked))])),
	}, nil
}
