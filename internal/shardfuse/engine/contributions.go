package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/rsned/shardfuse-server/pkg/shardfuse"
)

// Contributions returns ranked marginal contributions for an item.
func (e *Engine) Contributions(ctx context.Context, req shardfuse.ContributionsRequest) (*shardfuse.ContributionsResponse, error) {
	snap, err := e.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.Contributions(req)
}

// Contributions returns, for direction "to", the components that affect the
// price of req.ItemID; for "from", the targets req.ItemID affects.
func (s *Snapshot) Contributions(req shardfuse.ContributionsRequest) (*shardfuse.ContributionsResponse, error) {
	if _, err := s.Catalog.Lookup(req.ItemID); err != nil {
		return nil, err
	}

	direction := req.Direction
	if direction == "" {
		direction = shardfuse.DirectionTo
	}

	var list []shardfuse.Contribution
	switch direction {
	case shardfuse.DirectionTo:
		list = s.Analysis.ToTarget(req.ItemID)
	case shardfuse.DirectionFrom:
		list = s.Analysis.FromComponent(req.ItemID)
	default:
		return nil, fmt.Errorf("invalid direction %q: must be %q or %q", req.Direction, shardfuse.DirectionTo, shardfuse.DirectionFrom)
	}

	return &shardfuse.ContributionsResponse{
		ItemID:        req.ItemID,
		Direction:     direction,
		Contributions: nonNil(slices.Clone(list[:clampLimit(req.Limit, len(list))])),
	}, nil
}
