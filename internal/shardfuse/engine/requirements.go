package engine

import (
	"context"
	"slices"
	"sort"
	"strings"

	"github.com/rsned/shardfuse-server/internal/shardfuse/graph"
	"github.com/rsned/shardfuse-server/pkg/shardfuse"
)

// Requirements searches the special requirement index.
func (e *Engine) Requirements(ctx context.Context, req shardfuse.RequirementsRequest) (*shardfuse.RequirementsResponse, error) {
	snap, err := e.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.FindRequirements(req), nil
}

// FindRequirements returns index entries whose description contains
// req.Search (case-insensitive), at most req.Limit of them.
func (s *Snapshot) FindRequirements(req shardfuse.RequirementsRequest) *shardfuse.RequirementsResponse {
	search := strings.ToLower(strings.TrimSpace(req.Search))
	out := make([]shardfuse.RequirementInfo, 0)
	for _, info := range s.Requirements {
		if search != "" && !strings.Contains(strings.ToLower(info.Description), search) {
			continue
		}
		out = append(out, shardfuse.RequirementInfo{
			Description: info.Description,
			Targets:     slices.Clone(info.Targets),
			Matches:     slices.Clone(info.Matches),
		})
	}
	return &shardfuse.RequirementsResponse{Requirements: out[:clampLimit(req.Limit, len(out))]}
}

// buildRequirementIndex collects every distinct requirement used by a
// special fusion, ordered by number of targets (descending) then description.
func buildRequirementIndex(g *graph.Graph) []shardfuse.RequirementInfo {
	byDesc := make(map[string]*shardfuse.RequirementInfo)
	for _, n := range g.Nodes() {
		for _, pair := range n.Item.SpecialFuses {
			for _, req := range pair {
				desc := req.String()
				info, ok := byDesc[desc]
				if !ok {
					info = &shardfuse.RequirementInfo{
						Description: desc,
						Targets:     []string{},
						Matches:     nonNil(g.MatchingItems(req)),
					}
					byDesc[desc] = info
				}
				if !slices.Contains(info.Targets, n.Item.ID) {
					info.Targets = append(info.Targets, n.Item.ID)
				}
			}
		}
	}

	out := make([]shardfuse.RequirementInfo, 0, len(byDesc))
	for _, info := range byDesc {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Targets) != len(out[j].Targets) {
			return len(out[i].Targets) > len(out[j].Targets)
		}
		return out[i].Description < out[j].Description
	})
	return out
}
