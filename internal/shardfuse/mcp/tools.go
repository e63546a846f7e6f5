package mcp

import (
	"context"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rsned/shardfuse-server/pkg/shardfuse"
)

// Tool names.
const (
	ToolItemView      = "item_view"
	ToolFuseOptions   = "fuse_options"
	ToolContributions = "marginal_contributions"
	ToolGroups        = "item_groups"
	ToolRequirements  = "special_requirements"
	ToolStats         = "catalog_stats"
)

func (s *Server) registerTools() {
	gomcp.AddTool(s.mcp, itemViewTool(), s.toolItemView)
	gomcp.AddTool(s.mcp, fuseOptionsTool(), s.toolFuseOptions)
	gomcp.AddTool(s.mcp, contributionsTool(), s.toolContributions)
	gomcp.AddTool(s.mcp, groupsTool(), s.toolGroups)
	gomcp.AddTool(s.mcp, requirementsTool(), s.toolRequirements)
	gomcp.AddTool(s.mcp, statsTool(), s.toolStats)
}

func itemViewTool() *gomcp.Tool {
	return &gomcp.Tool{
		Name: ToolItemView,
		Description: `Full view of one item: rarity, category, skill, families, effect, sources,
unit price, cost and price to max, basic and chameleon fusion edges, special fusion
requirements, the cheapest ways to produce it and its marginal contributions.`,
	}
}

func fuseOptionsTool() *gomcp.Tool {
	return &gomcp.Tool{
		Name: ToolFuseOptions,
		Description: `Ranked input pairs that produce a target item, cheapest price per output
unit first. Each entry shows both inputs with the units consumed, the output
multiplier, the fusion rule and whether the inputs are interchangeable.`,
	}
}

func contributionsTool() *gomcp.Tool {
	return &gomcp.Tool{
		Name: ToolContributions,
		Description: `Marginal contributions: how much an item's presence lowers (negative score)
or raises the average price per unit of combinations. Direction "to" ranks the
components of a target, "from" ranks the targets a component affects. Required
components appear in every combination of the target.`,
	}
}

func groupsTool() *gomcp.Tool {
	return &gomcp.Tool{
		Name:        ToolGroups,
		Description: "Items grouped by rarity, category, skill, family, source or effect tag.",
	}
}

func requirementsTool() *gomcp.Tool {
	return &gomcp.Tool{
		Name:        ToolRequirements,
		Description: "Special fusion requirements with the targets that use them and the items that satisfy them.",
	}
}

func statsTool() *gomcp.Tool {
	return &gomcp.Tool{
		Name:        ToolStats,
		Description: "Item, target and combination counts, total cost to max everything, and the price snapshot timestamp.",
	}
}

func (s *Server) toolItemView(ctx context.Context, _ *gomcp.CallToolRequest, in shardfuse.ItemViewRequest) (*gomcp.CallToolResult, shardfuse.ItemView, error) {
	out, err := s.engine.ItemView(ctx, in)
	if err != nil {
		return nil, shardfuse.ItemView{}, toolError(ToolItemView, err)
	}
	return nil, *out, nil
}

func (s *Server) toolFuseOptions(ctx context.Context, _ *gomcp.CallToolRequest, in shardfuse.FuseOptionsRequest) (*gomcp.CallToolResult, shardfuse.FuseOptionsResponse, error) {
	out, err := s.engine.FuseOptions(ctx, in)
	if err != nil {
		return nil, shardfuse.FuseOptionsResponse{}, toolError(ToolFuseOptions, err)
	}
	return nil, *out, nil
}

func (s *Server) toolContributions(ctx context.Context, _ *gomcp.CallToolRequest, in shardfuse.ContributionsRequest) (*gomcp.CallToolResult, shardfuse.ContributionsResponse, error) {
	out, err := s.engine.Contributions(ctx, in)
	if err != nil {
		return nil, shardfuse.ContributionsResponse{}, toolError(ToolContributions, err)
	}
	return nil, *out, nil
}

func (s *Server) toolGroups(ctx context.Context, _ *gomcp.CallToolRequest, in shardfuse.GroupsRequest) (*gomcp.CallToolResult, shardfuse.GroupsResponse, error) {
	out, err := s.engine.Groups(ctx, in)
	if err != nil {
		return nil, shardfuse.GroupsResponse{}, toolError(ToolGroups, err)
	}
	return nil, *out, nil
}

func (s *Server) toolRequirements(ctx context.Context, _ *gomcp.CallToolRequest, in shardfuse.RequirementsRequest) (*gomcp.CallToolResult, shardfuse.RequirementsResponse, error) {
	out, err := s.engine.Requirements(ctx, in)
	if err != nil {
		return nil, shardfuse.RequirementsResponse{}, toolError(ToolRequirements, err)
	}
	return nil, *out, nil
}

func (s *Server) toolStats(ctx context.Context, _ *gomcp.CallToolRequest, _ shardfuse.StatsRequest) (*gomcp.CallToolResult, shardfuse.CatalogStats, error) {
	out, err := s.engine.Stats(ctx)
	if err != nil {
		return nil, shardfuse.CatalogStats{}, toolError(ToolStats, err)
	}
	return nil, *out, nil
}
