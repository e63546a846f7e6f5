package engine

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/rsned/shardfuse-server/internal/shardfuse/catalog"
	"github.com/rsned/shardfuse-server/pkg/shardfuse"
)

// Groups returns one grouping index.
func (e *Engine) Groups(ctx context.Context, req shardfuse.GroupsRequest) (*shardfuse.GroupsResponse, error) {
	snap, err := e.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.GroupIndex(shardfuse.GroupKind(req.Kind))
}

// GroupIndex returns the groups of one kind.
func (s *Snapshot) GroupIndex(kind shardfuse.GroupKind) (*shardfuse.GroupsResponse, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("invalid group kind %q: must be one of %v", kind, shardfuse.GroupKinds())
	}
	groups := s.Groups[kind]
	out := make([]shardfuse.Group, len(groups))
	for i, g := range groups {
		out[i] = shardfuse.Group{Name: g.Name, Members: slices.Clone(g.Members)}
	}
	return &shardfuse.GroupsResponse{Kind: string(kind), Groups: out}, nil
}

// buildGroups computes every grouping index. Groups are sorted by name,
// except rarity groups (rarity order) and source groups (fusion-only first).
// Members are in catalog order.
func buildGroups(cat *catalog.Catalog) map[shardfuse.GroupKind][]shardfuse.Group {
	var (
		rarity   = newGrouper()
		category = newGrouper()
		skill    = newGrouper()
		family   = newGrouper()
		source   = newGrouper()
		tag      = newGrouper()
	)

	// Declared families, tags and skills are listed even when no item carries them.
	family.seed(cat.Families()...)
	tag.seed(cat.EffectTags()...)
	for _, sk := range shardfuse.Skills() {
		skill.seed(string(sk))
	}

	for _, it := range cat.Items() {
		rarity.add(string(it.Rarity), it.ID)
		category.add(string(it.Category), it.ID)
		skill.add(string(it.Skill), it.ID)
		for _, f := range it.MemberFamilies() {
			family.add(f, it.ID)
		}
		if len(it.Sources) == 0 {
			source.add(shardfuse.SourceFusionOnly, it.ID)
		}
		for _, src := range it.Sources {
			source.add(src.Type, it.ID)
		}
		for _, t := range it.EffectTags {
			tag.add(t, it.ID)
		}
	}

	rarityRank := func(name string) int { return shardfuse.Rarity(name).Rank() }

	return map[shardfuse.GroupKind][]shardfuse.Group{
		shardfuse.GroupByRarity:   rarity.sorted(func(a, b string) bool { return rarityRank(a) < rarityRank(b) }),
		shardfuse.GroupByCategory: category.sorted(nil),
		shardfuse.GroupBySkill:    skill.sorted(nil),
		shardfuse.GroupByFamily:   family.sorted(nil),
		shardfuse.GroupBySource: source.sorted(func(a, b string) bool {
			if (a == shardfuse.SourceFusionOnly) != (b == shardfuse.SourceFusionOnly) {
				return a == shardfuse.SourceFusionOnly
			}
			return a < b
		}),
		shardfuse.GroupByTag: tag.sorted(nil),
	}
}

type grouper struct {
	members map[string][]string
}

func newGrouper() *grouper {
	return &grouper{members: make(map[string][]string)}
}

func (g *grouper) seed(names ...string) {
	for _, name := range names {
		if _, ok := g.members[name]; !ok && name != "" {
			g.members[name] = []string{}
		}
	}
}

func (g *grouper) add(name, id string) {
	if name == "" {
		return
	}
	list := g.members[name]
	if len(list) > 0 && list[len(list)-1] == id {
		return
	}
	g.members[name] = append(list, id)
}

// sorted returns the groups ordered by less, or by name when less is nil.
func (g *grouper) sorted(less func(a, b string) bool) []shardfuse.Group {
	if less == nil {
		less = func(a, b string) bool { return a < b }
	}
	names := make([]string, 0, len(g.members))
	for name := range g.members {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return less(names[i], names[j]) })

	out := make([]shardfuse.Group, 0, len(names))
	for _, name := range names {
		out = append(out, shardfuse.Group{Name: name, Members: g.members[name]})
	}
	return out
}
