// Package shardfuse contains the core types for the shard fusion server.
package shardfuse

import (
	"slices"
	"sort"
	"strings"
)

// ============================================
// RARITY AND TAG TYPES
// ============================================

// Rarity is the ordered rarity tier of an item.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

var rarityOrder = []Rarity{RarityCommon, RarityUncommon, RarityRare, RarityEpic, RarityLegendary}

var rarityLetters = map[byte]Rarity{
	'C': RarityCommon,
	'U': RarityUncommon,
	'R': RarityRare,
	'E': RarityEpic,
	'L': RarityLegendary,
}

// Rarities returns every rarity from lowest to highest.
func Rarities() []Rarity {
	return slices.Clone(rarityOrder)
}

// Rank returns the position of the rarity in the ordering, or -1 if unknown.
func (r Rarity) Rank() int {
	return slices.Index(rarityOrder, r)
}

// IsValid checks if the rarity is one of the known tiers.
func (r Rarity) IsValid() bool {
	return r.Rank() >= 0
}

// Letter returns the identifier prefix used for this rarity.
func (r Rarity) Letter() byte {
	for letter, rarity := range rarityLetters {
		if rarity == r {
			return letter
		}
	}
	return 0
}

// Next returns the next rarity up. The second value is false for the top tier.
func (r Rarity) Next() (Rarity, bool) {
	rank := r.Rank()
	if rank < 0 || rank+1 >= len(rarityOrder) {
		return "", false
	}
	return rarityOrder[rank+1], true
}

// RarityFromLetter maps an identifier prefix to its rarity.
func RarityFromLetter(letter byte) (Rarity, bool) {
	r, ok := rarityLetters[letter]
	return r, ok
}

// ParseRarity parses a rarity name such as "rare".
func ParseRarity(s string) (Rarity, bool) {
	r := Rarity(strings.ToLower(strings.TrimSpace(s)))
	return r, r.IsValid()
}

// Category is the habitat category of an item.
type Category string

const (
	CategoryForest Category = "forest"
	CategoryWater  Category = "water"
	CategoryCombat Category = "combat"
)

// Categories returns all valid categories.
func Categories() []Category {
	return []Category{CategoryForest, CategoryWater, CategoryCombat}
}

// IsValid checks if the category is known.
func (c Category) IsValid() bool {
	return slices.Contains(Categories(), c)
}

// Skill is the skill an item's attribute boosts.
type Skill string

const (
	SkillGlobal     Skill = "global"
	SkillForaging   Skill = "foraging"
	SkillFishing    Skill = "fishing"
	SkillEnchanting Skill = "enchanting"
	SkillMining     Skill = "mining"
	SkillCombat     Skill = "combat"
	SkillTaming     Skill = "taming"
	SkillHunting    Skill = "hunting"
	SkillFarming    Skill = "farming"
)

// Skills returns all valid skills.
func Skills() []Skill {
	return []Skill{
		SkillGlobal, SkillForaging, SkillFishing, SkillEnchanting, SkillMining,
		SkillCombat, SkillTaming, SkillHunting, SkillFarming,
	}
}

// IsValid checks if the skill is known.
func (s Skill) IsValid() bool {
	return slices.Contains(Skills(), s)
}

// ============================================
// ITEM TYPES
// ============================================

// SourceFusionOnly is the source type of items that can only be obtained by fusing.
const SourceFusionOnly = "fusionOnly"

// Source describes one way of acquiring an item.
type Source struct {
	Type        string `json:"source_type" yaml:"source_type"`
	Description string `json:"source_desc,omitempty" yaml:"source_desc,omitempty"`
}

// RarityFilter matches one rarity, or that rarity and everything above it.
type RarityFilter struct {
	Rarity   Rarity `json:"rarity" yaml:"rarity"`
	OrHigher bool   `json:"or_higher,omitempty" yaml:"or_higher,omitempty"`
}

// ParseRarityFilter parses "rare" or "rare+".
func ParseRarityFilter(s string) (RarityFilter, bool) {
	var f RarityFilter
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "+") {
		f.OrHigher = true
		s = strings.TrimSuffix(s, "+")
	}
	r, ok := ParseRarity(s)
	if !ok {
		return RarityFilter{}, false
	}
	f.Rarity = r
	return f, true
}

// Matches reports whether r passes the filter.
func (f RarityFilter) Matches(r Rarity) bool {
	if f.OrHigher {
		return r.Rank() >= f.Rarity.Rank()
	}
	return r == f.Rarity
}

func (f RarityFilter) String() string {
	if f.OrHigher {
		return string(f.Rarity) + "+"
	}
	return string(f.Rarity)
}

// Requirement restricts which items may fill one side of a special fusion.
// Non-empty filters are combined with AND; entries within a filter with OR.
type Requirement struct {
	Rarities   []RarityFilter `json:"rarities,omitempty" yaml:"rarities,omitempty"`
	Categories []Category     `json:"categories,omitempty" yaml:"categories,omitempty"`
	Items      []string       `json:"items,omitempty" yaml:"items,omitempty"`
	Families   []string       `json:"families,omitempty" yaml:"families,omitempty"`
}

// IsEmpty reports whether no filter is set.
func (r Requirement) IsEmpty() bool {
	return len(r.Rarities) == 0 && len(r.Categories) == 0 && len(r.Items) == 0 && len(r.Families) == 0
}

// SatisfiedBy reports whether the item passes every non-empty filter.
func (r Requirement) SatisfiedBy(item *Item) bool {
	if len(r.Rarities) > 0 && !slices.ContainsFunc(r.Rarities, func(f RarityFilter) bool {
		return f.Matches(item.Rarity)
	}) {
		return false
	}
	if len(r.Categories) > 0 && !slices.Contains(r.Categories, item.Category) {
		return false
	}
	if len(r.Items) > 0 && !slices.Contains(r.Items, item.ID) {
		return false
	}
	if len(r.Families) > 0 && !slices.ContainsFunc(r.Families, item.InFamily) {
		return false
	}
	return true
}

// String renders the requirement as a stable description, e.g.
// "rarity rare+; category combat".
func (r Requirement) String() string {
	var parts []string
	if len(r.Rarities) > 0 {
		names := make([]string, len(r.Rarities))
		for i, f := range r.Rarities {
			names[i] = f.String()
		}
		parts = append(parts, "rarity "+strings.Join(names, "|"))
	}
	if len(r.Categories) > 0 {
		names := make([]string, len(r.Categories))
		for i, c := range r.Categories {
			names[i] = string(c)
		}
		parts = append(parts, "category "+strings.Join(names, "|"))
	}
	if len(r.Items) > 0 {
		parts = append(parts, "item "+strings.Join(r.Items, "|"))
	}
	if len(r.Families) > 0 {
		parts = append(parts, "family "+strings.Join(r.Families, "|"))
	}
	return strings.Join(parts, "; ")
}

// RequirementPair is one declared special fusion: any item satisfying the
// first requirement may fuse with any item satisfying the second.
type RequirementPair [2]Requirement

// Item is a validated catalog entry. Items are never modified after load.
type Item struct {
	ID                string            `json:"id" yaml:"id"`
	Name              string            `json:"name" yaml:"name"`
	PriceKey          string            `json:"price_key" yaml:"price_key"`
	Rarity            Rarity            `json:"rarity" yaml:"rarity"`
	Number            int               `json:"number" yaml:"number"`
	AttributeName     string            `json:"attribute_name,omitempty" yaml:"attribute_name,omitempty"`
	EffectDescription string            `json:"effect_description,omitempty" yaml:"effect_description,omitempty"`
	EffectMax         float64           `json:"effect_max,omitempty" yaml:"effect_max,omitempty"`
	Effect2Max        float64           `json:"effect2_max,omitempty" yaml:"effect2_max,omitempty"`
	EffectTags        []string          `json:"effect_tags,omitempty" yaml:"effect_tags,omitempty"`
	Category          Category          `json:"category" yaml:"category"`
	Skill             Skill             `json:"skill" yaml:"skill"`
	Families          map[string]bool   `json:"families" yaml:"families"`
	BasicFuseOutput   bool              `json:"basic_fuse_output" yaml:"basic_fuse_output"`
	Sources           []Source          `json:"sources,omitempty" yaml:"sources,omitempty"`
	SpecialFuses      []RequirementPair `json:"special_fuses,omitempty" yaml:"special_fuses,omitempty"`
}

// SortValue orders items by rarity, then sequence number.
func (it *Item) SortValue() int {
	return it.Rarity.Rank()*1000 + it.Number
}

// InFamily reports whether the item belongs to family.
func (it *Item) InFamily(family string) bool {
	return it.Families[family]
}

// MemberFamilies returns the families the item belongs to, sorted.
func (it *Item) MemberFamilies() []string {
	out := make([]string, 0, len(it.Families))
	for f, ok := range it.Families {
		if ok {
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

// CompareItems orders items by sort value, then identifier.
func CompareItems(a, b *Item) int {
	if d := a.SortValue() - b.SortValue(); d != 0 {
		return d
	}
	return strings.Compare(a.ID, b.ID)
}

// ============================================
// FUSION TYPES
// ============================================

// FusionType is the rule that produced a combination.
type FusionType string

const (
	FusionBasic     FusionType = "basic"
	FusionChameleon FusionType = "chameleon"
	FusionSpecial   FusionType = "special"
)

// IsValid checks if the fusion type is known.
func (t FusionType) IsValid() bool {
	switch t {
	case FusionBasic, FusionChameleon, FusionSpecial:
		return true
	}
	return false
}

// FusionCombination is an unordered pair of input items that fuses into a target.
// Item1 is always the lower item by sort value.
type FusionCombination struct {
	Item1       string     `json:"item1" yaml:"item1"`
	Cost1       int        `json:"cost1" yaml:"cost1"`
	Item2       string     `json:"item2" yaml:"item2"`
	Cost2       int        `json:"cost2" yaml:"cost2"`
	Multiplier  int        `json:"multiplier" yaml:"multiplier"`
	Type        FusionType `json:"type" yaml:"type"`
	Derivations int        `json:"derivations" yaml:"derivations"`
}

// PairID is the canonical pair identifier: both ids concatenated in stored order.
func (c FusionCombination) PairID() string {
	return c.Item1 + c.Item2
}

// Contains reports whether id is either input.
func (c FusionCombination) Contains(id string) bool {
	return c.Item1 == id || c.Item2 == id
}

// SelfPair reports whether both inputs are the same item.
func (c FusionCombination) SelfPair() bool {
	return c.Item1 == c.Item2
}

// DedupeKey builds the order-independent key of an input pair.
func DedupeKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "-" + b
}

// ValuatedCombination is a combination priced per output unit.
type ValuatedCombination struct {
	Combination  FusionCombination `json:"combination" yaml:"combination"`
	Output       string            `json:"output" yaml:"output"`
	PricePerUnit float64           `json:"price_per_unit" yaml:"price_per_unit"`
	DedupeKey    string            `json:"dedupe_key" yaml:"dedupe_key"`
	Swappable    bool              `json:"swappable" yaml:"swappable"`
}

// Contribution is one component item's marginal effect on a target's prices.
type Contribution struct {
	Target    string  `json:"target" yaml:"target"`
	Component string  `json:"component" yaml:"component"`
	Score     float64 `json:"score" yaml:"score"`
	Required  bool    `json:"required" yaml:"required"`
	InCount   int     `json:"in_count" yaml:"in_count"`
}

// ============================================
// INPUT DOCUMENT TYPES
// ============================================

// PriceDocument is a snapshot of unit prices keyed by price key.
type PriceDocument struct {
	Timestamp int64              `json:"timestamp"`
	Prices    map[string]float64 `json:"shardPrices"`
}

// CostToMax maps a rarity to the number of units needed to fully upgrade an item.
type CostToMax map[Rarity]int

// ============================================
// VIEW TYPES
// ============================================

// GroupKind selects a grouping index.
type GroupKind string

const (
	GroupByRarity   GroupKind = "rarity"
	GroupByCategory GroupKind = "category"
	GroupBySkill    GroupKind = "skill"
	GroupByFamily   GroupKind = "family"
	GroupBySource   GroupKind = "source"
	GroupByTag      GroupKind = "tag"
)

// GroupKinds returns all grouping kinds.
func GroupKinds() []GroupKind {
	return []GroupKind{GroupByRarity, GroupByCategory, GroupBySkill, GroupByFamily, GroupBySource, GroupByTag}
}

// IsValid checks if the group kind is known.
func (k GroupKind) IsValid() bool {
	return slices.Contains(GroupKinds(), k)
}

// Group is a named set of item identifiers.
type Group struct {
	Name    string   `json:"name" yaml:"name"`
	Members []string `json:"members" yaml:"members"`
}

// RequirementInfo lists which targets declare a requirement and which items satisfy it.
type RequirementInfo struct {
	Description string   `json:"description" yaml:"description"`
	Targets     []string `json:"targets" yaml:"targets"`
	Matches     []string `json:"matches" yaml:"matches"`
}

// ItemView is the per-item display view.
type ItemView struct {
	ID                    string                `json:"id" yaml:"id"`
	Name                  string                `json:"name" yaml:"name"`
	Rarity                Rarity                `json:"rarity" yaml:"rarity"`
	Category              Category              `json:"category" yaml:"category"`
	Skill                 Skill                 `json:"skill" yaml:"skill"`
	Families              []string              `json:"families" yaml:"families"`
	AttributeName         string                `json:"attribute_name,omitempty" yaml:"attribute_name,omitempty"`
	EffectDescription     string                `json:"effect_description,omitempty" yaml:"effect_description,omitempty"`
	EffectMax             float64               `json:"effect_max,omitempty" yaml:"effect_max,omitempty"`
	Effect2Max            float64               `json:"effect2_max,omitempty" yaml:"effect2_max,omitempty"`
	EffectTags            []string              `json:"effect_tags" yaml:"effect_tags"`
	Sources               []Source              `json:"sources" yaml:"sources"`
	PriceKey              string                `json:"price_key" yaml:"price_key"`
	Price                 float64               `json:"price" yaml:"price"`
	PriceMissing          bool                  `json:"price_missing,omitempty" yaml:"price_missing,omitempty"`
	CostToMax             int                   `json:"cost_to_max" yaml:"cost_to_max"`
	PriceToMax            float64               `json:"price_to_max" yaml:"price_to_max"`
	BasicFuseOutput       bool                  `json:"basic_fuse_output" yaml:"basic_fuse_output"`
	BasicFuseTarget       string                `json:"basic_fuse_target,omitempty" yaml:"basic_fuse_target,omitempty"`
	BasicFuseTargetedBy   []string              `json:"basic_fuse_targeted_by" yaml:"basic_fuse_targeted_by"`
	ChameleonTargets      []string              `json:"chameleon_targets" yaml:"chameleon_targets"`
	ChameleonTargetedBy   []string              `json:"chameleon_targeted_by" yaml:"chameleon_targeted_by"`
	SpecialFuses          []string              `json:"special_fuses" yaml:"special_fuses"`
	TotalCombinations     int                   `json:"total_combinations" yaml:"total_combinations"`
	Combinations          []ValuatedCombination `json:"combinations" yaml:"combinations"`
	ContributionsToThis   []Contribution        `json:"contributions_to_this" yaml:"contributions_to_this"`
	ContributionsToOthers []Contribution        `json:"contributions_to_others" yaml:"contributions_to_others"`
}

// CatalogStats summarizes a computed snapshot.
type CatalogStats struct {
	Items          int     `json:"items" yaml:"items"`
	Targets        int     `json:"targets" yaml:"targets"`
	Combinations   int     `json:"combinations" yaml:"combinations"`
	Requirements   int     `json:"requirements" yaml:"requirements"`
	TotalCostToMax float64 `json:"total_cost_to_max" yaml:"total_cost_to_max"`
	PriceTimestamp int64   `json:"price_timestamp" yaml:"price_timestamp"`
	ComputedAt     string  `json:"computed_at" yaml:"computed_at"`
}

// ============================================
// TOOL REQUEST/RESPONSE TYPES
// ============================================

// ItemViewRequest is the input for the item_view tool.
type ItemViewRequest struct {
	ItemID string `json:"item_id" jsonschema:"item identifier, e.g. R7"`
	Limit  int    `json:"limit,omitempty" jsonschema:"max combinations and contributions per list (default 20)"`
}

// FuseOptionsRequest is the input for the fuse_options tool.
type FuseOptionsRequest struct {
	TargetID   string `json:"target_id" jsonschema:"identifier of the item to produce"`
	FusionType string `json:"fusion_type,omitempty" jsonschema:"only return combinations of this rule type (basic, chameleon, special)"`
	Limit      int    `json:"limit,omitempty" jsonschema:"max combinations to return (default 20)"`
}

// FuseOptionsResponse lists the cheapest ways to produce a target.
type FuseOptionsResponse struct {
	TargetID     string                `json:"target_id"`
	Total        int                   `json:"total"`
	Combinations []ValuatedCombination `json:"combinations"`
}

// Contribution directions.
const (
	DirectionTo   = "to"
	DirectionFrom = "from"
)

// ContributionsRequest is the input for the marginal_contributions tool.
type ContributionsRequest struct {
	ItemID    string `json:"item_id" jsonschema:"item identifier"`
	Direction string `json:"direction,omitempty" jsonschema:"to: components that make this item cheaper; from: targets this item helps (default to)"`
	Limit     int    `json:"limit,omitempty" jsonschema:"max entries to return (default 20)"`
}

// ContributionsResponse lists ranked contributions for one item.
type ContributionsResponse struct {
	ItemID        string         `json:"item_id"`
	Direction     string         `json:"direction"`
	Contributions []Contribution `json:"contributions"`
}

// GroupsRequest is the input for the item_groups tool.
type GroupsRequest struct {
	Kind string `json:"kind" jsonschema:"grouping: rarity, category, skill, family, source or tag"`
}

// GroupsResponse is an ordered grouping index.
type GroupsResponse struct {
	Kind   string  `json:"kind"`
	Groups []Group `json:"groups"`
}

// RequirementsRequest is the input for the special_requirements tool.
type RequirementsRequest struct {
	Search string `json:"search,omitempty" jsonschema:"substring filter on the requirement description"`
	Limit  int    `json:"limit,omitempty" jsonschema:"max entries to return (default 20)"`
}

// RequirementsResponse lists special requirements with their targets and matches.
type RequirementsResponse struct {
	Requirements []RequirementInfo `json:"requirements"`
}

// StatsRequest is the (empty) input for the catalog_stats tool.
type StatsRequest struct{}
