// Package catalog turns raw item-rule and price documents into a validated,
// immutable item catalog.
package catalog

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/rsned/shardfuse-server/pkg/shardfuse"
)

// Catalog is the validated item set plus the lookup tables every later stage
// reads. It is never modified after Build returns.
type Catalog struct {
	items    map[string]*shardfuse.Item
	ordered  []*shardfuse.Item
	byRarity map[shardfuse.Rarity][]*shardfuse.Item
	byNumber map[shardfuse.Rarity]map[int]*shardfuse.Item

	families          []string
	effectTags        []string
	familyCosts       []FamilyCost
	defaultCost       int
	specialMultiplier int

	prices         map[string]float64
	priceTimestamp int64
	costToMax      shardfuse.CostToMax
}

// Load parses and validates the three input documents. costData may be nil,
// in which case the table embedded in the item document (if any) is used.
func Load(itemData, priceData, costData []byte) (*Catalog, error) {
	doc, err := ParseItemDocument(itemData)
	if err != nil {
		return nil, err
	}

	prices, err := ParsePriceDocument(priceData)
	if err != nil {
		return nil, err
	}

	costs := doc.CostToMax
	if len(costData) > 0 {
		costs, err = ParseCostToMax(costData)
		if err != nil {
			return nil, err
		}
	}

	return Build(doc, prices, costs)
}

// Build validates a parsed item document against the closed tag domains and
// assembles the catalog.
func Build(doc *ItemDocument, prices shardfuse.PriceDocument, costs shardfuse.CostToMax) (*Catalog, error) {
	c := &Catalog{
		items:             make(map[string]*shardfuse.Item, len(doc.Items)),
		byRarity:          make(map[shardfuse.Rarity][]*shardfuse.Item),
		byNumber:          make(map[shardfuse.Rarity]map[int]*shardfuse.Item),
		families:          slices.Clone(doc.Families),
		effectTags:        slices.Clone(doc.EffectTags),
		familyCosts:       slices.Clone(doc.FamilyCosts),
		defaultCost:       doc.DefaultCost,
		specialMultiplier: doc.SpecialMultiplier,
		prices:            maps.Clone(prices.Prices),
		priceTimestamp:    prices.Timestamp,
		costToMax:         maps.Clone(costs),
	}
	if c.prices == nil {
		c.prices = make(map[string]float64)
	}
	if c.costToMax == nil {
		c.costToMax = make(shardfuse.CostToMax)
	}
	if c.defaultCost <= 0 {
		c.defaultCost = 1
	}
	if c.specialMultiplier <= 0 {
		c.specialMultiplier = 1
	}

	knownFamilies := make(map[string]bool, len(c.families))
	for _, f := range c.families {
		knownFamilies[f] = true
	}
	for _, fc := range c.familyCosts {
		if !knownFamilies[fc.Family] {
			return nil, shardfuse.NewError(shardfuse.CodeInvalidTag,
				"family fuse cost references unknown family %q", fc.Family)
		}
	}

	for _, raw := range doc.Items {
		item, err := c.buildItem(raw, knownFamilies)
		if err != nil {
			return nil, err
		}

		if _, dup := c.items[item.ID]; dup {
			return nil, shardfuse.NewError(shardfuse.CodeInvalidIdentifier,
				"duplicate identifier %s", item.ID).WithMetadata("item", item.ID)
		}
		if other, dup := c.byNumber[item.Rarity][item.Number]; dup {
			return nil, shardfuse.NewError(shardfuse.CodeInvalidIdentifier,
				"identifiers %s and %s share rarity %s number %d", other.ID, item.ID, item.Rarity, item.Number)
		}

		c.items[item.ID] = item
		c.ordered = append(c.ordered, item)
		c.byRarity[item.Rarity] = append(c.byRarity[item.Rarity], item)
		if c.byNumber[item.Rarity] == nil {
			c.byNumber[item.Rarity] = make(map[int]*shardfuse.Item)
		}
		c.byNumber[item.Rarity][item.Number] = item
	}

	// Explicit item filters may only be checked once every identifier is known.
	for _, item := range c.ordered {
		for _, pair := range item.SpecialFuses {
			for _, req := range pair {
				for _, id := range req.Items {
					if _, ok := c.items[id]; !ok {
						return nil, shardfuse.NewError(shardfuse.CodeUnknownItemReference,
							"item %s requirement references unknown item %s", item.ID, id).
							WithMetadata("item", item.ID, "reference", id)
					}
				}
			}
		}
	}

	slices.SortFunc(c.ordered, shardfuse.CompareItems)
	for r := range c.byRarity {
		slices.SortFunc(c.byRarity[r], shardfuse.CompareItems)
	}

	return c, nil
}

func (c *Catalog) buildItem(raw RawItem, knownFamilies map[string]bool) (*shardfuse.Item, error) {
	rarity, number, err := ParseIdentifier(raw.ID)
	if err != nil {
		return nil, err
	}

	category := shardfuse.Category(raw.Category)
	if !category.IsValid() {
		return nil, shardfuse.NewError(shardfuse.CodeInvalidTag,
			"item %s: invalid category %q", raw.ID, raw.Category).WithMetadata("item", raw.ID)
	}
	skill := shardfuse.Skill(raw.Skill)
	if !skill.IsValid() {
		return nil, shardfuse.NewError(shardfuse.CodeInvalidTag,
			"item %s: invalid skill %q", raw.ID, raw.Skill).WithMetadata("item", raw.ID)
	}

	families := make(map[string]bool, len(c.families))
	for _, f := range c.families {
		families[f] = false
	}
	for _, f := range raw.Families {
		if !knownFamilies[f] {
			return nil, shardfuse.NewError(shardfuse.CodeInvalidTag,
				"item %s: invalid family %q", raw.ID, f).WithMetadata("item", raw.ID)
		}
		families[f] = true
	}

	if len(c.effectTags) > 0 {
		for _, tag := range raw.EffectTags {
			if !slices.Contains(c.effectTags, tag) {
				return nil, shardfuse.NewError(shardfuse.CodeInvalidTag,
					"item %s: invalid effect tag %q", raw.ID, tag).WithMetadata("item", raw.ID)
			}
		}
	}

	fuses := make([]shardfuse.RequirementPair, 0, len(raw.SpecialFuses))
	for _, rawPair := range raw.SpecialFuses {
		var pair shardfuse.RequirementPair
		for i, rawReq := range rawPair {
			req, err := buildRequirement(rawReq, knownFamilies)
			if err != nil {
				if e, ok := err.(*shardfuse.Error); ok {
					e.WithMetadata("item", raw.ID)
				}
				return nil, err
			}
			pair[i] = req
		}
		fuses = append(fuses, pair)
	}

	item := &shardfuse.Item{
		ID:                raw.ID,
		Name:              raw.Name,
		PriceKey:          raw.PriceKey,
		Rarity:            rarity,
		Number:            number,
		AttributeName:     raw.AttributeName,
		EffectDescription: raw.EffectDescription,
		EffectMax:         raw.EffectMax,
		Effect2Max:        raw.Effect2Max,
		EffectTags:        slices.Clone(raw.EffectTags),
		Category:          category,
		Skill:             skill,
		Families:          families,
		BasicFuseOutput:   raw.BasicFuseOutput,
		Sources:           slices.Clone(raw.Sources),
	}
	if len(fuses) > 0 {
		item.SpecialFuses = fuses
	}
	return item, nil
}

func buildRequirement(raw RawRequirement, knownFamilies map[string]bool) (shardfuse.Requirement, error) {
	if raw.IsEmpty() {
		return shardfuse.Requirement{}, shardfuse.NewError(shardfuse.CodeInvalidRequirement,
			"at least one requirement must be specified")
	}

	var req shardfuse.Requirement
	for _, s := range raw.Rarity {
		f, ok := shardfuse.ParseRarityFilter(s)
		if !ok {
			return shardfuse.Requirement{}, shardfuse.NewError(shardfuse.CodeInvalidRequirement,
				"invalid rarity requirement %q", s)
		}
		req.Rarities = append(req.Rarities, f)
	}
	for _, s := range raw.Category {
		cat := shardfuse.Category(s)
		if !cat.IsValid() {
			return shardfuse.Requirement{}, shardfuse.NewError(shardfuse.CodeInvalidRequirement,
				"invalid category requirement %q", s)
		}
		req.Categories = append(req.Categories, cat)
	}
	for _, s := range raw.Family {
		if !knownFamilies[s] {
			return shardfuse.Requirement{}, shardfuse.NewError(shardfuse.CodeInvalidRequirement,
				"invalid family requirement %q", s)
		}
		req.Families = append(req.Families, s)
	}
	req.Items = slices.Clone(raw.Item)
	return req, nil
}

// ParseIdentifier splits an identifier such as "R7" into its rarity and number.
func ParseIdentifier(id string) (shardfuse.Rarity, int, error) {
	if len(id) < 2 || len(id) > 3 {
		return "", 0, shardfuse.NewError(shardfuse.CodeInvalidIdentifier,
			"invalid identifier %q: length must be 2 or 3", id).WithMetadata("item", id)
	}
	rarity, ok := shardfuse.RarityFromLetter(id[0])
	if !ok {
		return "", 0, shardfuse.NewError(shardfuse.CodeInvalidIdentifier,
			"invalid identifier %q: unknown rarity letter", id).WithMetadata("item", id)
	}
	suffix := id[1:]
	for i := 0; i < len(suffix); i++ {
		if suffix[i] < '0' || suffix[i] > '9' {
			return "", 0, shardfuse.NewError(shardfuse.CodeInvalidIdentifier,
				"invalid identifier %q: number must be decimal digits", id).WithMetadata("item", id)
		}
	}
	number, err := strconv.Atoi(suffix)
	if err != nil {
		return "", 0, shardfuse.WrapError(shardfuse.CodeInvalidIdentifier, err,
			fmt.Sprintf("invalid identifier %q", id))
	}
	return rarity, number, nil
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	return len(c.ordered)
}

// Items returns all items ordered by rarity then number. The slice must not
// be modified.
func (c *Catalog) Items() []*shardfuse.Item {
	return c.ordered
}

// Item looks up an item by identifier.
func (c *Catalog) Item(id string) (*shardfuse.Item, bool) {
	it, ok := c.items[id]
	return it, ok
}

// Lookup is Item with an UnknownItemReference error for absent identifiers.
func (c *Catalog) Lookup(id string) (*shardfuse.Item, error) {
	it, ok := c.items[id]
	if !ok {
		return nil, shardfuse.NewError(shardfuse.CodeUnknownItemReference,
			"unknown item %s", id).WithMetadata("item", id)
	}
	return it, nil
}

// RarityGroup returns the items of one rarity sorted by number.
func (c *Catalog) RarityGroup(r shardfuse.Rarity) []*shardfuse.Item {
	return c.byRarity[r]
}

// ItemAt returns the item with the given rarity and number.
func (c *Catalog) ItemAt(r shardfuse.Rarity, number int) (*shardfuse.Item, bool) {
	it, ok := c.byNumber[r][number]
	return it, ok
}

// Families returns the known family tags in document order.
func (c *Catalog) Families() []string {
	return slices.Clone(c.families)
}

// EffectTags returns the declared effect tags in document order.
func (c *Catalog) EffectTags() []string {
	return slices.Clone(c.effectTags)
}

// FuseCost returns how many units of item one fusion consumes.
func (c *Catalog) FuseCost(item *shardfuse.Item) int {
	for _, fc := range c.familyCosts {
		if item.InFamily(fc.Family) {
			return fc.Cost
		}
	}
	return c.defaultCost
}

// SpecialMultiplier is the output multiplier of special fusions.
func (c *Catalog) SpecialMultiplier() int {
	return c.specialMultiplier
}

// Price returns the unit price of an item. Missing prices are only an error
// when something asks for them.
func (c *Catalog) Price(id string) (float64, error) {
	item, err := c.Lookup(id)
	if err != nil {
		return 0, err
	}
	price, ok := c.prices[item.PriceKey]
	if !ok || item.PriceKey == "" || price <= 0 {
		return 0, shardfuse.NewError(shardfuse.CodeMissingPrice,
			"no price for item %s (key %q)", id, item.PriceKey).
			WithMetadata("item", id, "price_key", item.PriceKey)
	}
	return price, nil
}

// HasPrice reports whether the snapshot carries a positive price for the item.
func (c *Catalog) HasPrice(id string) bool {
	item, ok := c.items[id]
	if !ok || item.PriceKey == "" {
		return false
	}
	return c.prices[item.PriceKey] > 0
}

// PriceTimestamp is the timestamp of the price snapshot.
func (c *Catalog) PriceTimestamp() int64 {
	return c.priceTimestamp
}

// CostToMax returns the units needed to max an item of rarity r, or 0 if the
// table has no entry.
func (c *Catalog) CostToMax(r shardfuse.Rarity) int {
	return c.costToMax[r]
}

// CostToMaxTable returns a copy of the cost-to-max table.
func (c *Catalog) CostToMaxTable() shardfuse.CostToMax {
	return maps.Clone(c.costToMax)
}
