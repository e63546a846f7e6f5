package catalog

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/rsned/shardfuse-server/pkg/shardfuse"
)

// defaultFamilyKey names the fallback entry of the family fuse cost table.
const defaultFamilyKey = "default"

// ItemDocument is the item-rule document after shape normalization.
// Values are still raw strings; Build validates them.
type ItemDocument struct {
	Families          []string
	EffectTags        []string
	FamilyCosts       []FamilyCost
	DefaultCost       int
	SpecialMultiplier int
	CostToMax         shardfuse.CostToMax
	Items             []RawItem
}

// FamilyCost is one per-side consumption override. Order matters: the first
// family an item belongs to wins.
type FamilyCost struct {
	Family string
	Cost   int
}

// RawItem is one item rule as declared in the document.
type RawItem struct {
	ID                string
	Name              string
	PriceKey          string
	AttributeName     string
	EffectDescription string
	EffectMax         float64
	Effect2Max        float64
	EffectTags        []string
	Category          string
	Skill             string
	Families          []string
	BasicFuseOutput   bool
	Sources           []shardfuse.Source
	SpecialFuses      [][2]RawRequirement
}

// RawRequirement holds the four requirement filters, each normalized to a list.
type RawRequirement struct {
	Rarity   []string
	Category []string
	Item     []string
	Family   []string
}

// IsEmpty reports whether every filter is empty.
func (r RawRequirement) IsEmpty() bool {
	return len(r.Rarity)+len(r.Category)+len(r.Item)+len(r.Family) == 0
}

// ParseItemDocument parses a raw item-rule document.
func ParseItemDocument(data []byte) (*ItemDocument, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("parsing item document: invalid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("parsing item document: top level must be an object")
	}

	doc := &ItemDocument{
		Families:          stringList(root.Get("families")),
		EffectTags:        stringList(root.Get("effectTags")),
		DefaultCost:       1,
		SpecialMultiplier: 1,
	}

	var err error
	root.Get("familyFuseCost").ForEach(func(k, v gjson.Result) bool {
		cost := int(v.Int())
		if v.Type != gjson.Number || cost <= 0 {
			err = shardfuse.NewError(shardfuse.CodeInvalidFuseRequirementFormat,
				"family fuse cost for %q must be a positive integer", k.String())
			return false
		}
		if k.String() == defaultFamilyKey {
			doc.DefaultCost = cost
			return true
		}
		doc.FamilyCosts = append(doc.FamilyCosts, FamilyCost{Family: k.String(), Cost: cost})
		return true
	})
	if err != nil {
		return nil, err
	}

	if m := root.Get("specialFuseMultiplier"); m.Exists() {
		if m.Type != gjson.Number || m.Int() <= 0 || float64(m.Int()) != m.Float() {
			return nil, shardfuse.NewError(shardfuse.CodeInvalidFuseRequirementFormat,
				"specialFuseMultiplier must be a positive integer, got %s", m.Raw)
		}
		doc.SpecialMultiplier = int(m.Int())
	}

	if c := root.Get("costToMax"); c.Exists() {
		doc.CostToMax, err = costToMaxFromResult(c)
		if err != nil {
			return nil, err
		}
	}

	shards := root.Get("shards")
	if !shards.IsObject() {
		return nil, fmt.Errorf("parsing item document: shards must be an object")
	}
	shards.ForEach(func(k, v gjson.Result) bool {
		var item RawItem
		item, err = parseRawItem(k.String(), v)
		if err != nil {
			return false
		}
		doc.Items = append(doc.Items, item)
		return true
	})
	if err != nil {
		return nil, err
	}

	return doc, nil
}

func parseRawItem(id string, v gjson.Result) (RawItem, error) {
	if !v.IsObject() {
		return RawItem{}, fmt.Errorf("item %s: rule must be an object", id)
	}

	item := RawItem{
		ID:                id,
		Name:              v.Get("name").String(),
		PriceKey:          v.Get("bazaarId").String(),
		AttributeName:     v.Get("attributeName").String(),
		EffectDescription: v.Get("effectDescription").String(),
		EffectMax:         v.Get("effectMax").Float(),
		Effect2Max:        v.Get("effect2Max").Float(),
		EffectTags:        stringList(v.Get("effectTags")),
		Category:          v.Get("category").String(),
		Skill:             v.Get("skill").String(),
		Families:          stringList(v.Get("families")),
		BasicFuseOutput:   v.Get("isBasicFuseTarget").Bool(),
		Sources:           parseSources(v.Get("sources")),
	}

	fuses, err := parseSpecialFuses(v.Get("specialFuseRequirement"))
	if err != nil {
		if e, ok := err.(*shardfuse.Error); ok {
			e.WithMetadata("item", id)
		}
		return RawItem{}, err
	}
	item.SpecialFuses = fuses

	return item, nil
}

// parseSpecialFuses accepts either a single pair [req, req] or a list of pairs.
func parseSpecialFuses(v gjson.Result) ([][2]RawRequirement, error) {
	if !v.Exists() || v.Type == gjson.Null {
		return nil, nil
	}
	if !v.IsArray() {
		return nil, shardfuse.NewError(shardfuse.CodeInvalidFuseRequirementFormat,
			"invalid fuse requirement format: %s", v.Raw)
	}

	elems := v.Array()
	if len(elems) == 0 {
		return nil, nil
	}

	if !elems[0].IsArray() {
		pair, err := parseRequirementPair(elems)
		if err != nil {
			return nil, err
		}
		return [][2]RawRequirement{pair}, nil
	}

	pairs := make([][2]RawRequirement, 0, len(elems))
	for _, e := range elems {
		if !e.IsArray() {
			return nil, shardfuse.NewError(shardfuse.CodeInvalidFuseRequirementFormat,
				"invalid fuse requirement format: mixed pair list %s", v.Raw)
		}
		pair, err := parseRequirementPair(e.Array())
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}

func parseRequirementPair(sides []gjson.Result) ([2]RawRequirement, error) {
	var pair [2]RawRequirement
	if len(sides) != 2 {
		return pair, shardfuse.NewError(shardfuse.CodeInvalidFuseRequirementFormat,
			"invalid fuse requirement format: expected 2 requirements, got %d", len(sides))
	}
	for i, side := range sides {
		if !side.IsObject() {
			return pair, shardfuse.NewError(shardfuse.CodeInvalidFuseRequirementFormat,
				"invalid fuse requirement format: requirement must be an object, got %s", side.Raw)
		}
		req := RawRequirement{
			Rarity:   stringList(side.Get("rarity")),
			Category: stringList(side.Get("category")),
			Item:     stringList(side.Get("shard")),
			Family:   stringList(side.Get("family")),
		}
		if req.IsEmpty() {
			return pair, shardfuse.NewError(shardfuse.CodeInvalidRequirement,
				"at least one requirement must be specified")
		}
		pair[i] = req
	}
	return pair, nil
}

// parseSources accepts plain source type strings or {sourceType, sourceDesc} objects.
func parseSources(v gjson.Result) []shardfuse.Source {
	var out []shardfuse.Source
	add := func(s gjson.Result) {
		switch {
		case s.IsObject():
			out = append(out, shardfuse.Source{
				Type:        s.Get("sourceType").String(),
				Description: s.Get("sourceDesc").String(),
			})
		case s.Type == gjson.String && s.String() != "":
			out = append(out, shardfuse.Source{Type: s.String()})
		}
	}
	if v.IsArray() {
		v.ForEach(func(_, s gjson.Result) bool {
			add(s)
			return true
		})
		return out
	}
	if v.Exists() {
		add(v)
	}
	return out
}

// stringList normalizes a scalar-or-list value to a list.
func stringList(v gjson.Result) []string {
	if !v.Exists() || v.Type == gjson.Null {
		return nil
	}
	if !v.IsArray() {
		return []string{v.String()}
	}
	arr := v.Array()
	out := make([]string, 0, len(arr))
	for _, e := range arr {
		out = append(out, e.String())
	}
	return out
}

// ParsePriceDocument parses {"timestamp": ..., "shardPrices": {...}}.
func ParsePriceDocument(data []byte) (shardfuse.PriceDocument, error) {
	if !gjson.ValidBytes(data) {
		return shardfuse.PriceDocument{}, fmt.Errorf("parsing price document: invalid JSON")
	}
	root := gjson.ParseBytes(data)
	prices := root.Get("shardPrices")
	if !prices.IsObject() {
		return shardfuse.PriceDocument{}, fmt.Errorf("parsing price document: shardPrices must be an object")
	}

	doc := shardfuse.PriceDocument{
		Timestamp: root.Get("timestamp").Int(),
		Prices:    make(map[string]float64),
	}
	var err error
	prices.ForEach(func(k, v gjson.Result) bool {
		if v.Type != gjson.Number {
			err = fmt.Errorf("parsing price document: price for %s is not a number", k.String())
			return false
		}
		doc.Prices[k.String()] = v.Float()
		return true
	})
	if err != nil {
		return shardfuse.PriceDocument{}, err
	}
	return doc, nil
}

// ParseCostToMax parses a cost-to-max table, either bare or under a costToMax key.
func ParseCostToMax(data []byte) (shardfuse.CostToMax, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("parsing cost-to-max table: invalid JSON")
	}
	root := gjson.ParseBytes(data)
	if nested := root.Get("costToMax"); nested.IsObject() {
		root = nested
	}
	if !root.IsObject() {
		return nil, fmt.Errorf("parsing cost-to-max table: must be an object")
	}
	return costToMaxFromResult(root)
}

func costToMaxFromResult(v gjson.Result) (shardfuse.CostToMax, error) {
	out := make(shardfuse.CostToMax)
	var err error
	v.ForEach(func(k, n gjson.Result) bool {
		r, ok := shardfuse.ParseRarity(k.String())
		if !ok {
			err = shardfuse.NewError(shardfuse.CodeInvalidTag, "unknown rarity %q in cost-to-max table", k.String())
			return false
		}
		if n.Type != gjson.Number || n.Int() < 0 {
			err = fmt.Errorf("cost-to-max for %s must be a non-negative integer", k.String())
			return false
		}
		out[r] = int(n.Int())
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
