// Package testkit holds small deterministic input documents shared by tests.
package testkit

import (
	"fmt"
	"sort"
	"strings"
)

// Families declared by every fixture document.
var Families = []string{"reptile", "bird", "elemental"}

// documentHeader is everything in a fixture item document except the shards.
const documentHeader = `
  "families": ["reptile", "bird", "elemental"],
  "effectTags": ["damage", "speed", "luck"],
  "familyFuseCost": {"default": 1, "reptile": 3, "bird": 2},
  "specialFuseMultiplier": 2,
  "costToMax": {"common": 96, "uncommon": 64, "rare": 48, "epic": 32, "legendary": 24}`

// StandardShards is a catalog exercising every fusion rule.
//
//	basic:     C1 -> C2, C2 -> C3
//	chameleon: L4 is the chameleon item
//	special:   U2 needs (rare+, combat); R2 has two requirement pairs
const StandardShards = `{
    "C1": {"name": "Grouper", "bazaarId": "SHARD_GROUPER", "category": "water", "skill": "fishing",
           "attributeName": "Fish Speed", "effectDescription": "Fish faster", "effectMax": 5, "effectTags": ["speed"],
           "sources": ["fishing"]},
    "C2": {"name": "Newt", "bazaarId": "SHARD_NEWT", "category": "water", "skill": "fishing",
           "families": "reptile", "isBasicFuseTarget": true, "sources": [{"sourceType": "fishing", "sourceDesc": "Lily pond"}]},
    "C3": {"name": "Minnow", "bazaarId": "SHARD_MINNOW", "category": "water", "skill": "fishing",
           "isBasicFuseTarget": true, "sources": ["fishing"]},
    "C4": {"name": "Sparrow", "bazaarId": "SHARD_SPARROW", "category": "forest", "skill": "foraging",
           "families": ["bird"], "isBasicFuseTarget": true, "effectTags": ["luck"], "sources": ["foraging"]},
    "C5": {"name": "Gecko", "bazaarId": "SHARD_GECKO", "category": "combat", "skill": "combat",
           "families": ["reptile", "bird"], "isBasicFuseTarget": true, "effectTags": ["damage"], "sources": ["hunting"]},
    "U1": {"name": "Spider", "bazaarId": "SHARD_SPIDER", "category": "combat", "skill": "combat",
           "isBasicFuseTarget": true, "effectTags": ["damage"],
           "sources": [{"sourceType": "hunting", "sourceDesc": "Spider Den"}]},
    "U2": {"name": "Moss", "bazaarId": "SHARD_MOSS", "category": "forest", "skill": "foraging",
           "specialFuseRequirement": [{"rarity": "rare+"}, {"category": "combat"}]},
    "R1": {"name": "Drake", "bazaarId": "SHARD_DRAKE", "category": "combat", "skill": "hunting",
           "families": ["reptile"], "isBasicFuseTarget": true, "sources": ["hunting"]},
    "R2": {"name": "Kraken", "bazaarId": "SHARD_KRAKEN", "category": "water", "skill": "fishing",
           "families": ["elemental"],
           "specialFuseRequirement": [
             [{"shard": "C1"}, {"family": "bird"}],
             [{"rarity": ["common", "uncommon"], "category": "water"}, {"shard": ["R1"]}]
           ]},
    "L1": {"name": "Phoenix", "bazaarId": "SHARD_PHOENIX", "category": "combat", "skill": "combat",
           "families": ["bird", "elemental"], "sources": ["hunting"]},
    "L4": {"name": "Chameleon", "bazaarId": "SHARD_CHAMELEON", "category": "forest", "skill": "global",
           "sources": ["foraging"]}
  }`

// StandardPriceByID is the unit price of every standard item, keyed by identifier.
var StandardPriceByID = map[string]float64{
	"C1": 100, "C2": 50, "C3": 30, "C4": 20, "C5": 10,
	"U1": 200, "U2": 300,
	"R1": 1000, "R2": 1500,
	"L1": 5000, "L4": 8000,
}

// StandardPriceKeys maps each standard identifier to its price key.
var StandardPriceKeys = map[string]string{
	"C1": "SHARD_GROUPER", "C2": "SHARD_NEWT", "C3": "SHARD_MINNOW", "C4": "SHARD_SPARROW", "C5": "SHARD_GECKO",
	"U1": "SHARD_SPIDER", "U2": "SHARD_MOSS",
	"R1": "SHARD_DRAKE", "R2": "SHARD_KRAKEN",
	"L1": "SHARD_PHOENIX", "L4": "SHARD_CHAMELEON",
}

// StandardTimestamp is the timestamp of StandardPrices.
const StandardTimestamp int64 = 1735689600000

// StandardItems returns the standard item-rule document.
func StandardItems() []byte {
	return ItemDocument(StandardShards)
}

// StandardPrices returns a price document covering every standard item.
func StandardPrices() []byte {
	prices := make(map[string]float64, len(StandardPriceByID))
	for id, p := range StandardPriceByID {
		prices[StandardPriceKeys[id]] = p
	}
	return PriceDocument(StandardTimestamp, prices)
}

// StandardPricesWithout returns the standard price document minus the given items.
func StandardPricesWithout(ids ...string) []byte {
	prices := make(map[string]float64, len(StandardPriceByID))
	for id, p := range StandardPriceByID {
		prices[StandardPriceKeys[id]] = p
	}
	for _, id := range ids {
		delete(prices, StandardPriceKeys[id])
	}
	return PriceDocument(StandardTimestamp, prices)
}

// StandardPricesWith returns the standard price document with some item
// prices replaced.
func StandardPricesWith(overrides map[string]float64) []byte {
	prices := make(map[string]float64, len(StandardPriceByID))
	for id, p := range StandardPriceByID {
		prices[StandardPriceKeys[id]] = p
	}
	for id, p := range overrides {
		prices[StandardPriceKeys[id]] = p
	}
	return PriceDocument(StandardTimestamp, prices)
}

// ScenarioShards holds three common water items: only C2 and C3 are basic
// fusion outputs.
const ScenarioShards = `{
    "C1": {"name": "Alpha", "bazaarId": "SHARD_ALPHA", "category": "water", "skill": "fishing"},
    "C2": {"name": "Beta", "bazaarId": "SHARD_BETA", "category": "water", "skill": "fishing", "isBasicFuseTarget": true},
    "C3": {"name": "Gamma", "bazaarId": "SHARD_GAMMA", "category": "water", "skill": "fishing", "isBasicFuseTarget": true}
  }`

// ScenarioPrices prices C1=100, C2=50, C3=30.
func ScenarioPrices() []byte {
	return PriceDocument(StandardTimestamp, map[string]float64{
		"SHARD_ALPHA": 100,
		"SHARD_BETA":  50,
		"SHARD_GAMMA": 30,
	})
}

// ItemDocument wraps a shards object in the fixture document header.
func ItemDocument(shards string) []byte {
	return []byte("{" + documentHeader + ",\n  \"shards\": " + shards + "\n}")
}

// PriceDocument renders a price document with keys in sorted order.
func PriceDocument(timestamp int64, prices map[string]float64) []byte {
	keys := make([]string, 0, len(prices))
	for k := range prices {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "{\"timestamp\": %d, \"shardPrices\": {", timestamp)
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%q: %g", k, prices[k])
	}
	b.WriteString("}}")
	return []byte(b.String())
}

// CostToMaxDocument is a standalone cost-to-max table that differs from the
// one embedded in the fixture header.
func CostToMaxDocument() []byte {
	return []byte(`{"costToMax": {"common": 10, "uncommon": 20, "rare": 30, "epic": 40}}`)
}
