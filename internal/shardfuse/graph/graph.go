// Package graph derives which item pairs fuse into which outputs.
package graph

import (
	"github.com/rsned/shardfuse-server/internal/shardfuse/catalog"
	"github.com/rsned/shardfuse-server/pkg/shardfuse"
)

// DefaultChameleonID is the wildcard item used by chameleon fusions.
const DefaultChameleonID = "L4"

// chameleonReach is how many sequence numbers a chameleon fusion can advance.
const chameleonReach = 3

// Options tune graph derivation.
type Options struct {
	ChameleonID string
}

// Node is the resolved record of one item: its fusion edges and every input
// pair that produces it.
type Node struct {
	Item *shardfuse.Item

	// BasicFuseTarget is empty when the item has no basic fusion target.
	BasicFuseTarget     string
	BasicFuseTargetedBy []string
	ChameleonTargets    []string
	ChameleonTargetedBy []string

	// Combinations holds one entry per unordered input pair, in first
	// derivation order.
	Combinations []shardfuse.FusionCombination
}

// HasBasicFuseTarget reports whether a basic fusion target was found.
func (n *Node) HasBasicFuseTarget() bool {
	return n.BasicFuseTarget != ""
}

// Graph is the derived fusion graph over one catalog.
type Graph struct {
	catalog     *catalog.Catalog
	chameleonID string
	nodes       map[string]*Node
	ordered     []*Node
}

// Build derives basic targets, chameleon targets and per-target combination
// sets. The catalog must be complete; nothing in it is modified.
func Build(cat *catalog.Catalog, opts Options) (*Graph, error) {
	if opts.ChameleonID == "" {
		opts.ChameleonID = DefaultChameleonID
	}

	g := &Graph{
		catalog:     cat,
		chameleonID: opts.ChameleonID,
		nodes:       make(map[string]*Node, cat.Len()),
		ordered:     make([]*Node, 0, cat.Len()),
	}
	for _, item := range cat.Items() {
		n := &Node{Item: item}
		g.nodes[item.ID] = n
		g.ordered = append(g.ordered, n)
	}

	g.addBasicTargets()
	g.addChameleonTargets()

	for _, n := range g.ordered {
		combos, err := g.deriveCombinations(n)
		if err != nil {
			return nil, err
		}
		n.Combinations = combos
	}

	return g, nil
}

// addBasicTargets links each item to the first later item of the same rarity
// and category that is flagged as a basic fusion output.
func (g *Graph) addBasicTargets() {
	for _, r := range shardfuse.Rarities() {
		group := g.catalog.RarityGroup(r)
		for i, item := range group {
			for _, later := range group[i+1:] {
				if later.BasicFuseOutput && later.Category == item.Category {
					g.nodes[item.ID].BasicFuseTarget = later.ID
					target := g.nodes[later.ID]
					target.BasicFuseTargetedBy = append(target.BasicFuseTargetedBy, item.ID)
					break
				}
			}
		}
	}
}

// addChameleonTargets evaluates all six candidates for every item: the next
// three numbers of the same rarity and numbers 1-3 of the next rarity.
func (g *Graph) addChameleonTargets() {
	for _, n := range g.ordered {
		item := n.Item
		for step := 1; step <= chameleonReach; step++ {
			g.linkChameleon(n, item.Rarity, item.Number+step)
		}
		if next, ok := item.Rarity.Next(); ok {
			for number := 1; number <= chameleonReach; number++ {
				g.linkChameleon(n, next, number)
			}
		}
	}
}

func (g *Graph) linkChameleon(n *Node, r shardfuse.Rarity, number int) {
	target, ok := g.catalog.ItemAt(r, number)
	if !ok {
		return
	}
	n.ChameleonTargets = append(n.ChameleonTargets, target.ID)
	t := g.nodes[target.ID]
	t.ChameleonTargetedBy = append(t.ChameleonTargetedBy, n.Item.ID)
}

// Catalog returns the catalog the graph was built from.
func (g *Graph) Catalog() *catalog.Catalog {
	return g.catalog
}

// ChameleonID returns the chameleon item identifier.
func (g *Graph) ChameleonID() string {
	return g.chameleonID
}

// HasChameleon reports whether the catalog contains the chameleon item.
func (g *Graph) HasChameleon() bool {
	_, ok := g.catalog.Item(g.chameleonID)
	return ok
}

// Node returns the resolved record of an item.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns every node in catalog order.
func (g *Graph) Nodes() []*Node {
	return g.ordered
}

// CombinationCount is the total number of derived combinations.
func (g *Graph) CombinationCount() int {
	total := 0
	for _, n := range g.ordered {
		total += len(n.Combinations)
	}
	return total
}
