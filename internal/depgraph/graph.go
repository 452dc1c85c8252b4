package depgraph

import (
	"cmp"
	"fmt"
	"iter"
	"slices"

	"github.com/specialistvlad/layergraph/internal/codec"
	"github.com/specialistvlad/layergraph/internal/features"
)

// Graph is the resolved graph of one layer. It is immutable apart from
// PopulateDynamicItems, which only appends.
type Graph struct {
	g     *arena
	root  NodeID
	items map[ItemKey]NodeID
	topo  []NodeID
	end   [2]NodeID
}

// PendingFeatures yields the features of this layer in execution order.
// Inherited features are not included. The sequence can be iterated any
// number of times.
func (g *Graph) PendingFeatures() iter.Seq[features.Feature] {
	return func(yield func(features.Feature) bool) {
		for _, id := range g.topo {
			n := g.g.node(id)
			if n.Kind != NodePendingFeature {
				continue
			}
			if !yield(*n.Feature) {
				return
			}
		}
	}
}

// Lookup returns the current item registered under key. Keys that were only
// ever required resolve to nothing.
func (g *Graph) Lookup(key ItemKey) (Item, bool) {
	id, ok := g.items[key]
	if !ok {
		return Item{}, false
	}
	n := g.g.node(id)
	if n.Kind != NodeItem {
		return Item{}, false
	}
	return *n.Item, true
}

// Items yields every current item, ordered by key.
func (g *Graph) Items() iter.Seq2[ItemKey, Item] {
	return func(yield func(ItemKey, Item) bool) {
		for _, key := range g.sortedKeys() {
			item, ok := g.Lookup(key)
			if !ok {
				continue
			}
			if !yield(key, item) {
				return
			}
		}
	}
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.g.nodes)
}

func (g *Graph) sortedKeys() []ItemKey {
	keys := make([]ItemKey, 0, len(g.items))
	for k := range g.items {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeys)
	return keys
}

func compareKeys(a, b ItemKey) int {
	return cmp.Or(cmp.Compare(a.Kind, b.Kind), cmp.Compare(a.Name, b.Name))
}

type itemEntry struct {
	Key  ItemKey `cbor:"key"`
	Node NodeID  `cbor:"node"`
}

// wireGraph is the persisted shape of a Graph. Items are stored as a list
// sorted by key so that encoding is deterministic.
type wireGraph struct {
	Nodes []Node      `cbor:"nodes"`
	Edges []Edge      `cbor:"edges"`
	Root  NodeID      `cbor:"root"`
	Items []itemEntry `cbor:"items"`
	Topo  []NodeID    `cbor:"topo"`
	End   [2]NodeID   `cbor:"end"`
}

// MarshalCBOR encodes the graph, including the graphs of any layer items.
func (g *Graph) MarshalCBOR() ([]byte, error) {
	w := wireGraph{
		Nodes: g.g.nodes,
		Edges: g.g.edges,
		Root:  g.root,
		Topo:  g.topo,
		End:   g.end,
	}
	for _, k := range g.sortedKeys() {
		w.Items = append(w.Items, itemEntry{Key: k, Node: g.items[k]})
	}
	return codec.Marshal(w)
}

// UnmarshalCBOR decodes a graph written by MarshalCBOR.
func (g *Graph) UnmarshalCBOR(data []byte) error {
	var w wireGraph
	if err := codec.Unmarshal(data, &w); err != nil {
		return err
	}
	a := &arena{nodes: w.Nodes, edges: w.Edges}
	if err := a.rebuild(); err != nil {
		return err
	}
	valid := func(id NodeID) bool { return int(id) >= 0 && int(id) < len(a.nodes) }
	items := make(map[ItemKey]NodeID, len(w.Items))
	for _, e := range w.Items {
		if !valid(e.Node) {
			return fmt.Errorf("item %s references unknown node %d", e.Key, e.Node)
		}
		items[e.Key] = e.Node
	}
	if len(w.Topo) != len(a.nodes) {
		return fmt.Errorf("topological order covers %d of %d nodes", len(w.Topo), len(a.nodes))
	}
	for _, id := range append([]NodeID{w.Root, w.End[0], w.End[1]}, w.Topo...) {
		if !valid(id) {
			return fmt.Errorf("reference to unknown node %d", id)
		}
	}
	*g = Graph{g: a, root: w.Root, items: items, topo: w.Topo, end: w.End}
	return nil
}

// Load reads a graph persisted with Save.
func Load(path string) (*Graph, error) {
	var g Graph
	if err := codec.ReadFile(path, &g); err != nil {
		return nil, fmt.Errorf("loading graph: %w", err)
	}
	return &g, nil
}

// Save persists the graph to path.
func (g *Graph) Save(path string) error {
	if err := codec.WriteFile(path, g); err != nil {
		return fmt.Errorf("saving graph: %w", err)
	}
	return nil
}
