package depgraph

import (
	"fmt"
	"slices"

	"github.com/specialistvlad/layergraph/internal/features"
)

// NodeID is a stable handle of a node in a graph's arena.
type NodeID int

// NodeKind discriminates the Node union.
type NodeKind int

const (
	// NodePendingFeature is a feature to be compiled in this layer.
	NodePendingFeature NodeKind = iota
	// NodeParentFeature is a feature inherited from a parent layer. It is
	// kept for lineage but never validated or compiled again.
	NodeParentFeature
	// NodeItem is an item provided by a feature or the parent layer.
	NodeItem
	// NodeMissingItem is a key that something requires but nothing
	// provides. Distinct from an Item without providers because not enough
	// is known about it to build the full Item.
	NodeMissingItem
	// NodePhaseStart and NodePhaseEnd bound the features of a phase.
	NodePhaseStart
	NodePhaseEnd
)

func (k NodeKind) String() string {
	switch k {
	case NodePendingFeature:
		return "pending-feature"
	case NodeParentFeature:
		return "parent-feature"
	case NodeItem:
		return "item"
	case NodeMissingItem:
		return "missing-item"
	case NodePhaseStart:
		return "phase-start"
	case NodePhaseEnd:
		return "phase-end"
	default:
		return fmt.Sprintf("NodeKind(%d)", int(k))
	}
}

// Node is a graph vertex.
type Node struct {
	Kind    NodeKind          `cbor:"kind"`
	Feature *features.Feature `cbor:"feature,omitempty"`
	Item    *Item             `cbor:"item,omitempty"`
	Missing *ItemKey          `cbor:"missing,omitempty"`
	Phase   Phase             `cbor:"phase,omitempty"`
}

func (n Node) String() string {
	switch n.Kind {
	case NodePendingFeature, NodeParentFeature:
		return n.Feature.String()
	case NodeItem:
		return n.Item.String()
	case NodeMissingItem:
		return "missing " + n.Missing.String()
	case NodePhaseStart:
		return "start " + n.Phase.String()
	case NodePhaseEnd:
		return "end " + n.Phase.String()
	default:
		return n.Kind.String()
	}
}

// EdgeKind discriminates the Edge union.
type EdgeKind int

const (
	// EdgePartOf points from a phase start to a feature in that phase.
	EdgePartOf EdgeKind = iota
	// EdgeProvides points from a feature to an item it creates.
	EdgeProvides
	// EdgeRequires points from a required item to the feature that needs
	// it, and carries the validator the item must satisfy.
	EdgeRequires
	// EdgeAfter is a plain ordering constraint.
	EdgeAfter
)

func (k EdgeKind) String() string {
	switch k {
	case EdgePartOf:
		return "part-of"
	case EdgeProvides:
		return "provides"
	case EdgeRequires:
		return "requires"
	case EdgeAfter:
		return "after"
	default:
		return fmt.Sprintf("EdgeKind(%d)", int(k))
	}
}

// Edge is a directed edge stored as a pair of node handles.
type Edge struct {
	From      NodeID     `cbor:"from"`
	To        NodeID     `cbor:"to"`
	Kind      EdgeKind   `cbor:"kind"`
	Validator *Validator `cbor:"validator,omitempty"`
}

func (e Edge) String() string {
	if e.Kind == EdgeRequires && e.Validator != nil {
		return "requires " + e.Validator.String()
	}
	return e.Kind.String()
}

type edgeID int

// arena owns nodes and edges. At most one edge exists between an ordered
// pair of nodes; adding another replaces its weight.
type arena struct {
	nodes []Node
	edges []Edge
	out   [][]edgeID
	in    [][]edgeID
	pairs map[[2]NodeID]edgeID
}

func newArena() *arena {
	return &arena{pairs: make(map[[2]NodeID]edgeID)}
}

func (a *arena) addNode(n Node) NodeID {
	a.nodes = append(a.nodes, n)
	a.out = append(a.out, nil)
	a.in = append(a.in, nil)
	return NodeID(len(a.nodes) - 1)
}

func (a *arena) node(id NodeID) *Node {
	return &a.nodes[id]
}

// updateEdge adds from -> to, or replaces the weight of the existing edge
// between the same pair.
func (a *arena) updateEdge(from, to NodeID, kind EdgeKind, v *Validator) {
	pair := [2]NodeID{from, to}
	if id, ok := a.pairs[pair]; ok {
		a.edges[id].Kind = kind
		a.edges[id].Validator = v
		return
	}
	id := edgeID(len(a.edges))
	a.edges = append(a.edges, Edge{From: from, To: to, Kind: kind, Validator: v})
	a.out[from] = append(a.out[from], id)
	a.in[to] = append(a.in[to], id)
	a.pairs[pair] = id
}

// successors returns the targets of outgoing edges in ascending id order.
func (a *arena) successors(id NodeID) []NodeID {
	out := make([]NodeID, 0, len(a.out[id]))
	for _, e := range a.out[id] {
		out = append(out, a.edges[e].To)
	}
	slices.Sort(out)
	return out
}

// incoming returns the edges pointing at id.
func (a *arena) incoming(id NodeID) []Edge {
	in := make([]Edge, 0, len(a.in[id]))
	for _, e := range a.in[id] {
		in = append(in, a.edges[e])
	}
	return in
}

// rebuild recomputes the adjacency indices from the node and edge lists,
// after decoding.
func (a *arena) rebuild() error {
	a.out = make([][]edgeID, len(a.nodes))
	a.in = make([][]edgeID, len(a.nodes))
	a.pairs = make(map[[2]NodeID]edgeID, len(a.edges))
	for i, e := range a.edges {
		if int(e.From) < 0 || int(e.From) >= len(a.nodes) || int(e.To) < 0 || int(e.To) >= len(a.nodes) {
			return fmt.Errorf("edge %d references unknown node (%d -> %d)", i, e.From, e.To)
		}
		id := edgeID(i)
		a.out[e.From] = append(a.out[e.From], id)
		a.in[e.To] = append(a.in[e.To], id)
		a.pairs[[2]NodeID{e.From, e.To}] = id
	}
	return nil
}
