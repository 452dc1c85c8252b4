package depgraph

import (
	"fmt"
	"io"

	"github.com/dominikbraun/graph"
	"github.com/dominikbraun/graph/draw"
)

// WriteDOT renders the graph in Graphviz dot notation, one vertex per node
// labelled with its description and one edge per arena edge. It is a debug
// projection only.
func (g *Graph) WriteDOT(w io.Writer) error {
	dg := graph.New(graph.IntHash, graph.Directed())
	for i, n := range g.g.nodes {
		if err := dg.AddVertex(i,
			graph.VertexAttribute("label", n.String()),
			graph.VertexAttribute("shape", shapeOf(n.Kind)),
		); err != nil {
			return fmt.Errorf("adding node %d: %w", i, err)
		}
	}
	for _, e := range g.g.edges {
		if err := dg.AddEdge(int(e.From), int(e.To), graph.EdgeAttribute("label", e.String())); err != nil {
			return fmt.Errorf("adding edge %d -> %d: %w", e.From, e.To, err)
		}
	}
	return draw.DOT(dg, w)
}

func shapeOf(k NodeKind) string {
	switch k {
	case NodePendingFeature:
		return "box"
	case NodeParentFeature:
		return "box3d"
	case NodeMissingItem:
		return "octagon"
	case NodePhaseStart, NodePhaseEnd:
		return "diamond"
	default:
		return "ellipse"
	}
}
