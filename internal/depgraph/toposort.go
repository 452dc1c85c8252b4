package depgraph

import (
	"container/heap"
	"slices"

	"github.com/specialistvlad/layergraph/internal/features"
)

// idHeap is a min-heap of node ids. Always releasing the smallest ready id
// makes the order a function of insertion order alone.
type idHeap []NodeID

func (h idHeap) Len() int           { return len(h) }
func (h idHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h idHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *idHeap) Push(x any)        { *h = append(*h, x.(NodeID)) }
func (h *idHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// toposort orders every node of the arena so that each edge points forward.
// It fails with a CycleError when that is impossible.
func toposort(a *arena) ([]NodeID, error) {
	indegree := make([]int, len(a.nodes))
	for _, e := range a.edges {
		indegree[e.To]++
	}

	ready := &idHeap{}
	for id, d := range indegree {
		if d == 0 {
			*ready = append(*ready, NodeID(id))
		}
	}
	heap.Init(ready)

	order := make([]NodeID, 0, len(a.nodes))
	for ready.Len() > 0 {
		id := heap.Pop(ready).(NodeID)
		order = append(order, id)
		for _, e := range a.out[id] {
			to := a.edges[e].To
			indegree[to]--
			if indegree[to] == 0 {
				heap.Push(ready, to)
			}
		}
	}

	if len(order) == len(a.nodes) {
		return order, nil
	}
	return nil, &CycleError{Features: cycleFeatures(a, indegree)}
}

// cycleFeatures finds one cycle among the nodes Kahn's algorithm could not
// release and returns the pending features on it, starting from the
// smallest.
//
// Every unreleased node has an unreleased predecessor, so walking
// predecessors from any of them must eventually revisit a node. The walk
// between the two visits is a cycle, traversed backwards.
func cycleFeatures(a *arena, indegree []int) []features.Feature {
	stuck := func(id NodeID) bool { return indegree[id] > 0 }

	start := NodeID(-1)
	for id := range a.nodes {
		if stuck(NodeID(id)) {
			start = NodeID(id)
			break
		}
	}
	if start < 0 {
		return nil
	}

	seen := map[NodeID]int{}
	var walk []NodeID
	cur := start
	for {
		if at, ok := seen[cur]; ok {
			walk = walk[at:]
			break
		}
		seen[cur] = len(walk)
		walk = append(walk, cur)

		next := NodeID(-1)
		for _, e := range a.in[cur] {
			from := a.edges[e].From
			if stuck(from) && (next < 0 || from < next) {
				next = from
			}
		}
		if next < 0 {
			return nil
		}
		cur = next
	}
	slices.Reverse(walk)

	var out []features.Feature
	for _, id := range walk {
		if n := a.node(id); n.Kind == NodePendingFeature {
			out = append(out, *n.Feature)
		}
	}
	if len(out) == 0 {
		return nil
	}
	smallest := 0
	for i := range out {
		if features.Compare(out[i], out[smallest]) < 0 {
			smallest = i
		}
	}
	return slices.Concat(out[smallest:], out[:smallest])
}
