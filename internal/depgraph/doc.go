// Package depgraph resolves the features of one image layer into a
// deterministic execution order.
//
// A GraphBuilder ingests features (and optionally the resolved Graph of a
// parent layer), wires every feature to the items it provides and requires,
// and then Build links requirements, sorts the graph topologically and checks
// it for cycles, conflicting providers and unsatisfied requirements. The
// resulting Graph is immutable except for PopulateDynamicItems, which appends
// items discovered on the real filesystem after the layer was compiled.
//
// Nodes live in an arena addressed by NodeID and edges are stored as id
// pairs, so a Graph is cheap to copy into a child builder and to serialize
// between the plan and compile steps.
package depgraph
