package depgraph

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/specialistvlad/layergraph/internal/ctxlog"
	"github.com/specialistvlad/layergraph/internal/features"
)

// GraphBuilder assembles the graph of one layer. It is not safe for
// concurrent use; build one per layer.
type GraphBuilder struct {
	g       *arena
	root    NodeID
	pending []NodeID
	items   map[ItemKey]NodeID
	phases  map[Phase][2]NodeID
}

// NewBuilder creates a builder seeded with the phase skeleton and the items
// every image has (the root user and group, and "/"). When parent is not
// nil, its items and features are copied in so requirements can be satisfied
// by the parent layer.
func NewBuilder(parent *Graph) *GraphBuilder {
	b := &GraphBuilder{
		g:      newArena(),
		items:  make(map[ItemKey]NodeID),
		phases: make(map[Phase][2]NodeID),
	}

	phases := Phases()
	for _, p := range phases {
		start := b.g.addNode(Node{Kind: NodePhaseStart, Phase: p})
		end := b.g.addNode(Node{Kind: NodePhaseEnd, Phase: p})
		b.phases[p] = [2]NodeID{start, end}
	}
	b.root = b.phases[PhaseInit][0]

	for i, p := range phases {
		cur := b.phases[p]
		b.g.updateEdge(cur[0], cur[1], EdgeAfter, nil)
		if i+1 < len(phases) {
			b.g.updateEdge(cur[1], b.phases[phases[i+1]][0], EdgeAfter, nil)
		}
	}

	for _, item := range []Item{
		UserItem("root"),
		GroupItem("root"),
		EntryItem("/", FileTypeDirectory, 0o755),
	} {
		b.items[item.Key()] = b.g.addNode(Node{Kind: NodeItem, Item: &item})
	}

	if parent != nil {
		b.inherit(parent)
	}
	return b
}

// inherit copies the parent's items as-is and its features as parent
// features, then copies every edge whose endpoints were both copied. Phase
// and missing-item nodes of the parent are not carried over.
func (b *GraphBuilder) inherit(parent *Graph) {
	mapped := make(map[NodeID]NodeID, len(parent.g.nodes))
	for i, n := range parent.g.nodes {
		id := NodeID(i)
		switch n.Kind {
		case NodeItem:
			mapped[id], _ = b.addItem(*n.Item)
		case NodePendingFeature, NodeParentFeature:
			f := *n.Feature
			mapped[id] = b.g.addNode(Node{Kind: NodeParentFeature, Feature: &f})
		}
	}
	for _, e := range parent.g.edges {
		from, okFrom := mapped[e.From]
		to, okTo := mapped[e.To]
		if okFrom && okTo && from != to {
			b.g.updateEdge(from, to, e.Kind, e.Validator)
		}
	}
}

// addItem inserts an item, or returns the node already registered under its
// key. An item that undoes the current one gets its own node, linked from
// the old one, and becomes the current node for the key; the old node is
// returned as undone.
func (b *GraphBuilder) addItem(item Item) (id NodeID, undone *NodeID) {
	key := item.Key()
	prev, exists := b.items[key]
	if !exists {
		id = b.g.addNode(Node{Kind: NodeItem, Item: &item})
		b.items[key] = id
		return id, nil
	}
	prevNode := b.g.node(prev)
	if prevNode.Kind != NodeItem || !item.undoes(*prevNode.Item) {
		return prev, nil
	}
	return b.replaceItem(item, prev), &prev
}

// replaceItem gives item its own node, linked from prev, and makes it the
// current node for the key.
func (b *GraphBuilder) replaceItem(item Item, prev NodeID) NodeID {
	id := b.g.addNode(Node{Kind: NodeItem, Item: &item})
	if item.Removed != nil {
		v := Exists()
		b.g.updateEdge(prev, id, EdgeRequires, &v)
	} else {
		// The removed node fails Exists by definition; recreating only
		// needs to happen after the removal.
		b.g.updateEdge(prev, id, EdgeAfter, nil)
	}
	b.items[item.Key()] = id
	return id
}

// AddLayerDependency makes another resolved layer available to ItemInLayer
// validators under its label.
func (b *GraphBuilder) AddLayerDependency(label string, g *Graph) *GraphBuilder {
	b.addItem(LayerItem(label, g))
	return b
}

// AddFeature adds a feature of the layer being resolved. Features should be
// added in declaration order: removals and recreations are interpreted
// relative to the items added before them.
func (b *GraphBuilder) AddFeature(f features.Feature) error {
	provided, err := provides(f)
	if err != nil {
		return &FeatureError{Feature: f, Err: err}
	}

	var (
		mustExist *ItemKey
		// alreadyRemoved is the current node of a must_exist path that an
		// earlier removal, possibly in the parent, already deleted.
		alreadyRemoved *NodeID
	)
	if rm, ok := f.Data.(features.Remove); ok && rm.MustExist {
		key := PathKey(rm.Path)
		cur, exists := b.items[key]
		switch {
		case !exists:
			mustExist = &key
		case b.g.node(cur).Kind == NodeItem && b.g.node(cur).Item.Removed != nil:
			alreadyRemoved = &cur
		}
	}

	phase := PhaseFor(f)
	id := b.g.addNode(Node{Kind: NodePendingFeature, Feature: &f})
	b.pending = append(b.pending, id)

	b.g.updateEdge(b.phases[phase][0], id, EdgePartOf, nil)
	b.g.updateEdge(id, b.phases[phase][1], EdgeAfter, nil)

	for _, item := range provided {
		var (
			itemID NodeID
			undone *NodeID
		)
		if alreadyRemoved != nil && item.Removed != nil {
			// The Exists requirement on the undo edges fails at Build.
			itemID, undone = b.replaceItem(item, *alreadyRemoved), alreadyRemoved
		} else {
			itemID, undone = b.addItem(item)
		}
		b.g.updateEdge(id, itemID, EdgeProvides, nil)
		if undone == nil {
			continue
		}
		// Deleting or recreating a path must happen after whatever put the
		// previous item there.
		if item.Removed != nil {
			v := Exists()
			b.g.updateEdge(*undone, id, EdgeRequires, &v)
		} else {
			b.g.updateEdge(*undone, id, EdgeAfter, nil)
		}
	}

	if mustExist != nil {
		// Not registered under the key: the removal itself now owns it.
		missing := b.g.addNode(Node{Kind: NodeMissingItem, Missing: mustExist})
		v := Exists()
		b.g.updateEdge(missing, id, EdgeRequires, &v)
	}
	return nil
}

// Build links every requirement, sorts the graph and validates it. Checks
// run in priority order: cycles, then conflicting providers, then
// requirements. The first failure is returned and no graph is produced.
func (b *GraphBuilder) Build(ctx context.Context) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph resolution.", "pending_features", len(b.pending))

	// Requirements are linked only now, once every provided item is known,
	// so that a missing item can be told apart from one not added yet.
	for _, id := range b.pending {
		f := *b.g.node(id).Feature
		reqs, err := requires(f)
		if err != nil {
			return nil, &FeatureError{Feature: f, Err: err}
		}
		for _, req := range reqs {
			reqID, ok := b.items[req.Key]
			if !ok {
				key := req.Key
				reqID = b.g.addNode(Node{Kind: NodeMissingItem, Missing: &key})
				b.items[req.Key] = reqID
			}
			v := req.Validator
			b.g.updateEdge(reqID, id, EdgeRequires, &v)
		}
	}
	logger.Debug("Build: Requirement linking complete.", "node_count", len(b.g.nodes), "edge_count", len(b.g.edges))

	topo, err := toposort(b.g)
	if err != nil {
		logger.Error("Build: Cycle detected.", "error", err)
		if logger.Enabled(ctx, slog.LevelDebug) {
			var dot strings.Builder
			if derr := (&Graph{g: b.g}).WriteDOT(&dot); derr == nil {
				logger.Debug("Build: Graph at time of cycle.", "dot", dot.String())
			}
		}
		return nil, err
	}
	logger.Debug("Build: Topological sort complete.")

	if err := b.checkConflicts(); err != nil {
		return nil, err
	}
	logger.Debug("Build: Conflict check passed.")

	if err := b.checkRequirements(); err != nil {
		return nil, err
	}
	logger.Debug("Build: Requirement validation passed.")

	return &Graph{
		g:     b.g,
		root:  b.root,
		items: b.items,
		topo:  topo,
		end:   b.phases[PhaseEnd],
	}, nil
}

// checkConflicts fails when an item has more than one provider in the layer
// being resolved, even if the providers are identical. Parent providers never count. Identical
// ensure_dir_exists features are idempotent and do not conflict.
func (b *GraphBuilder) checkConflicts() error {
	for i := range b.g.nodes {
		id := NodeID(i)
		n := b.g.node(id)
		if n.Kind != NodeItem {
			continue
		}
		var providers []features.Feature
		for _, e := range b.g.incoming(id) {
			if e.Kind != EdgeProvides {
				continue
			}
			src := b.g.node(e.From)
			if src.Kind != NodePendingFeature {
				continue
			}
			providers = append(providers, *src.Feature)
		}
		if len(providers) > 1 && !idempotentDirs(providers) {
			slices.SortFunc(providers, features.Compare)
			return &ConflictError{Item: *n.Item, Features: providers}
		}
	}
	return nil
}

func idempotentDirs(providers []features.Feature) bool {
	first, ok := providers[0].Data.(features.EnsureDirExists)
	if !ok {
		return false
	}
	for _, f := range providers[1:] {
		d, ok := f.Data.(features.EnsureDirExists)
		if !ok || CleanPath(d.Dir) != CleanPath(first.Dir) || d.Mode != first.Mode || d.User != first.User || d.Group != first.Group {
			return false
		}
	}
	return true
}

// checkRequirements evaluates every Requires edge against the node it
// resolved to. Edges into inherited features are not re-validated.
func (b *GraphBuilder) checkRequirements() error {
	for _, e := range b.g.edges {
		if e.Kind != EdgeRequires || e.Validator == nil {
			continue
		}
		dependent := b.g.node(e.To)
		if dependent.Kind == NodeParentFeature {
			continue
		}
		var feature *features.Feature
		if dependent.Kind == NodePendingFeature {
			feature = dependent.Feature
		} else {
			feature = b.providerOf(e.To)
		}
		src := b.g.node(e.From)
		switch src.Kind {
		case NodeItem:
			if !e.Validator.Satisfies(*src.Item) {
				return &UnsatisfiedError{Item: *src.Item, Validator: *e.Validator, Feature: feature}
			}
		case NodeMissingItem:
			if e.Validator.Kind != ValidateDoesNotExist {
				return &MissingItemError{Key: *src.Missing, Feature: feature}
			}
		}
	}
	return nil
}

// providerOf returns the pending feature that provides the item at id, if
// any. Used to attribute requirements carried by undo edges.
func (b *GraphBuilder) providerOf(id NodeID) *features.Feature {
	for _, e := range b.g.incoming(id) {
		if e.Kind != EdgeProvides {
			continue
		}
		if src := b.g.node(e.From); src.Kind == NodePendingFeature {
			return src.Feature
		}
	}
	return nil
}
