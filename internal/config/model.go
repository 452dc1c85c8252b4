package config

import (
	"fmt"

	"github.com/specialistvlad/layergraph/internal/features"
)

// Model is the unified, format-agnostic representation of one layer
// declaration.
type Model struct {
	// Parent is the path of the parent layer's persisted graph, if any.
	Parent string
	// Layers are other built layers that features may look into.
	Layers []LayerRef
	// Features are kept in declaration order.
	Features []features.Feature
}

// LayerRef points at an already built layer.
type LayerRef struct {
	Label string
	// Graph is the path of the layer's persisted graph.
	Graph string
	// Root is the layer's on-disk root, needed to extract from it.
	Root string
}

// Merge appends other to m. Declarations may be split over several files,
// but the parent and each layer label may only be declared once.
func (m *Model) Merge(other *Model) error {
	if other.Parent != "" {
		if m.Parent != "" && m.Parent != other.Parent {
			return fmt.Errorf("parent declared twice: %q and %q", m.Parent, other.Parent)
		}
		m.Parent = other.Parent
	}
	for _, l := range other.Layers {
		if _, ok := m.Layer(l.Label); ok {
			return fmt.Errorf("layer %q declared twice", l.Label)
		}
		m.Layers = append(m.Layers, l)
	}
	m.Features = append(m.Features, other.Features...)
	return nil
}

// Layer looks up a layer reference by label.
func (m *Model) Layer(label string) (LayerRef, bool) {
	for _, l := range m.Layers {
		if l.Label == label {
			return l, true
		}
	}
	return LayerRef{}, false
}

// Finalize fills in what features can only learn from the rest of the
// declaration: extracts from a layer get that layer's root.
func (m *Model) Finalize() {
	for i, f := range m.Features {
		ex, ok := f.Data.(features.Extract)
		if !ok || ex.Layer == nil || ex.Layer.Root != "" {
			continue
		}
		ref, ok := m.Layer(ex.Layer.Layer)
		if !ok {
			// Left for the resolver, which reports the missing layer.
			continue
		}
		layer := *ex.Layer
		layer.Root = ref.Root
		ex.Layer = &layer
		m.Features[i].Data = ex
	}
}
