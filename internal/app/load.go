package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/layergraph/internal/config"
	"github.com/specialistvlad/layergraph/internal/ctxlog"
	"github.com/specialistvlad/layergraph/internal/depgraph"
)

// loadModel runs every loader over the declaration paths. Each loader only
// picks up the files it understands, so HCL and YAML declarations can be
// mixed.
func (a *App) loadModel(ctx context.Context) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)

	model := &config.Model{}
	for _, loader := range a.loaders {
		m, err := loader.Load(ctx, a.config.Declarations...)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := model.Merge(m); err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
	}
	model.Finalize()

	logger.Debug("Configuration loaded and translated into unified model.",
		"features", len(model.Features), "layers", len(model.Layers), "parent", model.Parent)
	return model, nil
}

// resolve builds the graph of the declared layer on top of its parent.
func resolve(ctx context.Context, model *config.Model) (*depgraph.Graph, error) {
	logger := ctxlog.FromContext(ctx)

	var parent *depgraph.Graph
	if model.Parent != "" {
		p, err := depgraph.Load(model.Parent)
		if err != nil {
			return nil, fmt.Errorf("parent: %w", err)
		}
		parent = p
		logger.Debug("Parent graph loaded.", "path", model.Parent, "node_count", p.NodeCount())
	}

	b := depgraph.NewBuilder(parent)
	for _, ref := range model.Layers {
		g, err := depgraph.Load(ref.Graph)
		if err != nil {
			return nil, fmt.Errorf("layer %s: %w", ref.Label, err)
		}
		b.AddLayerDependency(ref.Label, g)
	}
	for _, f := range model.Features {
		if err := b.AddFeature(f); err != nil {
			return nil, err
		}
	}
	return b.Build(ctx)
}
