package compile

import (
	"context"
	"fmt"

	"github.com/specialistvlad/layergraph/internal/ctxlog"
	"github.com/specialistvlad/layergraph/internal/depgraph"
)

// Run compiles every pending feature of g into c.Root, in order, and then
// records what ended up on disk as dynamic items of g.
//
// Package transactions of the whole layer are merged and resolved first, so
// an unsatisfiable transaction fails the layer before anything is written.
func Run(ctx context.Context, c *Context, g *depgraph.Graph) error {
	logger := ctxlog.FromContext(ctx).With("layer", c.Label)
	ctx = ctxlog.WithLogger(ctx, logger)

	var merged Transaction
	for f := range g.PendingFeatures() {
		item, err := Plan(ctx, c, f)
		if err != nil {
			return fmt.Errorf("planning %s: %w", f, err)
		}
		if item.Rpm != nil {
			merged = merged.Merge(*item.Rpm)
		}
	}
	if !merged.Empty() {
		if c.PackageManager == nil {
			return ErrNoPackageManager
		}
		logger.Debug("Resolving package transaction.", "install", merged.Install, "remove", merged.Remove)
		if err := c.PackageManager.Resolve(ctx, c.Root, merged); err != nil {
			return fmt.Errorf("resolving package transaction: %w", err)
		}
	}

	compiled := 0
	for f := range g.PendingFeatures() {
		flog := logger.With("feature", f.Label, "kind", f.Kind())
		flog.Info("▶️ Compiling feature")
		if err := Compile(ctxlog.WithLogger(ctx, flog), c, f); err != nil {
			return fmt.Errorf("compiling %s: %w", f, err)
		}
		flog.Debug("✅ Finished feature")
		compiled++
	}

	added, err := g.PopulateDynamicItems(ctx, c.Root)
	if err != nil {
		return err
	}
	logger.Info("✅ Layer compiled.", "features", compiled, "dynamic_items", added)
	return nil
}
