// Package hcl_adapter loads layer declarations written in HCL into the
// format-agnostic config model.
package hcl_adapter

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/specialistvlad/layergraph/internal/config"
	"github.com/specialistvlad/layergraph/internal/ctxlog"
	"github.com/specialistvlad/layergraph/internal/fsutil"
)

// Extension is the file extension this loader reads.
const Extension = ".hcl"

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL declaration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file under paths, in discovery order, and merges
// them into one model. Feature order within and across files is kept.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.FindFilesByExtension(paths, Extension)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	model := &config.Model{}
	parser := hclparse.NewParser()
	for _, file := range files {
		fileModel, err := l.loadFile(ctx, parser, file)
		if err != nil {
			return nil, err
		}
		if err := model.Merge(fileModel); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}

	logger.Debug("HCL loading complete.", "layers", len(model.Layers), "features", len(model.Features))
	return model, nil
}

func (l *Loader) loadFile(ctx context.Context, parser *hclparse.Parser, file string) (*config.Model, error) {
	hclFile, diags := parser.ParseHCLFile(file)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
	}

	dir := filepath.Dir(file)
	m := &config.Model{}
	if root.Parent != nil {
		m.Parent = resolvePath(dir, *root.Parent)
	}
	for _, b := range root.Layers {
		m.Layers = append(m.Layers, translateLayer(dir, b))
	}
	for _, b := range root.Features {
		f, err := translateFeature(ctx, dir, b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		m.Features = append(m.Features, f)
	}
	return m, nil
}
