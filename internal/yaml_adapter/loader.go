// Package yaml_adapter loads layer declarations written in YAML into the
// format-agnostic config model. Each feature is an envelope with a label and
// exactly one kind key, the same shape features are persisted in.
package yaml_adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/specialistvlad/layergraph/internal/config"
	"github.com/specialistvlad/layergraph/internal/ctxlog"
	"github.com/specialistvlad/layergraph/internal/features"
	"github.com/specialistvlad/layergraph/internal/fsutil"
)

// Extensions are the file extensions this loader reads.
var Extensions = []string{".yaml", ".yml"}

// document is the top-level structure of a YAML declaration file.
type document struct {
	Parent   string              `yaml:"parent,omitempty"`
	Layers   []layerDoc          `yaml:"layers,omitempty"`
	Features []features.Envelope `yaml:"features,omitempty"`
}

type layerDoc struct {
	Label string `yaml:"label"`
	Graph string `yaml:"graph"`
	Root  string `yaml:"root,omitempty"`
}

// Loader is the YAML-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new YAML declaration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every YAML file under paths, in discovery order, and merges
// them into one model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("YAML loader started.", "path_count", len(paths))

	files, err := fsutil.FindFilesByExtension(paths, Extensions...)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered YAML files.", "count", len(files))

	model := &config.Model{}
	for _, file := range files {
		fileModel, err := l.loadFile(file)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		if err := model.Merge(fileModel); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}

	logger.Debug("YAML loading complete.", "layers", len(model.Layers), "features", len(model.Features))
	return model, nil
}

func (l *Loader) loadFile(file string) (*config.Model, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(src))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &config.Model{}, nil
		}
		return nil, fmt.Errorf("failed to decode YAML: %w", err)
	}
	var raw yaml.Node
	if err := yaml.Unmarshal(src, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode YAML: %w", err)
	}
	rawFeatures := lookup(&raw, "features")

	dir := filepath.Dir(file)
	m := &config.Model{Parent: resolvePath(dir, doc.Parent)}
	for _, ld := range doc.Layers {
		m.Layers = append(m.Layers, config.LayerRef{
			Label: ld.Label,
			Graph: resolvePath(dir, ld.Graph),
			Root:  resolvePath(dir, ld.Root),
		})
	}
	for i, env := range doc.Features {
		f, err := env.Feature()
		if err != nil {
			return nil, err
		}
		var rawFeature *yaml.Node
		if rawFeatures != nil && i < len(rawFeatures.Content) {
			rawFeature = rawFeatures.Content[i]
		}
		f.Data = features.Defaults(f.Label, adjust(dir, f.Data, rawFeature))
		m.Features = append(m.Features, f)
	}
	return m, nil
}

// adjust resolves host paths and applies the mode defaults for modes that
// were not written out. An omitted mode cannot be told apart from 0000 after
// decoding, so the raw node is consulted.
func adjust(dir string, d features.Data, raw *yaml.Node) features.Data {
	modeGiven := func(kind features.Kind) bool {
		return lookup(lookup(raw, string(kind)), "mode") != nil
	}
	switch v := d.(type) {
	case features.EnsureDirExists:
		if !modeGiven(v.Kind()) {
			v.Mode = 0o755
		}
		return v
	case features.Install:
		v.Src = resolvePath(dir, v.Src)
		if !modeGiven(v.Kind()) {
			v.Mode = 0o644
		}
		return v
	case features.Extract:
		if v.Buck != nil {
			buck := *v.Buck
			buck.Src = resolvePath(dir, buck.Src)
			v.Buck = &buck
		}
		return v
	default:
		return d
	}
}

// lookup returns the value of key in a mapping node, descending through a
// document node. It returns nil when node is not a mapping or lacks the key.
func lookup(node *yaml.Node, key string) *yaml.Node {
	if node == nil {
		return nil
	}
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
