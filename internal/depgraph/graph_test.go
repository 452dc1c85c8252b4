package depgraph

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/layergraph/internal/codec"
	"github.com/specialistvlad/layergraph/internal/features"
)

func layeredGraph(t *testing.T) *Graph {
	t.Helper()
	tools := mustBuild(t, nil, install("tool", "/src/tool", "/tool"))

	b := NewBuilder(nil).AddLayerDependency("//tools", tools)
	for _, f := range []features.Feature{
		dir("etc", "/etc"),
		install("conf", "/src/conf", "/etc/app.conf"),
		{Label: "svc", Data: features.Group{Name: "svc"}},
		{Label: "pkgs", Data: features.Rpm{Install: []string{"bash", "coreutils"}}},
		{Label: "x", Data: features.Extract{Layer: &features.ExtractLayer{Layer: "//tools", Binaries: []string{"/tool"}}}},
	} {
		require.NoError(t, b.AddFeature(f))
	}
	g, err := b.Build(context.Background())
	require.NoError(t, err)
	return g
}

func TestGraph_CBOR(t *testing.T) {
	g := layeredGraph(t)

	data, err := codec.Marshal(g)
	require.NoError(t, err)

	var decoded Graph
	require.NoError(t, codec.Unmarshal(data, &decoded))

	assert.Equal(t, g.NodeCount(), decoded.NodeCount())
	assert.Equal(t, slices.Collect(g.PendingFeatures()), slices.Collect(decoded.PendingFeatures()))
	assertTopological(t, &decoded)

	conf, ok := decoded.Lookup(PathKey("/etc/app.conf"))
	require.True(t, ok)
	assert.Equal(t, FileTypeFile, conf.Entry.FileType)

	layer, ok := decoded.Lookup(LayerKey("//tools"))
	require.True(t, ok)
	require.NotNil(t, layer.Layer.Graph)
	assert.True(t, ItemInLayer(PathKey("/tool"), Exists()).Satisfies(layer))

	again, err := codec.Marshal(&decoded)
	require.NoError(t, err)
	assert.Equal(t, data, again, "encoding must be deterministic")
}

func TestGraph_SaveLoad(t *testing.T) {
	g := layeredGraph(t)
	path := filepath.Join(t.TempDir(), "layer.graph")
	require.NoError(t, g.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, pendingLabels(g), pendingLabels(loaded))

	// A loaded graph works as a parent.
	child := mustBuild(t, loaded, features.Feature{Label: "req", Data: features.Requires{Files: []string{"/tool"}, Groups: []string{"svc"}}})
	assert.Equal(t, []string{"req"}, pendingLabels(child))

	_, err = Load(filepath.Join(t.TempDir(), "missing.graph"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestGraph_UnmarshalRejectsCorruptGraph(t *testing.T) {
	g := layeredGraph(t)
	w := wireGraph{
		Nodes: g.g.nodes,
		Edges: append(slices.Clone(g.g.edges), Edge{From: 0, To: NodeID(len(g.g.nodes) + 5), Kind: EdgeAfter}),
		Topo:  g.topo,
		End:   g.end,
	}
	data, err := codec.Marshal(w)
	require.NoError(t, err)

	var decoded Graph
	assert.ErrorContains(t, codec.Unmarshal(data, &decoded), "unknown node")
}

func TestGraph_Items(t *testing.T) {
	g := mustBuild(t, nil, dir("etc", "/etc"))

	var keys []ItemKey
	for k := range g.Items() {
		keys = append(keys, k)
	}
	assert.Equal(t, []ItemKey{GroupKey("root"), PathKey("/"), PathKey("/etc"), UserKey("root")}, keys)
}

func TestGraph_WriteDOT(t *testing.T) {
	g := mustBuild(t, nil, dir("etc", "/etc"))

	var sb strings.Builder
	require.NoError(t, g.WriteDOT(&sb))
	out := sb.String()
	assert.Contains(t, out, "digraph")
	assert.Contains(t, out, "ensure_dir_exists(etc)")
	assert.Contains(t, out, "directory /etc (0755)")
	assert.Contains(t, out, "provides")
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func TestGraph_PopulateDynamicItems(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"etc/passwd":   "root:x:0:0:root:/root:/bin/bash\nsvc:x:100:100::/:/sbin/nologin\n",
		"etc/group":    "root:x:0:\nsvc:x:100:\n",
		"usr/bin/tool": "#!/bin/sh\n",
	})
	require.NoError(t, os.Chmod(filepath.Join(root, "usr/bin/tool"), 0o755))
	require.NoError(t, os.Symlink("tool", filepath.Join(root, "usr/bin/alias")))

	g := mustBuild(t, nil, dir("etc", "/etc"))
	before := g.NodeCount()

	added, err := g.PopulateDynamicItems(ctx, root)
	require.NoError(t, err)
	// /etc is declared and / is seeded; root is already known.
	// New: /etc/passwd, /etc/group, /usr, /usr/bin, /usr/bin/tool,
	// /usr/bin/alias, user svc, group svc.
	assert.Equal(t, 8, added)
	assert.Equal(t, before+8, g.NodeCount())
	assertTopological(t, g)

	tool, ok := g.Lookup(PathKey("/usr/bin/tool"))
	require.True(t, ok)
	assert.Equal(t, FileTypeFile, tool.Entry.FileType)
	assert.Equal(t, uint32(0o755), tool.Entry.Mode)

	alias, ok := g.Lookup(PathKey("/usr/bin/alias"))
	require.True(t, ok)
	assert.Equal(t, FileTypeSymlink, alias.Entry.FileType)

	etc, ok := g.Lookup(PathKey("/etc"))
	require.True(t, ok)
	assert.Equal(t, uint32(0o755), etc.Entry.Mode, "declared items are not overwritten")

	_, ok = g.Lookup(UserKey("svc"))
	assert.True(t, ok)
	_, ok = g.Lookup(GroupKey("svc"))
	assert.True(t, ok)

	t.Run("second run adds nothing", func(t *testing.T) {
		count := g.NodeCount()
		added, err := g.PopulateDynamicItems(ctx, root)
		require.NoError(t, err)
		assert.Zero(t, added)
		assert.Equal(t, count, g.NodeCount())
	})

	t.Run("dynamic items are visible to child layers", func(t *testing.T) {
		child := mustBuild(t, g, features.Feature{Label: "req", Data: features.Requires{
			Files: []string{"/usr/bin/tool"},
			Users: []string{"svc"},
		}})
		assert.Equal(t, []string{"req"}, pendingLabels(child))
	})
}

func TestGraph_PopulateDynamicItemsWithoutDatabases(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"data/file": "x"})

	g := mustBuild(t, nil)
	added, err := g.PopulateDynamicItems(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 2, added)
}

func TestGraph_PopulateDynamicItemsMissingRoot(t *testing.T) {
	g := mustBuild(t, nil)
	_, err := g.PopulateDynamicItems(context.Background(), filepath.Join(t.TempDir(), "absent"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
