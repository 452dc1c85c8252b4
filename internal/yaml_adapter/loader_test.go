package yaml_adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/layergraph/internal/features"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func TestLoader_Load(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"layer.yaml": `
parent: out/base.graph
layers:
  - label: //tools:bin
    graph: out/tools.graph
    root: /build/tools
features:
  - label: app-dir
    ensure_dir_exists:
      dir: /etc/app
  - label: config
    install:
      src: files/app.conf
      dst: /etc/app/app.conf
      mode: "0600"
      user: svc
      group: svc
  - label: exec
    install:
      src: /abs/run.sh
      dst: /etc/app/run.sh
      mode: 0755
  - label: svc
    user:
      uid: 1234
      primary_group: svc
  - label: svc
    group: {}
  - label: tool
    extract:
      buck:
        src: bin/tool
        dst: /usr/bin/tool
`,
	})

	m, err := NewLoader().Load(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "out/base.graph"), m.Parent)
	require.Len(t, m.Layers, 1)
	assert.Equal(t, filepath.Join(root, "out/tools.graph"), m.Layers[0].Graph)
	assert.Equal(t, "/build/tools", m.Layers[0].Root)

	uid := uint32(1234)
	want := []features.Feature{
		{Label: "app-dir", Data: features.EnsureDirExists{Dir: "/etc/app", Mode: 0o755, User: "root", Group: "root"}},
		{Label: "config", Data: features.Install{Src: filepath.Join(root, "files/app.conf"), Dst: "/etc/app/app.conf", Mode: 0o600, User: "svc", Group: "svc"}},
		{Label: "exec", Data: features.Install{Src: "/abs/run.sh", Dst: "/etc/app/run.sh", Mode: 0o755, User: "root", Group: "root"}},
		{Label: "svc", Data: features.User{Name: "svc", UID: &uid, PrimaryGroup: "svc", HomeDir: "/", Shell: "/sbin/nologin"}},
		{Label: "svc", Data: features.Group{Name: "svc"}},
		{Label: "tool", Data: features.Extract{Buck: &features.ExtractBuck{Src: filepath.Join(root, "bin/tool"), Dst: "/usr/bin/tool"}}},
	}
	assert.Equal(t, want, m.Features)
}

func TestLoader_ExplicitZeroMode(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"a.yml": `
features:
  - label: locked
    ensure_dir_exists:
      dir: /locked
      mode: "0000"
`,
	})
	m, err := NewLoader().Load(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, m.Features, 1)
	assert.Equal(t, features.Mode(0), m.Features[0].Data.(features.EnsureDirExists).Mode)
}

func TestLoader_EmptyFile(t *testing.T) {
	root := writeFiles(t, map[string]string{"empty.yaml": ""})
	m, err := NewLoader().Load(context.Background(), root)
	require.NoError(t, err)
	assert.Empty(t, m.Features)
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"no kind", "features:\n  - label: x\n", "feature has no kind set"},
		{"two kinds", "features:\n  - label: x\n    group: {name: a}\n    user: {name: a, primary_group: a}\n", "exactly one kind must be set"},
		{"unknown field", "features:\n  - label: x\n    group: {colour: red}\n", "field colour not found"},
		{"bad mode", "features:\n  - label: x\n    ensure_dir_exists: {dir: /a, mode: \"9\"}\n", "invalid mode"},
		{"duplicate layer", "parent: a\nlayers: [{label: l, graph: g}, {label: l, graph: g}]\n", `layer "l" declared twice`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			root := writeFiles(t, map[string]string{"main.yaml": tc.content})
			_, err := NewLoader().Load(context.Background(), root)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}
