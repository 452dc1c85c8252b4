package app_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/layergraph/internal/app"
	"github.com/specialistvlad/layergraph/internal/compile"
	"github.com/specialistvlad/layergraph/internal/depgraph"
	"github.com/specialistvlad/layergraph/internal/testutil"
)

type harnessResult struct {
	Output    string
	LogOutput string
	Err       error
}

// runApp validates cfg and runs the app once with debug logging.
func runApp(t *testing.T, cfg app.Config, opts ...app.Option) *harnessResult {
	t.Helper()

	cfg.LogLevel = "debug"
	config, err := app.NewConfig(cfg)
	require.NoError(t, err)

	out, logs := &testutil.SafeBuffer{}, &testutil.SafeBuffer{}
	opts = append([]app.Option{app.WithLogWriter(logs)}, opts...)
	runErr := app.NewApp(out, config, opts...).Run(context.Background())

	if os.Getenv("LAYERGRAPH_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
	}
	return &harnessResult{Output: out.String(), LogOutput: logs.String(), Err: runErr}
}

type recordingRunner struct {
	cmds [][]string
}

func (r *recordingRunner) Run(_ context.Context, _, _ string, cmd []string) error {
	r.cmds = append(r.cmds, cmd)
	return nil
}

func TestNewConfig(t *testing.T) {
	cfg, err := app.NewConfig(app.Config{Command: app.CommandDot, Graph: "a.graph"})
	require.NoError(t, err)
	assert.Equal(t, "a.graph", cfg.Label)

	_, err = app.NewConfig(app.Config{Command: "bogus", Graph: "a.graph"})
	assert.ErrorContains(t, err, "unknown command")
}

// TestApp_LayerStack plans and compiles a base layer, then plans a child
// layer on top of it that relies on what the base left on disk.
func TestApp_LayerStack(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"files/motd": "welcome\n",
		"base/main.hcl": `
feature "ensure_dir_exists" "etc" {
  dir  = "/etc"
  mode = 755
}

feature "install" "motd" {
  src = "../files/motd"
  dst = "/etc/motd"
}

feature "genrule" "touch" {
  cmd = ["touch", "/var/stamp"]
}
`,
		"child/main.yaml": `
parent: ../out/base.graph
features:
  - label: needs-passwd
    requires:
      files: [/etc/passwd, /etc/motd]
  - label: motd-link
    symlink:
      link: /etc/issue
      target: motd
`,
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "out"), 0o755))
	baseGraph := filepath.Join(dir, "out", "base.graph")
	baseRoot := testutil.ImageRoot(t)

	res := runApp(t, app.Config{Command: app.CommandPlan, Graph: baseGraph, Declarations: []string{filepath.Join(dir, "base")}})
	require.NoError(t, res.Err)
	assert.Contains(t, res.LogOutput, "Layer planned.")

	// /etc/passwd is only known once the base has been compiled.
	childGraph := filepath.Join(dir, "out", "child.graph")
	res = runApp(t, app.Config{Command: app.CommandPlan, Graph: childGraph, Declarations: []string{filepath.Join(dir, "child")}})
	var missing *depgraph.MissingItemError
	require.True(t, errors.As(res.Err, &missing), "got %v", res.Err)

	runner := &recordingRunner{}
	res = runApp(t, app.Config{Command: app.CommandCompile, Graph: baseGraph, RootDir: baseRoot}, app.WithCommandRunner(runner))
	require.NoError(t, res.Err)
	assert.Equal(t, [][]string{{"touch", "/var/stamp"}}, runner.cmds)
	motd, err := os.ReadFile(filepath.Join(baseRoot, "etc", "motd"))
	require.NoError(t, err)
	assert.Equal(t, "welcome\n", string(motd))

	res = runApp(t, app.Config{Command: app.CommandPlan, Graph: childGraph, Declarations: []string{filepath.Join(dir, "child")}})
	require.NoError(t, res.Err)

	g, err := depgraph.Load(childGraph)
	require.NoError(t, err)
	var labels []string
	for f := range g.PendingFeatures() {
		labels = append(labels, f.Label)
	}
	assert.ElementsMatch(t, []string{"needs-passwd", "motd-link"}, labels)
}

func TestApp_CompileWithoutPackageManager(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"main.hcl": `
feature "rpm" "tools" {
  install = ["strace"]
}
`,
	})
	graph := filepath.Join(dir, "layer.graph")

	require.NoError(t, runApp(t, app.Config{Command: app.CommandPlan, Graph: graph, Declarations: []string{dir}}).Err)
	res := runApp(t, app.Config{Command: app.CommandCompile, Graph: graph, RootDir: filepath.Join(dir, "root")})
	assert.ErrorIs(t, res.Err, compile.ErrNoPackageManager)
}

func TestApp_Dot(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"main.hcl": `
feature "symlink" "sh" {
  link   = "/bin/sh"
  target = "/bin/bash"
}
`,
	})
	graph := filepath.Join(dir, "layer.graph")

	// /bin/bash and /bin do not exist.
	res := runApp(t, app.Config{Command: app.CommandPlan, Graph: graph, Declarations: []string{dir}})
	require.Error(t, res.Err)
	_, err := os.Stat(graph)
	assert.True(t, os.IsNotExist(err), "no graph is written when resolution fails")

	testutil.WriteFiles(t, dir, map[string]string{
		"main.hcl": `
feature "ensure_dir_exists" "bin" {
  dir  = "/bin"
  mode = "0755"
}
`,
	})
	dotFile := filepath.Join(dir, "layer.dot")
	res = runApp(t, app.Config{Command: app.CommandPlan, Graph: graph, DotOutput: dotFile, Declarations: []string{dir}})
	require.NoError(t, res.Err)
	written, err := os.ReadFile(dotFile)
	require.NoError(t, err)
	assert.Contains(t, string(written), "digraph")

	res = runApp(t, app.Config{Command: app.CommandDot, Graph: graph})
	require.NoError(t, res.Err)
	assert.Contains(t, res.Output, "digraph")
	assert.Contains(t, res.Output, "/bin")

	res = runApp(t, app.Config{Command: app.CommandDot, Graph: filepath.Join(dir, "missing.graph")})
	assert.ErrorIs(t, res.Err, os.ErrNotExist)
}
