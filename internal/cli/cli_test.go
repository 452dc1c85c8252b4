package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/layergraph/internal/app"
)

func TestParse(t *testing.T) {
	t.Run("plan", func(t *testing.T) {
		cfg, exit, err := Parse([]string{"plan", "-g", "out/app.graph", "layers/app", "extra.yaml", "--log-level", "DEBUG"}, &bytes.Buffer{})
		require.NoError(t, err)
		require.False(t, exit)
		assert.Equal(t, &app.Config{
			Command:      app.CommandPlan,
			Declarations: []string{"layers/app", "extra.yaml"},
			Graph:        "out/app.graph",
			Label:        "out/app.graph",
			LogFormat:    "text",
			LogLevel:     "debug",
		}, cfg)
	})

	t.Run("compile", func(t *testing.T) {
		cfg, exit, err := Parse([]string{"--graph=app.graph", "--root", "/tmp/root", "--label", "//app:layer", "compile"}, &bytes.Buffer{})
		require.NoError(t, err)
		require.False(t, exit)
		assert.Equal(t, app.CommandCompile, cfg.Command)
		assert.Equal(t, "/tmp/root", cfg.RootDir)
		assert.Equal(t, "//app:layer", cfg.Label)
		assert.Empty(t, cfg.Declarations)
	})

	t.Run("dot", func(t *testing.T) {
		cfg, _, err := Parse([]string{"dot", "-g", "app.graph", "--dot", "app.dot", "--log-format", "json"}, &bytes.Buffer{})
		require.NoError(t, err)
		assert.Equal(t, app.CommandDot, cfg.Command)
		assert.Equal(t, "app.dot", cfg.DotOutput)
		assert.Equal(t, "json", cfg.LogFormat)
	})
}

func TestParse_Usage(t *testing.T) {
	for _, args := range [][]string{nil, {"-h"}, {"--help"}} {
		out := &bytes.Buffer{}
		cfg, exit, err := Parse(args, out)
		require.NoError(t, err)
		assert.True(t, exit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown flag", []string{"plan", "--bogus"}, "unknown flag: --bogus"},
		{"unknown command", []string{"apply", "-g", "x"}, `unknown command "apply"`},
		{"plan without declarations", []string{"plan", "-g", "x"}, "at least one declaration path"},
		{"missing graph", []string{"plan", "decl"}, "graph file is required"},
		{"compile without root", []string{"compile", "-g", "x"}, "root directory"},
		{"operands to dot", []string{"dot", "-g", "x", "extra"}, "takes no arguments"},
		{"bad log format", []string{"dot", "-g", "x", "--log-format", "xml"}, "invalid log-format"},
		{"bad log level", []string{"dot", "-g", "x", "--log-level", "loud"}, "invalid log-level"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, exit, err := Parse(tc.args, &bytes.Buffer{})
			assert.False(t, exit)
			var exitErr *ExitError
			require.True(t, errors.As(err, &exitErr), "got %v", err)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.want)
		})
	}
}
