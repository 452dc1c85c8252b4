package app

import (
	"errors"
	"fmt"
)

// Command selects what a run does.
type Command string

const (
	// CommandPlan loads declarations, resolves them into a graph and saves it.
	CommandPlan Command = "plan"
	// CommandCompile applies a saved graph to a root directory and saves the
	// graph again with the items found on disk.
	CommandCompile Command = "compile"
	// CommandDot renders a saved graph as Graphviz DOT.
	CommandDot Command = "dot"
)

// Commands lists every command in the order they are documented.
func Commands() []Command {
	return []Command{CommandPlan, CommandCompile, CommandDot}
}

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Command Command
	// Declarations are the files or directories holding the layer
	// declaration. Only used by plan.
	Declarations []string
	// Graph is where plan writes the resolved graph and where compile and
	// dot read it from.
	Graph string
	// DotOutput is a file to write the DOT rendering to. Empty means the
	// app's output writer.
	DotOutput string
	// RootDir is the directory compile builds the layer into.
	RootDir string
	// Label names the layer in logs.
	Label string

	LogFormat string
	LogLevel  string
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.Graph == "" {
		return nil, errors.New("a graph file is required")
	}
	switch cfg.Command {
	case CommandPlan:
		if len(cfg.Declarations) == 0 {
			return nil, errors.New("plan needs at least one declaration path")
		}
	case CommandCompile:
		if cfg.RootDir == "" {
			return nil, errors.New("compile needs a root directory")
		}
	case CommandDot:
	default:
		return nil, fmt.Errorf("unknown command %q", cfg.Command)
	}
	if cfg.Label == "" {
		cfg.Label = cfg.Graph
	}
	return &cfg, nil
}
