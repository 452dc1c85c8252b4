package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"

	"github.com/specialistvlad/layergraph/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

const usage = `
layergraph - resolves image layer declarations into an ordered build graph.

Usage:
  layergraph plan    [options] DECLARATION_PATH...
  layergraph compile [options]
  layergraph dot     [options]

Commands:
  plan     Load .hcl/.yaml declarations, resolve them and write the graph.
  compile  Apply a planned graph to --root and record what ended up on disk.
  dot      Render a planned graph as Graphviz DOT.

Options:
`

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := pflag.NewFlagSet("layergraph", pflag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(output, usage)
		flagSet.PrintDefaults()
	}

	graphFlag := flagSet.StringP("graph", "g", "", "Graph file written by plan and read by compile and dot.")
	rootFlag := flagSet.StringP("root", "r", "", "Directory compile builds the layer into.")
	labelFlag := flagSet.StringP("label", "l", "", "Layer label used in logs. Defaults to the graph path.")
	dotFlag := flagSet.String("dot", "", "Write the DOT rendering to this file instead of stdout.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, usageError("%s", err)
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() == 0 {
		slog.Debug("No command provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}
	command := app.Command(flagSet.Arg(0))
	operands := flagSet.Args()[1:]

	switch command {
	case app.CommandPlan:
	case app.CommandCompile, app.CommandDot:
		if len(operands) > 0 {
			return nil, false, usageError("%s takes no arguments, got %q", command, operands)
		}
	default:
		return nil, false, usageError("unknown command %q: must be one of %v", command, app.Commands())
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, usageError("invalid log-format: must be 'text' or 'json'")
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		Command:      command,
		Declarations: operands,
		Graph:        *graphFlag,
		DotOutput:    *dotFlag,
		RootDir:      *rootFlag,
		Label:        *labelFlag,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
	})
	if err != nil {
		return nil, false, usageError("%s", err)
	}

	slog.Debug("CLI parser finished successfully.", "command", config.Command)
	return config, false, nil
}
