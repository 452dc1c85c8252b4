package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/specialistvlad/layergraph/internal/compile"
	"github.com/specialistvlad/layergraph/internal/config"
	"github.com/specialistvlad/layergraph/internal/ctxlog"
	"github.com/specialistvlad/layergraph/internal/depgraph"
	"github.com/specialistvlad/layergraph/internal/hcl_adapter"
	"github.com/specialistvlad/layergraph/internal/yaml_adapter"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logW    io.Writer
	logger  *slog.Logger
	config  *Config
	loaders []config.Loader

	packageManager compile.PackageManager
	commandRunner  compile.CommandRunner
}

// Option customizes an App.
type Option func(*App)

// WithLogWriter sends log output to w instead of the output writer.
func WithLogWriter(w io.Writer) Option {
	return func(a *App) { a.logW = w }
}

// WithLoaders replaces the declaration loaders. Every loader is run over the
// declaration paths and the results are merged.
func WithLoaders(loaders ...config.Loader) Option {
	return func(a *App) { a.loaders = loaders }
}

// WithPackageManager sets the collaborator compile uses for rpm features.
func WithPackageManager(pm compile.PackageManager) Option {
	return func(a *App) { a.packageManager = pm }
}

// WithCommandRunner sets the collaborator compile uses for genrule features.
func WithCommandRunner(r compile.CommandRunner) Option {
	return func(a *App) { a.commandRunner = r }
}

// NewApp is the constructor for the main application. It returns an App
// with its own isolated logger. Nothing is loaded until Run.
func NewApp(outW io.Writer, cfg *Config, opts ...Option) *App {
	a := &App{
		outW:    outW,
		logW:    outW,
		config:  cfg,
		loaders: []config.Loader{hcl_adapter.NewLoader(), yaml_adapter.NewLoader()},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = newLogger(cfg.LogLevel, cfg.LogFormat, a.logW)
	a.logger.Debug("Logger configured successfully.")
	return a
}

// Run executes the configured command.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger.With("layer", a.config.Label))
	a.logger.Debug("App.Run method started.", "command", a.config.Command)

	var err error
	switch a.config.Command {
	case CommandPlan:
		err = a.plan(ctx)
	case CommandCompile:
		err = a.compile(ctx)
	case CommandDot:
		err = a.dot(ctx)
	default:
		err = fmt.Errorf("unknown command %q", a.config.Command)
	}
	if err != nil {
		return err
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}

func (a *App) plan(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	model, err := a.loadModel(ctx)
	if err != nil {
		return err
	}
	g, err := resolve(ctx, model)
	if err != nil {
		return fmt.Errorf("failed to resolve layer: %w", err)
	}
	if err := g.Save(a.config.Graph); err != nil {
		return err
	}
	logger.Info("🗺️ Layer planned.", "graph", a.config.Graph, "node_count", g.NodeCount())

	if a.config.DotOutput != "" {
		return a.writeDOT(g)
	}
	return nil
}

func (a *App) compile(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	g, err := depgraph.Load(a.config.Graph)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(a.config.RootDir, 0o755); err != nil {
		return fmt.Errorf("creating root: %w", err)
	}

	c := &compile.Context{
		Label:          a.config.Label,
		Root:           a.config.RootDir,
		PackageManager: a.packageManager,
		CommandRunner:  a.commandRunner,
	}
	logger.Info("🚀 Compiling layer...", "root", c.Root)
	if err := compile.Run(ctx, c, g); err != nil {
		return fmt.Errorf("compilation failed: %w", err)
	}

	// Saved again so that child layers see what ended up on disk.
	if err := g.Save(a.config.Graph); err != nil {
		return err
	}
	logger.Info("🏁 Compilation finished.", "graph", a.config.Graph)
	return nil
}

func (a *App) dot(_ context.Context) error {
	g, err := depgraph.Load(a.config.Graph)
	if err != nil {
		return err
	}
	return a.writeDOT(g)
}

func (a *App) writeDOT(g *depgraph.Graph) error {
	if a.config.DotOutput == "" {
		return g.WriteDOT(a.outW)
	}
	f, err := os.Create(a.config.DotOutput)
	if err != nil {
		return err
	}
	if err := g.WriteDOT(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
