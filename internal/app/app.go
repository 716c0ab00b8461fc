package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/specialistvlad/assetgrid/internal/config"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/livereload"
	"github.com/specialistvlad/assetgrid/internal/metrics"
	"github.com/specialistvlad/assetgrid/internal/processor"
	"github.com/specialistvlad/assetgrid/internal/scheduler"
	"github.com/specialistvlad/assetgrid/internal/watch"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW        io.Writer
	logger      *slog.Logger
	cfg         *Config
	project     *config.Project
	metrics     *metrics.Metrics
	scheduler   *scheduler.Scheduler
	broadcaster *livereload.Broadcaster
	watcher     *watch.Watcher

	mu    sync.Mutex
	addr  net.Addr
	ready chan struct{}
}

// NewApp loads and compiles the project named by cfg and wires every
// component around it. With no modules the core processors are registered.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, modules ...processor.Module) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Log, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, cfg.Pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline: %w", err)
	}
	logger.Debug("Pipeline loaded and translated into unified model.")

	procs := processor.NewRegistry()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(procs)
	}
	logger.Debug("All processor modules registered.", "count", len(modules), "processors", procs.Names())

	project, err := config.Compile(ctx, model, procs)
	if err != nil {
		return nil, fmt.Errorf("invalid pipeline: %w", err)
	}

	debounce, _ := cfg.DebounceDuration()
	m := metrics.New()
	a := &App{
		outW:    outW,
		logger:  logger,
		cfg:     cfg,
		project: project,
		metrics: m,
		scheduler: scheduler.New(cfg.Source, cfg.Output,
			scheduler.WithWorkers(cfg.Workers),
			scheduler.WithHooks(m.Hooks()),
		),
		broadcaster: livereload.NewBroadcaster(
			livereload.WithBroadcastHook(func(livereload.Notification, int) { m.ObserveReload() }),
		),
		ready: make(chan struct{}),
	}
	a.watcher = watch.New(cfg.Source, a.rebuild, watch.WithDebounce(debounce))
	m.TrackClients(a.broadcaster.Len)

	logger.Info("Project ready.",
		"root", project.RootName,
		"tasks", project.Tasks.Len(),
		"watch_rules", len(project.Rules),
		"workers", a.scheduler.Workers(),
	)
	return a, nil
}

// Project returns the compiled project.
func (a *App) Project() *config.Project {
	return a.project
}

// Broadcaster returns the live reload broadcaster.
func (a *App) Broadcaster() *livereload.Broadcaster {
	return a.broadcaster
}

// Metrics returns the application's metric set.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// Ready is closed once Run has started every watch rule and, when enabled,
// the server is listening.
func (a *App) Ready() <-chan struct{} {
	return a.ready
}

// Addr returns the server's listening address, or nil before Ready.
func (a *App) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addr
}
