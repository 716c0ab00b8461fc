package app

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/scheduler"
	"github.com/specialistvlad/assetgrid/internal/watch"
	"golang.org/x/sync/errgroup"
)

// Build runs the root pipeline once.
func (a *App) Build(ctx context.Context) (*scheduler.BuildRun, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Info("🚀 Starting bootstrap build...", "root", a.project.RootName)

	run, err := a.scheduler.Run(ctx, a.project.Root)
	if err != nil {
		return run, fmt.Errorf("build failed: %w", err)
	}
	for _, w := range run.Warnings() {
		a.logger.Warn("Build warning.", "task", w.Task, "warning", w.Err)
	}
	a.logger.Info("🏁 Bootstrap build finished.", "duration", run.Duration(), "outputs", len(run.ChangedPaths()))
	return run, nil
}

// Run executes the bootstrap build. On success it keeps the watch rules and
// the development server running until ctx is cancelled. A failed bootstrap
// build is returned without starting either.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if _, err := a.Build(ctx); err != nil {
		return err
	}

	var ln net.Listener
	if a.cfg.Server.Enabled {
		var err error
		ln, err = net.Listen("tcp", a.cfg.Server.Addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", a.cfg.Server.Addr, err)
		}
		a.mu.Lock()
		a.addr = ln.Addr()
		a.mu.Unlock()
	} else {
		a.logger.Warn("Development server not started: disabled")
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, err := range a.watcher.Start(gctx, a.project.Rules) {
		var setupErr *watch.SetupError
		if errors.As(err, &setupErr) {
			a.logger.Error("Watch rule disabled.", "rule", setupErr.Rule, "dir", setupErr.Dir, "error", setupErr.Err)
			continue
		}
		a.logger.Error("Watch rule rejected.", "error", err)
	}
	g.Go(func() error {
		<-gctx.Done()
		a.watcher.Wait()
		a.logger.Debug("All watch rules stopped.")
		return nil
	})

	if ln != nil {
		g.Go(func() error {
			return a.serve(gctx, ln)
		})
	}

	close(a.ready)
	a.logger.Info("👀 Watching for changes...", "source", a.cfg.Source, "rules", len(a.project.Rules))

	err := g.Wait()
	a.broadcaster.Wait()
	a.logger.Debug("App.Run method finished.")
	return err
}

// rebuild is the watch trigger: it re-runs the rule's target and, when the
// run succeeded with changed outputs, tells every live reload client.
func (a *App) rebuild(ctx context.Context, rule watch.Rule) {
	logger := ctxlog.FromContext(ctx)
	a.metrics.ObserveWatchTrigger(rule.Name)
	logger.Info("🔁 Change detected, rebuilding", "pipeline", rule.Target.String())

	run, err := a.scheduler.Run(ctx, rule.Target)
	if err != nil {
		logger.Error("Rebuild failed.", "error", err)
		return
	}
	for _, w := range run.Warnings() {
		logger.Warn("Build warning.", "task", w.Task, "warning", w.Err)
	}
	a.broadcaster.OnRunFinished(ctx, run)
}
