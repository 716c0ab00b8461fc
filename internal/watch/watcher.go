// Package watch turns source tree changes into pipeline re-runs. Each rule
// owns one loop and one fsnotify watcher over its pattern's base directory;
// matching events open a fixed debounce window and the rule fires once when
// the window closes. Runs triggered by the same rule never overlap.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
)

// DefaultDebounce is the coalescing window used when none is configured.
const DefaultDebounce = 100 * time.Millisecond

// Trigger re-runs a rule's target. It is called from the rule's own loop, so
// calls for one rule are serialized; errors are the trigger's to report.
type Trigger func(ctx context.Context, rule Rule)

// Watcher runs the monitoring loops for a set of rules.
type Watcher struct {
	sourceRoot string
	trigger    Trigger
	debounce   time.Duration
	wg         sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the coalescing window. Non-positive values keep the
// default.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher over sourceRoot. The trigger is required.
func New(sourceRoot string, trigger Trigger, opts ...Option) *Watcher {
	if trigger == nil {
		panic("watch: nil trigger")
	}
	if abs, err := filepath.Abs(sourceRoot); err == nil {
		sourceRoot = abs
	}
	w := &Watcher{
		sourceRoot: sourceRoot,
		trigger:    trigger,
		debounce:   DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Debounce returns the configured coalescing window.
func (w *Watcher) Debounce() time.Duration { return w.debounce }

// Start begins one loop per valid rule and returns immediately. Rules that
// fail validation or setup are returned as errors and do not affect the
// others. The loops stop when ctx is cancelled; use Wait to join them.
func (w *Watcher) Start(ctx context.Context, rules []Rule) []error {
	var errs []error
	for _, rule := range rules {
		rule.Pattern = strings.TrimPrefix(rule.Pattern, "./")
		if err := ValidateRule(rule); err != nil {
			errs = append(errs, err)
			continue
		}
		dir := filepath.Join(w.sourceRoot, filepath.FromSlash(rule.baseDir()))
		rw, err := newRecursiveWatcher(dir)
		if err != nil {
			errs = append(errs, &SetupError{Rule: rule.Name, Dir: dir, Err: err})
			continue
		}

		w.wg.Add(1)
		go w.loop(ctxlog.With(ctx, "rule", rule.Name), rule, rw)
	}
	return errs
}

// Wait blocks until every loop started by Start has returned.
func (w *Watcher) Wait() {
	w.wg.Wait()
}

// Watch starts the rules, logs setup failures and blocks until ctx is
// cancelled and every loop has stopped.
func (w *Watcher) Watch(ctx context.Context, rules []Rule) error {
	logger := ctxlog.FromContext(ctx)
	for _, err := range w.Start(ctx, rules) {
		var setupErr *SetupError
		if errors.As(err, &setupErr) {
			logger.Error("Watch rule disabled.", "rule", setupErr.Rule, "dir", setupErr.Dir, "error", setupErr.Err)
			continue
		}
		logger.Error("Watch rule rejected.", "error", err)
	}
	<-ctx.Done()
	w.Wait()
	return nil
}

func (w *Watcher) loop(ctx context.Context, rule Rule, rw *recursiveWatcher) {
	defer w.wg.Done()
	defer rw.Close()

	logger := ctxlog.FromContext(ctx)
	logger.Info("👀 Watching for changes", "pattern", rule.Pattern, "target", rule.Target.String())

	var (
		timer  *time.Timer
		window <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Watch loop stopped.")
			return

		case ev, ok := <-rw.fsw.Events:
			if !ok {
				return
			}
			if !w.relevant(ctx, rule, rw, ev) {
				continue
			}
			logger.Debug("Matching change detected.", "path", ev.Name, "op", ev.Op.String())
			if window == nil {
				timer = time.NewTimer(w.debounce)
				window = timer.C
			}

		case err, ok := <-rw.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("File watcher error.", "error", err)

		case <-window:
			timer, window = nil, nil
			if ctx.Err() != nil {
				return
			}
			logger.Info("▶️ Change window closed; re-running target", "target", rule.Target.String())
			w.trigger(ctx, rule)
		}
	}
}

// relevant reports whether ev should open or extend a debounce window.
func (w *Watcher) relevant(ctx context.Context, rule Rule, rw *recursiveWatcher, ev fsnotify.Event) bool {
	if ev.Op&relevantOps == 0 {
		return false
	}
	isDir, err := rw.follow(ev)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Could not watch new directory.", "path", ev.Name, "error", err)
	}
	if isDir {
		return w.treeMatches(rule, ev.Name)
	}
	return w.matches(rule, ev.Name)
}

func (w *Watcher) matches(rule Rule, name string) bool {
	rel, err := filepath.Rel(w.sourceRoot, name)
	if err != nil {
		return false
	}
	return doublestar.MatchUnvalidated(rule.Pattern, filepath.ToSlash(rel))
}

// treeMatches reports whether a directory that just appeared already holds a
// matching file, which happens when a tree is moved or copied in.
func (w *Watcher) treeMatches(rule Rule, dir string) bool {
	found := false
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && w.matches(rule, p) {
			found = true
			return filepath.SkipAll
		}
		return nil
	})
	return found
}
