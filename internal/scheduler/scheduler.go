// Package scheduler executes pipeline trees. Series children run strictly in
// order and stop at the first failure; parallel children all run to
// completion and their failures are combined. Leaf work is bounded by a
// semaphore shared by every run of the same Scheduler.
package scheduler

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"runtime"
	"sync"

	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/fsutil"
	"github.com/specialistvlad/assetgrid/internal/pipeline"
	"github.com/specialistvlad/assetgrid/internal/processor"
	"github.com/specialistvlad/assetgrid/internal/task"
	"go.uber.org/multierr"
	"golang.org/x/sync/semaphore"
)

// Scheduler runs pipelines from a source root into an output root.
type Scheduler struct {
	sourceRoot string
	outputRoot string
	source     fs.FS
	workers    int
	sem        *semaphore.Weighted
	hooks      Hooks
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithWorkers caps how many leaf tasks run at once. Values below one fall
// back to the number of CPUs.
func WithWorkers(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithHooks adds execution hooks; repeated options are chained in order.
func WithHooks(h Hooks) Option {
	return func(s *Scheduler) {
		s.hooks = s.hooks.Merge(h)
	}
}

// New creates a scheduler over the given roots.
func New(sourceRoot, outputRoot string, opts ...Option) *Scheduler {
	s := &Scheduler{
		sourceRoot: sourceRoot,
		outputRoot: outputRoot,
		source:     os.DirFS(sourceRoot),
		workers:    runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sem = semaphore.NewWeighted(int64(s.workers))
	return s
}

// Workers returns the leaf concurrency limit.
func (s *Scheduler) Workers() int { return s.workers }

// OutputRoot returns the directory outputs are written under.
func (s *Scheduler) OutputRoot() string { return s.outputRoot }

// Run validates root and executes it. A tree that fails validation returns a
// nil run. Otherwise the returned error is the run's own error.
func (s *Scheduler) Run(ctx context.Context, root pipeline.Node) (*BuildRun, error) {
	if err := pipeline.ValidateRoot(root); err != nil {
		return nil, err
	}

	run := newBuildRun(root)
	ctx = ctxlog.With(ctx, "run_id", run.ID.String())
	logger := ctxlog.FromContext(ctx)
	logger.Info("▶️ Starting build run", "pipeline", root.String())

	err := s.runNode(ctx, run, root)
	run.finish(err)

	if err != nil {
		logger.Error("Build run failed.", "duration", run.Duration(), "error", err)
	} else {
		logger.Info("✅ Finished build run", "duration", run.Duration(), "changed", len(run.ChangedPaths()))
	}
	if s.hooks.OnRunFinish != nil {
		s.hooks.OnRunFinish(ctx, run)
	}
	return run, err
}

func (s *Scheduler) runNode(ctx context.Context, run *BuildRun, n pipeline.Node) error {
	switch n.Kind() {
	case pipeline.KindLeaf:
		return s.runLeaf(ctx, run, n.Task())
	case pipeline.KindSeries:
		for _, child := range n.Children() {
			if err := s.runNode(ctx, run, child); err != nil {
				return err
			}
		}
		return nil
	case pipeline.KindParallel:
		children := n.Children()
		errs := make([]error, len(children))
		var wg sync.WaitGroup
		for i, child := range children {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = s.runNode(ctx, run, child)
			}()
		}
		wg.Wait()
		return multierr.Combine(errs...)
	default:
		panic(fmt.Sprintf("scheduler: unknown node kind %s", n.Kind()))
	}
}

func (s *Scheduler) runLeaf(ctx context.Context, run *BuildRun, t *task.Task) error {
	ctx = ctxlog.With(ctx, "task", t.Name())
	logger := ctxlog.FromContext(ctx)

	acquireErr := s.sem.Acquire(ctx, 1)
	if acquireErr == nil {
		defer s.sem.Release(1)
	}

	run.advance(t.Name(), StatusRunning, nil)
	if s.hooks.OnTaskStart != nil {
		s.hooks.OnTaskStart(ctx, run, t)
	}

	var err error
	switch {
	case acquireErr != nil:
		err = fmt.Errorf("task %q: waiting for a worker: %w", t.Name(), acquireErr)
	case t.IsClean():
		logger.Info("▶️ Cleaning output root", "dir", s.outputRoot)
		if cerr := fsutil.Recreate(s.outputRoot); cerr != nil {
			err = &FileSystemError{Task: t.Name(), Op: "clean", Path: s.outputRoot, Err: cerr}
		}
	default:
		logger.Info("▶️ Starting task", "processor", t.ProcessorName())
		var written []string
		written, err = s.execute(ctx, run, t)
		run.recordOutputs(t.Name(), written)
	}

	to := StatusSucceeded
	if err != nil {
		to = StatusFailed
		logger.Error("Task failed.", "error", err)
	} else {
		logger.Info("✅ Finished task")
	}
	res := run.advance(t.Name(), to, err)
	if s.hooks.OnTaskFinish != nil {
		s.hooks.OnTaskFinish(ctx, run, res)
	}
	return err
}

// execute resolves inputs, runs the processor and writes its outputs. It
// returns the paths written, even on a partial write failure.
func (s *Scheduler) execute(ctx context.Context, run *BuildRun, t *task.Task) ([]string, error) {
	logger := ctxlog.FromContext(ctx)

	paths, err := fsutil.Resolve(s.source, t.Inputs())
	if err != nil {
		return nil, &FileSystemError{Task: t.Name(), Op: "glob", Path: s.sourceRoot, Err: err}
	}
	if len(paths) == 0 {
		warning := fmt.Errorf("%w: %v", ErrInputNotFound, t.Inputs())
		logger.Warn("Task matched no input files; skipping processor.", "inputs", t.Inputs())
		run.warn(t.Name(), warning)
		return nil, nil
	}

	inputs := make([]processor.Input, 0, len(paths))
	for _, p := range paths {
		data, rerr := fs.ReadFile(s.source, p)
		if rerr != nil {
			return nil, &FileSystemError{Task: t.Name(), Op: "read", Path: p, Err: rerr}
		}
		inputs = append(inputs, processor.Input{Path: p, Content: data})
	}
	logger.Debug("Resolved task inputs.", "count", len(inputs), "paths", paths)

	outputs, err := transform(ctx, t, inputs)
	if err != nil {
		return nil, &ProcessorError{Task: t.Name(), Input: processor.FailingInput(err), Err: err}
	}

	cleaned := make([]string, len(outputs))
	seen := make(map[string]struct{}, len(outputs))
	for i, out := range outputs {
		p := path.Clean(out.Path)
		if !t.Output().Contains(p) {
			return nil, &ProcessorError{
				Task: t.Name(),
				Err:  fmt.Errorf("%w: %q is not inside %q", ErrOutputOutsideTarget, out.Path, t.Output()),
			}
		}
		if _, dup := seen[p]; dup {
			return nil, &ProcessorError{Task: t.Name(), Err: fmt.Errorf("output %q produced twice", p)}
		}
		seen[p] = struct{}{}
		cleaned[i] = p
	}

	written := make([]string, 0, len(outputs))
	for i, out := range outputs {
		dst, werr := fsutil.WriteFile(s.outputRoot, cleaned[i], out.Content)
		if werr != nil {
			return written, &FileSystemError{Task: t.Name(), Op: "write", Path: dst, Err: werr}
		}
		written = append(written, cleaned[i])
	}
	return written, nil
}

// transform calls the processor, turning a panic into an error.
func transform(ctx context.Context, t *task.Task, inputs []processor.Input) (outputs []processor.Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return t.Processor().Transform(ctx, inputs, t.Options())
}
