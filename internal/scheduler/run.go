package scheduler

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/assetgrid/internal/pipeline"
)

// now is overridden in tests to provide deterministic timings.
var now = time.Now

// TaskResult is a snapshot of one task inside a run.
type TaskResult struct {
	Task       string
	Status     Status
	Err        error
	Outputs    []string // written paths, relative to the output root
	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration is zero until the task has finished.
func (r TaskResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// OutputChanged records the outputs a task wrote during a run.
type OutputChanged struct {
	Task  string
	Paths []string
}

// BuildRun is one execution of a pipeline tree. Its state is created fresh
// for every Run and is safe to read concurrently.
type BuildRun struct {
	ID        uuid.UUID
	Root      pipeline.Node
	StartedAt time.Time

	mu         sync.Mutex
	order      []string
	results    map[string]*TaskResult
	changes    []OutputChanged
	warnings   []Warning
	status     Status
	err        error
	finishedAt time.Time
}

func newBuildRun(root pipeline.Node) *BuildRun {
	tasks := root.Tasks()
	r := &BuildRun{
		ID:        uuid.New(),
		Root:      root,
		StartedAt: now(),
		order:     make([]string, 0, len(tasks)),
		results:   make(map[string]*TaskResult, len(tasks)),
		status:    StatusRunning,
	}
	for _, t := range tasks {
		r.order = append(r.order, t.Name())
		r.results[t.Name()] = &TaskResult{Task: t.Name(), Status: StatusPending}
	}
	return r
}

// advance moves a task to the next status. An illegal transition is a bug in
// the scheduler and panics.
func (r *BuildRun) advance(name string, to Status, err error) TaskResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.results[name]
	if !ok {
		panic(fmt.Sprintf("scheduler: task %q is not part of run %s", name, r.ID))
	}
	if !res.Status.canAdvance(to) {
		panic(fmt.Sprintf("scheduler: task %q cannot move from %s to %s", name, res.Status, to))
	}
	res.Status = to
	switch to {
	case StatusRunning:
		res.StartedAt = now()
	default:
		res.FinishedAt = now()
		res.Err = err
	}
	return r.snapshot(res)
}

func (r *BuildRun) recordOutputs(name string, paths []string) {
	if len(paths) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[name].Outputs = slices.Clone(paths)
	r.changes = append(r.changes, OutputChanged{Task: name, Paths: slices.Clone(paths)})
}

func (r *BuildRun) warn(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, Warning{Task: name, Err: err})
}

func (r *BuildRun) finish(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.status.canAdvance(StatusSucceeded) {
		panic(fmt.Sprintf("scheduler: run %s finished twice", r.ID))
	}
	r.finishedAt = now()
	r.err = err
	if err != nil {
		r.status = StatusFailed
	} else {
		r.status = StatusSucceeded
	}
}

func (r *BuildRun) snapshot(res *TaskResult) TaskResult {
	out := *res
	out.Outputs = slices.Clone(res.Outputs)
	return out
}

// Status is running until the run finishes.
func (r *BuildRun) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Succeeded reports whether the run finished without error.
func (r *BuildRun) Succeeded() bool {
	return r.Status() == StatusSucceeded
}

// Err returns the run's error: the first failure of a series, or every
// failure of a parallel group combined.
func (r *BuildRun) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// FinishedAt is zero while the run is in flight.
func (r *BuildRun) FinishedAt() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finishedAt
}

// Duration is zero while the run is in flight.
func (r *BuildRun) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finishedAt.IsZero() {
		return 0
	}
	return r.finishedAt.Sub(r.StartedAt)
}

// Task returns the result of a task by name.
func (r *BuildRun) Task(name string) (TaskResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.results[name]
	if !ok {
		return TaskResult{}, false
	}
	return r.snapshot(res), true
}

// Tasks returns every task result in pipeline order.
func (r *BuildRun) Tasks() []TaskResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TaskResult, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.snapshot(r.results[name]))
	}
	return out
}

// Changes returns the output changes in completion order.
func (r *BuildRun) Changes() []OutputChanged {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]OutputChanged, len(r.changes))
	for i, c := range r.changes {
		out[i] = OutputChanged{Task: c.Task, Paths: slices.Clone(c.Paths)}
	}
	return out
}

// ChangedPaths returns every written output path, sorted and de-duplicated.
func (r *BuildRun) ChangedPaths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var paths []string
	for _, c := range r.changes {
		paths = append(paths, c.Paths...)
	}
	sort.Strings(paths)
	return slices.Compact(paths)
}

// Warnings returns the non-fatal conditions recorded during the run.
func (r *BuildRun) Warnings() []Warning {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.warnings)
}
