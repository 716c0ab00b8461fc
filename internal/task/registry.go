package task

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/specialistvlad/assetgrid/internal/processor"
)

// Spec describes a task to register.
type Spec struct {
	Name          string
	ProcessorName string
	Processor     processor.Processor
	Inputs        []string
	Output        string
	Options       processor.Options
}

// Registry is the explicit set of tasks a project defines. It replaces any
// ambient, package-level task table.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*Task)}
}

// Register validates spec and adds the task. On failure nothing is added.
func (r *Registry) Register(spec Spec) (*Task, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return nil, fmt.Errorf("task name is empty")
	}
	if spec.Processor == nil {
		return nil, fmt.Errorf("task %q: no processor bound", spec.Name)
	}
	for _, in := range spec.Inputs {
		sel := strings.TrimPrefix(in, "!")
		if sel == "" {
			return nil, fmt.Errorf("task %q: empty input selector", spec.Name)
		}
		if !doublestar.ValidatePattern(sel) {
			return nil, fmt.Errorf("task %q: invalid input selector %q", spec.Name, in)
		}
	}
	target, err := ParseTarget(spec.Output)
	if err != nil {
		return nil, fmt.Errorf("task %q: %w", spec.Name, err)
	}

	t := &Task{
		name:          spec.Name,
		processorName: spec.ProcessorName,
		processor:     spec.Processor,
		inputs:        slices.Clone(spec.Inputs),
		output:        target,
		options:       spec.Options,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkLocked(t); err != nil {
		return nil, err
	}
	r.addLocked(t)
	return t, nil
}

// RegisterClean adds a clean task. Clean tasks own the whole output root and
// are exempt from collision checks; pipeline validation keeps them alone at
// the head of the root series.
func (r *Registry) RegisterClean(name string) (*Task, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("task name is empty")
	}
	t := &Task{name: name, processorName: CleanProcessor, clean: true}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkLocked(t); err != nil {
		return nil, err
	}
	r.addLocked(t)
	return t, nil
}

func (r *Registry) checkLocked(t *Task) error {
	if _, exists := r.tasks[t.name]; exists {
		return fmt.Errorf("task %q: %w", t.name, ErrDuplicateTaskName)
	}
	if t.clean {
		return nil
	}
	for _, name := range r.order {
		other := r.tasks[name]
		if other.clean {
			continue
		}
		if t.output.Overlaps(other.output) {
			return &CollisionError{
				Task:     t.name,
				Target:   t.output.String(),
				Existing: other.name,
				Claimed:  other.output.String(),
			}
		}
	}
	return nil
}

func (r *Registry) addLocked(t *Task) {
	r.tasks[t.name] = t
	r.order = append(r.order, t.name)
}

// Lookup returns the task registered under name.
func (r *Registry) Lookup(name string) (*Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[name]
	return t, ok
}

// All returns every task in registration order.
func (r *Registry) All() []*Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Task, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tasks[name])
	}
	return out
}

// Len returns the number of registered tasks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
