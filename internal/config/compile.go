package config

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/pipeline"
	"github.com/specialistvlad/assetgrid/internal/processor"
	"github.com/specialistvlad/assetgrid/internal/task"
	"github.com/specialistvlad/assetgrid/internal/watch"
)

var (
	// ErrUnknownReference is returned when a pipeline member, a watch rule
	// or the root names something that is neither a task nor a pipeline.
	ErrUnknownReference = errors.New("unknown task or pipeline")
	// ErrReferenceCycle is returned when pipelines reference each other in
	// a loop.
	ErrReferenceCycle = errors.New("pipeline reference cycle")
	// ErrNameClash is returned when a pipeline reuses the name of a task or
	// of another pipeline.
	ErrNameClash = errors.New("name already defined")
)

// Project is a compiled model, ready to be scheduled and watched.
type Project struct {
	Tasks *task.Registry
	// Pipelines holds every named pipeline, resolved to a tree.
	Pipelines map[string]pipeline.Node
	RootName  string
	Root      pipeline.Node
	Rules     []watch.Rule
}

// Resolve returns the tree for a task or pipeline name.
func (p *Project) Resolve(name string) (pipeline.Node, bool) {
	if n, ok := p.Pipelines[name]; ok {
		return n, true
	}
	if t, ok := p.Tasks.Lookup(name); ok {
		return pipeline.Leaf(t), true
	}
	return pipeline.Node{}, false
}

// Compile registers every task, resolves every pipeline and watch rule, and
// validates the root tree. Processors are looked up in procs; the "clean"
// processor is built in.
func Compile(ctx context.Context, m *Model, procs *processor.Registry) (*Project, error) {
	logger := ctxlog.FromContext(ctx)

	tasks := task.NewRegistry()
	for _, def := range m.Tasks {
		if err := registerTask(tasks, procs, def); err != nil {
			return nil, err
		}
	}
	logger.Debug("Registered tasks.", "count", tasks.Len())

	c := &compiler{
		tasks:    tasks,
		defs:     make(map[string]*PipelineDef, len(m.Pipelines)),
		resolved: make(map[string]pipeline.Node, len(m.Pipelines)),
		visiting: make(map[string]bool),
	}
	for _, def := range m.Pipelines {
		if _, ok := tasks.Lookup(def.Name); ok {
			return nil, fmt.Errorf("pipeline %q: %w as a task", def.Name, ErrNameClash)
		}
		if _, ok := c.defs[def.Name]; ok {
			return nil, fmt.Errorf("pipeline %q: %w", def.Name, ErrNameClash)
		}
		c.defs[def.Name] = def
	}
	for _, def := range m.Pipelines {
		if _, err := c.resolve(def.Name, nil); err != nil {
			return nil, err
		}
	}

	rootName := m.Root
	if rootName == "" {
		rootName = DefaultRoot
	}
	root, err := c.resolve(rootName, nil)
	if err != nil {
		return nil, fmt.Errorf("root: %w", err)
	}
	if err := pipeline.ValidateRoot(root); err != nil {
		return nil, fmt.Errorf("root %q: %w", rootName, err)
	}

	rules := make([]watch.Rule, 0, len(m.Watches))
	for _, def := range m.Watches {
		target, err := c.resolve(def.Run, nil)
		if err != nil {
			return nil, fmt.Errorf("watch rule %q: %w", def.Name, err)
		}
		rule := watch.Rule{Name: def.Name, Pattern: def.Pattern, Target: target}
		if err := watch.ValidateRule(rule); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}

	logger.Debug("Project compiled.", "root", rootName, "pipelines", len(c.resolved), "watch_rules", len(rules))
	return &Project{
		Tasks:     tasks,
		Pipelines: c.resolved,
		RootName:  rootName,
		Root:      root,
		Rules:     rules,
	}, nil
}

func registerTask(tasks *task.Registry, procs *processor.Registry, def *TaskDef) error {
	if def.Processor == task.CleanProcessor {
		if len(def.Inputs) > 0 || def.Output != "" {
			return fmt.Errorf("task %q: clean tasks take no inputs or output", def.Name)
		}
		_, err := tasks.RegisterClean(def.Name)
		return err
	}
	p, err := procs.Lookup(def.Processor)
	if err != nil {
		return fmt.Errorf("task %q: %w", def.Name, err)
	}
	_, err = tasks.Register(task.Spec{
		Name:          def.Name,
		ProcessorName: def.Processor,
		Processor:     p,
		Inputs:        def.Inputs,
		Output:        def.Output,
		Options:       processor.NewOptions(def.Options),
	})
	return err
}

type compiler struct {
	tasks    *task.Registry
	defs     map[string]*PipelineDef
	resolved map[string]pipeline.Node
	visiting map[string]bool
}

// resolve turns a name into a tree. path is the chain of pipelines being
// resolved, used to report cycles.
func (c *compiler) resolve(name string, path []string) (pipeline.Node, error) {
	if t, ok := c.tasks.Lookup(name); ok {
		return pipeline.Leaf(t), nil
	}
	if n, ok := c.resolved[name]; ok {
		return n, nil
	}
	def, ok := c.defs[name]
	if !ok {
		return pipeline.Node{}, fmt.Errorf("%w: %q", ErrUnknownReference, name)
	}
	path = append(path, name)
	if c.visiting[name] {
		return pipeline.Node{}, fmt.Errorf("%w: %s", ErrReferenceCycle, strings.Join(path, " -> "))
	}
	if len(def.Members) == 0 {
		return pipeline.Node{}, fmt.Errorf("pipeline %q has no members", name)
	}

	c.visiting[name] = true
	defer delete(c.visiting, name)

	children := make([]pipeline.Node, 0, len(def.Members))
	for _, member := range def.Members {
		child, err := c.resolve(member, path)
		if err != nil {
			if errors.Is(err, ErrReferenceCycle) {
				return pipeline.Node{}, err
			}
			return pipeline.Node{}, fmt.Errorf("pipeline %q: %w", name, err)
		}
		children = append(children, child)
	}

	var n pipeline.Node
	if def.Mode == ModeParallel {
		n = pipeline.Parallel(children...)
	} else {
		n = pipeline.Series(children...)
	}
	c.resolved[name] = n
	return n, nil
}
