// Package task holds the smallest unit of build work: one processor bound to
// an ordered set of input selectors and an output target. Tasks are created
// only through a Registry, which enforces unique names and disjoint outputs.
package task

import (
	"slices"

	"github.com/specialistvlad/assetgrid/internal/processor"
)

// CleanProcessor is the reserved processor name of a clean task.
const CleanProcessor = "clean"

// Task is immutable after registration.
type Task struct {
	name          string
	processorName string
	processor     processor.Processor
	inputs        []string
	output        Target
	options       processor.Options
	clean         bool
}

// Name returns the task's unique name.
func (t *Task) Name() string { return t.name }

// ProcessorName returns the name the processor was registered under.
func (t *Task) ProcessorName() string { return t.processorName }

// Processor returns the bound transform; nil for a clean task.
func (t *Task) Processor() processor.Processor { return t.processor }

// Inputs returns a copy of the input selectors in declared order. Selectors
// starting with "!" exclude matches.
func (t *Task) Inputs() []string { return slices.Clone(t.inputs) }

// Output returns the declared output target. It is the zero Target for a
// clean task.
func (t *Task) Output() Target { return t.output }

// Options returns the processor options.
func (t *Task) Options() processor.Options { return t.options }

// IsClean reports whether the task wipes and recreates the output root.
func (t *Task) IsClean() bool { return t.clean }

func (t *Task) String() string { return t.name }
