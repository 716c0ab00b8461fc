package config

import (
	"context"

	"github.com/zclconf/go-cty/cty"
)

// DefaultRoot is the pipeline the bootstrap build runs when none is named.
const DefaultRoot = "build"

// Loader is the interface for a format-specific project loader.
type Loader interface {
	// Load reads every project file found under paths and merges them into
	// one model.
	Load(ctx context.Context, paths ...string) (*Model, error)
}

// Model is the unified, format-agnostic representation of a project.
type Model struct {
	// Root names the task or pipeline the bootstrap build runs.
	Root      string
	Tasks     []*TaskDef
	Pipelines []*PipelineDef
	Watches   []*WatchDef
}

// TaskDef is the format-agnostic representation of a `task` block.
type TaskDef struct {
	Name      string
	Processor string
	Inputs    []string
	Output    string
	// Options is the raw options object; a null value means none were given.
	Options cty.Value
}

// Mode selects how a pipeline composes its members.
type Mode int

const (
	ModeSeries Mode = iota
	ModeParallel
)

func (m Mode) String() string {
	if m == ModeParallel {
		return "parallel"
	}
	return "series"
}

// PipelineDef is the format-agnostic representation of a `pipeline` block.
// Members name tasks or other pipelines.
type PipelineDef struct {
	Name    string
	Mode    Mode
	Members []string
}

// WatchDef is the format-agnostic representation of a `watch` block. Run
// names the task or pipeline the rule re-runs.
type WatchDef struct {
	Name    string
	Pattern string
	Run     string
}
