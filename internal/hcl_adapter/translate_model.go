// This file contains the logic for translating decoded HCL blocks into the
// format-agnostic project model defined in the config package.

package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/specialistvlad/assetgrid/internal/config"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
)

// translateTask converts the HCL task block into the agnostic model.
func (l *Loader) translateTask(ctx context.Context, b *taskBlock) (*config.TaskDef, error) {
	logger := ctxlog.FromContext(ctx).With("task", b.Name, "processor", b.Processor)
	ctx = ctxlog.WithLogger(ctx, logger)

	opts, err := evalOptions(ctx, b.Options)
	if err != nil {
		return nil, fmt.Errorf("task %q: %w", b.Name, err)
	}
	logger.Debug("Translating HCL task to internal config model.", "inputs", len(b.Inputs), "output", b.Output, "options", optionKeys(opts))

	return &config.TaskDef{
		Name:      b.Name,
		Processor: b.Processor,
		Inputs:    b.Inputs,
		Output:    b.Output,
		Options:   opts,
	}, nil
}

// translatePipeline converts the HCL pipeline block into the agnostic model.
// Exactly one of series or parallel must be set.
func (l *Loader) translatePipeline(b *pipelineBlock) (*config.PipelineDef, error) {
	switch {
	case b.Series != nil && b.Parallel != nil:
		return nil, fmt.Errorf("pipeline %q: set either series or parallel, not both", b.Name)
	case b.Series != nil:
		return &config.PipelineDef{Name: b.Name, Mode: config.ModeSeries, Members: *b.Series}, nil
	case b.Parallel != nil:
		return &config.PipelineDef{Name: b.Name, Mode: config.ModeParallel, Members: *b.Parallel}, nil
	default:
		return nil, fmt.Errorf("pipeline %q: one of series or parallel is required", b.Name)
	}
}

// translateWatch converts the HCL watch block into the agnostic model.
func (l *Loader) translateWatch(b *watchBlock) *config.WatchDef {
	return &config.WatchDef{Name: b.Name, Pattern: b.Pattern, Run: b.Run}
}
