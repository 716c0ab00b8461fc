package scheduler

import (
	"context"

	"github.com/specialistvlad/assetgrid/internal/task"
)

// Hooks observe execution. Every field is optional. Hooks run on the
// goroutine that executes the task and must not block for long.
type Hooks struct {
	OnTaskStart  func(ctx context.Context, run *BuildRun, t *task.Task)
	OnTaskFinish func(ctx context.Context, run *BuildRun, res TaskResult)
	OnRunFinish  func(ctx context.Context, run *BuildRun)
}

// Merge combines two hook sets, running the receiver first.
func (h Hooks) Merge(other Hooks) Hooks {
	return Hooks{
		OnTaskStart:  chain3(h.OnTaskStart, other.OnTaskStart),
		OnTaskFinish: chain3(h.OnTaskFinish, other.OnTaskFinish),
		OnRunFinish:  chain2(h.OnRunFinish, other.OnRunFinish),
	}
}

func chain3[A, B any](first, second func(context.Context, A, B)) func(context.Context, A, B) {
	switch {
	case first == nil:
		return second
	case second == nil:
		return first
	default:
		return func(ctx context.Context, a A, b B) {
			first(ctx, a, b)
			second(ctx, a, b)
		}
	}
}

func chain2[A any](first, second func(context.Context, A)) func(context.Context, A) {
	switch {
	case first == nil:
		return second
	case second == nil:
		return first
	default:
		return func(ctx context.Context, a A) {
			first(ctx, a)
			second(ctx, a)
		}
	}
}
