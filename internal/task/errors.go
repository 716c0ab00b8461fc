package task

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateTaskName is returned when a name is registered twice.
	ErrDuplicateTaskName = errors.New("duplicate task name")
	// ErrOutputCollision is returned when two tasks claim overlapping outputs.
	ErrOutputCollision = errors.New("output collision")
)

// CollisionError names both sides of an output collision.
type CollisionError struct {
	Task     string
	Target   string
	Existing string
	Claimed  string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("task %q output %q overlaps %q of task %q", e.Task, e.Target, e.Claimed, e.Existing)
}

func (e *CollisionError) Unwrap() error {
	return ErrOutputCollision
}
