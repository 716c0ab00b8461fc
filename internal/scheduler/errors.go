package scheduler

import (
	"errors"
	"fmt"
)

// ErrInputNotFound is recorded as a warning when a task's selectors match no
// files. It never fails a task.
var ErrInputNotFound = errors.New("no input files matched")

// ErrOutputOutsideTarget wraps a processor output that escapes the task's
// declared output target.
var ErrOutputOutsideTarget = errors.New("output outside task target")

// ProcessorError reports a failed transform.
type ProcessorError struct {
	Task  string
	Input string // failing input, relative to the source root; may be empty
	Err   error
}

func (e *ProcessorError) Error() string {
	if e.Input != "" {
		return fmt.Sprintf("task %q: processor failed on %s: %v", e.Task, e.Input, e.Err)
	}
	return fmt.Sprintf("task %q: processor failed: %v", e.Task, e.Err)
}

func (e *ProcessorError) Unwrap() error {
	return e.Err
}

// FileSystemError reports a source read, output write or clean failure.
type FileSystemError struct {
	Task string
	Op   string
	Path string
	Err  error
}

func (e *FileSystemError) Error() string {
	return fmt.Sprintf("task %q: %s %s: %v", e.Task, e.Op, e.Path, e.Err)
}

func (e *FileSystemError) Unwrap() error {
	return e.Err
}

// PanicError wraps a panic recovered from a processor.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Warning is a non-fatal condition recorded on a run.
type Warning struct {
	Task string
	Err  error
}

func (w Warning) String() string {
	return fmt.Sprintf("task %q: %v", w.Task, w.Err)
}
