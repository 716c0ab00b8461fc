// Package processor defines the transform capability a task binds to. A
// processor is a pure function from an ordered list of source files to a set
// of output buffers; the scheduler owns all file system access around it.
package processor

import (
	"context"
	"errors"
	"fmt"
)

// Input is one resolved source file, in selector-declared order.
type Input struct {
	// Path is relative to the source root, slash separated.
	Path    string
	Content []byte
}

// Output is one buffer produced by a processor.
type Output struct {
	// Path is relative to the output root, slash separated. It must fall
	// inside the owning task's output target.
	Path    string
	Content []byte
}

// Processor transforms inputs into outputs. Implementations must be
// deterministic and must not touch the file system.
type Processor interface {
	Transform(ctx context.Context, inputs []Input, opts Options) ([]Output, error)
}

// Func adapts an ordinary function to the Processor interface.
type Func func(ctx context.Context, inputs []Input, opts Options) ([]Output, error)

// Transform implements Processor.
func (f Func) Transform(ctx context.Context, inputs []Input, opts Options) ([]Output, error) {
	return f(ctx, inputs, opts)
}

// InputError lets a processor point at the input that broke it.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// FailingInput returns the path carried by an InputError anywhere in err's
// chain, or "" when the failure is not tied to one input.
func FailingInput(err error) string {
	var ie *InputError
	if errors.As(err, &ie) {
		return ie.Path
	}
	return ""
}
