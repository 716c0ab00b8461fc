// Package concat joins every input, in resolved order, into one output file.
package concat

import (
	"bytes"
	"context"
	"fmt"

	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/processor"
)

// Module implements the processor.Module interface for this package.
type Module struct{}

// Name is the processor name used in pipeline files.
const Name = "concat"

// Transform writes the inputs one after another to the path given by the
// "name" option, relative to the output root. The "separator" option is
// placed between inputs and defaults to a newline.
func Transform(ctx context.Context, inputs []processor.Input, opts processor.Options) ([]processor.Output, error) {
	name, err := opts.String("name", "")
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("concat: option \"name\" is required")
	}
	sep, err := opts.String("separator", "\n")
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	for i, in := range inputs {
		if i > 0 {
			buf.WriteString(sep)
		}
		buf.Write(in.Content)
	}
	ctxlog.FromContext(ctx).Debug("Concatenated inputs.", "count", len(inputs), "name", name, "bytes", buf.Len())
	return []processor.Output{{Path: name, Content: buf.Bytes()}}, nil
}

// Register registers the processor with the engine.
func (m *Module) Register(r *processor.Registry) {
	r.Register(Name, processor.Func(Transform))
}
