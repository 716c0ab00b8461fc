// Package copy passes inputs through unchanged. It stands in for transforms
// whose content work is out of scope (image compression, font conversion).
package copy

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/specialistvlad/assetgrid/internal/processor"
)

// Module implements the processor.Module interface for this package.
type Module struct{}

// Name is the processor name used in pipeline files.
const Name = "copy"

// Transform emits each input at "<dir>/<path relative to base>". Both
// options default to "", which keeps the source path as-is.
func Transform(_ context.Context, inputs []processor.Input, opts processor.Options) ([]processor.Output, error) {
	base, err := opts.String("base", "")
	if err != nil {
		return nil, err
	}
	dir, err := opts.String("dir", "")
	if err != nil {
		return nil, err
	}
	base = strings.Trim(path.Clean("/"+base), "/")

	outputs := make([]processor.Output, 0, len(inputs))
	for _, in := range inputs {
		rel := in.Path
		if base != "" {
			trimmed, ok := strings.CutPrefix(in.Path, base+"/")
			if !ok {
				return nil, &processor.InputError{Path: in.Path, Err: fmt.Errorf("not under base %q", base)}
			}
			rel = trimmed
		}
		outputs = append(outputs, processor.Output{Path: path.Join(dir, rel), Content: in.Content})
	}
	return outputs, nil
}

// Register registers the processor with the engine.
func (m *Module) Register(r *processor.Registry) {
	r.Register(Name, processor.Func(Transform))
}
