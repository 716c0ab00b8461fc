// Package include renders markup files, replacing @@include('file')
// directives with the content of the named file. Partials are include-only
// and are not emitted.
package include

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/specialistvlad/assetgrid/internal/processor"
)

// Module implements the processor.Module interface for this package.
type Module struct{}

// Name is the processor name used in pipeline files.
const Name = "include"

// maxDepth bounds nested includes so a self-including partial fails instead
// of recursing forever.
const maxDepth = 16

var directive = regexp.MustCompile(`@@include\(\s*['"]([^'"]+)['"]\s*\)`)

// Transform renders every non-partial input to "<dir>/<path relative to
// base>". Included names are resolved relative to the including file and must
// be among the inputs, so a task lists its partials in its selectors. The
// "partials" option is a file name pattern, default "_*.html".
func Transform(ctx context.Context, inputs []processor.Input, opts processor.Options) ([]processor.Output, error) {
	partials, err := opts.String("partials", "_*.html")
	if err != nil {
		return nil, err
	}
	if !doublestar.ValidatePattern(partials) {
		return nil, fmt.Errorf("include: invalid partials pattern %q", partials)
	}
	dir, err := opts.String("dir", "")
	if err != nil {
		return nil, err
	}
	base, err := opts.String("base", "")
	if err != nil {
		return nil, err
	}
	base = strings.Trim(path.Clean("/"+base), "/")

	files := make(map[string][]byte, len(inputs))
	for _, in := range inputs {
		files[in.Path] = in.Content
	}

	var outputs []processor.Output
	for _, in := range inputs {
		if doublestar.MatchUnvalidated(partials, path.Base(in.Path)) {
			continue
		}
		rel := in.Path
		if base != "" {
			trimmed, ok := strings.CutPrefix(in.Path, base+"/")
			if !ok {
				return nil, &processor.InputError{Path: in.Path, Err: fmt.Errorf("not under base %q", base)}
			}
			rel = trimmed
		}
		rendered, err := render(ctx, files, in.Path, in.Content, 0)
		if err != nil {
			return nil, &processor.InputError{Path: in.Path, Err: err}
		}
		outputs = append(outputs, processor.Output{Path: path.Join(dir, rel), Content: rendered})
	}
	return outputs, nil
}

func render(ctx context.Context, files map[string][]byte, name string, content []byte, depth int) ([]byte, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("includes nested deeper than %d", maxDepth)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var renderErr error
	out := directive.ReplaceAllFunc(content, func(m []byte) []byte {
		if renderErr != nil {
			return nil
		}
		ref := string(directive.FindSubmatch(m)[1])
		target := path.Join(path.Dir(name), ref)
		body, ok := files[target]
		if !ok {
			renderErr = fmt.Errorf("included file %q not found among inputs", target)
			return nil
		}
		nested, err := render(ctx, files, target, body, depth+1)
		if err != nil {
			renderErr = err
			return nil
		}
		return nested
	})
	if renderErr != nil {
		return nil, renderErr
	}
	return out, nil
}

// Register registers the processor with the engine.
func (m *Module) Register(r *processor.Registry) {
	r.Register(Name, processor.Func(Transform))
}
