package hcl_adapter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/assetgrid/internal/config"
	"github.com/specialistvlad/assetgrid/internal/ctxlog"
	"github.com/specialistvlad/assetgrid/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL project loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// Load parses every .hcl file found under paths and merges their blocks into
// one model. A path may be a single file or a directory searched
// recursively; a path that does not exist is skipped.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(hclFiles) == 0 {
		return nil, fmt.Errorf("no .hcl files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	model := &config.Model{}
	rootFile := ""
	parser := hclparse.NewParser()

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		if isExprDefined(ctx, root.Root, "root") {
			if rootFile != "" {
				return nil, fmt.Errorf("%s: root is already set in %s", file, rootFile)
			}
			var name *string
			if diags := gohcl.DecodeExpression(root.Root, nil, &name); diags.HasErrors() {
				return nil, fmt.Errorf("%s: invalid root: %w", file, diags)
			}
			if name != nil {
				model.Root = *name
				rootFile = file
			}
		}

		for _, b := range root.Tasks {
			def, err := l.translateTask(ctx, b)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			model.Tasks = append(model.Tasks, def)
		}
		for _, b := range root.Pipelines {
			def, err := l.translatePipeline(b)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			model.Pipelines = append(model.Pipelines, def)
		}
		for _, b := range root.Watches {
			model.Watches = append(model.Watches, l.translateWatch(b))
		}
	}

	logger.Debug("HCL loading complete.",
		"root", model.Root,
		"tasks", len(model.Tasks),
		"pipelines", len(model.Pipelines),
		"watches", len(model.Watches),
	)
	return model, nil
}

// findAllHCLFiles expands all given paths into a flat, de-duplicated list of
// .hcl files.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})

	for _, path := range paths {
		files, err := fsutil.FindFiles(path, "**/*.hcl")
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		for _, f := range files {
			if _, wasSeen := seen[f]; !wasSeen {
				allFiles = append(allFiles, f)
				seen[f] = struct{}{}
			}
		}
	}
	return allFiles, nil
}
