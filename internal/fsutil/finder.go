// Package fsutil provides the file system helpers shared by the loader and
// the scheduler: glob resolution over a root, and output tree writes.
package fsutil

import (
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FindFiles returns every regular file under rootPath matching the
// doublestar pattern, as paths joined onto rootPath, in lexical order.
// A rootPath that is itself a file is returned as-is when it matches.
func FindFiles(rootPath string, pattern string) ([]string, error) {
	if pattern == "" {
		panic("pattern must not be empty")
	}

	info, err := os.Stat(rootPath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		ok, err := doublestar.Match(pattern, info.Name())
		if err != nil {
			return nil, err
		}
		if ok {
			return []string{rootPath}, nil
		}
		return nil, nil
	}

	matches, err := doublestar.Glob(os.DirFS(rootPath), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("searching %s for %s: %w", rootPath, pattern, err)
	}
	sort.Strings(matches)

	files := make([]string, len(matches))
	for i, m := range matches {
		files[i] = strings.TrimSuffix(rootPath, "/") + "/" + m
	}
	return files, nil
}

// Resolve expands ordered selectors against fsys. Positive selectors
// contribute their matches in lexical order, the first occurrence of a path
// wins, and "!"-prefixed selectors remove matches after all positive
// selectors have been expanded.
func Resolve(fsys fs.FS, selectors []string) ([]string, error) {
	var (
		paths    []string
		seen     = make(map[string]struct{})
		excludes []string
	)

	for _, sel := range selectors {
		if neg, ok := strings.CutPrefix(sel, "!"); ok {
			neg = normalize(neg)
			if !doublestar.ValidatePattern(neg) {
				return nil, fmt.Errorf("selector %q: %w", sel, doublestar.ErrBadPattern)
			}
			excludes = append(excludes, neg)
			continue
		}

		matches, err := doublestar.Glob(fsys, normalize(sel), doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("selector %q: %w", sel, err)
		}
		sort.Strings(matches)
		for _, m := range matches {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			paths = append(paths, m)
		}
	}

	if len(excludes) == 0 {
		return paths, nil
	}
	kept := paths[:0]
	for _, p := range paths {
		if !excluded(p, excludes) {
			kept = append(kept, p)
		}
	}
	return kept, nil
}

func excluded(p string, patterns []string) bool {
	for _, pat := range patterns {
		if doublestar.MatchUnvalidated(pat, p) {
			return true
		}
	}
	return false
}

// normalize strips a leading "./" so selectors are valid fs.FS paths.
func normalize(sel string) string {
	for strings.HasPrefix(sel, "./") {
		sel = sel[2:]
	}
	return sel
}
