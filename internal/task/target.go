package task

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// TargetKind distinguishes the three forms an output target can take.
type TargetKind int

const (
	// TargetDir is written "dir/" and owns everything below dir.
	TargetDir TargetKind = iota
	// TargetFile is written "dir/name.ext" and owns exactly that file.
	TargetFile
	// TargetPattern is written "dir/*.ext" and owns the files directly in dir
	// whose name matches the pattern.
	TargetPattern
)

func (k TargetKind) String() string {
	switch k {
	case TargetDir:
		return "dir"
	case TargetFile:
		return "file"
	case TargetPattern:
		return "pattern"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Target is a task's declared share of the output tree, relative to the
// output root.
type Target struct {
	raw  string
	kind TargetKind
	dir  string // "" is the output root itself
	name string // file name or single-segment pattern; empty for TargetDir
}

// ParseTarget validates and normalizes an output target.
func ParseTarget(s string) (Target, error) {
	if s == "" {
		return Target{}, fmt.Errorf("output target is empty")
	}
	if strings.HasPrefix(s, "/") {
		return Target{}, fmt.Errorf("output target %q must be relative to the output root", s)
	}

	if strings.HasSuffix(s, "/") || s == "." {
		dir := cleanDir(s)
		if err := checkInside(s, dir); err != nil {
			return Target{}, err
		}
		if strings.ContainsAny(dir, "*?[{") {
			return Target{}, fmt.Errorf("output target %q: a directory target cannot be a pattern", s)
		}
		return Target{raw: s, kind: TargetDir, dir: dir}, nil
	}

	dir, name := path.Split(s)
	dir = cleanDir(dir)
	if err := checkInside(s, dir); err != nil {
		return Target{}, err
	}
	if name == "." || name == ".." {
		return Target{}, fmt.Errorf("output target %q has no file name", s)
	}
	if strings.ContainsAny(dir, "*?[{") {
		return Target{}, fmt.Errorf("output target %q may only use a pattern in its last segment", s)
	}

	if strings.ContainsAny(name, "*?[{") {
		if !doublestar.ValidatePattern(name) || strings.Contains(name, "**") {
			return Target{}, fmt.Errorf("output target %q has an invalid pattern", s)
		}
		return Target{raw: s, kind: TargetPattern, dir: dir, name: name}, nil
	}
	return Target{raw: s, kind: TargetFile, dir: dir, name: name}, nil
}

// MustParseTarget is ParseTarget for literals known to be valid.
func MustParseTarget(s string) Target {
	t, err := ParseTarget(s)
	if err != nil {
		panic(err)
	}
	return t
}

func cleanDir(dir string) string {
	dir = path.Clean(strings.TrimSuffix(dir, "/"))
	if dir == "." || dir == "" {
		return ""
	}
	return dir
}

func checkInside(raw, dir string) error {
	if dir == ".." || strings.HasPrefix(dir, "../") {
		return fmt.Errorf("output target %q escapes the output root", raw)
	}
	return nil
}

// String returns the target as declared.
func (t Target) String() string {
	return t.raw
}

// Kind reports the target's form.
func (t Target) Kind() TargetKind {
	return t.kind
}

// Dir returns the directory the target lives in; "" is the output root.
func (t Target) Dir() string {
	return t.dir
}

// Contains reports whether a slash separated path relative to the output
// root falls inside the target.
func (t Target) Contains(rel string) bool {
	rel = path.Clean(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") || strings.HasPrefix(rel, "/") {
		return false
	}
	switch t.kind {
	case TargetDir:
		return under(rel, t.dir)
	case TargetFile:
		return rel == t.join()
	case TargetPattern:
		if cleanDir(path.Dir(rel)) != t.dir {
			return false
		}
		ok, _ := doublestar.Match(t.name, path.Base(rel))
		return ok
	}
	return false
}

// Overlaps reports whether any path could be claimed by both targets.
func (t Target) Overlaps(o Target) bool {
	if t.kind > o.kind {
		return o.Overlaps(t)
	}
	if t.shadows(o) || o.shadows(t) {
		return true
	}
	switch t.kind {
	case TargetDir:
		switch o.kind {
		case TargetDir:
			return under(t.dir, o.dir) || under(o.dir, t.dir)
		default:
			return under(o.dir, t.dir)
		}
	case TargetFile:
		switch o.kind {
		case TargetFile:
			return t.join() == o.join()
		case TargetPattern:
			return o.Contains(t.join())
		}
	case TargetPattern:
		if t.dir != o.dir {
			return false
		}
		return patternsOverlap(t.name, o.name)
	}
	return false
}

// shadows reports whether a file t may write sits where o needs a directory.
func (t Target) shadows(o Target) bool {
	switch t.kind {
	case TargetFile:
		return o.dir != "" && under(o.dir, t.join())
	case TargetPattern:
		seg, ok := childSegment(o.dir, t.dir)
		if !ok {
			return false
		}
		ok, _ = doublestar.Match(t.name, seg)
		return ok
	}
	return false
}

// childSegment returns the first segment of dir below parent.
func childSegment(dir, parent string) (string, bool) {
	rest := dir
	if parent != "" {
		if !strings.HasPrefix(dir, parent+"/") {
			return "", false
		}
		rest = dir[len(parent)+1:]
	}
	if rest == "" {
		return "", false
	}
	seg, _, _ := strings.Cut(rest, "/")
	return seg, true
}

func (t Target) join() string {
	if t.dir == "" {
		return t.name
	}
	return t.dir + "/" + t.name
}

// under reports whether rel is dir or lies below it.
func under(rel, dir string) bool {
	if dir == "" {
		return true
	}
	return rel == dir || strings.HasPrefix(rel, dir+"/")
}

// patternsOverlap is conservative: two single-segment patterns in the same
// directory are only disjoint when both are plain "*.ext" with different
// extensions.
func patternsOverlap(a, b string) bool {
	extA, okA := plainExt(a)
	extB, okB := plainExt(b)
	if okA && okB {
		return extA == extB
	}
	return true
}

func plainExt(p string) (string, bool) {
	if !strings.HasPrefix(p, "*.") {
		return "", false
	}
	ext := p[1:]
	if strings.ContainsAny(ext, "*?[{") {
		return "", false
	}
	return ext, true
}
