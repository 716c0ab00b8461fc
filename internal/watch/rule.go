package watch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/specialistvlad/assetgrid/internal/pipeline"
)

// Rule maps a source pattern to the pipeline subtree it re-runs.
type Rule struct {
	Name string
	// Pattern is a doublestar glob relative to the source root.
	Pattern string
	Target  pipeline.Node
}

// ValidateRule checks a rule before its loop is started.
func ValidateRule(r Rule) error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("watch rule name is empty")
	}
	if strings.HasPrefix(r.Pattern, "/") || r.Pattern == ".." || strings.HasPrefix(r.Pattern, "../") {
		return fmt.Errorf("watch rule %q: pattern %q must stay inside the source root", r.Name, r.Pattern)
	}
	if r.Pattern == "" || !doublestar.ValidatePattern(r.Pattern) {
		return fmt.Errorf("watch rule %q: invalid pattern %q", r.Name, r.Pattern)
	}
	if err := pipeline.ValidateWatchTarget(r.Target); err != nil {
		return fmt.Errorf("watch rule %q: %w", r.Name, err)
	}
	return nil
}

// baseDir returns the static directory prefix of the rule's pattern,
// slash separated and relative to the source root; "." is the root itself.
func (r Rule) baseDir() string {
	base, _ := doublestar.SplitPattern(r.Pattern)
	return base
}

// SetupError reports a rule whose directory could not be watched. Only that
// rule is affected.
type SetupError struct {
	Rule string
	Dir  string
	Err  error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("watch rule %q: cannot watch %s: %v", e.Rule, e.Dir, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}
