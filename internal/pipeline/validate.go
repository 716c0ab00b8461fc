package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateLeaf is returned when a task appears more than once in a
	// tree handed to the scheduler.
	ErrDuplicateLeaf = errors.New("task appears more than once in pipeline")
	// ErrCleanPlacement is returned when a clean task is anywhere other than
	// alone at the head of the root series.
	ErrCleanPlacement = errors.New("clean task must be the first element of the root series")
	// ErrEmptyPipeline is returned for a root with no tasks at all.
	ErrEmptyPipeline = errors.New("pipeline has no tasks")
)

// ValidateRoot checks a tree that is about to be run as a root.
func ValidateRoot(n Node) error {
	if n.IsZero() {
		return ErrEmptyPipeline
	}
	tasks := n.Tasks()
	if len(tasks) == 0 {
		return ErrEmptyPipeline
	}

	seen := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		if _, dup := seen[t.Name()]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateLeaf, t.Name())
		}
		seen[t.Name()] = struct{}{}
	}

	switch n.kind {
	case KindLeaf:
		return nil
	case KindSeries:
		for i, c := range n.children {
			if i == 0 && c.kind == KindLeaf {
				continue
			}
			if c.ContainsClean() {
				return fmt.Errorf("%w: found in %s", ErrCleanPlacement, c)
			}
		}
		return nil
	default:
		if n.ContainsClean() {
			return fmt.Errorf("%w: found in %s", ErrCleanPlacement, n)
		}
		return nil
	}
}

// ValidateWatchTarget checks a tree bound to a watch rule. Rebuilds never
// wipe the output root, so clean tasks are not allowed at all.
func ValidateWatchTarget(n Node) error {
	if err := ValidateRoot(n); err != nil {
		return err
	}
	if n.ContainsClean() {
		return fmt.Errorf("%w: watch targets may not clean", ErrCleanPlacement)
	}
	return nil
}
