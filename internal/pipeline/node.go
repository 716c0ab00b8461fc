// Package pipeline composes tasks into trees with Series and Parallel. Nodes
// are values: they are built by composition and never mutated afterwards.
package pipeline

import (
	"fmt"
	"slices"
	"strings"

	"github.com/specialistvlad/assetgrid/internal/task"
)

// Kind tags the variant a Node holds.
type Kind int

const (
	KindLeaf Kind = iota
	KindSeries
	KindParallel
)

func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "leaf"
	case KindSeries:
		return "series"
	case KindParallel:
		return "parallel"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Node is a leaf task or an ordered group of child nodes.
type Node struct {
	kind     Kind
	task     *task.Task
	children []Node
}

// Leaf wraps a single task.
func Leaf(t *task.Task) Node {
	if t == nil {
		panic("pipeline: Leaf of nil task")
	}
	return Node{kind: KindLeaf, task: t}
}

// Series runs nodes one after another, stopping at the first failure.
func Series(nodes ...Node) Node {
	return Node{kind: KindSeries, children: slices.Clone(nodes)}
}

// Parallel runs nodes concurrently and waits for all of them.
func Parallel(nodes ...Node) Node {
	return Node{kind: KindParallel, children: slices.Clone(nodes)}
}

// Kind returns the node's variant.
func (n Node) Kind() Kind { return n.kind }

// Task returns the wrapped task of a leaf, nil otherwise.
func (n Node) Task() *task.Task { return n.task }

// Children returns a copy of a group's children.
func (n Node) Children() []Node { return slices.Clone(n.children) }

// IsZero reports whether n was never constructed.
func (n Node) IsZero() bool {
	return n.kind == KindLeaf && n.task == nil
}

// Tasks returns every leaf task in depth-first, declaration order.
func (n Node) Tasks() []*task.Task {
	var out []*task.Task
	n.walk(func(t *task.Task) { out = append(out, t) })
	return out
}

// ContainsClean reports whether any leaf is a clean task.
func (n Node) ContainsClean() bool {
	for _, t := range n.Tasks() {
		if t.IsClean() {
			return true
		}
	}
	return false
}

func (n Node) walk(fn func(*task.Task)) {
	if n.kind == KindLeaf {
		if n.task != nil {
			fn(n.task)
		}
		return
	}
	for _, c := range n.children {
		c.walk(fn)
	}
}

// String renders the tree, e.g. "series(clean, parallel(markup, styles))".
func (n Node) String() string {
	if n.kind == KindLeaf {
		if n.task == nil {
			return "<nil>"
		}
		return n.task.Name()
	}
	parts := make([]string, len(n.children))
	for i, c := range n.children {
		parts[i] = c.String()
	}
	return n.kind.String() + "(" + strings.Join(parts, ", ") + ")"
}
