// Package pipeline builds, caches and executes per-target fallback pipelines
package pipeline

import (
	"github.com/jzx17/gofallback/pkg/types"
)

// Pipeline is the ordered, immutable sequence of attempt nodes for one
// target. It is safe for concurrent use by any number of executions.
type Pipeline[T, R any] struct {
	target string
	nodes  []*AttemptNode[T, R]
}

// Target returns the target the pipeline was built for
func (p *Pipeline[T, R]) Target() string {
	return p.target
}

// Len returns the number of nodes
func (p *Pipeline[T, R]) Len() int {
	return len(p.nodes)
}

// Node returns the node at position i
func (p *Pipeline[T, R]) Node(i int) *AttemptNode[T, R] {
	return p.nodes[i]
}

// Nodes returns the nodes in order; the slice is a copy
func (p *Pipeline[T, R]) Nodes() []*AttemptNode[T, R] {
	out := make([]*AttemptNode[T, R], len(p.nodes))
	copy(out, p.nodes)
	return out
}

// IDs returns the node identities in order
func (p *Pipeline[T, R]) IDs() []types.NodeID {
	ids := make([]types.NodeID, len(p.nodes))
	for i, n := range p.nodes {
		ids[i] = n.ID()
	}
	return ids
}
