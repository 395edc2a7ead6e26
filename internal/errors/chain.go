package errors

import (
	"time"

	"go.uber.org/multierr"

	"github.com/jzx17/gofallback/pkg/types"
)

// ChainedError represents one failed node in a failure chain
type ChainedError struct {
	// Node that failed
	Node types.NodeID

	// Error returned by the node after its retries
	Error error

	// Attempts made by the node
	Attempts int

	// Duration spent in the node, waits included
	Duration time.Duration
}

// Chain tracks node failures for a single execution. It is not safe for
// concurrent use; each execution owns its own chain.
type Chain struct {
	entries []ChainedError
}

// Add appends a node failure
func (c *Chain) Add(node types.NodeID, err error, attempts int, duration time.Duration) {
	c.entries = append(c.entries, ChainedError{
		Node:     node,
		Error:    err,
		Attempts: attempts,
		Duration: duration,
	})
}

// Len returns the number of recorded failures
func (c *Chain) Len() int {
	return len(c.entries)
}

// Entries returns a copy of the recorded failures
func (c *Chain) Entries() []ChainedError {
	out := make([]ChainedError, len(c.entries))
	copy(out, c.entries)
	return out
}

// Last returns the most recent failure
func (c *Chain) Last() (ChainedError, bool) {
	if len(c.entries) == 0 {
		return ChainedError{}, false
	}
	return c.entries[len(c.entries)-1], true
}

// TotalAttempts sums adapter attempts across recorded nodes
func (c *Chain) TotalAttempts() int {
	total := 0
	for _, e := range c.entries {
		total += e.Attempts
	}
	return total
}

// Combined merges all failures into one error in chain order
func (c *Chain) Combined() error {
	var combined error
	for _, e := range c.entries {
		combined = multierr.Append(combined, &NodeFailure{Node: e.Node, Attempts: e.Attempts, Err: e.Error})
	}
	return combined
}

// NodeFailure labels an error with the node that produced it
type NodeFailure struct {
	Node     types.NodeID
	Attempts int
	Err      error
}

// Error implements the error interface
func (f *NodeFailure) Error() string {
	return f.Node.String() + ": " + f.Err.Error()
}

// Unwrap returns the underlying error
func (f *NodeFailure) Unwrap() error {
	return f.Err
}
