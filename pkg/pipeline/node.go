package pipeline

import (
	"context"

	"github.com/jzx17/gofallback/pkg/retry"
	"github.com/jzx17/gofallback/pkg/types"
)

// Invoker is the provider adapter an attempt node calls. It is the only
// component that performs network I/O and must honor ctx.
type Invoker[T, R any] interface {
	Invoke(ctx context.Context, call types.Call[T]) (R, error)
}

// InvokerFunc adapts a function to Invoker
type InvokerFunc[T, R any] func(ctx context.Context, call types.Call[T]) (R, error)

// Invoke calls f
func (f InvokerFunc[T, R]) Invoke(ctx context.Context, call types.Call[T]) (R, error) {
	return f(ctx, call)
}

// AttemptNode is one (provider, credential) path with its own retry budget.
// It is immutable once built and never looks at its sibling nodes.
type AttemptNode[T, R any] struct {
	id         types.NodeID
	target     string
	credential types.Credential
	executor   *retry.RetryExecutor
	invoker    Invoker[T, R]
}

func newAttemptNode[T, R any](id types.NodeID, target string, cred types.Credential, executor *retry.RetryExecutor, invoker Invoker[T, R]) *AttemptNode[T, R] {
	return &AttemptNode[T, R]{
		id:         id,
		target:     target,
		credential: cred,
		executor:   executor,
		invoker:    invoker,
	}
}

// ID returns the node's positional identity
func (n *AttemptNode[T, R]) ID() types.NodeID {
	return n.id
}

// Provider returns the node's provider
func (n *AttemptNode[T, R]) Provider() string {
	return n.id.Provider
}

// Credential returns the node's credential
func (n *AttemptNode[T, R]) Credential() types.Credential {
	return n.credential
}

// Policy returns the node's retry policy
func (n *AttemptNode[T, R]) Policy() retry.RetryPolicy {
	return n.executor.Policy()
}

// Stats returns the node's retry statistics across all executions
func (n *AttemptNode[T, R]) Stats() retry.RetryStats {
	return n.executor.GetStats()
}

// Attempt invokes the adapter under the node's retry policy and returns the
// number of adapter calls made. On caller cancellation the bare context
// error is returned; other failures are *retry.Error.
func (n *AttemptNode[T, R]) Attempt(ctx context.Context, payload T) (R, int, error) {
	attempt := 0
	return retry.ExecuteWithName(n.executor, ctx, n.id.String(), func(ctx context.Context) (R, error) {
		attempt++
		return n.invoker.Invoke(ctx, types.Call[T]{
			Target:     n.target,
			Provider:   n.id.Provider,
			Credential: n.credential,
			Attempt:    attempt,
			Payload:    payload,
		})
	})
}
