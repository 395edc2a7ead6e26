package pipeline

import (
	"github.com/jzx17/gofallback/pkg/retry"
	"github.com/jzx17/gofallback/pkg/types"
)

// PlannedNode is one entry of a target's node order
type PlannedNode struct {
	ID         types.NodeID
	Credential types.Credential
}

// Plan computes the node order for target without building anything.
//
// Primary credentials come first, one node each on the primary provider.
// Secondary nodes follow credential-major: for each secondary credential,
// every provider of the target that the credential supports, in the
// target's configured order.
func Plan(target string, routing *types.Routing) ([]PlannedNode, error) {
	providers, ok := routing.Providers(target)
	if !ok {
		return nil, types.NewConfigurationError(target, types.ErrUnknownTarget)
	}

	var planned []PlannedNode
	add := func(provider string, cred types.Credential) {
		planned = append(planned, PlannedNode{
			ID: types.NodeID{
				Index:      len(planned),
				Provider:   provider,
				Credential: cred.Name,
			},
			Credential: cred,
		})
	}

	if routing.Primary.Provider != "" {
		for _, cred := range routing.Primary.Credentials {
			add(routing.Primary.Provider, cred)
		}
	}

	for _, cred := range routing.Secondary {
		for _, provider := range providers {
			if cred.Supports(provider) {
				add(provider, cred)
			}
		}
	}

	if len(planned) == 0 {
		return nil, types.NewConfigurationError(target, types.ErrNoViablePath)
	}

	return planned, nil
}

// BuildOption configures Build
type BuildOption func(*buildOptions)

type buildOptions struct {
	policy    retry.RetryPolicy
	retryOpts []retry.ExecutorOption
}

// WithPolicy overrides the routing's default wait sequence for every node
func WithPolicy(policy retry.RetryPolicy) BuildOption {
	return func(o *buildOptions) {
		o.policy = policy
	}
}

// WithRetryOptions passes options to every node's retry executor
func WithRetryOptions(opts ...retry.ExecutorOption) BuildOption {
	return func(o *buildOptions) {
		o.retryOpts = append(o.retryOpts, opts...)
	}
}

// Build turns the routing entry for target into a Pipeline. It is pure and
// deterministic: no I/O happens until a node is attempted.
func Build[T, R any](target string, routing *types.Routing, invoker Invoker[T, R], opts ...BuildOption) (*Pipeline[T, R], error) {
	if invoker == nil {
		return nil, types.ErrInvalidInput
	}

	planned, err := Plan(target, routing)
	if err != nil {
		return nil, err
	}

	options := &buildOptions{}
	for _, opt := range opts {
		opt(options)
	}
	policy := options.policy
	if policy == nil {
		policy = policyFor(routing)
	}

	nodes := make([]*AttemptNode[T, R], len(planned))
	for i, pn := range planned {
		executor := retry.NewRetryExecutor(policy, options.retryOpts...)
		nodes[i] = newAttemptNode(pn.ID, target, pn.Credential, executor, invoker)
	}

	return &Pipeline[T, R]{target: target, nodes: nodes}, nil
}

// policyFor returns the routing's default policy; a nil wait list means the
// process-wide default, an empty non-nil list means a single attempt
func policyFor(routing *types.Routing) retry.RetryPolicy {
	if routing.Waits == nil {
		return retry.DefaultPolicy()
	}
	return retry.NewWaitChain(routing.Waits)
}
