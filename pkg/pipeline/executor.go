package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	fberrors "github.com/jzx17/gofallback/internal/errors"
	"github.com/jzx17/gofallback/pkg/retry"
	"github.com/jzx17/gofallback/pkg/types"
)

// Outcome is a successful execution
type Outcome[R any] struct {
	// Value is the adapter's reply
	Value R

	// Node is the node that produced Value
	Node types.NodeID

	// NodesAttempted counts nodes tried, the serving node included
	NodesAttempted int

	// Attempts counts adapter calls across all nodes
	Attempts int

	// RequestID identifies the execution in logs
	RequestID string
}

// Executor walks a target's pipeline until a node succeeds. Retries belong
// to the nodes; the executor only falls back. It is safe for concurrent use.
type Executor[T, R any] struct {
	routing   *types.Routing
	invoker   Invoker[T, R]
	cache     *Cache[T, R]
	logger    *zap.Logger
	clock     types.Clock
	buildOpts []BuildOption
	workers   int
	newID     func() string
}

// Option configures an Executor
type Option func(*executorOptions)

type executorOptions struct {
	logger       *zap.Logger
	clock        types.Clock
	policy       retry.RetryPolicy
	eventHandler retry.EventHandler
	retryAfter   time.Duration
	workers      int
	newID        func() string
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *executorOptions) {
		o.logger = logger
	}
}

// WithClock sets the clock used for retry waits and timings
func WithClock(clock types.Clock) Option {
	return func(o *executorOptions) {
		o.clock = clock
	}
}

// WithRetryPolicy overrides the routing's default policy for every node
func WithRetryPolicy(policy retry.RetryPolicy) Option {
	return func(o *executorOptions) {
		o.policy = policy
	}
}

// WithEventHandler replaces the default logging retry event handler
func WithEventHandler(handler retry.EventHandler) Option {
	return func(o *executorOptions) {
		o.eventHandler = handler
	}
}

// WithRetryAfterCap lets provider Retry-After hints lengthen waits up to max
func WithRetryAfterCap(max time.Duration) Option {
	return func(o *executorOptions) {
		o.retryAfter = max
	}
}

// WithBatchWorkers sets the worker count used by ExecuteBatch
func WithBatchWorkers(n int) Option {
	return func(o *executorOptions) {
		o.workers = n
	}
}

// WithRequestIDs replaces the uuid request ID generator
func WithRequestIDs(newID func() string) Option {
	return func(o *executorOptions) {
		o.newID = newID
	}
}

// NewExecutor creates an executor with its own empty cache
func NewExecutor[T, R any](routing *types.Routing, invoker Invoker[T, R], opts ...Option) *Executor[T, R] {
	return NewExecutorWithCache(routing, invoker, NewCache[T, R](), opts...)
}

// NewExecutorWithCache creates an executor around an existing cache
func NewExecutorWithCache[T, R any](routing *types.Routing, invoker Invoker[T, R], cache *Cache[T, R], opts ...Option) *Executor[T, R] {
	options := &executorOptions{
		workers: 4,
		newID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(options)
	}

	if options.logger == nil {
		options.logger = zap.NewNop()
	}
	if options.clock == nil {
		options.clock = types.NewRealClock()
	}
	if options.eventHandler == nil {
		options.eventHandler = retry.NewLogEventHandler(options.logger)
	}
	if cache == nil {
		cache = NewCache[T, R]()
	}

	retryOpts := []retry.ExecutorOption{
		retry.WithClock(options.clock),
		retry.WithEventHandler(options.eventHandler),
	}
	if options.retryAfter > 0 {
		retryOpts = append(retryOpts, retry.WithRetryAfter(options.retryAfter))
	}

	buildOpts := []BuildOption{WithRetryOptions(retryOpts...)}
	if options.policy != nil {
		buildOpts = append(buildOpts, WithPolicy(options.policy))
	}

	return &Executor[T, R]{
		routing:   routing,
		invoker:   invoker,
		cache:     cache,
		logger:    options.logger,
		clock:     options.clock,
		buildOpts: buildOpts,
		workers:   options.workers,
		newID:     options.newID,
	}
}

// Cache returns the executor's pipeline cache
func (e *Executor[T, R]) Cache() *Cache[T, R] {
	return e.cache
}

// Pipeline returns the (possibly freshly built) pipeline for target
func (e *Executor[T, R]) Pipeline(target string) (*Pipeline[T, R], error) {
	return e.cache.GetOrBuild(target, e.build)
}

func (e *Executor[T, R]) build(target string) (*Pipeline[T, R], error) {
	return Build(target, e.routing, e.invoker, e.buildOpts...)
}

// Execute runs payload against target. It returns the first node success,
// or a *types.ConfigurationError, *types.ExhaustionError or
// *types.CancelledError.
func (e *Executor[T, R]) Execute(ctx context.Context, target string, payload T) (Outcome[R], error) {
	var zero Outcome[R]

	requestID := e.newID()
	logger := e.logger.With(zap.String("request_id", requestID), zap.String("target", target))

	p, err := e.Pipeline(target)
	if err != nil {
		logger.Error("no pipeline for target", zap.Error(err))
		return zero, err
	}

	if err := ctx.Err(); err != nil {
		return zero, types.NewCancelledError(target, 0, err)
	}

	var chain fberrors.Chain
	for i, node := range p.nodes {
		start := e.clock.Now()
		value, attempts, err := node.Attempt(ctx, payload)
		if err == nil {
			logger.Debug("node succeeded",
				zap.Stringer("node", node.ID()),
				zap.Int("attempts", attempts),
				zap.Int("nodes_attempted", i+1),
			)
			return Outcome[R]{
				Value:          value,
				Node:           node.ID(),
				NodesAttempted: i + 1,
				Attempts:       chain.TotalAttempts() + attempts,
				RequestID:      requestID,
			}, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			logger.Info("execution cancelled",
				zap.Stringer("node", node.ID()),
				zap.Int("nodes_attempted", i+1),
				zap.Error(ctxErr),
			)
			return zero, types.NewCancelledError(target, i+1, ctxErr)
		}

		chain.Add(node.ID(), err, attempts, e.clock.Since(start))
		if i+1 < len(p.nodes) {
			logger.Warn("node failed, falling back",
				zap.Stringer("node", node.ID()),
				zap.Stringer("next", p.nodes[i+1].ID()),
				zap.Int("attempts", attempts),
				zap.Error(err),
			)
		}
	}

	last, _ := chain.Last()
	exhausted := &types.ExhaustionError{
		Target:         target,
		NodesAttempted: chain.Len(),
		LastNode:       last.Node,
		LastFailure:    last.Error,
		Failures:       chain.Combined(),
	}
	logger.Error("all nodes failed",
		zap.Int("nodes_attempted", exhausted.NodesAttempted),
		zap.Int("attempts", chain.TotalAttempts()),
		zap.Stringer("last_node", last.Node),
		zap.Error(last.Error),
	)
	return zero, exhausted
}
