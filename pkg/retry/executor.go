package retry

import (
	"context"
	"fmt"
	"sync"
	"time"

	fberrors "github.com/jzx17/gofallback/internal/errors"
	"github.com/jzx17/gofallback/pkg/types"
)

// RetryExecutor applies a RetryPolicy around a single call. It is safe for
// concurrent use; executions share only the statistics.
type RetryExecutor struct {
	policy        RetryPolicy
	eventHandler  EventHandler
	clock         types.Clock
	maxRetryAfter time.Duration
	stats         RetryStats
}

// ExecuteFunc is the function type to retry
type ExecuteFunc[T any] func(ctx context.Context) (T, error)

// RetryStats contains retry statistics
type RetryStats struct {
	TotalAttempts   int64         // total attempt count
	TotalRetries    int64         // total retry count
	TotalSuccesses  int64         // total success count
	TotalFailures   int64         // total failure count
	TotalRetryDelay time.Duration // total retry delay time
	LastRetryTime   time.Time     // last retry time
	mu              sync.RWMutex
}

// Error is returned when a call fails for good: either the policy refused
// another attempt or the budget ran out.
type Error struct {
	// Name of the retried operation
	Name string

	// Attempts made
	Attempts int

	// MaxAttempts allowed by the policy
	MaxAttempts int

	// Class of the final error
	Class fberrors.Class

	// Err is the final error
	Err error
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("%s failed after %d/%d attempts (%s): %v", e.Name, e.Attempts, e.MaxAttempts, e.Class, e.Err)
}

// Unwrap returns the final error
func (e *Error) Unwrap() error {
	return e.Err
}

// Exhausted reports whether the whole attempt budget was used
func (e *Error) Exhausted() bool {
	return e.Attempts >= e.MaxAttempts
}

// NewRetryExecutor creates a retry executor
func NewRetryExecutor(policy RetryPolicy, opts ...ExecutorOption) *RetryExecutor {
	if policy == nil {
		policy = DefaultPolicy()
	}

	executor := &RetryExecutor{
		policy: policy,
		clock:  types.NewRealClock(),
	}

	for _, opt := range opts {
		opt(executor)
	}

	return executor
}

// Policy returns the executor's policy
func (r *RetryExecutor) Policy() RetryPolicy {
	return r.policy
}

// Execute executes a function with retry logic
func Execute[T any](r *RetryExecutor, ctx context.Context, fn ExecuteFunc[T]) (T, error) {
	result, _, err := ExecuteWithName(r, ctx, "default", fn)
	return result, err
}

// ExecuteWithName executes fn with retry logic and returns the number of
// attempts made. Caller cancellation returns the bare context error.
func ExecuteWithName[T any](r *RetryExecutor, ctx context.Context, name string, fn ExecuteFunc[T]) (T, int, error) {
	var zero T
	attempt := 0

	for {
		if err := ctx.Err(); err != nil {
			return zero, attempt, err
		}

		attempt++
		r.updateStats(func(stats *RetryStats) {
			stats.TotalAttempts++
		})

		executeStart := r.clock.Now()
		result, err := fn(ctx)
		executeDuration := r.clock.Since(executeStart)

		if err == nil {
			r.updateStats(func(stats *RetryStats) {
				stats.TotalSuccesses++
			})
			if r.eventHandler != nil {
				r.eventHandler.OnSuccess(ctx, name, attempt, executeDuration)
			}
			return result, attempt, nil
		}

		// the caller gave up; whatever the adapter said is moot
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, attempt, ctxErr
		}

		if !r.policy.ShouldRetry(err, attempt) {
			r.updateStats(func(stats *RetryStats) {
				stats.TotalFailures++
			})

			retryErr := &Error{
				Name:        name,
				Attempts:    attempt,
				MaxAttempts: r.policy.MaxAttempts(),
				Class:       fberrors.Classify(err),
				Err:         err,
			}
			if r.eventHandler != nil {
				r.eventHandler.OnGiveUp(ctx, name, attempt, retryErr)
			}
			return zero, attempt, retryErr
		}

		delay := r.nextDelay(err, attempt)
		r.updateStats(func(stats *RetryStats) {
			stats.TotalRetries++
			stats.LastRetryTime = r.clock.Now()
			stats.TotalRetryDelay += delay
		})

		if r.eventHandler != nil {
			r.eventHandler.OnRetry(ctx, name, attempt, err, delay)
		}

		if err := r.wait(ctx, delay); err != nil {
			return zero, attempt, err
		}
	}
}

// nextDelay returns the policy delay, raised to the adapter's Retry-After
// hint when hints are enabled
func (r *RetryExecutor) nextDelay(err error, attempt int) time.Duration {
	delay := r.policy.NextDelay(attempt)
	if r.maxRetryAfter <= 0 {
		return delay
	}
	hint := types.GetRetryDelay(err)
	if hint > r.maxRetryAfter {
		hint = r.maxRetryAfter
	}
	if hint > delay {
		delay = hint
	}
	return delay
}

// wait blocks for delay on the executor clock or until ctx is done
func (r *RetryExecutor) wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := r.clock.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C():
		return nil
	}
}

// GetStats gets retry statistics
func (r *RetryExecutor) GetStats() RetryStats {
	r.stats.mu.RLock()
	defer r.stats.mu.RUnlock()
	return RetryStats{
		TotalAttempts:   r.stats.TotalAttempts,
		TotalRetries:    r.stats.TotalRetries,
		TotalSuccesses:  r.stats.TotalSuccesses,
		TotalFailures:   r.stats.TotalFailures,
		TotalRetryDelay: r.stats.TotalRetryDelay,
		LastRetryTime:   r.stats.LastRetryTime,
		// don't copy mutex
	}
}

// updateStats updates statistics (thread-safe)
func (r *RetryExecutor) updateStats(fn func(*RetryStats)) {
	r.stats.mu.Lock()
	defer r.stats.mu.Unlock()
	fn(&r.stats)
}

// ExecutorOption is a configuration option for retry executor
type ExecutorOption func(*RetryExecutor)

// WithEventHandler sets the event handler
func WithEventHandler(handler EventHandler) ExecutorOption {
	return func(r *RetryExecutor) {
		r.eventHandler = handler
	}
}

// WithClock sets the clock for time operations
func WithClock(clock types.Clock) ExecutorOption {
	return func(r *RetryExecutor) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithRetryAfter lets adapter Retry-After hints lengthen a wait, up to max
func WithRetryAfter(max time.Duration) ExecutorOption {
	return func(r *RetryExecutor) {
		r.maxRetryAfter = max
	}
}
