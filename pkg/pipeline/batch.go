package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/jzx17/gofallback/pkg/types"
	"github.com/jzx17/gofallback/pkg/worker"
)

// ErrRequestPanicked marks a batch request whose execution panicked
var ErrRequestPanicked = errors.New("request panicked")

// Request is one entry of a batch
type Request[T any] struct {
	Target  string
	Payload T
}

// BatchResult is the result of the request at Index
type BatchResult[R any] struct {
	Index   int
	Outcome Outcome[R]
	Err     error
}

// ExecuteBatch runs every request through Execute on a bounded worker pool.
// Results are returned in request order. Requests that could not be
// scheduled before ctx ended carry a *types.CancelledError.
func (e *Executor[T, R]) ExecuteBatch(ctx context.Context, reqs []Request[T]) []BatchResult[R] {
	results := make([]BatchResult[R], len(reqs))
	if len(reqs) == 0 {
		return results
	}
	for i := range results {
		results[i].Index = i
	}

	size := e.workers
	if size <= 0 {
		size = 1
	}
	if size > len(reqs) {
		size = len(reqs)
	}

	pool, err := worker.NewFixedWorkerPool(&worker.FixedWorkerPoolConfig{
		PoolSize:  size,
		QueueSize: size,
		Clock:     e.clock,
		Logger:    e.logger,
	})
	if err != nil {
		for i := range results {
			results[i].Err = err
		}
		return results
	}
	if err := pool.Start(ctx); err != nil {
		for i := range results {
			results[i].Err = err
		}
		return results
	}

	for i, req := range reqs {
		i, req := i, req
		task := worker.NewBasicTaskWithID(fmt.Sprintf("batch-%d", i), func(ctx context.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: target %s: %v", ErrRequestPanicked, req.Target, r)
					results[i].Outcome = Outcome[R]{}
					results[i].Err = err
				}
			}()

			outcome, execErr := e.Execute(ctx, req.Target, req.Payload)
			results[i].Outcome = outcome
			results[i].Err = execErr
			return execErr
		})

		if err := pool.Submit(ctx, task); err != nil {
			e.logger.Info("batch cancelled before all requests were scheduled",
				zap.Int("scheduled", i),
				zap.Int("total", len(reqs)),
				zap.Error(err),
			)
			for j := i; j < len(reqs); j++ {
				results[j].Err = types.NewCancelledError(reqs[j].Target, 0, err)
			}
			break
		}
	}

	// Close waits for the workers, which publishes every results write
	pool.Close()
	return results
}
