package worker

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/jzx17/gofallback/pkg/types"
)

// WorkerState defines the state of a Worker
type WorkerState int32

const (
	// WorkerStateIdle represents idle worker state
	WorkerStateIdle WorkerState = iota
	// WorkerStateWorking represents working worker state
	WorkerStateWorking
	// WorkerStateStopped represents stopped worker state
	WorkerStateStopped
)

// String returns the string representation of WorkerState
func (ws WorkerState) String() string {
	switch ws {
	case WorkerStateIdle:
		return "idle"
	case WorkerStateWorking:
		return "working"
	case WorkerStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Worker represents a single worker goroutine
type Worker struct {
	id       int
	state    int32 // atomic state
	taskChan <-chan Task

	// statistics
	totalProcessed int64
	totalFailed    int64

	clock  types.Clock
	logger *zap.Logger
}

func newWorker(id int, taskChan <-chan Task, clock types.Clock, logger *zap.Logger) *Worker {
	return &Worker{
		id:       id,
		state:    int32(WorkerStateIdle),
		taskChan: taskChan,
		clock:    clock,
		logger:   logger,
	}
}

// ID returns the Worker ID
func (w *Worker) ID() int {
	return w.id
}

// State returns the current Worker state
func (w *Worker) State() WorkerState {
	return WorkerState(atomic.LoadInt32(&w.state))
}

// run consumes tasks until the queue is closed. Queued tasks still run
// after ctx ends; they see the cancelled ctx and are expected to return fast.
func (w *Worker) run(ctx context.Context) {
	defer atomic.StoreInt32(&w.state, int32(WorkerStateStopped))

	for task := range w.taskChan {
		w.processTask(ctx, task)
	}
}

// processTask processes a single task
func (w *Worker) processTask(ctx context.Context, task Task) {
	atomic.StoreInt32(&w.state, int32(WorkerStateWorking))
	defer atomic.StoreInt32(&w.state, int32(WorkerStateIdle))

	start := w.clock.Now()
	err := w.executeTask(ctx, task)
	elapsed := w.clock.Since(start)

	if err != nil {
		atomic.AddInt64(&w.totalFailed, 1)
		w.logger.Debug("task failed",
			zap.Int("worker", w.id),
			zap.String("task", task.ID()),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return
	}
	atomic.AddInt64(&w.totalProcessed, 1)
}

// executeTask executes a task with panic recovery support
func (w *Worker) executeTask(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked on worker %d: %v", task.ID(), w.id, r)
			w.logger.Error("task panicked", zap.Int("worker", w.id), zap.String("task", task.ID()), zap.Any("panic", r))
		}
	}()

	return task.Execute(ctx)
}

// Stats gets Worker statistics
func (w *Worker) Stats() WorkerStats {
	return WorkerStats{
		ID:             w.id,
		State:          w.State(),
		TotalProcessed: atomic.LoadInt64(&w.totalProcessed),
		TotalFailed:    atomic.LoadInt64(&w.totalFailed),
	}
}

// WorkerStats defines Worker statistics
type WorkerStats struct {
	ID             int
	State          WorkerState
	TotalProcessed int64
	TotalFailed    int64
}
