package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/jzx17/gofallback/pkg/types"
)

var (
	// ErrPoolNotRunning is returned when submitting to a pool that is not started or already closed
	ErrPoolNotRunning = errors.New("worker pool is not running")
)

// FixedWorkerPoolConfig defines configuration for fixed worker pool
type FixedWorkerPoolConfig struct {
	// PoolSize is the size of the worker pool
	PoolSize int

	// QueueSize is the task queue size
	QueueSize int

	// Clock for time operations (optional, defaults to real clock)
	Clock types.Clock

	// Logger for task failures (optional)
	Logger *zap.Logger
}

// DefaultFixedWorkerPoolConfig returns default configuration
func DefaultFixedWorkerPoolConfig() *FixedWorkerPoolConfig {
	return &FixedWorkerPoolConfig{
		PoolSize:  4,
		QueueSize: 64,
	}
}

// FixedWorkerPool implements a fixed-size worker pool
type FixedWorkerPool struct {
	config   FixedWorkerPoolConfig
	workers  []*Worker
	taskChan chan Task

	// state management: 0 created, 1 running, 2 closed
	state     int32
	wg        sync.WaitGroup
	submitMu  sync.RWMutex
	closeOnce sync.Once
}

// NewFixedWorkerPool creates a new fixed worker pool
func NewFixedWorkerPool(config *FixedWorkerPoolConfig) (*FixedWorkerPool, error) {
	if config == nil {
		config = DefaultFixedWorkerPoolConfig()
	}

	if config.PoolSize <= 0 {
		return nil, fmt.Errorf("pool size must be positive, got %d", config.PoolSize)
	}
	if config.QueueSize <= 0 {
		return nil, fmt.Errorf("queue size must be positive, got %d", config.QueueSize)
	}

	cfg := *config
	if cfg.Clock == nil {
		cfg.Clock = types.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	pool := &FixedWorkerPool{
		config:   cfg,
		workers:  make([]*Worker, cfg.PoolSize),
		taskChan: make(chan Task, cfg.QueueSize),
	}
	for i := range pool.workers {
		pool.workers[i] = newWorker(i, pool.taskChan, cfg.Clock, cfg.Logger)
	}

	return pool, nil
}

// Start starts the worker pool. Tasks receive ctx.
func (p *FixedWorkerPool) Start(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&p.state, 0, 1) {
		if atomic.LoadInt32(&p.state) == 1 {
			return fmt.Errorf("worker pool is already running")
		}
		return fmt.Errorf("worker pool is closed")
	}

	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.run(ctx)
		}(w)
	}

	return nil
}

// Submit enqueues task, blocking while the queue is full until ctx ends
func (p *FixedWorkerPool) Submit(ctx context.Context, task Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}

	p.submitMu.RLock()
	defer p.submitMu.RUnlock()

	if atomic.LoadInt32(&p.state) != 1 {
		return ErrPoolNotRunning
	}

	select {
	case p.taskChan <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting tasks, lets queued tasks finish and waits for all workers
func (p *FixedWorkerPool) Close() error {
	p.closeOnce.Do(func() {
		p.submitMu.Lock()
		prev := atomic.SwapInt32(&p.state, 2)
		close(p.taskChan)
		p.submitMu.Unlock()

		if prev == 1 {
			p.wg.Wait()
		}
	})
	return nil
}

// Size returns the worker pool size
func (p *FixedWorkerPool) Size() int {
	return p.config.PoolSize
}

// IsRunning checks if the worker pool is running
func (p *FixedWorkerPool) IsRunning() bool {
	return atomic.LoadInt32(&p.state) == 1
}

// IsClosed checks if the worker pool is closed
func (p *FixedWorkerPool) IsClosed() bool {
	return atomic.LoadInt32(&p.state) == 2
}

// PoolStats contains pool-wide statistics
type PoolStats struct {
	PoolSize       int
	ActiveWorkers  int
	QueueSize      int
	TotalProcessed int64
	TotalFailed    int64
}

// Stats gets worker pool statistics
func (p *FixedWorkerPool) Stats() PoolStats {
	stats := PoolStats{
		PoolSize:  p.config.PoolSize,
		QueueSize: len(p.taskChan),
	}
	for _, w := range p.workers {
		ws := w.Stats()
		if ws.State == WorkerStateWorking {
			stats.ActiveWorkers++
		}
		stats.TotalProcessed += ws.TotalProcessed
		stats.TotalFailed += ws.TotalFailed
	}
	return stats
}

// GetWorkerStats gets statistics of all Workers
func (p *FixedWorkerPool) GetWorkerStats() []WorkerStats {
	stats := make([]WorkerStats, len(p.workers))
	for i, w := range p.workers {
		stats[i] = w.Stats()
	}
	return stats
}
