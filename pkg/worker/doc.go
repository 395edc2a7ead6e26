/*
Package worker provides a fixed-size worker pool used to fan out batch
executions.

# FixedWorkerPool

A pool owns a buffered task queue and PoolSize worker goroutines. Submit
blocks while the queue is full until the submitting context ends. Close
stops accepting work, lets queued tasks run to completion and waits for
every worker to exit. Panics inside a task are recovered and counted as
failures.

Basic usage:

	pool, err := worker.NewFixedWorkerPool(&worker.FixedWorkerPoolConfig{
		PoolSize:  4,
		QueueSize: 16,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	if err := pool.Start(ctx); err != nil {
		return err
	}

	for _, job := range jobs {
		job := job
		task := worker.NewBasicTask(func(ctx context.Context) error {
			return job.Run(ctx)
		})
		if err := pool.Submit(ctx, task); err != nil {
			break
		}
	}
	pool.Close()

Tasks receive the context given to Start, so cancelling it makes queued
tasks observe a cancelled context rather than being dropped.
*/
package worker
