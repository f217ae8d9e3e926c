// Package worker provides a small context-aware worker pool. The reporting
// pipeline uses it to parse multiple spreadsheet datasets concurrently;
// results are merged by the caller in submission order so parallelism never
// changes output.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Job represents a unit of work to be processed by a worker.
type Job interface {
	// Execute performs the work synchronously.
	// Context should be used to check for cancellation.
	Execute(ctx context.Context) Result
}

// Result represents the outcome of a job execution.
type Result interface {
	// Err returns any error that occurred during execution, or nil if successful.
	Err() error
}

// SpawnWorkerPool creates and manages a pool of worker goroutines reading
// jobs from jobQueue until it is closed or the context is cancelled.
// The returned WaitGroup tracks all workers; call Wait() after closing the
// queue to block until every job has finished.
func SpawnWorkerPool(
	ctx context.Context,
	numWorkers int,
	jobQueue <-chan Job,
	logger *slog.Logger,
) *sync.WaitGroup {
	if numWorkers <= 0 {
		numWorkers = 1
	}

	wg := &sync.WaitGroup{}

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			logger.Debug("Worker started",
				"worker_id", workerID,
				"total_workers", numWorkers,
			)

			executeJob := func(job Job) {
				defer func() {
					if r := recover(); r != nil {
						logger.Error("Job panicked",
							"worker_id", workerID,
							"panic", fmt.Sprintf("%v", r),
						)
					}
				}()

				result := job.Execute(ctx)

				if result != nil && result.Err() != nil {
					logger.Debug("Job execution failed",
						"worker_id", workerID,
						"error", result.Err(),
					)
				}
			}

			for {
				select {
				case <-ctx.Done():
					// Context cancelled, drain remaining buffered jobs before exiting
					for job := range jobQueue {
						executeJob(job)
					}
					logger.Debug("Worker exiting",
						"worker_id", workerID,
						"reason", "context_cancelled",
					)
					return

				case job, ok := <-jobQueue:
					if !ok {
						logger.Debug("Worker exiting",
							"worker_id", workerID,
							"reason", "job_queue_closed",
						)
						return
					}

					executeJob(job)
				}
			}
		}(i)
	}

	return wg
}
