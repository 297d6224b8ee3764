// Package queue implements the bounded background persistence executor
// (spec §5): a fixed-size worker pool that writes CalledFunction and Cost
// rows off the turn-processing critical path, falling back to synchronous
// execution under backpressure rather than blocking the caller
// indefinitely. Grounded on the teacher's WorkerPool
// (pkg/queue/pool.go/worker.go) — same Start/Stop/Health shape and slog
// idiom — generalized from polling alert sessions out of Postgres to
// draining an in-process job channel, since the engine's background work
// is generated synchronously by the caller rather than discovered by
// polling.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Job is one unit of background work. Run must be safe to call from any
// worker goroutine and should itself carry its own timeout via ctx.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Health reports the executor's current load, mirroring the teacher's
// PoolHealth shape.
type Health struct {
	TotalWorkers int       `json:"total_workers"`
	QueueDepth   int       `json:"queue_depth"`
	QueueCap     int       `json:"queue_cap"`
	Processed    int64     `json:"processed"`
	Dropped      int64     `json:"dropped"`
	Fallbacks    int64     `json:"synchronous_fallbacks"`
	StartedAt    time.Time `json:"started_at"`
}

// Executor is a fixed-worker-count job queue with a bounded channel. When
// the channel is full, Submit runs the job synchronously on the caller's
// goroutine instead of blocking (spec §5's backpressure rule) — a full
// queue degrades latency, it does not degrade correctness.
type Executor struct {
	workers   int
	jobs      chan Job
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	startedAt time.Time

	processed atomic.Int64
	dropped   atomic.Int64
	fallbacks atomic.Int64
}

// NewExecutor builds an Executor with the given worker count and queue
// capacity. Both must be at least 1.
func NewExecutor(workers, queueCap int) *Executor {
	if workers < 1 {
		workers = 1
	}
	if queueCap < 1 {
		queueCap = 1
	}
	return &Executor{
		workers: workers,
		jobs:    make(chan Job, queueCap),
		stopCh:  make(chan struct{}),
	}
}

// Start spawns the worker goroutines. Safe to call once.
func (e *Executor) Start() {
	e.startedAt = time.Now()
	for i := 0; i < e.workers; i++ {
		id := fmt.Sprintf("worker-%d", i)
		e.wg.Add(1)
		go e.runWorker(id)
	}
	slog.Info("background executor started", "workers", e.workers, "queue_cap", cap(e.jobs))
}

// Stop signals all workers to drain remaining jobs and exit, then waits.
func (e *Executor) Stop() {
	e.stopOnce.Do(func() { close(e.stopCh) })
	e.wg.Wait()
	slog.Info("background executor stopped", "processed", e.processed.Load(), "dropped", e.dropped.Load())
}

func (e *Executor) runWorker(id string) {
	defer e.wg.Done()
	for {
		select {
		case job := <-e.jobs:
			e.run(id, job)
		case <-e.stopCh:
			// Drain whatever is left in the buffer before exiting.
			for {
				select {
				case job := <-e.jobs:
					e.run(id, job)
				default:
					return
				}
			}
		}
	}
}

// run executes job with a single retry: a second attempt on failure, then
// a logged drop — never a caller-visible error (spec §5).
func (e *Executor) run(workerID string, job Job) {
	ctx := context.Background()
	err := job.Run(ctx)
	if err != nil {
		slog.Warn("background job failed, retrying once", "worker", workerID, "job", job.Name, "error", err)
		err = job.Run(ctx)
	}
	if err != nil {
		e.dropped.Add(1)
		slog.Error("background job dropped after retry", "worker", workerID, "job", job.Name, "error", err)
		return
	}
	e.processed.Add(1)
}

// Submit enqueues job, or runs it synchronously on the caller's goroutine
// if the queue is full.
func (e *Executor) Submit(job Job) {
	select {
	case e.jobs <- job:
	default:
		e.fallbacks.Add(1)
		slog.Warn("background queue full, running job synchronously", "job", job.Name)
		e.run("synchronous", job)
	}
}

// Health reports the executor's current load.
func (e *Executor) Health() Health {
	return Health{
		TotalWorkers: e.workers,
		QueueDepth:   len(e.jobs),
		QueueCap:     cap(e.jobs),
		Processed:    e.processed.Load(),
		Dropped:      e.dropped.Load(),
		Fallbacks:    e.fallbacks.Load(),
		StartedAt:    e.startedAt,
	}
}
