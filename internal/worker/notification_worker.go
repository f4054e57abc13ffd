package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrQueueFull is returned by Enqueue when the buffer is exhausted.
var ErrQueueFull = errors.New("notification queue full")

// ErrStopped is returned by Enqueue after Stop.
var ErrStopped = errors.New("notification worker stopped")

// Job is a unit of delivery work.
type Job struct {
	ID   string
	Kind string
	Run  func(ctx context.Context) error
}

// NotificationWorker runs delivery jobs on a fixed number of goroutines.
type NotificationWorker struct {
	jobs    chan Job
	workers int
	logger  *zap.Logger

	mu      sync.RWMutex
	stopped bool
}

// NewNotificationWorker creates a worker with a bounded queue.
func NewNotificationWorker(workers, queueSize int, logger *zap.Logger) *NotificationWorker {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &NotificationWorker{
		jobs:    make(chan Job, queueSize),
		workers: workers,
		logger:  logger,
	}
}

// Enqueue schedules job without blocking.
func (w *NotificationWorker) Enqueue(job Job) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return ErrStopped
	}
	select {
	case w.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Run processes jobs until Stop is called and the queue is drained, or ctx is done.
// Job errors are logged and never stop the pool.
func (w *NotificationWorker) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < w.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case job, ok := <-w.jobs:
					if !ok {
						return nil
					}
					w.runJob(gctx, job)
				}
			}
		})
	}
	return g.Wait()
}

// Stop refuses new jobs and lets Run return once queued jobs are done.
func (w *NotificationWorker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.stopped = true
	close(w.jobs)
}

func (w *NotificationWorker) runJob(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("notification job panicked", zap.String("job_id", job.ID), zap.Any("panic", r))
		}
	}()
	if err := job.Run(ctx); err != nil {
		w.logger.Warn("notification job failed",
			zap.String("job_id", job.ID),
			zap.String("kind", job.Kind),
			zap.Error(err))
	}
}
