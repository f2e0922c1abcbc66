// Package worker pumps queue deliveries into task handlers with bounded
// concurrency. A handler error leaves the delivery unacknowledged so the
// queue redelivers it.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/hothouse/hothouse/internal/logger"
	"github.com/hothouse/hothouse/internal/metrics"
	"github.com/hothouse/hothouse/internal/queue"
)

const (
	defaultConcurrency = 2
	defaultJobTimeout  = 10 * time.Minute
	readErrorBackoff   = time.Second
)

// Handler processes one task.
type Handler func(ctx context.Context, task *queue.Task) error

// RunnerConfig holds runner tuning options.
type RunnerConfig struct {
	Concurrency int
	JobTimeout  time.Duration
}

// Runner reads one queue and hands tasks to a handler through a semaphore
// pool. One Runner per queue; both rating phases share the rate queue.
type Runner struct {
	consumer *queue.Consumer
	handler  Handler
	metrics  *metrics.Metrics
	logger   logger.Logger

	concurrency int
	jobTimeout  time.Duration

	stopChan chan struct{}
	wg       sync.WaitGroup
	started  bool
	stopped  bool
	mu       sync.Mutex
}

// NewRunner creates a Runner.
func NewRunner(consumer *queue.Consumer, handler Handler, cfg RunnerConfig, m *metrics.Metrics, log logger.Logger) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = defaultJobTimeout
	}
	return &Runner{
		consumer:    consumer,
		handler:     handler,
		metrics:     m,
		logger:      log,
		concurrency: cfg.Concurrency,
		jobTimeout:  cfg.JobTimeout,
		stopChan:    make(chan struct{}),
	}
}

// Start begins the read loop.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run(ctx)

	r.logger.Info("worker started",
		logger.String("queue", r.consumer.Queue()),
		logger.Int("concurrency", r.concurrency),
	)
}

// Stop stops reading and waits for in-flight tasks to drain. Safe to call
// more than once.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.started || r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	close(r.stopChan)
	r.wg.Wait()
	r.logger.Info("worker stopped", logger.String("queue", r.consumer.Queue()))
}

func (r *Runner) run(ctx context.Context) {
	defer r.wg.Done()

	sem := make(chan struct{}, r.concurrency)

	for {
		select {
		case <-r.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		deliveries, err := r.consumer.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.logger.Error("queue read failed",
				logger.String("queue", r.consumer.Queue()),
				logger.Error(err),
			)
			select {
			case <-time.After(readErrorBackoff):
			case <-r.stopChan:
				return
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, d := range deliveries {
			sem <- struct{}{}
			r.wg.Add(1)
			go func(d *queue.Delivery) {
				defer r.wg.Done()
				defer func() { <-sem }()
				r.process(ctx, d)
			}(d)
		}
	}
}

// process runs the handler with a per-task deadline. The delivery is only
// acknowledged on success; failures stay pending for redelivery.
func (r *Runner) process(ctx context.Context, d *queue.Delivery) {
	taskCtx, cancel := context.WithTimeout(ctx, r.jobTimeout)
	defer cancel()

	start := time.Now()
	err := r.handler(taskCtx, d.Task)
	r.metrics.TaskDone(r.consumer.Queue(), err)

	log := r.logger.With(
		logger.String("queue", r.consumer.Queue()),
		logger.String("kind", string(d.Task.Kind)),
		logger.Int64("job_id", d.Task.JobID),
		logger.Duration("elapsed", time.Since(start)),
	)

	if err != nil {
		log.Error("task failed, leaving for redelivery", logger.Error(err))
		return
	}

	if ackErr := r.consumer.Ack(ctx, d); ackErr != nil {
		log.Warn("ack failed, task may be redelivered", logger.Error(ackErr))
		return
	}
	log.Debug("task done")
}
