package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/identity/internal/domain"
	"github.com/utafrali/identity/pkg/logger"
)

var (
	ErrQueueFull   = errors.New("notify: queue full")
	ErrQueueClosed = errors.New("notify: queue closed")
)

var (
	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "notify_queue_depth",
		Help: "Email jobs waiting in the in-process queue.",
	})
	queueDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notify_queue_dropped_total",
		Help: "Email jobs dropped by the in-process queue.",
	}, []string{"reason"})
)

type queuedJob struct {
	ctx context.Context
	job domain.EmailJob
}

// QueueDispatcher runs deferred jobs on a fixed pool of goroutines fed by a
// bounded channel. Each job gets a single delivery attempt; failures are
// logged and dropped.
type QueueDispatcher struct {
	delivery Delivery
	logger   *slog.Logger
	jobs     chan queuedJob
	wg       sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewQueueDispatcher starts workers goroutines reading from a queue of size
// capacity.
func NewQueueDispatcher(delivery Delivery, workers, capacity int, logger *slog.Logger) *QueueDispatcher {
	if workers < 1 {
		workers = 1
	}
	if capacity < 0 {
		capacity = 0
	}

	q := &QueueDispatcher{
		delivery: delivery,
		logger:   logger,
		jobs:     make(chan queuedJob, capacity),
	}

	q.wg.Add(workers)
	for range workers {
		go q.work()
	}
	return q
}

// Dispatch enqueues job without blocking. The job keeps the values of ctx,
// such as the request logger and trace, but not its cancellation.
func (q *QueueDispatcher) Dispatch(ctx context.Context, job domain.EmailJob) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		queueDropped.WithLabelValues("closed").Inc()
		return ErrQueueClosed
	}

	select {
	case q.jobs <- queuedJob{ctx: context.WithoutCancel(ctx), job: job}:
		queueDepth.Inc()
		return nil
	default:
		queueDropped.WithLabelValues("full").Inc()
		return ErrQueueFull
	}
}

func (q *QueueDispatcher) work() {
	defer q.wg.Done()
	for j := range q.jobs {
		queueDepth.Dec()
		if err := q.delivery.Deliver(j.ctx, j.job); err != nil {
			logger.WithContext(j.ctx, q.logger).ErrorContext(j.ctx, "deferred email delivery failed",
				slog.String("template", string(j.job.Template)),
				slog.String("to", j.job.To),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Close stops accepting jobs and waits for queued jobs to finish, or for ctx
// to end.
func (q *QueueDispatcher) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
