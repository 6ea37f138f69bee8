package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-order-ingest/core"
)

const (
	defaultPollInterval = time.Second
	defaultMaxReceives  = 5
	defaultRetryDelay   = time.Second
	maxRetryDelay       = time.Minute
)

// Handler processes one queue message. A nil return acks the delivery; an
// error nacks it with an exponential redelivery delay.
type Handler func(ctx context.Context, msg core.QueueMessage) error

// Runner polls a queue and drives a handler. Messages that keep failing
// are parked on the dead-letter channel once their receive count reaches
// MaxReceives.
type Runner struct {
	name         string
	dequeuer     core.QueueDequeuer
	handler      Handler
	logger       core.Logger
	metrics      core.MetricsRecorder
	pollInterval time.Duration
	maxReceives  int
	retryDelay   time.Duration
}

type RunnerOption func(*Runner)

func WithPollInterval(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.pollInterval = d
		}
	}
}

func WithMaxReceives(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.maxReceives = n
		}
	}
}

func WithRetryDelay(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.retryDelay = d
		}
	}
}

func WithRunnerLogger(logger core.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithRunnerMetrics(metrics core.MetricsRecorder) RunnerOption {
	return func(r *Runner) {
		if metrics != nil {
			r.metrics = metrics
		}
	}
}

func NewRunner(name string, dequeuer core.QueueDequeuer, handler Handler, opts ...RunnerOption) *Runner {
	_, logger := glog.Resolve("queue", nil, nil)
	runner := &Runner{
		name:         name,
		dequeuer:     dequeuer,
		handler:      handler,
		logger:       logger,
		metrics:      core.NopMetricsRecorder{},
		pollInterval: defaultPollInterval,
		maxReceives:  defaultMaxReceives,
		retryDelay:   defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner
}

// Run polls until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	if r == nil || r.dequeuer == nil || r.handler == nil {
		return fmt.Errorf("queue: runner requires a dequeuer and a handler")
	}
	for {
		processed, err := r.RunOnce(ctx)
		if err != nil && !errors.Is(err, core.ErrQueueEmpty) {
			r.logger.Error("runner iteration failed", "runner", r.name, "error", err)
		}
		if processed {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.pollInterval):
		}
	}
}

// RunOnce leases and processes a single message. It reports false when the
// queue had nothing visible.
func (r *Runner) RunOnce(ctx context.Context) (bool, error) {
	if r == nil || r.dequeuer == nil || r.handler == nil {
		return false, fmt.Errorf("queue: runner requires a dequeuer and a handler")
	}
	delivery, err := r.dequeuer.Dequeue(ctx)
	if err != nil {
		if errors.Is(err, core.ErrQueueEmpty) {
			return false, nil
		}
		return false, err
	}

	msg := delivery.Message()
	start := time.Now()
	handlerErr := r.handler(ctx, msg)
	r.metrics.ObserveHistogram(ctx, "queue_handler_duration_ms",
		float64(time.Since(start).Milliseconds()), map[string]string{"runner": r.name})

	if handlerErr == nil {
		if err := delivery.Ack(ctx); err != nil {
			return true, err
		}
		r.metrics.IncCounter(ctx, "queue_handler_success", 1, map[string]string{"runner": r.name})
		return true, nil
	}

	opts := core.NackOptions{
		Delay:   r.redeliveryDelay(msg.ReceiveCount),
		Requeue: true,
		Reason:  handlerErr.Error(),
	}
	if msg.ReceiveCount >= r.maxReceives {
		opts.Requeue = false
		opts.DeadLetter = true
		r.logger.Error("message exhausted receives, dead-lettering",
			"runner", r.name, "message_id", msg.ID, "receive_count", msg.ReceiveCount, "error", handlerErr)
		r.metrics.IncCounter(ctx, "queue_dead_letter", 1, map[string]string{"runner": r.name})
	} else {
		r.logger.Warn("handler failed, message will be redelivered",
			"runner", r.name, "message_id", msg.ID, "receive_count", msg.ReceiveCount,
			"delay", opts.Delay, "error", handlerErr)
		r.metrics.IncCounter(ctx, "queue_handler_failure", 1, map[string]string{"runner": r.name})
	}
	if err := delivery.Nack(ctx, opts); err != nil {
		return true, err
	}
	return true, handlerErr
}

// redeliveryDelay doubles per receive, capped at a minute.
func (r *Runner) redeliveryDelay(receiveCount int) time.Duration {
	delay := r.retryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	for i := 1; i < receiveCount; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return delay
}
