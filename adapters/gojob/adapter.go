// Package gojob bridges the pipeline queue contracts onto go-job's queue
// primitives so the download and process stages can ride a durable broker
// instead of the in-process queue.
package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/google/uuid"

	"github.com/goliatone/go-order-ingest/core"
)

const (
	JobIDDownload = "orders.download"
	JobIDProcess  = "orders.process"

	bodyParameter = "body"
)

// RetryPolicy defines queue retry bounds to avoid unbounded retry loops.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NormalizeAttempt enforces bounded retry behavior for a nack operation.
func (p RetryPolicy) NormalizeAttempt(opts core.NackOptions, attempt int) core.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// ToExecutionMessage wraps a queue message body in a go-job execution
// message. The body travels as a parameter; the message id doubles as the
// idempotency key so broker-side dedup sees redeliveries.
func ToExecutionMessage(jobID string, msg core.QueueMessage) *job.ExecutionMessage {
	return &job.ExecutionMessage{
		JobID:          strings.TrimSpace(jobID),
		Parameters:     map[string]any{bodyParameter: string(msg.Body)},
		IdempotencyKey: strings.TrimSpace(msg.ID),
	}
}

// FromExecutionMessage unwraps a go-job execution message back into a
// queue message.
func FromExecutionMessage(msg *job.ExecutionMessage) core.QueueMessage {
	if msg == nil {
		return core.QueueMessage{}
	}
	out := core.QueueMessage{ID: strings.TrimSpace(msg.IdempotencyKey)}
	if raw, ok := msg.Parameters[bodyParameter]; ok {
		if body, ok := raw.(string); ok {
			out.Body = []byte(body)
		}
	}
	return out
}

// ToNackOptions maps pipeline nack options to go-job.
func ToNackOptions(opts core.NackOptions) queue.NackOptions {
	return queue.NackOptions{
		Delay:      opts.Delay,
		Requeue:    opts.Requeue,
		DeadLetter: opts.DeadLetter,
		Reason:     opts.Reason,
	}
}

// FromNackOptions maps go-job nack options to the pipeline contract.
func FromNackOptions(opts queue.NackOptions) core.NackOptions {
	return core.NackOptions{
		Delay:      opts.Delay,
		Requeue:    opts.Requeue,
		DeadLetter: opts.DeadLetter,
		Reason:     opts.Reason,
	}
}

type PublisherAdapter struct {
	jobID    string
	enqueuer queue.Enqueuer
}

func NewPublisherAdapter(jobID string, enqueuer queue.Enqueuer) *PublisherAdapter {
	return &PublisherAdapter{jobID: jobID, enqueuer: enqueuer}
}

func (a *PublisherAdapter) Enqueue(ctx context.Context, body []byte) (string, error) {
	if a == nil || a.enqueuer == nil {
		return "", fmt.Errorf("gojob: enqueuer is not configured")
	}
	if len(body) == 0 {
		return "", fmt.Errorf("gojob: message body is required")
	}
	msg := core.QueueMessage{ID: uuid.NewString(), Body: body}
	if err := a.enqueuer.Enqueue(ctx, ToExecutionMessage(a.jobID, msg)); err != nil {
		return "", err
	}
	return msg.ID, nil
}

type DeliveryAdapter struct {
	delivery queue.Delivery
	policy   RetryPolicy
	attempt  int
}

func NewDeliveryAdapter(delivery queue.Delivery, policy RetryPolicy) *DeliveryAdapter {
	return &DeliveryAdapter{delivery: delivery, policy: policy}
}

func (d *DeliveryAdapter) Message() core.QueueMessage {
	if d == nil || d.delivery == nil {
		return core.QueueMessage{}
	}
	msg := FromExecutionMessage(d.delivery.Message())
	msg.ReceiveCount = d.attempt
	return msg
}

func (d *DeliveryAdapter) Ack(ctx context.Context) error {
	if d == nil || d.delivery == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	return d.delivery.Ack(ctx)
}

func (d *DeliveryAdapter) Nack(ctx context.Context, opts core.NackOptions) error {
	if d == nil || d.delivery == nil {
		return fmt.Errorf("gojob: delivery is not configured")
	}
	normalized := d.policy.NormalizeAttempt(opts, d.attempt)
	return d.delivery.Nack(ctx, ToNackOptions(normalized))
}

// DequeuerAdapter tracks per-message receive counts locally since go-job
// deliveries do not expose them.
type DequeuerAdapter struct {
	dequeuer queue.Dequeuer
	policy   RetryPolicy
	attempts map[string]int
}

func NewDequeuerAdapter(dequeuer queue.Dequeuer, policy RetryPolicy) *DequeuerAdapter {
	return &DequeuerAdapter{
		dequeuer: dequeuer,
		policy:   policy,
		attempts: map[string]int{},
	}
}

func (a *DequeuerAdapter) Dequeue(ctx context.Context) (core.QueueDelivery, error) {
	if a == nil || a.dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is not configured")
	}
	delivery, err := a.dequeuer.Dequeue(ctx)
	if err != nil {
		return nil, err
	}
	adapted := NewDeliveryAdapter(delivery, a.policy)
	if msg := delivery.Message(); msg != nil {
		key := strings.TrimSpace(msg.IdempotencyKey)
		if key != "" {
			a.attempts[key]++
			adapted.attempt = a.attempts[key]
		}
	}
	return adapted, nil
}

var (
	_ core.QueuePublisher = (*PublisherAdapter)(nil)
	_ core.QueueDelivery  = (*DeliveryAdapter)(nil)
	_ core.QueueDequeuer  = (*DequeuerAdapter)(nil)
)
