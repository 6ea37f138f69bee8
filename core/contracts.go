package core

import (
	"context"
	"errors"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

var (
	// ErrOrderNotFound signals a metadata-store miss for an order id.
	ErrOrderNotFound = errors.New("core: order record not found")
	// ErrObjectNotFound signals an object-store miss for a payload key.
	ErrObjectNotFound = errors.New("core: payload object not found")
	// ErrQueueEmpty signals a dequeue attempt on an empty queue.
	ErrQueueEmpty = errors.New("core: queue is empty")
)

// MetadataStore holds the latest order record per order id. Put replaces
// the whole record; implementations reject stale status regressions via
// OrderStatus.Rank but never fail duplicate deliveries for it.
type MetadataStore interface {
	Put(ctx context.Context, record OrderRecord) (OrderRecord, error)
	Get(ctx context.Context, orderID string) (OrderRecord, error)
}

// MetadataLister is implemented by stores that can enumerate recent
// records for dashboard-style reads.
type MetadataLister interface {
	List(ctx context.Context) ([]OrderRecord, error)
}

// StoredObject describes a payload blob at rest.
type StoredObject struct {
	Key         string
	Body        []byte
	Checksum    string
	ContentType string
	Size        int64
	CreatedAt   time.Time
}

// ObjectStore is the claim-check blob store. Objects are immutable once
// written; a Put on an existing key is an idempotent no-op.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (StoredObject, error)
	Get(ctx context.Context, key string) (StoredObject, error)
}

// QueueMessage is one delivery from a queue transport.
type QueueMessage struct {
	ID           string
	Body         []byte
	ReceiveCount int
	EnqueuedAt   time.Time
}

// NackOptions controls what happens to an unacknowledged delivery.
type NackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

// QueuePublisher enqueues a message body, returning the message id.
type QueuePublisher interface {
	Enqueue(ctx context.Context, body []byte) (string, error)
}

// QueueDelivery is a leased message. Until Ack or Nack the message stays
// invisible to other consumers; an expired lease makes it redeliverable,
// which is how at-least-once delivery arises.
type QueueDelivery interface {
	Message() QueueMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts NackOptions) error
}

// QueueDequeuer leases the next visible message, or ErrQueueEmpty.
type QueueDequeuer interface {
	Dequeue(ctx context.Context) (QueueDelivery, error)
}

// MetricsRecorder receives pipeline stage counters and timings.
type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string)        {}
func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

// Logger is the structured logging contract used across the pipeline.
type Logger = glog.Logger

// LoggerProvider resolves named loggers.
type LoggerProvider = glog.LoggerProvider

// FieldsLogger optionally attaches structured fields to a logger.
type FieldsLogger = glog.FieldsLogger
