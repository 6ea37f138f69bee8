// Package pipeline contains the ingestion stages: the webhook receiver and
// the download and process workers. Each stage is idempotent so at-least-once
// queue delivery converges on one final order state.
package pipeline

import (
	"context"
	"encoding/json"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/goliatone/go-order-ingest/adapters/gologger"
	"github.com/goliatone/go-order-ingest/core"
)

// ReceiveResult is what the webhook responds with: enough for the caller
// to correlate the notification with later pipeline stages.
type ReceiveResult struct {
	OrderID   string `json:"order_id"`
	RequestID string `json:"request_id"`
	MessageID string `json:"-"`
}

// Receiver accepts marketplace notifications. It records the NOTIFIED
// status and enqueues the download work, nothing more, so the webhook can
// respond fast.
type Receiver struct {
	metadata  core.MetadataStore
	downloads core.QueuePublisher
	logger    core.Logger
	metrics   core.MetricsRecorder

	Now          func() time.Time
	NewRequestID func() string
}

type ReceiverOption func(*Receiver)

func WithReceiverLogger(logger core.Logger) ReceiverOption {
	return func(r *Receiver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithReceiverMetrics(metrics core.MetricsRecorder) ReceiverOption {
	return func(r *Receiver) {
		if metrics != nil {
			r.metrics = metrics
		}
	}
}

func NewReceiver(metadata core.MetadataStore, downloads core.QueuePublisher, opts ...ReceiverOption) *Receiver {
	_, logger := gologger.Resolve("pipeline.receiver", nil, nil)
	receiver := &Receiver{
		metadata:  metadata,
		downloads: downloads,
		logger:    logger,
		metrics:   core.NopMetricsRecorder{},
		Now: func() time.Time {
			return time.Now().UTC()
		},
		NewRequestID: func() string {
			return uuid.NewString()[:8]
		},
	}
	for _, opt := range opts {
		opt(receiver)
	}
	return receiver
}

// Receive validates the notification, marks the order NOTIFIED, and queues
// the download. A replayed notification for a known order still enqueues:
// the status guard keeps the record from regressing and the download stage
// is idempotent.
func (r *Receiver) Receive(ctx context.Context, notification core.Notification) (ReceiveResult, error) {
	if err := notification.Validate(); err != nil {
		return ReceiveResult{}, core.WrapError(err, goerrors.CategoryBadInput, "invalid notification", map[string]any{
			"order_id": notification.OrderID,
		})
	}

	requestID := r.NewRequestID()
	r.logger.Info("received order notification",
		"order_id", notification.OrderID,
		"request_id", requestID,
		"notification_type", notification.NotificationType)

	if _, err := r.metadata.Put(ctx, core.OrderRecord{
		OrderID:    notification.OrderID,
		Status:     core.StatusNotified,
		RequestID:  requestID,
		NotifiedAt: notification.Timestamp,
	}); err != nil {
		return ReceiveResult{}, core.WrapError(err, goerrors.CategoryOperation, "record notified status", map[string]any{
			"order_id":   notification.OrderID,
			"request_id": requestID,
		})
	}

	body, err := json.Marshal(core.DownloadMessage{
		OrderID:    notification.OrderID,
		NotifiedAt: notification.Timestamp,
	})
	if err != nil {
		return ReceiveResult{}, core.WrapError(err, goerrors.CategoryInternal, "marshal download message", map[string]any{
			"order_id": notification.OrderID,
		})
	}
	messageID, err := r.downloads.Enqueue(ctx, body)
	if err != nil {
		return ReceiveResult{}, core.WrapError(err, goerrors.CategoryOperation, "enqueue download", map[string]any{
			"order_id":   notification.OrderID,
			"request_id": requestID,
		})
	}

	r.metrics.IncCounter(ctx, "webhook_notifications_accepted", 1, nil)
	return ReceiveResult{
		OrderID:   notification.OrderID,
		RequestID: requestID,
		MessageID: messageID,
	}, nil
}
