package pipeline

import (
	"context"
	"encoding/json"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-order-ingest/adapters/gologger"
	"github.com/goliatone/go-order-ingest/core"
	"github.com/goliatone/go-order-ingest/transform"
)

// OrderSubmitter posts a transformed order downstream and reports the
// response status code.
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, order transform.InternalOrder) (int, error)
}

// ProcessWorker drains the process queue: load the stored payload, map it
// through the transform adapter, and submit it to the intake API. Failures
// record FAILED best-effort and then propagate so the queue retries; a
// later successful attempt overwrites FAILED with PROCESSED.
type ProcessWorker struct {
	objects   core.ObjectStore
	adapter   *transform.Adapter
	submitter OrderSubmitter
	metadata  core.MetadataStore
	logger    core.Logger
	metrics   core.MetricsRecorder

	Now func() time.Time
}

type ProcessWorkerOption func(*ProcessWorker)

func WithProcessLogger(logger core.Logger) ProcessWorkerOption {
	return func(w *ProcessWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithProcessMetrics(metrics core.MetricsRecorder) ProcessWorkerOption {
	return func(w *ProcessWorker) {
		if metrics != nil {
			w.metrics = metrics
		}
	}
}

func NewProcessWorker(
	objects core.ObjectStore,
	adapter *transform.Adapter,
	submitter OrderSubmitter,
	metadata core.MetadataStore,
	opts ...ProcessWorkerOption,
) *ProcessWorker {
	_, logger := gologger.Resolve("pipeline.process", nil, nil)
	worker := &ProcessWorker{
		objects:   objects,
		adapter:   adapter,
		submitter: submitter,
		metadata:  metadata,
		logger:    logger,
		metrics:   core.NopMetricsRecorder{},
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(worker)
	}
	return worker
}

// Handle processes one process-queue message.
func (w *ProcessWorker) Handle(ctx context.Context, msg core.QueueMessage) error {
	var command core.ProcessMessage
	if err := json.Unmarshal(msg.Body, &command); err != nil {
		return core.WrapError(err, goerrors.CategoryBadInput, "decode process message", map[string]any{
			"message_id": msg.ID,
		})
	}
	if err := command.Validate(); err != nil {
		return core.WrapError(err, goerrors.CategoryBadInput, "invalid process message", map[string]any{
			"message_id": msg.ID,
		})
	}

	w.logger.Info("starting processing",
		"order_id", command.OrderID,
		"key", command.ObjectKey,
		"receive_count", msg.ReceiveCount)
	start := w.Now()

	if err := w.process(ctx, command); err != nil {
		w.recordFailure(ctx, command.OrderID, err)
		w.metrics.IncCounter(ctx, "orders_failed", 1, nil)
		return err
	}

	w.metrics.ObserveHistogram(ctx, "process_duration_ms",
		float64(w.Now().Sub(start).Milliseconds()), map[string]string{"order_id": command.OrderID})
	w.metrics.IncCounter(ctx, "orders_processed", 1, nil)
	return nil
}

func (w *ProcessWorker) process(ctx context.Context, command core.ProcessMessage) error {
	stored, err := w.objects.Get(ctx, command.ObjectKey)
	if err != nil {
		return core.WrapError(err, goerrors.CategoryOperation, "load raw payload", map[string]any{
			"order_id": command.OrderID,
			"key":      command.ObjectKey,
		})
	}

	var raw core.RawOrder
	if err := json.Unmarshal(stored.Body, &raw); err != nil {
		return core.WrapError(err, goerrors.CategoryBadInput, "decode raw payload", map[string]any{
			"order_id": command.OrderID,
			"key":      command.ObjectKey,
		})
	}

	internal := w.adapter.Transform(raw)
	statusCode, err := w.submitter.SubmitOrder(ctx, internal)
	if err != nil {
		return err
	}

	processedAt := w.Now()
	if _, err := w.metadata.Put(ctx, core.OrderRecord{
		OrderID:       command.OrderID,
		Status:        core.StatusProcessed,
		Checksum:      command.Checksum,
		ProcessedAt:   &processedAt,
		APIStatusCode: statusCode,
	}); err != nil {
		return core.WrapError(err, goerrors.CategoryOperation, "record processed status", map[string]any{
			"order_id": command.OrderID,
		})
	}

	w.logger.Info("processing complete", "order_id", command.OrderID, "api_status", statusCode)
	return nil
}

// recordFailure writes FAILED best-effort. The handler error still
// propagates: losing this write only delays the status, it does not lose
// the retry.
func (w *ProcessWorker) recordFailure(ctx context.Context, orderID string, cause error) {
	failedAt := w.Now()
	if _, err := w.metadata.Put(ctx, core.OrderRecord{
		OrderID:  orderID,
		Status:   core.StatusFailed,
		FailedAt: &failedAt,
		Error:    cause.Error(),
	}); err != nil {
		w.logger.Error("failed to record failure status", "order_id", orderID, "error", err)
	}
}
