package pipeline

import (
	"context"
	"encoding/json"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-order-ingest/adapters/gologger"
	"github.com/goliatone/go-order-ingest/core"
)

// Downloader fetches the raw order payload from the marketplace.
type Downloader interface {
	DownloadOrder(ctx context.Context, orderID string) ([]byte, error)
}

// DownloadWorker drains the download queue: fetch the payload, park it in
// the object store, mark the order DOWNLOADED, and hand the claim check to
// the process queue. Every step tolerates redelivery.
type DownloadWorker struct {
	downloader Downloader
	objects    core.ObjectStore
	metadata   core.MetadataStore
	processes  core.QueuePublisher
	logger     core.Logger
	metrics    core.MetricsRecorder

	Now func() time.Time
}

type DownloadWorkerOption func(*DownloadWorker)

func WithDownloadLogger(logger core.Logger) DownloadWorkerOption {
	return func(w *DownloadWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithDownloadMetrics(metrics core.MetricsRecorder) DownloadWorkerOption {
	return func(w *DownloadWorker) {
		if metrics != nil {
			w.metrics = metrics
		}
	}
}

func NewDownloadWorker(
	downloader Downloader,
	objects core.ObjectStore,
	metadata core.MetadataStore,
	processes core.QueuePublisher,
	opts ...DownloadWorkerOption,
) *DownloadWorker {
	_, logger := gologger.Resolve("pipeline.download", nil, nil)
	worker := &DownloadWorker{
		downloader: downloader,
		objects:    objects,
		metadata:   metadata,
		processes:  processes,
		logger:     logger,
		metrics:    core.NopMetricsRecorder{},
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(worker)
	}
	return worker
}

// Handle processes one download-queue message. Errors propagate so the
// queue redelivers; a permanent remote failure still propagates and relies
// on the queue's dead-letter bound to stop the loop.
func (w *DownloadWorker) Handle(ctx context.Context, msg core.QueueMessage) error {
	var command core.DownloadMessage
	if err := json.Unmarshal(msg.Body, &command); err != nil {
		return core.WrapError(err, goerrors.CategoryBadInput, "decode download message", map[string]any{
			"message_id": msg.ID,
		})
	}
	if err := command.Validate(); err != nil {
		return core.WrapError(err, goerrors.CategoryBadInput, "invalid download message", map[string]any{
			"message_id": msg.ID,
		})
	}

	w.logger.Info("starting download", "order_id", command.OrderID, "receive_count", msg.ReceiveCount)
	start := w.Now()

	payload, err := w.downloader.DownloadOrder(ctx, command.OrderID)
	if err != nil {
		return err
	}

	checksum := core.PayloadChecksum(payload)
	key := core.PayloadObjectKey(command.OrderID, checksum)
	stored, err := w.objects.Put(ctx, key, payload, "application/json")
	if err != nil {
		return core.WrapError(err, goerrors.CategoryOperation, "store raw payload", map[string]any{
			"order_id": command.OrderID,
			"key":      key,
		})
	}

	downloadedAt := w.Now()
	if _, err := w.metadata.Put(ctx, core.OrderRecord{
		OrderID:      command.OrderID,
		Status:       core.StatusDownloaded,
		NotifiedAt:   command.NotifiedAt,
		ObjectKey:    stored.Key,
		Checksum:     stored.Checksum,
		DownloadedAt: &downloadedAt,
	}); err != nil {
		return core.WrapError(err, goerrors.CategoryOperation, "record downloaded status", map[string]any{
			"order_id": command.OrderID,
		})
	}

	body, err := json.Marshal(core.ProcessMessage{
		OrderID:   command.OrderID,
		ObjectKey: stored.Key,
		Checksum:  stored.Checksum,
	})
	if err != nil {
		return core.WrapError(err, goerrors.CategoryInternal, "marshal process message", map[string]any{
			"order_id": command.OrderID,
		})
	}
	if _, err := w.processes.Enqueue(ctx, body); err != nil {
		return core.WrapError(err, goerrors.CategoryOperation, "enqueue processing", map[string]any{
			"order_id": command.OrderID,
		})
	}

	w.metrics.ObserveHistogram(ctx, "download_duration_ms",
		float64(w.Now().Sub(start).Milliseconds()), map[string]string{"order_id": command.OrderID})
	w.metrics.IncCounter(ctx, "orders_downloaded", 1, nil)
	w.logger.Info("download complete", "order_id", command.OrderID, "key", stored.Key, "checksum", stored.Checksum)
	return nil
}
