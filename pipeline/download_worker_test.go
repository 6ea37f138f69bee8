package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/goliatone/go-order-ingest/core"
	"github.com/goliatone/go-order-ingest/queue"
)

type stubDownloader struct {
	payloads map[string][]byte
	err      error
	calls    int
}

func (d *stubDownloader) DownloadOrder(_ context.Context, orderID string) ([]byte, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	payload, ok := d.payloads[orderID]
	if !ok {
		return nil, core.ErrOrderNotFound
	}
	return payload, nil
}

func downloadMessageBody(t *testing.T, orderID string) []byte {
	t.Helper()
	body, err := json.Marshal(core.DownloadMessage{OrderID: orderID, NotifiedAt: "2026-01-15T10:30:00Z"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return body
}

func TestDownloadWorker_HappyPath(t *testing.T) {
	ctx := context.Background()
	payload := []byte(`{"order_number":"QO-1","vertical":"title","properties":[{"state":"CA"}]}`)
	downloader := &stubDownloader{payloads: map[string][]byte{"QO-1": payload}}
	objects := core.NewMemoryObjectStore()
	metadata := core.NewMemoryMetadataStore()
	processes := queue.NewMemoryQueue("process")
	worker := NewDownloadWorker(downloader, objects, metadata, processes)

	err := worker.Handle(ctx, core.QueueMessage{ID: "m1", Body: downloadMessageBody(t, "QO-1"), ReceiveCount: 1})
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	record, err := metadata.Get(ctx, "QO-1")
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if record.Status != core.StatusDownloaded {
		t.Fatalf("expected DOWNLOADED, got %q", record.Status)
	}
	wantChecksum := core.PayloadChecksum(payload)
	if record.Checksum != wantChecksum {
		t.Fatalf("expected checksum recorded, got %q", record.Checksum)
	}
	wantKey := core.PayloadObjectKey("QO-1", wantChecksum)
	if record.ObjectKey != wantKey {
		t.Fatalf("expected object key %q, got %q", wantKey, record.ObjectKey)
	}
	if record.DownloadedAt == nil {
		t.Fatalf("expected downloaded_at stamped")
	}

	stored, err := objects.Get(ctx, wantKey)
	if err != nil {
		t.Fatalf("object get: %v", err)
	}
	if string(stored.Body) != string(payload) {
		t.Fatalf("expected payload stored verbatim")
	}

	delivery, err := processes.Dequeue(ctx)
	if err != nil {
		t.Fatalf("dequeue process: %v", err)
	}
	var msg core.ProcessMessage
	if err := json.Unmarshal(delivery.Message().Body, &msg); err != nil {
		t.Fatalf("decode process message: %v", err)
	}
	if msg.OrderID != "QO-1" || msg.ObjectKey != wantKey || msg.Checksum != wantChecksum {
		t.Fatalf("unexpected process message %+v", msg)
	}
}

func TestDownloadWorker_RedeliveryIsIdempotent(t *testing.T) {
	ctx := context.Background()
	payload := []byte(`{"order_number":"QO-1"}`)
	downloader := &stubDownloader{payloads: map[string][]byte{"QO-1": payload}}
	objects := core.NewMemoryObjectStore()
	metadata := core.NewMemoryMetadataStore()
	processes := queue.NewMemoryQueue("process")
	worker := NewDownloadWorker(downloader, objects, metadata, processes)

	body := downloadMessageBody(t, "QO-1")
	if err := worker.Handle(ctx, core.QueueMessage{ID: "m1", Body: body, ReceiveCount: 1}); err != nil {
		t.Fatalf("first handle: %v", err)
	}
	if err := worker.Handle(ctx, core.QueueMessage{ID: "m1", Body: body, ReceiveCount: 2}); err != nil {
		t.Fatalf("redelivered handle: %v", err)
	}

	// Identical content converges on one object key; the process queue sees
	// two messages but processing is idempotent downstream.
	record, _ := metadata.Get(ctx, "QO-1")
	if record.Status != core.StatusDownloaded {
		t.Fatalf("expected DOWNLOADED, got %q", record.Status)
	}
	if processes.Len() != 2 {
		t.Fatalf("expected both deliveries to enqueue, got %d", processes.Len())
	}
}

func TestDownloadWorker_DownloadFailurePropagates(t *testing.T) {
	ctx := context.Background()
	downloader := &stubDownloader{err: errors.New("remote unavailable")}
	metadata := core.NewMemoryMetadataStore()
	processes := queue.NewMemoryQueue("process")
	worker := NewDownloadWorker(downloader, core.NewMemoryObjectStore(), metadata, processes)

	err := worker.Handle(ctx, core.QueueMessage{ID: "m1", Body: downloadMessageBody(t, "QO-1"), ReceiveCount: 1})
	if err == nil {
		t.Fatalf("expected download error to propagate")
	}
	if processes.Len() != 0 {
		t.Fatalf("failed download must not enqueue processing")
	}
	if _, err := metadata.Get(ctx, "QO-1"); err == nil {
		t.Fatalf("failed download must not mark the order downloaded")
	}
}

func TestDownloadWorker_MalformedMessage(t *testing.T) {
	worker := NewDownloadWorker(&stubDownloader{}, core.NewMemoryObjectStore(), core.NewMemoryMetadataStore(), queue.NewMemoryQueue("process"))

	if err := worker.Handle(context.Background(), core.QueueMessage{ID: "m1", Body: []byte("{not json")}); err == nil {
		t.Fatalf("expected decode error")
	}
	if err := worker.Handle(context.Background(), core.QueueMessage{ID: "m2", Body: []byte(`{"order_id":""}`)}); err == nil {
		t.Fatalf("expected validation error")
	}
}
