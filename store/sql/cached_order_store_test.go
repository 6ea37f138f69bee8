package sqlstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-order-ingest/core"
)

type stubOrderMetadataStore struct {
	mu       sync.Mutex
	record   core.OrderRecord
	getCalls int
	putCalls int
	getErr   error
	putErr   error
}

func (s *stubOrderMetadataStore) Put(_ context.Context, record core.OrderRecord) (core.OrderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putCalls++
	if s.putErr != nil {
		return core.OrderRecord{}, s.putErr
	}
	s.record = record
	return record, nil
}

func (s *stubOrderMetadataStore) Get(_ context.Context, _ string) (core.OrderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	if s.getErr != nil {
		return core.OrderRecord{}, s.getErr
	}
	return s.record, nil
}

func TestCachedOrderStore_Get_MissFetchThenHit(t *testing.T) {
	cacheService := newTestOrderCacheService(t)
	base := &stubOrderMetadataStore{
		record: core.OrderRecord{
			OrderID:   "QO-1",
			Status:    core.StatusDownloaded,
			RequestID: "req_1",
		},
	}

	store, err := NewCachedOrderStore(base, cacheService)
	if err != nil {
		t.Fatalf("new cached order store: %v", err)
	}

	if _, err := store.Get(context.Background(), "QO-1"); err != nil {
		t.Fatalf("first get: %v", err)
	}
	if base.getCalls != 1 {
		t.Fatalf("expected first get to fetch base store once, got %d", base.getCalls)
	}

	if _, err := store.Get(context.Background(), "QO-1"); err != nil {
		t.Fatalf("second get: %v", err)
	}
	if base.getCalls != 1 {
		t.Fatalf("expected second get to be cache hit, base get calls=%d", base.getCalls)
	}
}

func TestCachedOrderStore_Put_InvalidatesCachedRecord(t *testing.T) {
	cacheService := newTestOrderCacheService(t)
	base := &stubOrderMetadataStore{
		record: core.OrderRecord{
			OrderID: "QO-2",
			Status:  core.StatusNotified,
		},
	}

	store, err := NewCachedOrderStore(base, cacheService)
	if err != nil {
		t.Fatalf("new cached order store: %v", err)
	}

	if _, err := store.Get(context.Background(), "QO-2"); err != nil {
		t.Fatalf("prime cache with get: %v", err)
	}
	if base.getCalls != 1 {
		t.Fatalf("expected one base read after cache prime, got %d", base.getCalls)
	}

	if _, err := store.Put(context.Background(), core.OrderRecord{
		OrderID: "QO-2",
		Status:  core.StatusDownloaded,
	}); err != nil {
		t.Fatalf("put through cached store: %v", err)
	}
	if base.putCalls != 1 {
		t.Fatalf("expected base put call count=1, got %d", base.putCalls)
	}

	record, err := store.Get(context.Background(), "QO-2")
	if err != nil {
		t.Fatalf("get after put invalidation: %v", err)
	}
	if base.getCalls != 2 {
		t.Fatalf("expected invalidated key to force second base read, got %d", base.getCalls)
	}
	if record.Status != core.StatusDownloaded {
		t.Fatalf("expected refreshed status DOWNLOADED, got %q", record.Status)
	}
}

func TestOrderRecordCacheKey_Contract(t *testing.T) {
	key, err := OrderRecordCacheKey(" QO-1 ")
	if err != nil {
		t.Fatalf("build cache key: %v", err)
	}
	const expected = "order-ingest::order_record::v1::QO-1"
	if key != expected {
		t.Fatalf("unexpected cache key contract: got %q want %q", key, expected)
	}

	if _, err := OrderRecordCacheKey("  "); err == nil {
		t.Fatalf("expected empty order id to fail")
	}
}

func TestCachedOrderStore_PropagatesBaseErrors(t *testing.T) {
	cacheService := newTestOrderCacheService(t)
	base := &stubOrderMetadataStore{getErr: core.ErrOrderNotFound}
	store, err := NewCachedOrderStore(base, cacheService)
	if err != nil {
		t.Fatalf("new cached order store: %v", err)
	}

	_, err = store.Get(context.Background(), "QO-404")
	if !errors.Is(err, core.ErrOrderNotFound) {
		t.Fatalf("expected base error propagation, got %v", err)
	}
}

func newTestOrderCacheService(t *testing.T) repositorycache.CacheService {
	t.Helper()
	config := repositorycache.DefaultConfig()
	config.TTL = time.Minute
	service, err := repositorycache.NewCacheService(config)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	return service
}
