package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// MemoryMetadataStore keeps order records in process memory. It applies the
// same monotonic status guard the SQL store applies: a write whose status
// ranks below the stored status leaves the record untouched.
type MemoryMetadataStore struct {
	mu      sync.Mutex
	records map[string]OrderRecord
	Now     func() time.Time
}

func NewMemoryMetadataStore() *MemoryMetadataStore {
	return &MemoryMetadataStore{
		records: map[string]OrderRecord{},
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (s *MemoryMetadataStore) Put(_ context.Context, record OrderRecord) (OrderRecord, error) {
	if s == nil {
		return OrderRecord{}, fmt.Errorf("core: metadata store is not configured")
	}
	record.OrderID = strings.TrimSpace(record.OrderID)
	if record.OrderID == "" {
		return OrderRecord{}, NewError("order id is required", goerrors.CategoryBadInput, nil)
	}
	if !record.Status.Valid() {
		return OrderRecord{}, NewError(fmt.Sprintf("invalid order status %q", record.Status), goerrors.CategoryBadInput, nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[record.OrderID]; ok {
		if record.Status.Rank() < existing.Status.Rank() {
			return existing, nil
		}
		record = MergeOrderRecord(existing, record)
	}
	record.UpdatedAt = s.now()
	s.records[record.OrderID] = record
	return record, nil
}

func (s *MemoryMetadataStore) Get(_ context.Context, orderID string) (OrderRecord, error) {
	if s == nil {
		return OrderRecord{}, fmt.Errorf("core: metadata store is not configured")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return OrderRecord{}, NewError("order id is required", goerrors.CategoryBadInput, nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[orderID]
	if !ok {
		return OrderRecord{}, ErrOrderNotFound
	}
	return record, nil
}

func (s *MemoryMetadataStore) List(_ context.Context) ([]OrderRecord, error) {
	if s == nil {
		return nil, fmt.Errorf("core: metadata store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]OrderRecord, 0, len(s.records))
	for _, record := range s.records {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OrderID < out[j].OrderID
	})
	return out, nil
}

func (s *MemoryMetadataStore) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// MergeOrderRecord carries forward fields the incoming write did not set so a
// later status transition does not erase earlier stage markers. Every metadata
// store applies it after the status rank guard admits the write.
func MergeOrderRecord(existing, incoming OrderRecord) OrderRecord {
	if strings.TrimSpace(incoming.RequestID) == "" {
		incoming.RequestID = existing.RequestID
	}
	if strings.TrimSpace(incoming.NotifiedAt) == "" {
		incoming.NotifiedAt = existing.NotifiedAt
	}
	if strings.TrimSpace(incoming.ObjectKey) == "" {
		incoming.ObjectKey = existing.ObjectKey
	}
	if strings.TrimSpace(incoming.Checksum) == "" {
		incoming.Checksum = existing.Checksum
	}
	if incoming.DownloadedAt == nil {
		incoming.DownloadedAt = existing.DownloadedAt
	}
	if incoming.ProcessedAt == nil {
		incoming.ProcessedAt = existing.ProcessedAt
	}
	if incoming.FailedAt == nil {
		incoming.FailedAt = existing.FailedAt
	}
	if incoming.APIStatusCode == 0 {
		incoming.APIStatusCode = existing.APIStatusCode
	}
	if incoming.Status == StatusProcessed {
		incoming.Error = ""
	} else if strings.TrimSpace(incoming.Error) == "" {
		incoming.Error = existing.Error
	}
	return incoming
}

// MemoryObjectStore is a claim-check object store backed by a map. Writes to
// an existing key are idempotent no-ops so redelivered downloads do not churn
// stored payloads.
type MemoryObjectStore struct {
	mu      sync.Mutex
	objects map[string]StoredObject
	Now     func() time.Time
}

func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{
		objects: map[string]StoredObject{},
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (s *MemoryObjectStore) Put(_ context.Context, key string, body []byte, contentType string) (StoredObject, error) {
	if s == nil {
		return StoredObject{}, fmt.Errorf("core: object store is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return StoredObject{}, NewError("object key is required", goerrors.CategoryBadInput, nil)
	}
	if len(body) == 0 {
		return StoredObject{}, NewError("object body is required", goerrors.CategoryBadInput, nil)
	}
	data := make([]byte, len(body))
	copy(data, body)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.objects[key]; ok {
		return existing, nil
	}
	obj := StoredObject{
		Key:         key,
		Body:        data,
		Checksum:    PayloadChecksum(data),
		ContentType: contentType,
		Size:        int64(len(data)),
		CreatedAt:   s.Now(),
	}
	s.objects[key] = obj
	return obj, nil
}

func (s *MemoryObjectStore) Get(_ context.Context, key string) (StoredObject, error) {
	if s == nil {
		return StoredObject{}, fmt.Errorf("core: object store is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return StoredObject{}, NewError("object key is required", goerrors.CategoryBadInput, nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	if !ok {
		return StoredObject{}, ErrObjectNotFound
	}
	copyBody := make([]byte, len(obj.Body))
	copy(copyBody, obj.Body)
	obj.Body = copyBody
	return obj, nil
}
