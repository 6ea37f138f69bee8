package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"

	"github.com/goliatone/go-order-ingest/core"
)

const orderRecordCacheKeyPrefix = "order-ingest::order_record::v1"

// CachedOrderStore layers a read cache over a metadata store. Writes go
// through to the base store and invalidate the cached record so the next
// read reflects the latest status transition.
type CachedOrderStore struct {
	base  core.MetadataStore
	cache repositorycache.CacheService
}

func NewCachedOrderStore(
	base core.MetadataStore,
	cacheService repositorycache.CacheService,
) (*CachedOrderStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base order store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: order cache service is required")
	}
	return &CachedOrderStore{base: base, cache: cacheService}, nil
}

// OrderRecordCacheKey returns the deterministic cache key contract for
// order record reads: order-ingest::order_record::v1::<order_id> with the
// id segment URL-path escaped after trimming.
func OrderRecordCacheKey(orderID string) (string, error) {
	trimmed := strings.TrimSpace(orderID)
	if trimmed == "" {
		return "", fmt.Errorf("sqlstore: order id is required for cache key")
	}
	return orderRecordCacheKeyPrefix + "::" + url.PathEscape(trimmed), nil
}

func (s *CachedOrderStore) Put(ctx context.Context, record core.OrderRecord) (core.OrderRecord, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.OrderRecord{}, fmt.Errorf("sqlstore: cached order store is not configured")
	}
	saved, err := s.base.Put(ctx, record)
	if err != nil {
		return core.OrderRecord{}, err
	}
	cacheKey, err := OrderRecordCacheKey(saved.OrderID)
	if err != nil {
		return core.OrderRecord{}, err
	}
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		return core.OrderRecord{}, err
	}
	return saved, nil
}

func (s *CachedOrderStore) Get(ctx context.Context, orderID string) (core.OrderRecord, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.OrderRecord{}, fmt.Errorf("sqlstore: cached order store is not configured")
	}
	cacheKey, err := OrderRecordCacheKey(orderID)
	if err != nil {
		return core.OrderRecord{}, err
	}
	record, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.OrderRecord, error) {
		return s.base.Get(ctx, strings.TrimSpace(orderID))
	})
	if err != nil {
		return core.OrderRecord{}, err
	}
	return record, nil
}

var _ core.MetadataStore = (*CachedOrderStore)(nil)
