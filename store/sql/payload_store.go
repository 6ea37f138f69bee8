package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-order-ingest/core"
)

// PayloadStore is the claim-check store: raw marketplace payloads keyed by
// their content-addressed object key. Writes to an existing key are no-ops
// so redelivered downloads never churn a stored payload.
type PayloadStore struct {
	db   *bun.DB
	repo repository.Repository[*rawPayloadModel]

	Now func() time.Time
}

func NewPayloadStore(db *bun.DB) (*PayloadStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*rawPayloadModel](db, rawPayloadHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid raw payload repository wiring: %w", err)
		}
	}
	return &PayloadStore{
		db:   db,
		repo: repo,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

func (s *PayloadStore) Put(ctx context.Context, key string, body []byte, contentType string) (core.StoredObject, error) {
	if s == nil || s.db == nil {
		return core.StoredObject{}, fmt.Errorf("sqlstore: payload store is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return core.StoredObject{}, core.NewError("object key is required", goerrors.CategoryBadInput, nil)
	}
	if len(body) == 0 {
		return core.StoredObject{}, core.NewError("object body is required", goerrors.CategoryBadInput, nil)
	}

	model := &rawPayloadModel{
		ObjectKey:   key,
		OrderID:     orderIDFromObjectKey(key),
		Body:        body,
		Checksum:    core.PayloadChecksum(body),
		ContentType: contentType,
		Size:        int64(len(body)),
		CreatedAt:   s.now(),
	}
	if _, err := s.db.NewInsert().
		Model(model).
		On("CONFLICT (object_key) DO NOTHING").
		Exec(ctx); err != nil {
		return core.StoredObject{}, core.WrapError(err, goerrors.CategoryOperation, "persist raw payload", map[string]any{
			"key": key,
		})
	}
	// The stored row wins on replay so callers always see the original
	// payload metadata.
	return s.Get(ctx, key)
}

func (s *PayloadStore) Get(ctx context.Context, key string) (core.StoredObject, error) {
	if s == nil || s.db == nil {
		return core.StoredObject{}, fmt.Errorf("sqlstore: payload store is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return core.StoredObject{}, core.NewError("object key is required", goerrors.CategoryBadInput, nil)
	}
	model := &rawPayloadModel{}
	err := s.db.NewSelect().
		Model(model).
		Where("?TableAlias.object_key = ?", key).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.StoredObject{}, core.ErrObjectNotFound
		}
		return core.StoredObject{}, err
	}
	return model.toStoredObject(), nil
}

func (s *PayloadStore) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// orderIDFromObjectKey extracts the order id from the canonical
// orders/<order_id>/<checksum>/raw.json key layout.
func orderIDFromObjectKey(key string) string {
	parts := strings.Split(key, "/")
	if len(parts) >= 2 && parts[0] == "orders" {
		return parts[1]
	}
	return ""
}
