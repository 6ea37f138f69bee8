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

// OrderStore persists order pipeline metadata in the order_records table.
// Writes go through a transaction that applies the monotonic status guard:
// an update whose status ranks below the stored status is ignored and the
// stored record is returned unchanged.
type OrderStore struct {
	db   *bun.DB
	repo repository.Repository[*orderRecordModel]

	Now func() time.Time
}

func NewOrderStore(db *bun.DB) (*OrderStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*orderRecordModel](db, orderRecordHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid order record repository wiring: %w", err)
		}
	}
	return &OrderStore{
		db:   db,
		repo: repo,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}, nil
}

func (s *OrderStore) Put(ctx context.Context, record core.OrderRecord) (core.OrderRecord, error) {
	if s == nil || s.db == nil {
		return core.OrderRecord{}, fmt.Errorf("sqlstore: order store is not configured")
	}
	record.OrderID = strings.TrimSpace(record.OrderID)
	if record.OrderID == "" {
		return core.OrderRecord{}, core.NewError("order id is required", goerrors.CategoryBadInput, nil)
	}
	if !record.Status.Valid() {
		return core.OrderRecord{}, core.NewError(fmt.Sprintf("invalid order status %q", record.Status), goerrors.CategoryBadInput, nil)
	}

	var saved core.OrderRecord
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing := &orderRecordModel{}
		selectErr := tx.NewSelect().
			Model(existing).
			Where("?TableAlias.order_id = ?", record.OrderID).
			Limit(1).
			Scan(ctx)
		switch {
		case selectErr == nil:
			current := existing.toDomain()
			if record.Status.Rank() < current.Status.Rank() {
				saved = current
				return nil
			}
			record = core.MergeOrderRecord(current, record)
		case errors.Is(selectErr, sql.ErrNoRows):
		default:
			return selectErr
		}

		record.UpdatedAt = s.now()
		model := newOrderRecordModel(record)
		if _, insertErr := tx.NewInsert().
			Model(model).
			On("CONFLICT (order_id) DO UPDATE").
			Set("status = EXCLUDED.status").
			Set("status_rank = EXCLUDED.status_rank").
			Set("request_id = EXCLUDED.request_id").
			Set("notified_at = EXCLUDED.notified_at").
			Set("object_key = EXCLUDED.object_key").
			Set("checksum = EXCLUDED.checksum").
			Set("downloaded_at = EXCLUDED.downloaded_at").
			Set("processed_at = EXCLUDED.processed_at").
			Set("failed_at = EXCLUDED.failed_at").
			Set("api_status_code = EXCLUDED.api_status_code").
			Set("error = EXCLUDED.error").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx); insertErr != nil {
			return insertErr
		}
		saved = record
		return nil
	})
	if err != nil {
		return core.OrderRecord{}, core.WrapError(err, goerrors.CategoryOperation, "persist order record", map[string]any{
			"order_id": record.OrderID,
			"status":   string(record.Status),
		})
	}
	return saved, nil
}

func (s *OrderStore) Get(ctx context.Context, orderID string) (core.OrderRecord, error) {
	if s == nil || s.db == nil {
		return core.OrderRecord{}, fmt.Errorf("sqlstore: order store is not configured")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return core.OrderRecord{}, core.NewError("order id is required", goerrors.CategoryBadInput, nil)
	}
	model := &orderRecordModel{}
	err := s.db.NewSelect().
		Model(model).
		Where("?TableAlias.order_id = ?", orderID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.OrderRecord{}, core.ErrOrderNotFound
		}
		return core.OrderRecord{}, err
	}
	return model.toDomain(), nil
}

func (s *OrderStore) List(ctx context.Context) ([]core.OrderRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: order store is not configured")
	}
	var models []*orderRecordModel
	err := s.db.NewSelect().
		Model(&models).
		Order("order_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]core.OrderRecord, 0, len(models))
	for _, model := range models {
		out = append(out, model.toDomain())
	}
	return out, nil
}

func (s *OrderStore) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
