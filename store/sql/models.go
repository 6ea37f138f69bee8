package sqlstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-order-ingest/core"
)

type orderRecordModel struct {
	bun.BaseModel `bun:"table:order_records,alias:orr"`

	OrderID       string     `bun:"order_id,pk"`
	Status        string     `bun:"status,notnull"`
	StatusRank    int        `bun:"status_rank,notnull"`
	RequestID     string     `bun:"request_id"`
	NotifiedAt    string     `bun:"notified_at"`
	ObjectKey     string     `bun:"object_key"`
	Checksum      string     `bun:"checksum"`
	DownloadedAt  *time.Time `bun:"downloaded_at,nullzero"`
	ProcessedAt   *time.Time `bun:"processed_at,nullzero"`
	FailedAt      *time.Time `bun:"failed_at,nullzero"`
	APIStatusCode int        `bun:"api_status_code"`
	Error         string     `bun:"error"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func newOrderRecordModel(record core.OrderRecord) *orderRecordModel {
	return &orderRecordModel{
		OrderID:       record.OrderID,
		Status:        string(record.Status),
		StatusRank:    record.Status.Rank(),
		RequestID:     record.RequestID,
		NotifiedAt:    record.NotifiedAt,
		ObjectKey:     record.ObjectKey,
		Checksum:      record.Checksum,
		DownloadedAt:  record.DownloadedAt,
		ProcessedAt:   record.ProcessedAt,
		FailedAt:      record.FailedAt,
		APIStatusCode: record.APIStatusCode,
		Error:         record.Error,
		UpdatedAt:     record.UpdatedAt,
	}
}

func (m *orderRecordModel) toDomain() core.OrderRecord {
	if m == nil {
		return core.OrderRecord{}
	}
	return core.OrderRecord{
		OrderID:       m.OrderID,
		Status:        core.OrderStatus(m.Status),
		RequestID:     m.RequestID,
		NotifiedAt:    m.NotifiedAt,
		ObjectKey:     m.ObjectKey,
		Checksum:      m.Checksum,
		DownloadedAt:  m.DownloadedAt,
		ProcessedAt:   m.ProcessedAt,
		FailedAt:      m.FailedAt,
		APIStatusCode: m.APIStatusCode,
		Error:         m.Error,
		UpdatedAt:     m.UpdatedAt,
	}
}

type rawPayloadModel struct {
	bun.BaseModel `bun:"table:raw_payloads,alias:rp"`

	ObjectKey   string    `bun:"object_key,pk"`
	OrderID     string    `bun:"order_id,notnull"`
	Body        []byte    `bun:"body,notnull"`
	Checksum    string    `bun:"checksum,notnull"`
	ContentType string    `bun:"content_type,notnull"`
	Size        int64     `bun:"size,notnull"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func (m *rawPayloadModel) toStoredObject() core.StoredObject {
	if m == nil {
		return core.StoredObject{}
	}
	body := make([]byte, len(m.Body))
	copy(body, m.Body)
	return core.StoredObject{
		Key:         m.ObjectKey,
		Body:        body,
		Checksum:    m.Checksum,
		ContentType: m.ContentType,
		Size:        m.Size,
		CreatedAt:   m.CreatedAt,
	}
}
