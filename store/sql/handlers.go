package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func orderRecordHandlers() repository.ModelHandlers[*orderRecordModel] {
	return repository.ModelHandlers[*orderRecordModel]{
		NewRecord: func() *orderRecordModel {
			return &orderRecordModel{}
		},
		GetID: func(record *orderRecordModel) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.OrderID)
		},
		SetID: func(record *orderRecordModel, id uuid.UUID) {
			if record == nil {
				return
			}
			record.OrderID = id.String()
		},
		GetIdentifier: func() string {
			return "order_id"
		},
		GetIdentifierValue: func(record *orderRecordModel) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.OrderID)
		},
	}
}

func rawPayloadHandlers() repository.ModelHandlers[*rawPayloadModel] {
	return repository.ModelHandlers[*rawPayloadModel]{
		NewRecord: func() *rawPayloadModel {
			return &rawPayloadModel{}
		},
		GetID: func(record *rawPayloadModel) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ObjectKey)
		},
		SetID: func(record *rawPayloadModel, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ObjectKey = id.String()
		},
		GetIdentifier: func() string {
			return "object_key"
		},
		GetIdentifierValue: func(record *rawPayloadModel) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ObjectKey)
		},
	}
}

// Order ids are marketplace identifiers, not UUIDs. The repository handler
// contract still wants a UUID accessor, so non-UUID ids map to uuid.Nil and
// lookups go through the string identifier instead.
func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
