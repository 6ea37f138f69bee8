package core

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// OrderStatus is the pipeline lifecycle status recorded for an order.
type OrderStatus string

const (
	StatusNotified   OrderStatus = "NOTIFIED"
	StatusDownloaded OrderStatus = "DOWNLOADED"
	StatusProcessed  OrderStatus = "PROCESSED"
	StatusFailed     OrderStatus = "FAILED"
)

// NotificationTypeOrderCreated is the only inbound notification type the
// receiver accepts.
const NotificationTypeOrderCreated = "order.created"

// orderIDPrefix is the marketplace order identifier prefix.
const orderIDPrefix = "QO-"

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusNotified, StatusDownloaded, StatusProcessed, StatusFailed:
		return true
	}
	return false
}

// Rank orders statuses for the stale-write guard. FAILED ranks below
// PROCESSED so a late FAILED write from a duplicate delivery cannot mask
// a completed order, while a later successful redelivery may still move a
// FAILED order forward.
func (s OrderStatus) Rank() int {
	switch s {
	case StatusNotified:
		return 1
	case StatusDownloaded:
		return 2
	case StatusFailed:
		return 3
	case StatusProcessed:
		return 4
	}
	return 0
}

// OrderRecord is the metadata-store record for a single order. Each write
// replaces the latest record for that order; callers carry forward the
// stage attributes they want preserved.
type OrderRecord struct {
	OrderID       string
	Status        OrderStatus
	RequestID     string
	NotifiedAt    string
	ObjectKey     string
	Checksum      string
	DownloadedAt  *time.Time
	ProcessedAt   *time.Time
	APIStatusCode int
	FailedAt      *time.Time
	Error         string
	UpdatedAt     time.Time
}

// Notification is the inbound webhook body from the marketplace.
type Notification struct {
	OrderID          string `json:"order_id"`
	NotificationType string `json:"notification_type"`
	Timestamp        string `json:"timestamp"`
}

func (n Notification) Validate() error {
	orderID := strings.TrimSpace(n.OrderID)
	if !strings.HasPrefix(orderID, orderIDPrefix) {
		return fmt.Errorf("core: order id must start with %q", orderIDPrefix)
	}
	if len(orderID) <= len(orderIDPrefix) {
		return fmt.Errorf("core: order id must have content after the %q prefix", orderIDPrefix)
	}
	if n.NotificationType != NotificationTypeOrderCreated {
		return fmt.Errorf("core: unsupported notification type %q", n.NotificationType)
	}
	if _, err := ParseEventTime(n.Timestamp); err != nil {
		return err
	}
	return nil
}

// ParseEventTime parses the ISO-8601 timestamps the marketplace sends.
func ParseEventTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("core: timestamp is required")
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("core: timestamp must be ISO-8601: %w", err)
	}
	return parsed.UTC(), nil
}

// DownloadMessage is the download-queue wire shape, produced once per
// accepted notification.
type DownloadMessage struct {
	OrderID    string `json:"order_id"`
	NotifiedAt string `json:"notified_at"`
}

func (m DownloadMessage) Validate() error {
	if strings.TrimSpace(m.OrderID) == "" {
		return fmt.Errorf("core: download message order id is required")
	}
	return nil
}

// ProcessMessage is the process-queue wire shape, produced once per
// successful download. The object key is the claim check; the payload
// itself never rides the queue.
type ProcessMessage struct {
	OrderID   string `json:"order_id"`
	ObjectKey string `json:"s3_key"`
	Checksum  string `json:"checksum,omitempty"`
}

func (m ProcessMessage) Validate() error {
	if strings.TrimSpace(m.OrderID) == "" {
		return fmt.Errorf("core: process message order id is required")
	}
	if strings.TrimSpace(m.ObjectKey) == "" {
		return fmt.Errorf("core: process message object key is required")
	}
	return nil
}

// RawPayload is the serialized order body fetched from the marketplace.
type RawPayload struct {
	OrderID   string
	Body      []byte
	FetchedAt time.Time
}

// OrderProperty is one property entry on a marketplace order.
type OrderProperty struct {
	Address1    string `json:"address_1,omitempty"`
	Address2    string `json:"address_2,omitempty"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
	Zipcode     string `json:"zipcode,omitempty"`
	County      string `json:"county,omitempty"`
	FlatAddress string `json:"flat_address,omitempty"`
}

// RawOrder is the marketplace order representation. Known fields are
// typed; everything else the remote sends lands in Extra so unknown
// fields are an explicit passthrough bag rather than silent loss.
type RawOrder struct {
	ID           string          `json:"_id,omitempty"`
	OrderNumber  string          `json:"order_number,omitempty"`
	Vertical     string          `json:"vertical,omitempty"`
	ProductType  string          `json:"product_type,omitempty"`
	ProductName  string          `json:"product_name,omitempty"`
	Status       string          `json:"status,omitempty"`
	CustomerID   string          `json:"customer_id,omitempty"`
	CustomerName string          `json:"customer_name,omitempty"`
	DueDate      string          `json:"due_date,omitempty"`
	Properties   []OrderProperty `json:"properties,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var rawOrderKnownKeys = map[string]struct{}{
	"_id":           {},
	"order_number":  {},
	"vertical":      {},
	"product_type":  {},
	"product_name":  {},
	"status":        {},
	"customer_id":   {},
	"customer_name": {},
	"due_date":      {},
	"properties":    {},
}

func (o *RawOrder) UnmarshalJSON(data []byte) error {
	type alias RawOrder
	var known alias
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for key := range rawOrderKnownKeys {
		delete(fields, key)
	}
	*o = RawOrder(known)
	if len(fields) > 0 {
		o.Extra = fields
	}
	return nil
}

// PayloadChecksum is the content hash recorded with every stored payload.
func PayloadChecksum(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// PayloadObjectKey derives the object-store key for an order payload from
// the order id and the payload hash, so duplicate downloads of identical
// content converge on one object.
func PayloadObjectKey(orderID string, checksum string) string {
	orderID = strings.TrimSpace(orderID)
	checksum = strings.TrimSpace(checksum)
	short := checksum
	if len(short) > 12 {
		short = short[:12]
	}
	return "orders/" + orderID + "/" + short + "/raw.json"
}
