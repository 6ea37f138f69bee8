// Package query exposes read paths as typed go-command queries: remote
// marketplace reads through the qualia client and local reads against the
// pipeline metadata store.
package query

import (
	"strings"

	"github.com/goliatone/go-order-ingest/qualia"
)

const (
	TypeGetOrder         = "orders.query.order.get"
	TypeListOrders       = "orders.query.orders.list"
	TypeGetOrderRecord   = "orders.query.record.get"
	TypeListOrderRecords = "orders.query.records.list"
)

type GetOrderMessage struct {
	OrderID string
}

func (GetOrderMessage) Type() string { return TypeGetOrder }

func (m GetOrderMessage) Validate() error {
	if strings.TrimSpace(m.OrderID) == "" {
		return queryValidationError("order_id", "order id is required")
	}
	return nil
}

type ListOrdersMessage struct {
	Filter qualia.OrdersFilter
}

func (ListOrdersMessage) Type() string { return TypeListOrders }

func (m ListOrdersMessage) Validate() error {
	if m.Filter.Limit < 0 {
		return queryValidationError("limit", "limit must be >= 0")
	}
	if m.Filter.Offset < 0 {
		return queryValidationError("offset", "offset must be >= 0")
	}
	return nil
}

type GetOrderRecordMessage struct {
	OrderID string
}

func (GetOrderRecordMessage) Type() string { return TypeGetOrderRecord }

func (m GetOrderRecordMessage) Validate() error {
	if strings.TrimSpace(m.OrderID) == "" {
		return queryValidationError("order_id", "order id is required")
	}
	return nil
}

type ListOrderRecordsMessage struct{}

func (ListOrderRecordsMessage) Type() string { return TypeListOrderRecords }

func (ListOrderRecordsMessage) Validate() error { return nil }
