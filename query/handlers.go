package query

import (
	"context"

	"github.com/goliatone/go-order-ingest/core"
	"github.com/goliatone/go-order-ingest/qualia"
)

// MarketplaceReader is the subset of the marketplace client the remote
// queries need.
type MarketplaceReader interface {
	GetOrder(ctx context.Context, orderID string) (qualia.OrderEnvelope, error)
	GetOrders(ctx context.Context, filter qualia.OrdersFilter) ([]core.RawOrder, error)
}

// RecordReader reads locally tracked pipeline state.
type RecordReader interface {
	Get(ctx context.Context, orderID string) (core.OrderRecord, error)
}

// RecordLister enumerates locally tracked pipeline state.
type RecordLister interface {
	List(ctx context.Context) ([]core.OrderRecord, error)
}

type GetOrderQuery struct {
	reader MarketplaceReader
}

func NewGetOrderQuery(reader MarketplaceReader) *GetOrderQuery {
	return &GetOrderQuery{reader: reader}
}

func (q *GetOrderQuery) Query(ctx context.Context, msg GetOrderMessage) (qualia.OrderEnvelope, error) {
	if q == nil || q.reader == nil {
		return qualia.OrderEnvelope{}, queryDependencyError("query: marketplace reader is required")
	}
	return q.reader.GetOrder(ctx, msg.OrderID)
}

type ListOrdersQuery struct {
	reader MarketplaceReader
}

func NewListOrdersQuery(reader MarketplaceReader) *ListOrdersQuery {
	return &ListOrdersQuery{reader: reader}
}

func (q *ListOrdersQuery) Query(ctx context.Context, msg ListOrdersMessage) ([]core.RawOrder, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: marketplace reader is required")
	}
	return q.reader.GetOrders(ctx, msg.Filter)
}

type GetOrderRecordQuery struct {
	reader RecordReader
}

func NewGetOrderRecordQuery(reader RecordReader) *GetOrderRecordQuery {
	return &GetOrderRecordQuery{reader: reader}
}

func (q *GetOrderRecordQuery) Query(ctx context.Context, msg GetOrderRecordMessage) (core.OrderRecord, error) {
	if q == nil || q.reader == nil {
		return core.OrderRecord{}, queryDependencyError("query: record reader is required")
	}
	return q.reader.Get(ctx, msg.OrderID)
}

type ListOrderRecordsQuery struct {
	lister RecordLister
}

func NewListOrderRecordsQuery(lister RecordLister) *ListOrderRecordsQuery {
	return &ListOrderRecordsQuery{lister: lister}
}

func (q *ListOrderRecordsQuery) Query(ctx context.Context, _ ListOrderRecordsMessage) ([]core.OrderRecord, error) {
	if q == nil || q.lister == nil {
		return nil, queryDependencyError("query: record lister is required")
	}
	return q.lister.List(ctx)
}
