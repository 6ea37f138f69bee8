package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-order-ingest/core"
	"github.com/goliatone/go-order-ingest/qualia"
)

var (
	_ gocmd.Querier[GetOrderMessage, qualia.OrderEnvelope]       = (*GetOrderQuery)(nil)
	_ gocmd.Querier[ListOrdersMessage, []core.RawOrder]          = (*ListOrdersQuery)(nil)
	_ gocmd.Querier[GetOrderRecordMessage, core.OrderRecord]     = (*GetOrderRecordQuery)(nil)
	_ gocmd.Querier[ListOrderRecordsMessage, []core.OrderRecord] = (*ListOrderRecordsQuery)(nil)
)
