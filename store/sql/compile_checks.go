package sqlstore

import "github.com/goliatone/go-order-ingest/core"

var (
	_ core.MetadataStore  = (*OrderStore)(nil)
	_ core.MetadataLister = (*OrderStore)(nil)
	_ core.ObjectStore    = (*PayloadStore)(nil)
	_ core.MetadataStore  = (*CachedOrderStore)(nil)
)
