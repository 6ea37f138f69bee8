// Package transform maps marketplace order payloads into the internal
// order-intake API shape.
package transform

import (
	"strings"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-order-ingest/core"
)

// SourceQualiaMarketplace tags every transformed order with its origin.
const SourceQualiaMarketplace = "QUALIA_MARKETPLACE"

// InternalState is the two-part state block the intake API expects.
type InternalState struct {
	StateCode string `json:"stateCode"`
	StateName string `json:"stateName"`
}

type InternalAddress struct {
	AddressLine1 string `json:"addressLine1,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	Zip          string `json:"zip,omitempty"`
}

type InternalProperty struct {
	Address InternalAddress `json:"address"`
}

type InternalAgency struct {
	AgencyName string `json:"agencyName"`
}

// InternalOrder is the intake API request body. Optional fields carry
// omitempty so absent marketplace values do not appear as empty keys.
type InternalOrder struct {
	ExternalOrderID string             `json:"externalOrderId,omitempty"`
	ProductCategory string             `json:"productCategory"`
	ProductType     string             `json:"productType,omitempty"`
	Source          string             `json:"source"`
	State           InternalState      `json:"state"`
	Properties      []InternalProperty `json:"properties"`
	Agency          InternalAgency     `json:"agency"`
	DueDate         string             `json:"dueDate,omitempty"`
	Notes           string             `json:"notes"`
}

// Adapter converts marketplace orders into intake API orders. The state
// lookup falls back to an empty name for codes outside the USPS table.
type Adapter struct {
	logger core.Logger
}

type Option func(*Adapter)

func WithLogger(logger core.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func New(opts ...Option) *Adapter {
	_, logger := glog.Resolve("transform", nil, nil)
	adapter := &Adapter{logger: logger}
	for _, opt := range opts {
		opt(adapter)
	}
	return adapter
}

// Transform maps one marketplace order. The first property supplies the
// top-level state block; the vertical is uppercased into the product
// category.
func (a *Adapter) Transform(order core.RawOrder) InternalOrder {
	a.logger.Debug("transforming order", "order_number", order.OrderNumber)

	internal := InternalOrder{
		ExternalOrderID: order.OrderNumber,
		ProductCategory: strings.ToUpper(order.Vertical),
		ProductType:     order.ProductType,
		Source:          SourceQualiaMarketplace,
		State:           a.extractState(order),
		Properties:      extractProperties(order),
		Agency:          InternalAgency{AgencyName: order.CustomerName},
		DueDate:         order.DueDate,
	}
	return internal
}

func (a *Adapter) extractState(order core.RawOrder) InternalState {
	if len(order.Properties) == 0 {
		return InternalState{}
	}
	code := order.Properties[0].State
	return InternalState{StateCode: code, StateName: a.stateName(code)}
}

func (a *Adapter) stateName(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	name, ok := stateNames[code]
	if !ok {
		a.logger.Warn("unknown state code", "state_code", code)
	}
	return name
}

func extractProperties(order core.RawOrder) []InternalProperty {
	out := make([]InternalProperty, 0, len(order.Properties))
	for _, p := range order.Properties {
		out = append(out, InternalProperty{Address: InternalAddress{
			AddressLine1: p.Address1,
			City:         p.City,
			State:        p.State,
			Zip:          p.Zipcode,
		}})
	}
	return out
}
