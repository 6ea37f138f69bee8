package orderingest

import "github.com/goliatone/go-order-ingest/core"

type Config = core.Config

type MarketplaceConfig = core.MarketplaceConfig
type InternalAPIConfig = core.InternalAPIConfig
type WebhookConfig = core.WebhookConfig
type QueueConfig = core.QueueConfig

type OrderRecord = core.OrderRecord
type OrderStatus = core.OrderStatus
type StoredObject = core.StoredObject
type RawOrder = core.RawOrder

type MetadataStore = core.MetadataStore
type MetadataLister = core.MetadataLister
type ObjectStore = core.ObjectStore
type Logger = core.Logger
type MetricsRecorder = core.MetricsRecorder

type ConfigProvider = core.ConfigProvider
type OptionsResolver = core.OptionsResolver
type StaticRawConfigLoader = core.StaticRawConfigLoader

const (
	StatusNotified   = core.StatusNotified
	StatusDownloaded = core.StatusDownloaded
	StatusFailed     = core.StatusFailed
	StatusProcessed  = core.StatusProcessed
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}
