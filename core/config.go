package core

import (
	"fmt"
	"strings"
)

type MarketplaceConfig struct {
	BaseURL    string `koanf:"base_url" mapstructure:"base_url"`
	GraphQLURL string `koanf:"graphql_url" mapstructure:"graphql_url"`
	Credential string `koanf:"credential" mapstructure:"credential"`
	MaxRetries int    `koanf:"max_retries" mapstructure:"max_retries"`
}

type InternalAPIConfig struct {
	URL   string `koanf:"url" mapstructure:"url"`
	Token string `koanf:"token" mapstructure:"token"`
}

type WebhookConfig struct {
	Username string `koanf:"username" mapstructure:"username"`
	Password string `koanf:"password" mapstructure:"password"`
}

type QueueConfig struct {
	DownloadQueue string `koanf:"download_queue" mapstructure:"download_queue"`
	ProcessQueue  string `koanf:"process_queue" mapstructure:"process_queue"`
}

type Config struct {
	ServiceName string            `koanf:"service_name" mapstructure:"service_name"`
	Stage       string            `koanf:"stage" mapstructure:"stage"`
	Marketplace MarketplaceConfig `koanf:"marketplace" mapstructure:"marketplace"`
	InternalAPI InternalAPIConfig `koanf:"internal_api" mapstructure:"internal_api"`
	Webhook     WebhookConfig     `koanf:"webhook" mapstructure:"webhook"`
	Queues      QueueConfig       `koanf:"queues" mapstructure:"queues"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "order-ingest",
		Stage:       "dev",
		Marketplace: MarketplaceConfig{
			BaseURL:    "https://api.qualia.com/v1",
			GraphQLURL: "https://qa-marketplace.qualia.io/api/vendor/graphql",
			MaxRetries: 5,
		},
		Queues: QueueConfig{
			DownloadQueue: "qualia-download-queue",
			ProcessQueue:  "qualia-process-queue",
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.Marketplace.BaseURL) == "" {
		return fmt.Errorf("core: marketplace.base_url is required")
	}
	if strings.TrimSpace(c.Marketplace.GraphQLURL) == "" {
		return fmt.Errorf("core: marketplace.graphql_url is required")
	}
	if c.Marketplace.MaxRetries < 0 {
		return fmt.Errorf("core: marketplace.max_retries must not be negative")
	}
	if strings.TrimSpace(c.Queues.DownloadQueue) == "" || strings.TrimSpace(c.Queues.ProcessQueue) == "" {
		return fmt.Errorf("core: queue names are required")
	}
	return nil
}
