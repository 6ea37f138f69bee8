package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

// ConfigProvider loads configuration over the compiled-in defaults.
type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

// RawConfigLoader produces the raw key/value layer fed into cfgx.
type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

// OptionsResolver merges defaults, loaded config, and runtime overrides.
type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type StaticRawConfigLoader struct {
	Values map[string]any
}

func (l StaticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = StaticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}
	if includeZero || strings.TrimSpace(cfg.Stage) != "" {
		layer["stage"] = cfg.Stage
	}

	marketplace := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Marketplace.BaseURL) != "" {
		marketplace["base_url"] = cfg.Marketplace.BaseURL
	}
	if includeZero || strings.TrimSpace(cfg.Marketplace.GraphQLURL) != "" {
		marketplace["graphql_url"] = cfg.Marketplace.GraphQLURL
	}
	if includeZero || strings.TrimSpace(cfg.Marketplace.Credential) != "" {
		marketplace["credential"] = cfg.Marketplace.Credential
	}
	if includeZero || cfg.Marketplace.MaxRetries != 0 {
		marketplace["max_retries"] = cfg.Marketplace.MaxRetries
	}
	if len(marketplace) > 0 {
		layer["marketplace"] = marketplace
	}

	internalAPI := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.InternalAPI.URL) != "" {
		internalAPI["url"] = cfg.InternalAPI.URL
	}
	if includeZero || strings.TrimSpace(cfg.InternalAPI.Token) != "" {
		internalAPI["token"] = cfg.InternalAPI.Token
	}
	if len(internalAPI) > 0 {
		layer["internal_api"] = internalAPI
	}

	webhook := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Webhook.Username) != "" {
		webhook["username"] = cfg.Webhook.Username
	}
	if includeZero || strings.TrimSpace(cfg.Webhook.Password) != "" {
		webhook["password"] = cfg.Webhook.Password
	}
	if len(webhook) > 0 {
		layer["webhook"] = webhook
	}

	queues := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Queues.DownloadQueue) != "" {
		queues["download_queue"] = cfg.Queues.DownloadQueue
	}
	if includeZero || strings.TrimSpace(cfg.Queues.ProcessQueue) != "" {
		queues["process_queue"] = cfg.Queues.ProcessQueue
	}
	if len(queues) > 0 {
		layer["queues"] = queues
	}

	return layer
}

// ResolveConfig runs the full defaults -> provider -> runtime resolution.
func ResolveConfig(ctx context.Context, provider ConfigProvider, resolver OptionsResolver, runtime Config) (Config, error) {
	defaults := DefaultConfig()
	if provider == nil {
		provider = NewCfgxConfigProvider(nil)
	}
	if resolver == nil {
		resolver = GoOptionsResolver{}
	}
	loaded, err := provider.Load(ctx, defaults)
	if err != nil {
		return Config{}, err
	}
	return resolver.Resolve(defaults, loaded, runtime)
}
