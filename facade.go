package orderingest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/goliatone/go-order-ingest/adapters/gologger"
	"github.com/goliatone/go-order-ingest/command"
	"github.com/goliatone/go-order-ingest/core"
	"github.com/goliatone/go-order-ingest/internalapi"
	"github.com/goliatone/go-order-ingest/pipeline"
	"github.com/goliatone/go-order-ingest/qualia"
	"github.com/goliatone/go-order-ingest/query"
	"github.com/goliatone/go-order-ingest/queue"
	"github.com/goliatone/go-order-ingest/transform"
)

// Commands groups the marketplace mutation handlers behind one value.
type Commands struct {
	Accept             *command.AcceptOrderCommand
	Decline            *command.DeclineOrderCommand
	Cancel             *command.CancelOrderCommand
	Submit             *command.SubmitOrderCommand
	SendMessage        *command.SendMessageCommand
	AddFiles           *command.AddFilesCommand
	RemoveFiles        *command.RemoveFilesCommand
	FulfillTitleSearch *command.FulfillTitleSearchCommand
}

// Queries groups the read-side handlers behind one value.
type Queries struct {
	GetOrder         *query.GetOrderQuery
	ListOrders       *query.ListOrdersQuery
	GetOrderRecord   *query.GetOrderRecordQuery
	ListOrderRecords *query.ListOrderRecordsQuery
}

// Pipeline wires configuration, stores, queues, clients, workers, commands
// and queries into one value. Construction is explicit: New resolves the
// configuration, builds every stage, and returns a ready pipeline whose
// runners are started with Run.
type Pipeline struct {
	config  core.Config
	logger  core.Logger
	metrics core.MetricsRecorder

	metadata core.MetadataStore
	objects  core.ObjectStore

	downloads *queue.MemoryQueue
	processes *queue.MemoryQueue

	marketplace *qualia.Client
	intake      *internalapi.Client
	adapter     *transform.Adapter

	receiver *pipeline.Receiver
	webhook  *pipeline.WebhookHandler

	downloadRunner *queue.Runner
	processRunner  *queue.Runner

	commands Commands
	queries  Queries

	closers []func() error
}

type PipelineOption func(*pipelineOptions)

type pipelineOptions struct {
	logger  core.Logger
	metrics core.MetricsRecorder

	metadata core.MetadataStore
	objects  core.ObjectStore
	lister   core.MetadataLister

	marketplaceHTTP qualia.HTTPDoer
	intakeHTTP      internalapi.HTTPDoer

	provider core.ConfigProvider
	resolver core.OptionsResolver

	runnerOpts []queue.RunnerOption
	closers    []func() error
}

// WithLogger sets the logger shared by every pipeline stage.
func WithLogger(logger core.Logger) PipelineOption {
	return func(o *pipelineOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder shared by every pipeline stage.
func WithMetrics(metrics core.MetricsRecorder) PipelineOption {
	return func(o *pipelineOptions) {
		if metrics != nil {
			o.metrics = metrics
		}
	}
}

// WithMetadataStore swaps the in-memory metadata store for a durable one,
// typically sqlstore.OrderStore or its cached wrapper.
func WithMetadataStore(store core.MetadataStore) PipelineOption {
	return func(o *pipelineOptions) {
		if store != nil {
			o.metadata = store
			if lister, ok := store.(core.MetadataLister); ok {
				o.lister = lister
			}
		}
	}
}

// WithObjectStore swaps the in-memory object store for a durable one.
func WithObjectStore(store core.ObjectStore) PipelineOption {
	return func(o *pipelineOptions) {
		if store != nil {
			o.objects = store
		}
	}
}

// WithMarketplaceHTTPClient overrides the HTTP transport used by the
// marketplace client.
func WithMarketplaceHTTPClient(doer qualia.HTTPDoer) PipelineOption {
	return func(o *pipelineOptions) {
		if doer != nil {
			o.marketplaceHTTP = doer
		}
	}
}

// WithIntakeHTTPClient overrides the HTTP transport used by the intake
// client.
func WithIntakeHTTPClient(doer internalapi.HTTPDoer) PipelineOption {
	return func(o *pipelineOptions) {
		if doer != nil {
			o.intakeHTTP = doer
		}
	}
}

// WithConfigProvider layers loaded configuration over the compiled-in
// defaults before runtime overrides apply.
func WithConfigProvider(provider core.ConfigProvider) PipelineOption {
	return func(o *pipelineOptions) {
		if provider != nil {
			o.provider = provider
		}
	}
}

// WithOptionsResolver replaces the default three-layer merge.
func WithOptionsResolver(resolver core.OptionsResolver) PipelineOption {
	return func(o *pipelineOptions) {
		if resolver != nil {
			o.resolver = resolver
		}
	}
}

// WithRunnerOptions forwards options to both queue runners.
func WithRunnerOptions(opts ...queue.RunnerOption) PipelineOption {
	return func(o *pipelineOptions) {
		o.runnerOpts = append(o.runnerOpts, opts...)
	}
}

// WithCloser registers a cleanup hook invoked by Close, newest first.
func WithCloser(fn func() error) PipelineOption {
	return func(o *pipelineOptions) {
		if fn != nil {
			o.closers = append(o.closers, fn)
		}
	}
}

// New resolves the runtime configuration against defaults and any loaded
// layer, then builds every stage of the ingestion pipeline.
func New(runtime core.Config, opts ...PipelineOption) (*Pipeline, error) {
	options := pipelineOptions{
		metrics: core.NopMetricsRecorder{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&options)
	}

	config, err := core.ResolveConfig(context.Background(), options.provider, options.resolver, runtime)
	if err != nil {
		return nil, err
	}

	_, logger := gologger.Resolve(config.ServiceName, nil, options.logger)

	metadata := options.metadata
	if metadata == nil {
		memory := core.NewMemoryMetadataStore()
		metadata = memory
		options.lister = memory
	}
	objects := options.objects
	if objects == nil {
		objects = core.NewMemoryObjectStore()
	}

	downloads := queue.NewMemoryQueue(config.Queues.DownloadQueue)
	processes := queue.NewMemoryQueue(config.Queues.ProcessQueue)

	marketplaceOpts := []qualia.Option{
		qualia.WithLogger(logger),
		qualia.WithMetrics(options.metrics),
	}
	if options.marketplaceHTTP != nil {
		marketplaceOpts = append(marketplaceOpts, qualia.WithHTTPClient(options.marketplaceHTTP))
	}
	marketplace := qualia.New(config.Marketplace, marketplaceOpts...)

	intakeOpts := []internalapi.Option{internalapi.WithLogger(logger)}
	if options.intakeHTTP != nil {
		intakeOpts = append(intakeOpts, internalapi.WithHTTPClient(options.intakeHTTP))
	}
	intake := internalapi.New(config.InternalAPI, intakeOpts...)

	adapter := transform.New(transform.WithLogger(logger))

	receiver := pipeline.NewReceiver(metadata, downloads,
		pipeline.WithReceiverLogger(logger),
		pipeline.WithReceiverMetrics(options.metrics),
	)
	webhook := pipeline.NewWebhookHandler(receiver, config.Webhook)

	downloadWorker := pipeline.NewDownloadWorker(marketplace, objects, metadata, processes,
		pipeline.WithDownloadLogger(logger),
		pipeline.WithDownloadMetrics(options.metrics),
	)
	processWorker := pipeline.NewProcessWorker(objects, adapter, intake, metadata,
		pipeline.WithProcessLogger(logger),
		pipeline.WithProcessMetrics(options.metrics),
	)

	runnerOpts := append([]queue.RunnerOption{
		queue.WithRunnerLogger(logger),
		queue.WithRunnerMetrics(options.metrics),
	}, options.runnerOpts...)

	p := &Pipeline{
		config:         config,
		logger:         logger,
		metrics:        options.metrics,
		metadata:       metadata,
		objects:        objects,
		downloads:      downloads,
		processes:      processes,
		marketplace:    marketplace,
		intake:         intake,
		adapter:        adapter,
		receiver:       receiver,
		webhook:        webhook,
		downloadRunner: queue.NewRunner(config.Queues.DownloadQueue, downloads, downloadWorker.Handle, runnerOpts...),
		processRunner:  queue.NewRunner(config.Queues.ProcessQueue, processes, processWorker.Handle, runnerOpts...),
		closers:        options.closers,
	}

	p.commands = Commands{
		Accept:             command.NewAcceptOrderCommand(marketplace),
		Decline:            command.NewDeclineOrderCommand(marketplace),
		Cancel:             command.NewCancelOrderCommand(marketplace),
		Submit:             command.NewSubmitOrderCommand(marketplace),
		SendMessage:        command.NewSendMessageCommand(marketplace),
		AddFiles:           command.NewAddFilesCommand(marketplace),
		RemoveFiles:        command.NewRemoveFilesCommand(marketplace),
		FulfillTitleSearch: command.NewFulfillTitleSearchCommand(marketplace),
	}
	p.queries = Queries{
		GetOrder:       query.NewGetOrderQuery(marketplace),
		ListOrders:     query.NewListOrdersQuery(marketplace),
		GetOrderRecord: query.NewGetOrderRecordQuery(metadata),
	}
	if options.lister != nil {
		p.queries.ListOrderRecords = query.NewListOrderRecordsQuery(options.lister)
	}

	return p, nil
}

// Config returns the resolved configuration.
func (p *Pipeline) Config() core.Config {
	if p == nil {
		return core.Config{}
	}
	return p.config
}

// ServiceName reports the identity carried in queue messages and logs.
func (p *Pipeline) ServiceName() string {
	if p == nil {
		return ""
	}
	return p.config.ServiceName
}

// Stage reports the deployment stage the pipeline was configured for.
func (p *Pipeline) Stage() string {
	if p == nil {
		return ""
	}
	return p.config.Stage
}

// Commands returns the marketplace mutation handlers.
func (p *Pipeline) Commands() Commands {
	if p == nil {
		return Commands{}
	}
	return p.commands
}

// Queries returns the read-side handlers.
func (p *Pipeline) Queries() Queries {
	if p == nil {
		return Queries{}
	}
	return p.queries
}

// WebhookHandler returns the HTTP entry point for marketplace
// notifications, ready to mount on a mux.
func (p *Pipeline) WebhookHandler() http.Handler {
	if p == nil {
		return nil
	}
	return p.webhook
}

// Receiver exposes the notification intake for callers that bypass HTTP.
func (p *Pipeline) Receiver() *pipeline.Receiver {
	if p == nil {
		return nil
	}
	return p.receiver
}

// Marketplace returns the configured marketplace client.
func (p *Pipeline) Marketplace() *qualia.Client {
	if p == nil {
		return nil
	}
	return p.marketplace
}

// MetadataStore returns the order record store backing the pipeline.
func (p *Pipeline) MetadataStore() core.MetadataStore {
	if p == nil {
		return nil
	}
	return p.metadata
}

// ObjectStore returns the payload store backing the pipeline.
func (p *Pipeline) ObjectStore() core.ObjectStore {
	if p == nil {
		return nil
	}
	return p.objects
}

// DownloadQueue returns the queue between notification intake and the
// download worker.
func (p *Pipeline) DownloadQueue() *queue.MemoryQueue {
	if p == nil {
		return nil
	}
	return p.downloads
}

// ProcessQueue returns the queue between the download and process workers.
func (p *Pipeline) ProcessQueue() *queue.MemoryQueue {
	if p == nil {
		return nil
	}
	return p.processes
}

// Run polls both worker queues until the context is cancelled. It returns
// the context error once both runners have stopped.
func (p *Pipeline) Run(ctx context.Context) error {
	if p == nil {
		return fmt.Errorf("orderingest: pipeline is nil")
	}
	done := make(chan error, 2)
	go func() { done <- p.downloadRunner.Run(ctx) }()
	go func() { done <- p.processRunner.Run(ctx) }()

	var first error
	for i := 0; i < 2; i++ {
		if err := <-done; err != nil && first == nil {
			first = err
		}
	}
	return first
}

// RunDownloadOnce drains at most one download-queue message. It reports
// whether a message was processed.
func (p *Pipeline) RunDownloadOnce(ctx context.Context) (bool, error) {
	if p == nil {
		return false, fmt.Errorf("orderingest: pipeline is nil")
	}
	return p.downloadRunner.RunOnce(ctx)
}

// RunProcessOnce drains at most one process-queue message.
func (p *Pipeline) RunProcessOnce(ctx context.Context) (bool, error) {
	if p == nil {
		return false, fmt.Errorf("orderingest: pipeline is nil")
	}
	return p.processRunner.RunOnce(ctx)
}

// Drain runs both workers until neither queue has a visible message.
// Intended for tests and batch-style invocations.
func (p *Pipeline) Drain(ctx context.Context) error {
	if p == nil {
		return fmt.Errorf("orderingest: pipeline is nil")
	}
	for {
		downloaded, err := p.RunDownloadOnce(ctx)
		if err != nil {
			return err
		}
		processed, err := p.RunProcessOnce(ctx)
		if err != nil {
			return err
		}
		if !downloaded && !processed {
			return nil
		}
	}
}

// Close releases resources registered with WithCloser, newest first.
func (p *Pipeline) Close() error {
	if p == nil {
		return nil
	}
	var first error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}
