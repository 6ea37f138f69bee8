package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ MetadataStore   = (*MemoryMetadataStore)(nil)
	_ MetadataLister  = (*MemoryMetadataStore)(nil)
	_ ObjectStore     = (*MemoryObjectStore)(nil)
	_ ConfigProvider  = (*CfgxConfigProvider)(nil)
	_ RawConfigLoader = StaticRawConfigLoader{}
	_ OptionsResolver = GoOptionsResolver{}
	_ MetricsRecorder = NopMetricsRecorder{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
