package horago

import (
	"github.com/hupe1980/horago/blobstore"
	"github.com/hupe1980/horago/hnsw"
	"github.com/hupe1980/horago/persistence"
	"github.com/hupe1980/horago/resource"
)

// DefaultSearchCacheSize is the default number of cached query results.
const DefaultSearchCacheSize = 1024

// Options configures a Registry.
type Options struct {
	// Logger receives structured logs. Defaults to NoopLogger.
	Logger *Logger

	// Metrics receives operation metrics. Defaults to NoopMetricsCollector.
	Metrics MetricsCollector

	// IndexOptions are applied to every index created with Create.
	IndexOptions []func(o *hnsw.Options)

	// Store resolves Dump and Load paths. Defaults to a LocalStore without a
	// root, so paths are plain filesystem paths.
	Store blobstore.Store

	// Compression is the body compression used by Dump.
	Compression persistence.Compression

	// Resources enforces memory and IO limits. Nil means unlimited.
	Resources *resource.Controller

	// SearchCacheSize bounds the query cache. Zero or negative disables it.
	SearchCacheSize int
}

// DefaultOptions contains the default registry configuration.
var DefaultOptions = Options{
	Compression:     persistence.CompressionNone,
	SearchCacheSize: DefaultSearchCacheSize,
}

// WithLogger configures structured logging for operations.
//
// Example with JSON logging:
//
//	reg := horago.New(horago.WithLogger(horago.NewJSONLogger(slog.LevelInfo)))
func WithLogger(logger *Logger) func(o *Options) {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
//
//	metrics := &horago.BasicMetricsCollector{}
//	reg := horago.New(horago.WithMetricsCollector(metrics))
//	// ... use reg ...
//	fmt.Println(metrics.GetStats().SearchCount)
func WithMetricsCollector(mc MetricsCollector) func(o *Options) {
	return func(o *Options) {
		o.Metrics = mc
	}
}

// WithIndexOptions sets HNSW parameters for indexes created by Create.
func WithIndexOptions(optFns ...func(o *hnsw.Options)) func(o *Options) {
	return func(o *Options) {
		o.IndexOptions = append(o.IndexOptions, optFns...)
	}
}

// WithStore sets the blob store used by Dump and Load.
func WithStore(store blobstore.Store) func(o *Options) {
	return func(o *Options) {
		o.Store = store
	}
}

// WithCompression sets the dump body compression.
func WithCompression(c persistence.Compression) func(o *Options) {
	return func(o *Options) {
		o.Compression = c
	}
}

// WithResources sets the resource controller.
func WithResources(rc *resource.Controller) func(o *Options) {
	return func(o *Options) {
		o.Resources = rc
	}
}

// WithSearchCacheSize sets the query cache capacity. Zero disables caching.
func WithSearchCacheSize(size int) func(o *Options) {
	return func(o *Options) {
		o.SearchCacheSize = size
	}
}

func applyOptions(optFns []func(o *Options)) Options {
	o := DefaultOptions
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.Logger == nil {
		o.Logger = NoopLogger()
	}
	if o.Metrics == nil {
		o.Metrics = NoopMetricsCollector{}
	}
	if o.Store == nil {
		o.Store = blobstore.NewLocalStore("")
	}
	return o
}
