package horago

import (
	"context"
	"encoding/binary"
	"errors"
	"log/slog"
	"math"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/horago/blobstore"
	"github.com/hupe1980/horago/distance"
	"github.com/hupe1980/horago/hnsw"
	"github.com/hupe1980/horago/resource"
)

// BuildOK is the message returned by Build on success.
const BuildOK = "Ok"

// NoIndex is the message returned by Build when the name is unknown.
const NoIndex = "No index"

type entry struct {
	index *hnsw.Index
	gen   uint64
	bytes int64 // reserved with the resource controller
}

// Registry maps names to HNSW indexes.
//
// All operations are serialized by one mutex, held for the full duration of
// every call including build and search.
type Registry struct {
	mu      sync.Mutex
	indexes map[string]*entry
	gen     uint64

	opts  Options
	log   *Logger
	cache *lru.Cache[string, []hnsw.Result]
}

// New creates an empty registry.
func New(optFns ...func(o *Options)) *Registry {
	opts := applyOptions(optFns)

	r := &Registry{
		indexes: make(map[string]*entry),
		opts:    opts,
		log:     opts.Logger,
	}

	if opts.SearchCacheSize > 0 {
		// Only fails for non-positive sizes.
		r.cache, _ = lru.New[string, []hnsw.Result](opts.SearchCacheSize)
	}

	return r
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	return New(func(o *Options) {
		o.Logger = NewTextLogger(slog.LevelWarn)
	})
})

// Default returns the process-wide registry used by the foreign-call surface.
func Default() *Registry {
	return defaultRegistry()
}

// nextGen must be called with mu held.
func (r *Registry) nextGen() uint64 {
	r.gen++
	return r.gen
}

// replace installs e under name and releases the previous entry's memory.
// mu must be held.
func (r *Registry) replace(name string, e *entry) {
	if old, ok := r.indexes[name]; ok {
		r.opts.Resources.ReleaseMemory(old.bytes)
	}
	r.indexes[name] = e
}

// Create registers a fresh, unbuilt index, silently replacing any index
// already registered under name.
func (r *Registry) Create(name string, dimension int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.replace(name, &entry{
		index: hnsw.New(dimension, r.opts.IndexOptions...),
		gen:   r.nextGen(),
	})
	r.opts.Metrics.RecordCreate()
	r.log.Debug("index created", "index", name, "dimension", dimension)
}

// Add appends a vector with its label to the named index. Adding to an
// unknown name is a no-op. A vector of the wrong length is rejected with
// an *ErrDimensionMismatch and leaves the index unchanged.
func (r *Registry) Add(name string, vector []float64, label string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.indexes[name]
	if !ok {
		r.log.LogMissing(context.Background(), "add", name)
		return nil
	}

	err := r.add(e, vector, label)
	r.opts.Metrics.RecordAdd(err)
	r.log.LogAdd(context.Background(), name, len(vector), err)
	return err
}

func (r *Registry) add(e *entry, vector []float64, label string) error {
	if len(vector) != e.index.Dimension() {
		return &ErrDimensionMismatch{Expected: e.index.Dimension(), Actual: len(vector)}
	}

	size := hnsw.ItemSize(len(vector), label)
	if err := r.opts.Resources.ReserveMemory(size); err != nil {
		return err
	}
	if err := e.index.Add(vector, label); err != nil {
		r.opts.Resources.ReleaseMemory(size)
		return err
	}

	e.bytes += size
	e.gen = r.nextGen()
	return nil
}

// Build builds the named index with the metric named by metric and returns
// BuildOK, the failure message, or NoIndex for an unknown name.
func (r *Registry) Build(name, metric string) string {
	err := r.BuildMetric(name, distance.Parse(metric))
	switch {
	case err == nil:
		return BuildOK
	case errors.Is(err, ErrNotFound):
		return NoIndex
	default:
		return err.Error()
	}
}

// BuildMetric builds the named index. Unknown names yield ErrNotFound.
func (r *Registry) BuildMetric(name string, metric distance.Metric) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.indexes[name]
	if !ok {
		r.log.LogMissing(context.Background(), "build", name)
		return ErrNotFound
	}

	start := time.Now()
	err := e.index.Build(metric)
	elapsed := time.Since(start)

	if err == nil {
		e.gen = r.nextGen()
	}
	r.opts.Metrics.RecordBuild(elapsed, err)
	r.log.LogBuild(context.Background(), name, metric.String(), e.index.Len(), elapsed, err)
	return err
}

// Search returns the labels of the k nearest neighbors of query, closest
// first. Unknown names and failures yield an empty slice; failures are logged.
func (r *Registry) Search(name string, k int, query []float64) []string {
	results, err := r.SearchResults(name, k, query)
	if err != nil {
		return []string{}
	}

	labels := make([]string, len(results))
	for i, res := range results {
		labels[i] = res.Label
	}
	return labels
}

// SearchResults returns labels with distances. Unknown names yield ErrNotFound.
func (r *Registry) SearchResults(name string, k int, query []float64) ([]hnsw.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.indexes[name]
	if !ok {
		r.log.LogMissing(context.Background(), "search", name)
		return nil, ErrNotFound
	}

	return r.search(name, e, k, query)
}

// search must be called with mu held.
func (r *Registry) search(name string, e *entry, k int, query []float64) ([]hnsw.Result, error) {
	results, cached, err := r.lookup(name, e, k, query)
	if !cached {
		r.log.LogSearch(context.Background(), name, k, len(results), err)
	}
	return results, err
}

// lookup answers one query from the cache or the index and records it with
// the metrics collector. mu must be held; concurrent lookups on the same
// entry are safe because the graph is read-only while mu is held.
func (r *Registry) lookup(name string, e *entry, k int, query []float64) ([]hnsw.Result, bool, error) {
	start := time.Now()

	var key string
	if r.cache != nil {
		key = cacheKey(name, e.gen, k, query)
		if hit, ok := r.cache.Get(key); ok {
			r.opts.Metrics.RecordSearch(k, time.Since(start), true, nil)
			return append([]hnsw.Result(nil), hit...), true, nil
		}
	}

	results, err := e.index.SearchWithDistances(query, k)
	r.opts.Metrics.RecordSearch(k, time.Since(start), false, err)
	if err != nil {
		return nil, false, err
	}

	if r.cache != nil {
		r.cache.Add(key, append([]hnsw.Result(nil), results...))
	}
	return results, false, nil
}

// SearchBatch runs several queries against one index under a single lock
// acquisition. Queries are scored in parallel, bounded by the resource
// controller's worker limit, and share the query cache and metrics with
// SearchResults. The result slice is aligned with queries.
func (r *Registry) SearchBatch(ctx context.Context, name string, k int, queries [][]float64) ([][]hnsw.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.indexes[name]
	if !ok {
		r.log.LogMissing(ctx, "search_batch", name)
		return nil, ErrNotFound
	}

	out := make([][]hnsw.Result, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, q := range queries {
		if err := r.opts.Resources.AcquireWorker(gctx); err != nil {
			break
		}
		g.Go(func() error {
			defer r.opts.Resources.ReleaseWorker()

			res, _, err := r.lookup(name, e, k, q)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	r.log.LogSearch(ctx, name, k, len(queries), err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Load reads a dump from path and registers it under name, replacing any
// existing index. On failure the registry is unchanged and the error matches
// ErrIO, ErrCorruptData or ErrMemoryLimit.
func (r *Registry) Load(name, path string) error {
	return r.LoadContext(context.Background(), name, path)
}

// LoadContext is Load with a context for the blob store.
func (r *Registry) LoadContext(ctx context.Context, name, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	err := r.load(ctx, name, path)
	r.opts.Metrics.RecordLoad(time.Since(start), err)
	r.log.LogLoad(ctx, name, path, err)
	return err
}

func (r *Registry) load(ctx context.Context, name, path string) error {
	blob, err := r.opts.Store.Open(ctx, path)
	if err != nil {
		return translateError("load", path, err)
	}
	defer func() { _ = blob.Close() }()

	src := resource.NewRateLimitedReader(ctx, blobstore.NewReader(blob), r.opts.Resources)
	ix, err := hnsw.ReadFrom(src)
	if err != nil {
		return translateError("load", path, err)
	}

	size := ix.MemoryUsage()
	if err := r.opts.Resources.ReserveMemory(size); err != nil {
		return err
	}

	r.replace(name, &entry{index: ix, gen: r.nextGen(), bytes: size})
	return nil
}

// Dump writes the named index to path. Dumping an unknown name is a no-op.
func (r *Registry) Dump(name, path string) error {
	return r.DumpContext(context.Background(), name, path)
}

// DumpContext is Dump with a context for the blob store.
func (r *Registry) DumpContext(ctx context.Context, name, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.indexes[name]
	if !ok {
		r.log.LogMissing(ctx, "dump", name)
		return nil
	}

	start := time.Now()
	err := r.dump(ctx, e.index, path)
	r.opts.Metrics.RecordDump(time.Since(start), err)
	r.log.LogDump(ctx, name, path, err)
	return err
}

func (r *Registry) dump(ctx context.Context, ix *hnsw.Index, path string) error {
	w, err := r.opts.Store.Create(ctx, path)
	if err != nil {
		return translateError("dump", path, err)
	}

	dst := resource.NewRateLimitedWriter(ctx, w, r.opts.Resources)
	if _, err := ix.Encode(dst, r.opts.Compression); err != nil {
		_ = w.Abort()
		return translateError("dump", path, err)
	}
	if err := w.Close(); err != nil {
		return translateError("dump", path, err)
	}
	return nil
}

// Names returns the registered index names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.indexes))
	for name := range r.indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stats returns statistics for the named index.
func (r *Registry) Stats(name string) (hnsw.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.indexes[name]
	if !ok {
		return hnsw.Stats{}, ErrNotFound
	}
	return e.index.Stats(), nil
}

// Drop unregisters the named index and reports whether it existed.
func (r *Registry) Drop(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.indexes[name]
	if !ok {
		return false
	}
	r.opts.Resources.ReleaseMemory(e.bytes)
	delete(r.indexes, name)
	r.log.Debug("index dropped", "index", name)
	return true
}

func cacheKey(name string, gen uint64, k int, query []float64) string {
	var sb strings.Builder
	sb.Grow(len(name) + 17 + 8*len(query))
	sb.WriteString(name)
	sb.WriteByte(0)

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], gen)
	sb.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(k))
	sb.Write(buf[:])
	for _, v := range query {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		sb.Write(buf[:])
	}
	return sb.String()
}
