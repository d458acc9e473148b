package hnsw

import (
	"sync"
	"time"

	"github.com/hupe1980/horago/distance"
)

// item is one stored vector and its label.
type item struct {
	label  string
	vector []float64
}

// node is a graph vertex. Its ID is the position of its item.
// links[l] holds the neighbors on layer l for l in [0, level].
type node struct {
	level int
	links [][]uint32
}

// graph is the immutable result of a Build.
type graph struct {
	nodes      []node
	entryPoint uint32
	maxLevel   int
}

// Index is an HNSW index over fixed-dimension vectors.
//
// Index is safe for concurrent use. Search runs concurrently with other
// searches; Add and Build are exclusive.
type Index struct {
	mu sync.RWMutex

	dimension int
	opts      Options
	seed      uint64

	items []item

	graph  *graph
	metric distance.Metric
	dist   distance.Func
}

// New creates an empty, unbuilt index for vectors of the given dimension.
func New(dimension int, optFns ...func(o *Options)) *Index {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.normalize()

	var seed uint64
	if opts.RandomSeed != nil {
		seed = uint64(*opts.RandomSeed)
	} else {
		seed = uint64(time.Now().UnixNano())
	}

	return &Index{
		dimension: max(dimension, 0),
		opts:      opts,
		seed:      seed,
	}
}

// Add stores a copy of vector under label. The vector becomes searchable
// after the next Build.
func (ix *Index) Add(vector []float64, label string) error {
	if len(vector) != ix.dimension {
		return &ErrDimensionMismatch{Expected: ix.dimension, Actual: len(vector)}
	}

	v := make([]float64, len(vector))
	copy(v, vector)

	ix.mu.Lock()
	ix.items = append(ix.items, item{label: label, vector: v})
	ix.mu.Unlock()

	return nil
}

// Dimension returns the vector length accepted by the index.
func (ix *Index) Dimension() int { return ix.dimension }

// Len returns the number of stored vectors, built or staged.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.items)
}

// Built reports whether a graph is available for search.
func (ix *Index) Built() bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.graph != nil
}

// Metric returns the metric of the last successful build, or distance.Unknown.
func (ix *Index) Metric() distance.Metric {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.metric
}

// ItemSize is the number of bytes an item with the given label occupies.
func ItemSize(dimension int, label string) int64 {
	return int64(dimension)*8 + int64(len(label))
}

// MemoryUsage returns the bytes held by stored vectors and labels.
func (ix *Index) MemoryUsage() int64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var n int64
	for _, it := range ix.items {
		n += ItemSize(len(it.vector), it.label)
	}
	return n
}

// Options returns the index configuration.
func (ix *Index) Options() Options {
	return ix.opts
}

// mmax returns the link cap for layer l.
func (ix *Index) mmax(l int) int {
	if l == 0 {
		return mmax0Multiplier * ix.opts.M
	}
	return ix.opts.M
}
