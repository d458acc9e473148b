package hnsw

import "github.com/hupe1980/horago/persistence"

const (
	// mmax0Multiplier is the multiplier for calculating maximum connections at layer 0.
	mmax0Multiplier = 2

	// minimumM is the minimum valid value for M.
	minimumM = 2

	// maxLevelCap bounds the level drawn for a single node.
	maxLevelCap = 32

	// DefaultM is the default number of bidirectional links.
	DefaultM = 16

	// DefaultEFConstruction is the default candidate list size during build.
	DefaultEFConstruction = 200

	// DefaultEFSearch is the default candidate list size during search.
	DefaultEFSearch = 64
)

// Options represents the options for configuring an Index.
type Options struct {
	// M is the number of links kept per node on layers above 0. Layer 0 keeps 2*M.
	// Higher M improves recall on high-dimensional data at the cost of memory
	// and build time. Values below 2 are raised to 2.
	M int

	// EFConstruction is the size of the dynamic candidate list during Build.
	EFConstruction int

	// EFSearch is the size of the dynamic candidate list during Search.
	// The effective value is max(EFSearch, k).
	EFSearch int

	// Heuristic selects neighbors with the diversity heuristic; false keeps
	// the M nearest candidates.
	Heuristic bool

	// RandomSeed fixes the level assignment. Nil seeds from the clock once,
	// when the index is created.
	RandomSeed *int64

	// Compression is applied to the body of dumps written by this index.
	Compression persistence.Compression
}

// DefaultOptions contains the default options for an Index.
var DefaultOptions = Options{
	M:              DefaultM,
	EFConstruction: DefaultEFConstruction,
	EFSearch:       DefaultEFSearch,
	Heuristic:      true,
}

func (o *Options) normalize() {
	if o.M < minimumM {
		o.M = minimumM
	}
	if o.EFConstruction < o.M {
		o.EFConstruction = o.M
	}
	if o.EFSearch < 1 {
		o.EFSearch = 1
	}
}
