package searcher

import "sync"

// Searcher is a reusable execution context for a graph traversal.
// It owns the scratch memory of one layer search.
//
// Searcher is NOT thread-safe. It is intended to be owned by a single goroutine
// during a search operation.
type Searcher struct {
	// Visited tracks visited nodes during graph traversal.
	Visited *VisitedSet

	// Results is a bounded max-heap holding the ef best nodes found so far.
	Results *PriorityQueue

	// Candidates is a min-heap of nodes still to be expanded.
	Candidates *PriorityQueue
}

var searcherPool = sync.Pool{
	New: func() any {
		return NewSearcher(1024)
	},
}

// NewSearcher creates a new searcher sized for visitedCap nodes.
func NewSearcher(visitedCap int) *Searcher {
	return &Searcher{
		Visited:    NewVisitedSet(visitedCap),
		Results:    NewPriorityQueue(true),
		Candidates: NewPriorityQueue(false),
	}
}

// Get returns a reset Searcher from the pool.
func Get() *Searcher {
	s := searcherPool.Get().(*Searcher)
	s.Reset()
	return s
}

// Put returns a Searcher to the pool.
func Put(s *Searcher) {
	searcherPool.Put(s)
}

// Reset clears the searcher state for reuse.
func (s *Searcher) Reset() {
	s.Visited.Reset()
	s.Results.Reset()
	s.Candidates.Reset()
}
