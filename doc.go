// Package horago provides a process-wide registry of named HNSW
// approximate nearest-neighbor indexes.
//
// Each index stores float64 vectors of a fixed dimension together with
// opaque string labels. Vectors are added incrementally, the graph is built
// once with a chosen metric, and top-k searches return labels ordered by
// increasing distance. Indexes can be dumped to and loaded from any
// blobstore.Store (local files by default).
//
// # Quick Start
//
//	reg := horago.New()
//	reg.Create("docs", 3)
//	_ = reg.Add("docs", []float64{1, 0, 0}, "a")
//	_ = reg.Add("docs", []float64{0, 1, 0}, "b")
//	if msg := reg.Build("docs", "euclidean"); msg != "Ok" {
//	    log.Fatal(msg)
//	}
//	labels := reg.Search("docs", 1, []float64{0.9, 0.1, 0}) // ["a"]
//
// # Concurrency
//
// Every registry operation holds a single mutex for its full duration,
// including build and search. Operations are synchronous and there are no
// background goroutines.
//
// # Fail-soft Surface
//
// Build, Search, Add, Dump and Load mirror the foreign-call surface: missing
// names are reported through sentinels ("No index", empty results, no-ops)
// instead of errors. Typed variants (BuildMetric, SearchResults, Stats)
// return ErrNotFound.
package horago
