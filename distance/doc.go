// Package distance provides float64 vector distance functions for the HNSW index.
//
// Kernels are backed by github.com/viterin/vek, which uses SIMD instructions
// when the CPU supports them and falls back to pure Go otherwise.
//
// # Supported Metrics
//
//   - Euclidean: L2 distance
//   - Manhattan: L1 distance
//   - Angular: arccos(cosine) / π, in [0, 1]
//   - CosineSimilarity: 1 - cosine, in [0, 2]
//   - DotProduct: negated inner product (not a true metric)
//   - Unknown: no comparator, rejected by Provider
//
// Every Func follows one convention: smaller is closer.
//
// # Usage
//
//	m := distance.Parse("euclidean")
//	fn, err := distance.Provider(m)
//	d := fn(a, b)
package distance
