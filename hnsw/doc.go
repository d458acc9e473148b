// Package hnsw implements a Hierarchical Navigable Small World index over
// float64 vectors carrying string labels.
//
// Vectors are staged with Add and indexed in one pass by Build, which
// constructs the graph from scratch over everything added so far. Vectors
// added after a Build are kept but only become searchable after the next
// Build. Searching an index that was never built yields no results.
//
//	ix := hnsw.New(3)
//	_ = ix.Add([]float64{1, 2, 3}, "id")
//	_ = ix.Build(distance.Euclidean)
//	labels, _ := ix.Search([]float64{1, 2, 3}, 10)
//
// # Parameters
//
//   - M: Max connections per node above layer 0; layer 0 keeps 2*M (default: 16)
//   - EFConstruction: Candidate list size while building (default: 200)
//   - EFSearch: Candidate list size while searching, at least k (default: 64)
//   - RandomSeed: Seed for level assignment; fixed seeds give identical graphs
//
// # Persistence
//
// Dump and WriteTo serialize items, parameters and graph into the format of
// package persistence. Load and ReadFrom restore an index and validate the
// graph structure before returning it.
//
// # Reference
//
// Malkov & Yashunin, "Efficient and robust approximate nearest neighbor search
// using Hierarchical Navigable Small World graphs", IEEE TPAMI 2018.
package hnsw
