// Package searcher provides the candidate queues and visited sets used by
// HNSW graph traversal.
//
// Queues are value-based binary heaps ordered by distance with node ID as a
// deterministic tie-breaker. Visited sets are bitsets with a dirty list so a
// single set can be reused across many layer searches during a build.
package searcher
