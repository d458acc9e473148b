package hnsw

import (
	"github.com/hupe1980/horago/distance"
	"github.com/hupe1980/horago/internal/searcher"
)

// Result is a search hit.
type Result struct {
	Label    string  `json:"label"`
	Distance float64 `json:"distance"`
}

// Search returns the labels of up to k approximate nearest neighbors of
// query, nearest first. An unbuilt index or k <= 0 yields no labels.
func (ix *Index) Search(query []float64, k int) ([]string, error) {
	results, err := ix.SearchWithDistances(query, k)
	if err != nil {
		return nil, err
	}

	labels := make([]string, len(results))
	for i, r := range results {
		labels[i] = r.Label
	}
	return labels, nil
}

// SearchWithDistances is like Search but also reports each hit's distance
// under the build metric.
func (ix *Index) SearchWithDistances(query []float64, k int) ([]Result, error) {
	if len(query) != ix.dimension {
		return nil, &ErrDimensionMismatch{Expected: ix.dimension, Actual: len(query)}
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	g := ix.graph
	if g == nil || k <= 0 {
		return []Result{}, nil
	}

	s := searcher.Get()
	defer searcher.Put(s)

	currID := g.entryPoint
	currDist := ix.dist(query, ix.items[currID].vector)
	for l := g.maxLevel; l > 0; l-- {
		currID, currDist = greedySearch(g, ix.items, ix.dist, query, currID, currDist, l)
	}

	ef := max(ix.opts.EFSearch, k)
	found := searchLayer(s, g, ix.items, ix.dist, query, currID, currDist, 0, ef)
	if len(found) > k {
		found = found[:k]
	}

	results := make([]Result, len(found))
	for i, f := range found {
		results[i] = Result{Label: ix.items[f.Node].label, Distance: f.Distance}
	}
	return results, nil
}

// greedySearch walks level from ep to a local minimum of the distance to q.
func greedySearch(g *graph, items []item, dist distance.Func, q []float64, ep uint32, epDist float64, level int) (uint32, float64) {
	currID, currDist := ep, epDist
	for changed := true; changed; {
		changed = false
		for _, next := range g.nodes[currID].links[level] {
			nextDist := dist(q, items[next].vector)
			if nextDist < currDist {
				currID = next
				currDist = nextDist
				changed = true
			}
		}
	}
	return currID, currDist
}

// searchLayer runs a beam search with ef candidates on one layer and returns
// the best ef nodes nearest first.
func searchLayer(s *searcher.Searcher, g *graph, items []item, dist distance.Func, q []float64, ep uint32, epDist float64, level, ef int) []searcher.PriorityQueueItem {
	s.Reset()
	s.Visited.Visit(ep)
	s.Candidates.PushItem(searcher.PriorityQueueItem{Node: ep, Distance: epDist})
	s.Results.PushItem(searcher.PriorityQueueItem{Node: ep, Distance: epDist})

	for s.Candidates.Len() > 0 {
		curr, _ := s.Candidates.PopItem()

		worst, _ := s.Results.TopItem()
		if s.Results.Len() >= ef && curr.Distance > worst.Distance {
			break
		}

		for _, next := range g.nodes[curr.Node].links[level] {
			if s.Visited.Visited(next) {
				continue
			}
			s.Visited.Visit(next)

			nextDist := dist(q, items[next].vector)

			// Skip candidates that cannot improve a full result set.
			if s.Results.Len() >= ef {
				worst, _ = s.Results.TopItem()
				if nextDist > worst.Distance {
					continue
				}
			}

			item := searcher.PriorityQueueItem{Node: next, Distance: nextDist}
			s.Candidates.PushItem(item)
			s.Results.PushItemBounded(item, ef)
		}
	}

	return s.Results.Sorted()
}
