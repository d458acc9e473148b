package hnsw

import (
	"math"
	"slices"

	"github.com/hupe1980/horago/distance"
	"github.com/hupe1980/horago/internal/searcher"
)

// Build constructs the graph from scratch over every vector added so far,
// using metric to compare vectors. On failure the index keeps its previous
// graph and metric.
func (ix *Index) Build(metric distance.Metric) error {
	dist, err := distance.Provider(metric)
	if err != nil {
		return err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if len(ix.items) == 0 {
		return ErrEmptyIndex
	}

	b := &builder{
		items: ix.items,
		dist:  dist,
		opts:  ix.opts,
		mmax:  ix.mmax,
		ml:    1 / math.Log(float64(ix.opts.M)),
		rng:   ix.seed,
		g:     &graph{nodes: make([]node, len(ix.items))},
	}

	s := searcher.NewSearcher(len(ix.items))
	for id := range ix.items {
		b.insert(s, uint32(id))
	}

	ix.graph = b.g
	ix.metric = metric
	ix.dist = dist

	return nil
}

// builder holds the state of a single Build.
type builder struct {
	items []item
	dist  distance.Func
	opts  Options
	mmax  func(level int) int
	ml    float64 // level normalization, 1/ln(M)
	rng   uint64
	g     *graph
}

// randomLevel draws floor(-ln(U) * ml) for U uniform in (0, 1].
func (b *builder) randomLevel() int {
	// xorshift64* over a golden-ratio increment.
	b.rng += 0x9E3779B97F4A7C15
	x := b.rng
	x ^= x >> 12
	x ^= x << 25
	x ^= x >> 27
	u := float64((x*0x2545F4914F6CDD1D)>>11+1) / float64(1<<53)
	return min(int(math.Floor(-math.Log(u)*b.ml)), maxLevelCap)
}

func (b *builder) vec(id uint32) []float64 {
	return b.items[id].vector
}

func (b *builder) insert(s *searcher.Searcher, id uint32) {
	g := b.g
	level := b.randomLevel()

	n := &g.nodes[id]
	n.level = level
	n.links = make([][]uint32, level+1)

	if id == 0 {
		g.entryPoint = id
		g.maxLevel = level
		return
	}

	q := b.vec(id)
	currID := g.entryPoint
	currDist := b.dist(q, b.vec(currID))

	// 1. Greedy search from the top layer down to level + 1.
	for l := g.maxLevel; l > level; l-- {
		currID, currDist = greedySearch(g, b.items, b.dist, q, currID, currDist, l)
	}

	// 2. Search and link from min(level, maxLevel) down to 0.
	for l := min(level, g.maxLevel); l >= 0; l-- {
		candidates := searchLayer(s, g, b.items, b.dist, q, currID, currDist, l, b.opts.EFConstruction)

		neighbors := b.selectNeighbors(candidates, b.mmax(l))
		conns := make([]uint32, 0, len(neighbors))
		for _, nb := range neighbors {
			conns = append(conns, nb.Node)
		}
		n.links[l] = conns

		for _, nb := range neighbors {
			b.addConnection(nb.Node, id, nb.Distance, l)
		}

		if len(candidates) > 0 {
			currID = candidates[0].Node
			currDist = candidates[0].Distance
		}
	}

	if level > g.maxLevel {
		g.entryPoint = id
		g.maxLevel = level
	}
}

// addConnection links src to dst on level, pruning src's list when it
// exceeds the layer cap.
func (b *builder) addConnection(src, dst uint32, dist float64, level int) {
	n := &b.g.nodes[src]
	conns := n.links[level]

	if slices.Contains(conns, dst) {
		return
	}

	maxM := b.mmax(level)
	if len(conns) < maxM {
		n.links[level] = append(conns, dst)
		return
	}

	sv := b.vec(src)
	candidates := make([]searcher.PriorityQueueItem, 0, len(conns)+1)
	for _, c := range conns {
		candidates = append(candidates, searcher.PriorityQueueItem{Node: c, Distance: b.dist(sv, b.vec(c))})
	}
	candidates = append(candidates, searcher.PriorityQueueItem{Node: dst, Distance: dist})
	slices.SortFunc(candidates, searcher.Compare)

	neighbors := b.selectNeighbors(candidates, maxM)
	pruned := conns[:0]
	for _, nb := range neighbors {
		pruned = append(pruned, nb.Node)
	}
	n.links[level] = pruned
}

// selectNeighbors picks up to m neighbors from candidates sorted nearest first.
func (b *builder) selectNeighbors(candidates []searcher.PriorityQueueItem, m int) []searcher.PriorityQueueItem {
	if len(candidates) <= m {
		return candidates
	}
	if !b.opts.Heuristic {
		return candidates[:m]
	}

	result := b.applyHeuristic(candidates, m)
	if len(result) < m {
		result = b.fillUpNeighbors(result, candidates, m)
	}
	return result
}

// applyHeuristic keeps a candidate only if it is closer to the base node
// than to every neighbor already kept. A copy of a kept neighbor's vector is
// never kept, even at distance zero from the base node.
func (b *builder) applyHeuristic(candidates []searcher.PriorityQueueItem, m int) []searcher.PriorityQueueItem {
	result := make([]searcher.PriorityQueueItem, 0, m)

	for _, cand := range candidates {
		if len(result) >= m {
			break
		}

		candVec := b.vec(cand.Node)
		good := true
		for _, r := range result {
			rVec := b.vec(r.Node)
			if b.dist(candVec, rVec) < cand.Distance || slices.Equal(candVec, rVec) {
				good = false
				break
			}
		}

		if good {
			result = append(result, cand)
		}
	}

	return result
}

// fillUpNeighbors tops result up to m with the nearest unused candidates.
// Until every other candidate has been considered, copies of an already
// linked vector take at most half of the list.
func (b *builder) fillUpNeighbors(result, candidates []searcher.PriorityQueueItem, m int) []searcher.PriorityQueueItem {
	copies := m / 2

	for pass := 0; pass < 2 && len(result) < m; pass++ {
		for _, cand := range candidates {
			if len(result) >= m {
				break
			}
			if containsNode(result, cand.Node) {
				continue
			}
			if pass == 0 && b.copiesLinked(result, cand.Node) {
				if copies == 0 {
					continue
				}
				copies--
			}
			result = append(result, cand)
		}
	}
	return result
}

// copiesLinked reports whether result already holds a node with the same vector as id.
func (b *builder) copiesLinked(result []searcher.PriorityQueueItem, id uint32) bool {
	v := b.vec(id)
	return slices.ContainsFunc(result, func(r searcher.PriorityQueueItem) bool {
		return slices.Equal(b.vec(r.Node), v)
	})
}

func containsNode(items []searcher.PriorityQueueItem, id uint32) bool {
	return slices.ContainsFunc(items, func(r searcher.PriorityQueueItem) bool { return r.Node == id })
}
