package hnsw

import (
	"gonum.org/v1/gonum/stat"
)

// LevelStats describes one graph layer.
type LevelStats struct {
	Level        int     `json:"level"`
	Nodes        int     `json:"nodes"`
	Connections  int     `json:"connections"`
	MeanDegree   float64 `json:"mean_degree"`
	StdDevDegree float64 `json:"stddev_degree"`
}

// Stats summarizes an index.
type Stats struct {
	Dimension      int          `json:"dimension"`
	Items          int          `json:"items"`
	Built          bool         `json:"built"`
	Metric         string       `json:"metric"`
	IndexedItems   int          `json:"indexed_items"`
	EntryPoint     uint32       `json:"entry_point"`
	MaxLevel       int          `json:"max_level"`
	M              int          `json:"m"`
	EFConstruction int          `json:"ef_construction"`
	EFSearch       int          `json:"ef_search"`
	Levels         []LevelStats `json:"levels,omitempty"`
}

// Stats returns statistics about the index and its graph.
func (ix *Index) Stats() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	st := Stats{
		Dimension:      ix.dimension,
		Items:          len(ix.items),
		Built:          ix.graph != nil,
		Metric:         ix.metric.String(),
		M:              ix.opts.M,
		EFConstruction: ix.opts.EFConstruction,
		EFSearch:       ix.opts.EFSearch,
	}

	g := ix.graph
	if g == nil {
		return st
	}

	st.IndexedItems = len(g.nodes)
	st.EntryPoint = g.entryPoint
	st.MaxLevel = g.maxLevel

	layers := layerMembers(g)
	st.Levels = make([]LevelStats, len(layers))
	for l, members := range layers {
		degrees := make([]float64, 0, members.GetCardinality())
		connections := 0
		it := members.Iterator()
		for it.HasNext() {
			d := len(g.nodes[it.Next()].links[l])
			degrees = append(degrees, float64(d))
			connections += d
		}

		ls := LevelStats{
			Level:       l,
			Nodes:       len(degrees),
			Connections: connections,
		}
		if len(degrees) > 0 {
			ls.MeanDegree, ls.StdDevDegree = stat.MeanStdDev(degrees, nil)
		}
		if len(degrees) < 2 {
			ls.StdDevDegree = 0
		}
		st.Levels[l] = ls
	}

	return st
}
