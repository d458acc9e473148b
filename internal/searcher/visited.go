package searcher

import "github.com/bits-and-blooms/bitset"

// VisitedSet tracks visited nodes using a bitset and a dirty list for fast reset.
type VisitedSet struct {
	bits  *bitset.BitSet
	dirty []uint32
}

// NewVisitedSet creates a new visited set sized for capacity nodes.
func NewVisitedSet(capacity int) *VisitedSet {
	return &VisitedSet{
		bits:  bitset.New(uint(max(capacity, 0))),
		dirty: make([]uint32, 0, 128),
	}
}

// Visit marks a node as visited.
func (v *VisitedSet) Visit(id uint32) {
	if v.bits.Test(uint(id)) {
		return
	}
	v.bits.Set(uint(id))
	v.dirty = append(v.dirty, id)
}

// Visited returns true if the node has been visited.
func (v *VisitedSet) Visited(id uint32) bool {
	return v.bits.Test(uint(id))
}

// Reset clears the visited status for all nodes visited in the current session.
func (v *VisitedSet) Reset() {
	for _, id := range v.dirty {
		v.bits.Clear(uint(id))
	}
	v.dirty = v.dirty[:0]
}
