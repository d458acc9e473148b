// Package bridge adapts raw foreign-call arguments to registry operations.
//
// It holds everything the C surface in cmd/libhora does besides pointer
// conversion, so the marshaling rules can be tested without cgo.
package bridge

import (
	"math"
	"strings"

	"github.com/hupe1980/horago"
)

// ReplacementChar substitutes invalid UTF-8 sequences in decoded strings.
const ReplacementChar = "\uFFFD"

// DecodeString converts raw bytes into a valid UTF-8 string, replacing each
// run of invalid bytes with U+FFFD.
func DecodeString(raw []byte) string {
	return strings.ToValidUTF8(string(raw), ReplacementChar)
}

// CopyFloats returns a copy of src so callers may reuse their buffer once
// the call returns.
func CopyFloats(src []float64) []float64 {
	if len(src) == 0 {
		return []float64{}
	}
	dst := make([]float64, len(src))
	copy(dst, src)
	return dst
}

// Dimension converts a foreign size to an int, saturating at math.MaxInt.
func Dimension(n uint64) int {
	if n > math.MaxInt {
		return math.MaxInt
	}
	return int(n)
}

// Bridge forwards decoded calls to a registry.
type Bridge struct {
	reg *horago.Registry
}

// New returns a Bridge over reg. A nil reg selects horago.Default().
func New(reg *horago.Registry) *Bridge {
	if reg == nil {
		reg = horago.Default()
	}
	return &Bridge{reg: reg}
}

// NewIndex creates (or replaces) an index.
func (b *Bridge) NewIndex(name []byte, dimension uint64) {
	b.reg.Create(DecodeString(name), Dimension(dimension))
}

// Add appends a vector. Failures are logged by the registry and dropped.
func (b *Bridge) Add(name []byte, features []float64, label []byte) {
	_ = b.reg.Add(DecodeString(name), CopyFloats(features), DecodeString(label))
}

// Build returns "Ok", the failure message or "No index".
func (b *Bridge) Build(name, metric []byte) string {
	return b.reg.Build(DecodeString(name), DecodeString(metric))
}

// Search returns the labels of the k nearest neighbors, closest first.
func (b *Bridge) Search(name []byte, k uint64, features []float64) []string {
	return b.reg.Search(DecodeString(name), Dimension(k), CopyFloats(features))
}

// Load replaces the named index with the dump at path. Failures are logged
// by the registry and leave it unchanged.
func (b *Bridge) Load(name, path []byte) {
	_ = b.reg.Load(DecodeString(name), DecodeString(path))
}

// Dump writes the named index to path. Failures are logged by the registry.
func (b *Bridge) Dump(name, path []byte) {
	_ = b.reg.Dump(DecodeString(name), DecodeString(path))
}
