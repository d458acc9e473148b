package bridge

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/horago"
)

func TestDecodeString(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"ASCII", []byte("index"), "index"},
		{"Empty", nil, ""},
		{"UTF8", []byte("größe"), "größe"},
		{"InvalidByte", []byte{'a', 0xff, 'b'}, "a�b"},
		{"InvalidRun", []byte{0xff, 0xfe, 'x'}, "�x"},
		{"TruncatedRune", []byte{'a', 0xc3}, "a�"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeString(tt.in))
		})
	}
}

func TestCopyFloats(t *testing.T) {
	src := []float64{1, 2, 3}
	dst := CopyFloats(src)
	src[0] = 99
	assert.Equal(t, []float64{1, 2, 3}, dst)

	assert.NotNil(t, CopyFloats(nil))
	assert.Empty(t, CopyFloats(nil))
}

func TestDimension(t *testing.T) {
	assert.Equal(t, 8, Dimension(8))
	assert.Equal(t, math.MaxInt, Dimension(math.MaxUint64))
}

func TestLifecycle(t *testing.T) {
	b := New(horago.New())

	b.NewIndex([]byte("test"), 8)
	b.Add([]byte("test"), []float64{1, 1, 1, 1, 1, 1, 1, 1}, []byte("id"))
	b.Add([]byte("test"), []float64{2, 2, 2, 2, 1, 1, 1, 1}, []byte("id2"))
	b.Add([]byte("test"), []float64{0, 0, 0, 0, 1, 1, 1, 1}, []byte("id3"))
	b.Add([]byte("test"), []float64{1, 2}, []byte("wrong-dimension"))

	require.Equal(t, "Ok", b.Build([]byte("test"), []byte("euclidean")))

	labels := b.Search([]byte("test"), 3, []float64{1, 1, 1, 1, 1, 1, 1, 1})
	require.Len(t, labels, 3)
	assert.Equal(t, "id", labels[0])
	assert.ElementsMatch(t, []string{"id", "id2", "id3"}, labels)

	path := []byte(filepath.Join(t.TempDir(), "test.hora"))
	b.Dump([]byte("test"), path)
	b.Load([]byte("copy"), path)
	assert.Equal(t, labels, b.Search([]byte("copy"), 3, []float64{1, 1, 1, 1, 1, 1, 1, 1}))

	// A failed load keeps the previous index.
	b.Load([]byte("copy"), []byte(filepath.Join(t.TempDir(), "missing.hora")))
	assert.Equal(t, labels, b.Search([]byte("copy"), 3, []float64{1, 1, 1, 1, 1, 1, 1, 1}))
}

func TestMissingIndex(t *testing.T) {
	b := New(horago.New())

	assert.Equal(t, "No index", b.Build([]byte("nope"), []byte("euclidean")))
	assert.Equal(t, []string{}, b.Search([]byte("nope"), 1, []float64{1}))
	b.Add([]byte("nope"), []float64{1}, []byte("x"))
	b.Dump([]byte("nope"), []byte(filepath.Join(t.TempDir(), "x.hora")))
}

func TestLossyNames(t *testing.T) {
	b := New(horago.New())

	b.NewIndex([]byte{'n', 0xff}, 1)
	b.Add([]byte("n\uFFFD"), []float64{1}, []byte{'l', 0xfe})
	require.Equal(t, "Ok", b.Build([]byte("n\uFFFD"), []byte("manhattan")))
	assert.Equal(t, []string{"l\uFFFD"}, b.Search([]byte{'n', 0xff}, 1, []float64{0}))
}

func TestDefaultRegistry(t *testing.T) {
	assert.NotNil(t, New(nil).reg)
	assert.Same(t, horago.Default(), New(nil).reg)
}
