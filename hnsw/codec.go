package hnsw

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/horago/distance"
	"github.com/hupe1980/horago/internal/mmap"
	"github.com/hupe1980/horago/persistence"
)

// Body layout (little-endian), following the persistence.FileHeader:
//
//	params:  M u32 | EFConstruction u32 | EFSearch u32 | Heuristic u8 | Seed u64
//	state:   Metric u8 | Built u8
//	items:   ItemCount x (LabelLen u32 | Label | Dimension x f64)
//	graph:   NodeCount u32 | EntryPoint u32 | MaxLevel u8
//	         NodeCount x (Level u8 | (Level+1) x (LinkCount u32 | LinkCount x u32))
//
// The graph section is present only when Built is 1.

// WriteTo serializes the index to w using the index's configured
// compression. It implements io.WriterTo.
func (ix *Index) WriteTo(w io.Writer) (int64, error) {
	return ix.Encode(w, ix.opts.Compression)
}

// Encode serializes the index to w with the given body compression.
func (ix *Index) Encode(w io.Writer, c persistence.Compression) (int64, error) {
	ix.mu.RLock()
	body := ix.encodeBody()
	hdr := persistence.FileHeader{
		Compression: c,
		Dimension:   uint32(ix.dimension),
		ItemCount:   uint64(len(ix.items)),
	}
	if ix.graph != nil {
		hdr.Flags |= persistence.FlagBuilt
	}
	ix.mu.RUnlock()

	return persistence.Encode(w, hdr, body)
}

// Dump writes the index to path atomically. Failures match ErrIO.
func (ix *Index) Dump(path string) error {
	err := persistence.SaveToFile(path, func(w io.Writer) error {
		_, err := ix.WriteTo(w)
		return err
	})
	if err != nil {
		return ioError("dump", path, err)
	}
	return nil
}

// Load reads an index previously written by Dump. Filesystem failures match
// ErrIO; malformed content matches ErrCorruptData.
func Load(path string) (*Index, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, ioError("load", path, err)
	}
	defer m.Close()

	_ = m.Advise(mmap.AccessSequential)

	ix, err := ReadFrom(m.Reader())
	if err != nil {
		if errors.Is(err, ErrCorruptData) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		return nil, ioError("load", path, err)
	}
	return ix, nil
}

// ReadFrom decodes an index from r. Malformed content matches ErrCorruptData;
// read failures of r are wrapped in ErrIO.
func ReadFrom(r io.Reader) (*Index, error) {
	hdr, body, err := persistence.Decode(r)
	if err != nil {
		if errors.Is(err, ErrCorruptData) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	ix, err := decodeBody(hdr, body)
	if err != nil {
		return nil, persistence.Corrupt(err)
	}
	return ix, nil
}

func (ix *Index) encodeBody() []byte {
	size := 32
	for _, it := range ix.items {
		size += 4 + len(it.label) + 8*len(it.vector)
	}
	buf := make([]byte, 0, size)

	heuristic := uint8(0)
	if ix.opts.Heuristic {
		heuristic = 1
	}
	buf = binary.LittleEndian.AppendUint32(buf, uint32(ix.opts.M))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(ix.opts.EFConstruction))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(ix.opts.EFSearch))
	buf = append(buf, heuristic)
	buf = binary.LittleEndian.AppendUint64(buf, ix.seed)

	built := uint8(0)
	if ix.graph != nil {
		built = 1
	}
	buf = append(buf, uint8(ix.metric), built)

	for _, it := range ix.items {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(it.label)))
		buf = append(buf, it.label...)
		for _, f := range it.vector {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(f))
		}
	}

	if g := ix.graph; g != nil {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(g.nodes)))
		buf = binary.LittleEndian.AppendUint32(buf, g.entryPoint)
		buf = append(buf, uint8(g.maxLevel))
		for _, n := range g.nodes {
			buf = append(buf, uint8(n.level))
			for _, conns := range n.links {
				buf = binary.LittleEndian.AppendUint32(buf, uint32(len(conns)))
				for _, c := range conns {
					buf = binary.LittleEndian.AppendUint32(buf, c)
				}
			}
		}
	}

	return buf
}

func decodeBody(hdr persistence.FileHeader, body []byte) (*Index, error) {
	d := &decoder{buf: body}

	dim := int(hdr.Dimension)
	opts := DefaultOptions
	opts.M = int(d.u32())
	opts.EFConstruction = int(d.u32())
	opts.EFSearch = int(d.u32())
	opts.Heuristic = d.u8() == 1
	seed := d.u64()
	seedInt := int64(seed)
	opts.RandomSeed = &seedInt
	opts.Compression = hdr.Compression

	metric := distance.Metric(d.u8())
	built := d.u8() == 1
	if d.err != nil {
		return nil, d.err
	}

	if opts.M < minimumM || opts.EFConstruction < 1 || opts.EFSearch < 1 {
		return nil, fmt.Errorf("invalid parameters: M=%d efConstruction=%d efSearch=%d", opts.M, opts.EFConstruction, opts.EFSearch)
	}
	if built != (hdr.Flags&persistence.FlagBuilt != 0) {
		return nil, errors.New("built flag disagrees with body")
	}

	// Every item needs at least its label length and vector.
	minItem := uint64(4) + 8*uint64(dim)
	if hdr.ItemCount > uint64(len(body))/minItem {
		return nil, fmt.Errorf("%w: %d items of dimension %d cannot fit in %d bytes", persistence.ErrTruncated, hdr.ItemCount, dim, len(body))
	}

	ix := &Index{
		dimension: dim,
		opts:      opts,
		seed:      seed,
		items:     make([]item, 0, hdr.ItemCount),
	}

	for range hdr.ItemCount {
		label := string(d.bytes(int(d.u32())))
		vec := make([]float64, dim)
		for j := range vec {
			vec[j] = math.Float64frombits(d.u64())
		}
		if d.err != nil {
			return nil, d.err
		}
		ix.items = append(ix.items, item{label: label, vector: vec})
	}

	if built {
		if !metric.Valid() {
			return nil, fmt.Errorf("%w: %d", ErrUnsupportedMetric, metric)
		}
		g, err := decodeGraph(d, len(ix.items), ix.mmax)
		if err != nil {
			return nil, err
		}
		ix.graph = g
		ix.metric = metric
		ix.dist, _ = distance.Provider(metric)
	}

	if d.err != nil {
		return nil, d.err
	}
	if d.off != len(d.buf) {
		return nil, fmt.Errorf("%d trailing bytes after index body", len(d.buf)-d.off)
	}

	return ix, nil
}

func decodeGraph(d *decoder, itemCount int, mmax func(int) int) (*graph, error) {
	count := int(d.u32())
	entryPoint := d.u32()
	maxLevel := int(d.u8())
	if d.err != nil {
		return nil, d.err
	}

	if count == 0 || count > itemCount {
		return nil, fmt.Errorf("graph has %d nodes for %d items", count, itemCount)
	}
	if int(entryPoint) >= count {
		return nil, fmt.Errorf("entry point %d out of range", entryPoint)
	}
	if maxLevel > maxLevelCap {
		return nil, fmt.Errorf("max level %d exceeds %d", maxLevel, maxLevelCap)
	}

	g := &graph{
		nodes:      make([]node, count),
		entryPoint: entryPoint,
		maxLevel:   maxLevel,
	}

	for i := range g.nodes {
		level := int(d.u8())
		if d.err != nil {
			return nil, d.err
		}
		if level > maxLevel {
			return nil, fmt.Errorf("node %d level %d above max level %d", i, level, maxLevel)
		}

		links := make([][]uint32, level+1)
		for l := range links {
			n := int(d.u32())
			if d.err != nil {
				return nil, d.err
			}
			if n > mmax(l) {
				return nil, fmt.Errorf("node %d has %d links on layer %d", i, n, l)
			}
			if n == 0 {
				continue
			}
			conns := make([]uint32, n)
			for j := range conns {
				conns[j] = d.u32()
			}
			links[l] = conns
		}
		if d.err != nil {
			return nil, d.err
		}
		g.nodes[i] = node{level: level, links: links}
	}

	if g.nodes[entryPoint].level != maxLevel {
		return nil, fmt.Errorf("entry point level %d, max level %d", g.nodes[entryPoint].level, maxLevel)
	}

	layers := layerMembers(g)
	for i, n := range g.nodes {
		for l, conns := range n.links {
			for _, c := range conns {
				if !layers[l].Contains(c) {
					return nil, fmt.Errorf("node %d links to %d, which is not on layer %d", i, c, l)
				}
			}
		}
	}

	return g, nil
}

// layerMembers returns, per layer, the set of nodes present on it.
func layerMembers(g *graph) []*roaring.Bitmap {
	layers := make([]*roaring.Bitmap, g.maxLevel+1)
	for l := range layers {
		layers[l] = roaring.New()
	}
	for i, n := range g.nodes {
		for l := 0; l <= n.level && l < len(layers); l++ {
			layers[l].Add(uint32(i))
		}
	}
	return layers
}

// decoder reads little-endian values from a byte slice. The first short read
// sets err; later reads return zero values.
type decoder struct {
	buf []byte
	off int
	err error
}

func (d *decoder) next(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || len(d.buf)-d.off < n {
		d.err = fmt.Errorf("%w: need %d bytes at offset %d", persistence.ErrTruncated, n, d.off)
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) u8() uint8 {
	if b := d.next(1); b != nil {
		return b[0]
	}
	return 0
}

func (d *decoder) u32() uint32 {
	if b := d.next(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (d *decoder) u64() uint64 {
	if b := d.next(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (d *decoder) bytes(n int) []byte {
	return d.next(n)
}
