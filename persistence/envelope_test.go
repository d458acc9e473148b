package persistence

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderSize(t *testing.T) {
	var buf bytes.Buffer
	_, err := Encode(&buf, FileHeader{}, nil)
	require.NoError(t, err)
	assert.Equal(t, HeaderSize, buf.Len())
}

func TestEncodeDecode(t *testing.T) {
	body := bytes.Repeat([]byte("horago dump body "), 512)

	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			var buf bytes.Buffer
			n, err := Encode(&buf, FileHeader{Compression: c, Dimension: 8, ItemCount: 3, Flags: FlagBuilt}, body)
			require.NoError(t, err)
			assert.Equal(t, int64(buf.Len()), n)

			hdr, got, err := Decode(&buf)
			require.NoError(t, err)
			assert.Equal(t, body, got)
			assert.Equal(t, Magic, hdr.Magic)
			assert.Equal(t, Version, hdr.Version)
			assert.Equal(t, c, hdr.Compression)
			assert.Equal(t, uint32(8), hdr.Dimension)
			assert.Equal(t, uint64(3), hdr.ItemCount)
			assert.Equal(t, FlagBuilt, hdr.Flags&FlagBuilt)
		})
	}
}

func TestCompressionShrinksRepetitiveBody(t *testing.T) {
	body := bytes.Repeat([]byte{1, 2, 3, 4}, 4096)

	var plain, packed bytes.Buffer
	_, err := Encode(&plain, FileHeader{}, body)
	require.NoError(t, err)
	_, err = Encode(&packed, FileHeader{Compression: CompressionZSTD}, body)
	require.NoError(t, err)

	assert.Less(t, packed.Len(), plain.Len())
}

func TestDecodeCorrupt(t *testing.T) {
	body := []byte("0123456789abcdef")
	var good bytes.Buffer
	_, err := Encode(&good, FileHeader{}, body)
	require.NoError(t, err)
	raw := good.Bytes()

	tests := []struct {
		name   string
		data   []byte
		target error
	}{
		{"Empty", nil, ErrTruncated},
		{"ShortHeader", raw[:10], ErrTruncated},
		{"BadMagic", append([]byte("NOPE"), raw[4:]...), ErrInvalidMagic},
		{"TruncatedBody", raw[:len(raw)-3], ErrTruncated},
		{"TrailingData", append(append([]byte{}, raw...), 0xFF), ErrTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(bytes.NewReader(tt.data))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCorrupt)
			assert.ErrorIs(t, err, tt.target)
		})
	}

	t.Run("BadVersion", func(t *testing.T) {
		data := append([]byte{}, raw...)
		data[4] = 0xEE
		_, _, err := Decode(bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrInvalidVersion)
		assert.ErrorIs(t, err, ErrCorrupt)
	})

	t.Run("FlippedBit", func(t *testing.T) {
		data := append([]byte{}, raw...)
		data[len(data)-1] ^= 0x01
		_, _, err := Decode(bytes.NewReader(data))
		var mismatch *ChecksumMismatchError
		require.True(t, errors.As(err, &mismatch))
		assert.ErrorIs(t, err, ErrCorrupt)
	})
}

func TestChecksumReader(t *testing.T) {
	data := []byte("streamed body")

	cr := NewChecksumReader(bytes.NewReader(data), ComputeChecksum(data))
	got, err := io.ReadAll(cr)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	require.NoError(t, cr.Verify())

	t.Run("PartialRead", func(t *testing.T) {
		cr := NewChecksumReader(bytes.NewReader(data), ComputeChecksum(data))
		_, err := io.ReadAll(io.LimitReader(cr, 4))
		require.NoError(t, err)
		assert.ErrorIs(t, cr.Verify(), ErrCorrupt)
	})

	t.Run("Mismatch", func(t *testing.T) {
		cr := NewChecksumReader(bytes.NewReader(data), 0xdeadbeef)
		_, err := io.Copy(io.Discard, cr)
		require.NoError(t, err)

		var mismatch *ChecksumMismatchError
		require.ErrorAs(t, cr.Verify(), &mismatch)
		assert.Equal(t, uint32(0xdeadbeef), mismatch.Expected)
		assert.Equal(t, ComputeChecksum(data), mismatch.Actual)
	})
}

type failingReader struct{ err error }

func (f failingReader) Read([]byte) (int, error) { return 0, f.err }

func TestDecodePassesThroughReadErrors(t *testing.T) {
	boom := errors.New("disk on fire")
	_, _, err := Decode(failingReader{err: boom})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrCorrupt)
}

func TestParseCompression(t *testing.T) {
	for in, want := range map[string]Compression{"": CompressionNone, "none": CompressionNone, "LZ4": CompressionLZ4, "zstd": CompressionZSTD} {
		got, err := ParseCompression(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseCompression("brotli")
	assert.ErrorIs(t, err, ErrUnknownCompression)
}

func TestSaveAndLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.hora")

	err := SaveToFile(path, func(w io.Writer) error {
		_, err := Encode(w, FileHeader{Compression: CompressionLZ4}, []byte("payload"))
		return err
	})
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	_, body, err := Decode(f)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), body)

	matches, err := filepath.Glob(path + ".tmp-*")
	require.NoError(t, err)
	assert.Empty(t, matches, "temp files must be cleaned up")
}

func TestSaveToFileFailureLeavesNoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.hora")
	boom := errors.New("encode failed")

	err := SaveToFile(path, func(io.Writer) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoFileExists(t, path)
}
