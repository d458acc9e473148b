package persistence

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Encode writes hdr followed by body, compressed as hdr.Compression.
// Magic, Version, Checksum and BodyLength are filled in by Encode.
// It returns the number of bytes written to w.
func Encode(w io.Writer, hdr FileHeader, body []byte) (int64, error) {
	hdr.Magic = Magic
	hdr.Version = Version
	hdr.Checksum = ComputeChecksum(body)
	hdr.BodyLength = uint64(len(body))

	cw := &countingWriter{w: w}
	if err := binary.Write(cw, binary.LittleEndian, &hdr); err != nil {
		return cw.n, err
	}

	switch hdr.Compression {
	case CompressionNone:
		_, err := cw.Write(body)
		return cw.n, err
	case CompressionLZ4:
		zw := lz4.NewWriter(cw)
		if _, err := zw.Write(body); err != nil {
			return cw.n, err
		}
		err := zw.Close()
		return cw.n, err
	case CompressionZSTD:
		zw, err := zstd.NewWriter(cw, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return cw.n, err
		}
		if _, err := zw.Write(body); err != nil {
			_ = zw.Close()
			return cw.n, err
		}
		err = zw.Close()
		return cw.n, err
	default:
		return cw.n, fmt.Errorf("%w: %v", ErrUnknownCompression, hdr.Compression)
	}
}

// Decode reads a header and its body from r, decompressing and verifying
// the checksum. Malformed input yields errors matching ErrCorrupt; read
// failures of r itself are returned as-is.
func Decode(r io.Reader) (FileHeader, []byte, error) {
	var hdr FileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return hdr, nil, truncated(err)
	}
	if hdr.Magic != Magic {
		return hdr, nil, Corrupt(fmt.Errorf("%w: got %q", ErrInvalidMagic, hdr.Magic[:]))
	}
	if hdr.Version != Version {
		return hdr, nil, Corrupt(fmt.Errorf("%w: got %d", ErrInvalidVersion, hdr.Version))
	}

	var src io.Reader
	switch hdr.Compression {
	case CompressionNone:
		src = r
	case CompressionLZ4:
		src = lz4.NewReader(r)
	case CompressionZSTD:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return hdr, nil, Corrupt(err)
		}
		defer dec.Close()
		src = dec
	default:
		return hdr, nil, Corrupt(fmt.Errorf("%w: %d", ErrUnknownCompression, hdr.Compression))
	}

	cr := NewChecksumReader(src, hdr.Checksum)

	// Read one byte past the declared length to detect trailing data.
	body, err := io.ReadAll(io.LimitReader(cr, int64(hdr.BodyLength)+1))
	if err != nil {
		if hdr.Compression != CompressionNone {
			return hdr, nil, Corrupt(err)
		}
		return hdr, nil, truncated(err)
	}
	if uint64(len(body)) != hdr.BodyLength {
		return hdr, nil, Corrupt(fmt.Errorf("%w: body is %d bytes, header declares %d", ErrTruncated, len(body), hdr.BodyLength))
	}

	if err := cr.Verify(); err != nil {
		return hdr, nil, err
	}

	return hdr, body, nil
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return Corrupt(fmt.Errorf("%w: %w", ErrTruncated, err))
	}
	return err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
