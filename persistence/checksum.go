package persistence

import (
	"fmt"
	"hash"
	"hash/crc32"
	"io"
)

// CRC32 detects accidental corruption only; it is not a tamper check.

var crcTable = crc32.MakeTable(crc32.IEEE)

// ComputeChecksum returns the CRC32 (IEEE) of data.
func ComputeChecksum(data []byte) uint32 {
	return crc32.Checksum(data, crcTable)
}

// ChecksumReader hashes everything read through it and checks the running
// sum against the value recorded in a dump header.
type ChecksumReader struct {
	r        io.Reader
	crc      hash.Hash32
	expected uint32
}

// NewChecksumReader wraps r. Verify compares the bytes read so far with expected.
func NewChecksumReader(r io.Reader, expected uint32) *ChecksumReader {
	return &ChecksumReader{r: r, crc: crc32.New(crcTable), expected: expected}
}

func (cr *ChecksumReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	_, _ = cr.crc.Write(p[:n])
	return n, err
}

// Verify returns a *ChecksumMismatchError if the data read does not hash to
// the expected sum.
func (cr *ChecksumReader) Verify() error {
	if got := cr.crc.Sum32(); got != cr.expected {
		return &ChecksumMismatchError{Expected: cr.expected, Actual: got}
	}
	return nil
}

// ChecksumMismatchError reports a body whose CRC32 differs from its header.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: header 0x%08x, body 0x%08x", e.Expected, e.Actual)
}

// Unwrap makes checksum failures match ErrCorrupt.
func (e *ChecksumMismatchError) Unwrap() error { return ErrCorrupt }
