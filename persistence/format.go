package persistence

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Version is the current file format version.
	Version uint16 = 1

	// HeaderSize is the encoded size of FileHeader in bytes.
	HeaderSize = 32
)

// Magic identifies horago dump files (ASCII: "HORA").
var Magic = [4]byte{'H', 'O', 'R', 'A'}

var (
	// ErrCorrupt is the parent of every malformed-stream error.
	ErrCorrupt = errors.New("corrupt data")

	ErrInvalidMagic       = errors.New("invalid magic number")
	ErrInvalidVersion     = errors.New("unsupported version")
	ErrUnknownCompression = errors.New("unknown compression")
	ErrTruncated          = errors.New("truncated stream")
)

// Corrupt wraps err so that it matches ErrCorrupt.
func Corrupt(err error) error {
	if err == nil || errors.Is(err, ErrCorrupt) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrCorrupt, err)
}

// Compression selects the body codec.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionLZ4
	CompressionZSTD
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("Compression(%d)", uint8(c))
	}
}

// ParseCompression maps a name ("none", "lz4", "zstd") to a Compression.
// The empty string means none.
func ParseCompression(name string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCompression, name)
	}
}

// FileHeader is the 32-byte header at the start of every dump file.
type FileHeader struct {
	Magic       [4]byte
	Version     uint16
	Compression Compression
	Flags       uint8
	Dimension   uint32
	ItemCount   uint64
	Checksum    uint32 // CRC32 of the uncompressed body
	BodyLength  uint64 // uncompressed body size in bytes
}

// Flag bits stored in FileHeader.Flags.
const (
	// FlagBuilt marks a dump that carries a graph.
	FlagBuilt uint8 = 1 << iota
)
