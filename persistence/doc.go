// Package persistence provides the envelope used for index dump files.
//
// A dump is a fixed 32-byte little-endian FileHeader followed by the index
// body. The body may be compressed with LZ4 (frame format) or Zstandard; the
// header records which one, along with the CRC32 of the uncompressed body so
// that truncation and bit rot are detected on load.
//
// Any failure to parse a stream wraps ErrCorrupt, so callers can separate
// malformed data from I/O errors with errors.Is.
package persistence
