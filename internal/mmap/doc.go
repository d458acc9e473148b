// Package mmap provides read-only memory-mapped file access.
//
// Dump files are mapped rather than read so that loading a large index does
// not first copy the whole file through a user-space buffer.
//
//	m, err := mmap.Open("vectors.hora")
//	if err != nil { ... }
//	defer m.Close()
//
//	m.Advise(mmap.AccessSequential)
//	hdr, body, err := persistence.Decode(m.Reader())
//
// Unix uses mmap(2) with madvise(2) hints. Windows uses
// CreateFileMapping/MapViewOfFile and ignores hints.
//
// Callers must not touch Bytes() after Close returns.
package mmap
