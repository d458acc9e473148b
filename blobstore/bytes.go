package blobstore

import (
	"bytes"
	"errors"
	"io"
	"sync/atomic"
)

// ErrClosed is returned when writing to a committed or aborted blob.
var ErrClosed = errors.New("blobstore: blob is closed")

// BytesBlob is a Blob over an in-memory byte slice.
type BytesBlob struct {
	data []byte
}

// NewBytesBlob returns a Blob reading from data. data must not be modified afterwards.
func NewBytesBlob(data []byte) *BytesBlob {
	return &BytesBlob{data: data}
}

func (b *BytesBlob) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("blobstore: negative offset")
	}
	if off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *BytesBlob) Close() error { return nil }

func (b *BytesBlob) Size() int64 { return int64(len(b.data)) }

func (b *BytesBlob) Bytes() ([]byte, error) { return b.data, nil }

// BufferedBlob is a WritableBlob that collects writes in memory and hands
// them to commit on Close. Backends without streaming writes use it.
type BufferedBlob struct {
	buf      bytes.Buffer
	commit   func(data []byte) error
	finished atomic.Bool
}

// NewBufferedBlob returns a WritableBlob that calls commit with the written
// bytes when closed.
func NewBufferedBlob(commit func(data []byte) error) *BufferedBlob {
	return &BufferedBlob{commit: commit}
}

func (w *BufferedBlob) Write(p []byte) (int, error) {
	if w.finished.Load() {
		return 0, ErrClosed
	}
	return w.buf.Write(p)
}

func (w *BufferedBlob) Close() error {
	if !w.finished.CompareAndSwap(false, true) {
		return ErrClosed
	}
	return w.commit(w.buf.Bytes())
}

func (w *BufferedBlob) Abort() error {
	if w.finished.CompareAndSwap(false, true) {
		w.buf.Reset()
	}
	return nil
}

func (w *BufferedBlob) Sync() error { return nil }
