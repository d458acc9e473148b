package horago

import (
	"errors"
	"fmt"

	"github.com/hupe1980/horago/blobstore"
	"github.com/hupe1980/horago/hnsw"
	"github.com/hupe1980/horago/resource"
)

var (
	// ErrNotFound is returned by typed operations addressed to an unknown index name.
	ErrNotFound = errors.New("no such index")

	// ErrDimensionMismatchKind matches every *ErrDimensionMismatch via errors.Is.
	ErrDimensionMismatchKind = hnsw.ErrDimensionMismatchKind

	// ErrEmptyIndex is returned when building an index without vectors.
	ErrEmptyIndex = hnsw.ErrEmptyIndex

	// ErrIO wraps storage failures during Dump and Load.
	ErrIO = hnsw.ErrIO

	// ErrCorruptData is returned when a dump is malformed.
	ErrCorruptData = hnsw.ErrCorruptData

	// ErrUnsupportedMetric is returned when building with an unknown metric.
	ErrUnsupportedMetric = hnsw.ErrUnsupportedMetric

	// ErrMemoryLimit is returned when the resource controller's memory budget
	// cannot hold new vectors.
	ErrMemoryLimit = resource.ErrMemoryLimit

	// ErrInvalidPath is returned when a dump or load path would leave the
	// configured blob store.
	ErrInvalidPath = blobstore.ErrInvalidName
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
type ErrDimensionMismatch = hnsw.ErrDimensionMismatch

// translateError maps storage failures that escaped the index codec into the
// taxonomy. Errors already in the taxonomy pass through.
func translateError(op, path string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrIO),
		errors.Is(err, ErrCorruptData),
		errors.Is(err, ErrMemoryLimit),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidPath):
		return err
	}

	return fmt.Errorf("%w: %s %s: %w", ErrIO, op, path, err)
}
