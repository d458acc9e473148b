package hnsw

import (
	"errors"
	"fmt"

	"github.com/hupe1980/horago/distance"
	"github.com/hupe1980/horago/persistence"
)

var (
	// ErrDimensionMismatchKind matches every *ErrDimensionMismatch via errors.Is.
	ErrDimensionMismatchKind = errors.New("dimension mismatch")

	// ErrEmptyIndex is returned by Build when no vectors have been added.
	ErrEmptyIndex = errors.New("index is empty")

	// ErrIO wraps filesystem and storage failures during Dump and Load.
	ErrIO = errors.New("i/o error")

	// ErrCorruptData matches malformed dump streams.
	ErrCorruptData = persistence.ErrCorrupt

	// ErrUnsupportedMetric is returned by Build for metrics without a comparator.
	ErrUnsupportedMetric = distance.ErrUnsupportedMetric
)

// ErrDimensionMismatch reports a vector whose length differs from the index dimension.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Is reports whether target is ErrDimensionMismatchKind.
func (e *ErrDimensionMismatch) Is(target error) bool {
	return target == ErrDimensionMismatchKind
}

func ioError(op, path string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrIO, op, path, err)
}
