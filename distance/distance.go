package distance

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/viterin/vek"
)

// ErrUnsupportedMetric is returned when a metric has no comparator.
var ErrUnsupportedMetric = errors.New("unsupported metric")

// Metric represents the distance metric used for vector comparison.
type Metric uint8

const (
	Unknown Metric = iota
	Angular
	Manhattan
	DotProduct
	Euclidean
	CosineSimilarity
)

// Metrics lists every metric with a comparator.
var Metrics = []Metric{Angular, Manhattan, DotProduct, Euclidean, CosineSimilarity}

func (m Metric) String() string {
	switch m {
	case Angular:
		return "angular"
	case Manhattan:
		return "manhattan"
	case DotProduct:
		return "dot_product"
	case Euclidean:
		return "euclidean"
	case CosineSimilarity:
		return "cosine_similarity"
	default:
		return "unknown"
	}
}

// Valid reports whether m has a comparator.
func (m Metric) Valid() bool {
	return m >= Angular && m <= CosineSimilarity
}

// Parse maps a metric name to a Metric. Names are case-insensitive and
// surrounding whitespace is ignored. Unrecognized names yield Unknown.
func Parse(name string) Metric {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "angular":
		return Angular
	case "manhattan":
		return Manhattan
	case "dot_product":
		return DotProduct
	case "euclidean":
		return Euclidean
	case "cosine_similarity":
		return CosineSimilarity
	default:
		return Unknown
	}
}

// Func computes the distance between two vectors of equal length.
// Smaller values mean closer vectors.
type Func func(a, b []float64) float64

// Provider returns the distance function for the given metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case Euclidean:
		return L2, nil
	case Manhattan:
		return L1, nil
	case Angular:
		return AngularDistance, nil
	case CosineSimilarity:
		return CosineDistance, nil
	case DotProduct:
		return NegativeDot, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedMetric, m)
	}
}

// L2 calculates the Euclidean distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func L2(a, b []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	return vek.Distance(a, b)
}

// L1 calculates the Manhattan distance between two vectors.
func L1(a, b []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	return vek.ManhattanDistance(a, b)
}

// Dot calculates the inner product of two vectors.
func Dot(a, b []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	return vek.Dot(a, b)
}

// NegativeDot returns -a·b so that a larger inner product ranks closer.
func NegativeDot(a, b []float64) float64 {
	return -Dot(a, b)
}

// Cosine returns the cosine of the angle between a and b.
// A zero-norm operand yields 0 (orthogonal).
func Cosine(a, b []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	na := vek.Norm(a)
	nb := vek.Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	c := vek.Dot(a, b) / (na * nb)
	// Clamp rounding drift so Acos stays defined.
	return math.Max(-1, math.Min(1, c))
}

// CosineDistance returns 1 - cos(a, b), in [0, 2].
func CosineDistance(a, b []float64) float64 {
	return 1 - Cosine(a, b)
}

// AngularDistance returns the angle between a and b normalized by π, in [0, 1].
func AngularDistance(a, b []float64) float64 {
	return math.Acos(Cosine(a, b)) / math.Pi
}
