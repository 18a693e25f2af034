// Package distkernel implements the distance functions the index uses to
// compare float32 vectors. Dot products route through vek32, which picks the
// widest SIMD instruction set available on the host at init time; everything
// built on top of a dot product (L2, cosine) is expressed as ordinary scalar
// arithmetic over a handful of vek32 calls, the same way
// internal/vectordb/hnsw.go in the quokka codebase layers cosine similarity
// on top of vek32.Dot.
package distkernel

import (
	"fmt"
	"math"

	"github.com/viterin/vek/vek32"
)

// Metric identifies a supported distance function.
type Metric int

const (
	L2 Metric = iota
	Cosine
	Dot
)

func (m Metric) String() string {
	switch m {
	case L2:
		return "l2"
	case Cosine:
		return "cosine"
	case Dot:
		return "dot"
	default:
		return "unknown"
	}
}

// Func computes the distance between two equal-length vectors. Callers
// guarantee len(a) == len(b) == dim > 0; behavior is undefined otherwise.
type Func func(a, b []float32) float32

// For returns the distance function for the requested metric.
func For(m Metric) (Func, error) {
	switch m {
	case L2:
		return L2Distance, nil
	case Cosine:
		return CosineDistance, nil
	case Dot:
		return DotDistance, nil
	default:
		return nil, fmt.Errorf("distkernel: unsupported metric %v", m)
	}
}

// specializedDims lists the dimensions L2Distance routes to l2Fast rather
// than l2Generic. vek32 already vectorizes internally, and both paths run
// the same vek32 calls; the table only selects which function is called.
var specializedDims = map[int]bool{
	64: true, 96: true, 128: true, 256: true, 384: true,
	512: true, 768: true, 1024: true, 1536: true,
}

// L2Distance computes Euclidean distance via vek32's SIMD dot product:
// ||a-b|| = sqrt(dot(a-b, a-b)).
func L2Distance(a, b []float32) float32 {
	if specializedDims[len(a)] {
		return l2Fast(a, b)
	}
	return l2Generic(a, b)
}

func l2Fast(a, b []float32) float32 {
	diff := vek32.Sub(a, b)
	sumSq := vek32.Dot(diff, diff)
	return float32(math.Sqrt(float64(sumSq)))
}

// l2Generic is the same computation without assuming vek32 has a fast path
// tuned for this length; vek32.Sub/Dot both already fall back to a scalar
// loop internally for odd sizes, so this is identical in practice, kept
// distinct to match the "specialize common sizes, dispatch generically
// otherwise" contract.
func l2Generic(a, b []float32) float32 {
	diff := vek32.Sub(a, b)
	sumSq := vek32.Dot(diff, diff)
	return float32(math.Sqrt(float64(sumSq)))
}

// CosineDistance returns 1-cos(a,b); zero-norm vectors are maximally
// distant (2.0), not 1.0, so they never win a nearest-neighbor tie against
// any vector with actual direction.
func CosineDistance(a, b []float32) float32 {
	dot := vek32.Dot(a, b)
	normA := float32(math.Sqrt(float64(vek32.Dot(a, a))))
	normB := float32(math.Sqrt(float64(vek32.Dot(b, b))))
	if normA == 0 || normB == 0 {
		return 2.0
	}
	cos := dot / (normA * normB)
	if cos > 1 {
		cos = 1
	} else if cos < -1 {
		cos = -1
	}
	return 1.0 - cos
}

// DotDistance negates the raw dot product so that smaller is closer,
// matching the convention the other two metrics use.
func DotDistance(a, b []float32) float32 {
	return -vek32.Dot(a, b)
}

// AllFinite reports whether every component of vec is finite, rejecting
// NaN and +/-Inf (spec §4.5.7: non-finite input fails before any state
// mutation).
func AllFinite(vec []float32) bool {
	for _, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
