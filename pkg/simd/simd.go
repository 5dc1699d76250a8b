package simd

import (
	"math"

	"github.com/viterin/vek"
)

// DotProduct computes the dot product of two vectors.
//
// Returns 0 if vectors are empty or have different lengths; callers that
// must reject mismatched lengths check before calling.
//
// Example:
//
//	a := []float64{1, 2, 3}
//	b := []float64{4, 5, 6}
//	result := simd.DotProduct(a, b) // 1*4 + 2*5 + 3*6 = 32
func DotProduct(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	return vek.Dot(a, b)
}

// CosineSimilarity computes the cosine similarity between two vectors,
// between -1 (opposite) and 1 (same direction).
//
// Returns 0 if vectors are empty, have different lengths, or either has
// zero magnitude.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	// vek returns NaN for zero vectors, we want 0
	result := vek.CosineSimilarity(a, b)
	if math.IsNaN(result) {
		return 0
	}
	return result
}

// EuclideanDistance computes sqrt(sum((a[i] - b[i])^2)).
//
// Example:
//
//	a := []float64{0, 0}
//	b := []float64{3, 4}
//	result := simd.EuclideanDistance(a, b) // 5.0
func EuclideanDistance(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	return vek.Distance(a, b)
}

// Norm computes the Euclidean norm (L2 norm) of a vector.
func Norm(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return vek.Norm(v)
}
