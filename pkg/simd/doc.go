// Package simd holds the float64 vector kernels behind the dot,
// cosineSimilarity, distance and norm built-ins.
//
// Everything delegates to github.com/viterin/vek, which picks AVX2 or NEON
// at runtime and falls back to pure Go elsewhere. Mismatched or empty
// inputs return 0; the expression layer rejects mismatched lengths before
// calling.
//
//	sim := simd.CosineSimilarity([]float64{1, 0}, []float64{0, 1}) // 0
//	d := simd.EuclideanDistance([]float64{0, 0}, []float64{3, 4}) // 5
//
// All functions are safe for concurrent use.
package simd
