package simd

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

const epsilon = 1e-9

func TestDotProduct(t *testing.T) {
	large := make([]float64, 257)
	for i := range large {
		large[i] = 1
	}
	tests := []struct {
		name     string
		a        []float64
		b        []float64
		expected float64
	}{
		{"simple", []float64{1, 2, 3}, []float64{4, 5, 6}, 32},
		{"empty", []float64{}, []float64{}, 0},
		{"perpendicular", []float64{1, 0, 0}, []float64{0, 1, 0}, 0},
		{"negative", []float64{-1, -2, -3}, []float64{4, 5, 6}, -32},
		{"length mismatch", []float64{1, 2}, []float64{1}, 0},
		{"odd size", large, large, 257},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, DotProduct(tt.a, tt.b), epsilon)
		})
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []float64
		b        []float64
		expected float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1},
		{"perpendicular", []float64{1, 0}, []float64{0, 1}, 0},
		{"scaled", []float64{1, 2}, []float64{2, 4}, 1},
		{"zero vector", []float64{0, 0}, []float64{1, 1}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			assert.False(t, math.IsNaN(got))
			assert.InDelta(t, tt.expected, got, 1e-6)
		})
	}
}

func TestEuclideanDistance(t *testing.T) {
	assert.InDelta(t, 5.0, EuclideanDistance([]float64{0, 0}, []float64{3, 4}), epsilon)
	assert.InDelta(t, 0.0, EuclideanDistance([]float64{1, 1}, []float64{1, 1}), epsilon)
	assert.Equal(t, 0.0, EuclideanDistance([]float64{1}, []float64{1, 2}))
}

func TestNorm(t *testing.T) {
	assert.InDelta(t, 5.0, Norm([]float64{3, 4}), epsilon)
	assert.InDelta(t, 1.0, Norm([]float64{0.6, 0.8}), epsilon)
	assert.Equal(t, 0.0, Norm(nil))
}
