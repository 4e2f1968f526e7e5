package core

import (
	"fmt"
	"math"
)

// Norm returns the Euclidean length of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// NormalizeVector returns v scaled to unit length.
// A zero vector is returned as a new zero vector.
func NormalizeVector(v []float32) []float32 {
	if len(v) == 0 {
		return v
	}
	result := make([]float32, len(v))
	n := Norm(v)
	if n == 0 {
		return result
	}
	for i, x := range v {
		result[i] = float32(float64(x) / n)
	}
	return result
}

// NormalizeAll returns unit-length copies of rows.
func NormalizeAll(rows [][]float32) [][]float32 {
	out := make([][]float32, len(rows))
	for i, r := range rows {
		out[i] = NormalizeVector(r)
	}
	return out
}

// Dot returns the dot product of a and b, which must have the same length.
func Dot(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// Finite reports whether every element of v is a finite number.
func Finite(v []float32) bool {
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// Nearest returns the position of the unit-length row most similar to query
// and its cosine score. The first row wins ties. No rows returns (-1, 0).
// Zero vectors score 0 against everything.
func Nearest(query []float32, rows [][]float32) (int, float32, error) {
	if len(rows) == 0 {
		return -1, 0, nil
	}
	if !Finite(query) {
		return -1, 0, fmt.Errorf("%w: query has non-finite values", ErrInvalidVector)
	}
	q := NormalizeVector(query)
	best, bestScore := -1, math.Inf(-1)
	for i, row := range rows {
		if len(row) != len(q) {
			return -1, 0, fmt.Errorf("%w: query has %d dimensions, row %d has %d", ErrDimensionMismatch, len(q), i, len(row))
		}
		if s := Dot(q, row); s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 {
		return -1, 0, fmt.Errorf("%w: no row produced a comparable score", ErrInvalidVector)
	}
	return best, float32(bestScore), nil
}
