// Package vectorindex implements an exact nearest-neighbor index over
// fixed-dimension float32 vectors using squared Euclidean distance.
package vectorindex

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrInvalidDimension  = errors.New("dimension must be positive")
)

// Result is one search hit. Position is the insertion position of the vector.
type Result struct {
	Position int
	Distance float32
}

// Flat stores vectors contiguously and scans all of them on every search.
// It is not safe for concurrent Add; concurrent Search is safe once built.
type Flat struct {
	dim  int
	data []float32
}

// NewFlat creates an empty index for vectors of the given dimension.
func NewFlat(dim int) (*Flat, error) {
	if dim <= 0 {
		return nil, ErrInvalidDimension
	}
	return &Flat{dim: dim}, nil
}

// Dim returns the vector dimension.
func (f *Flat) Dim() int {
	return f.dim
}

// Len returns the number of stored vectors.
func (f *Flat) Len() int {
	return len(f.data) / f.dim
}

// Add appends vectors in order. Either all vectors are added or none.
func (f *Flat) Add(vectors ...[]float32) error {
	for i, v := range vectors {
		if len(v) != f.dim {
			return fmt.Errorf("%w: vector %d has %d values, index expects %d", ErrDimensionMismatch, i, len(v), f.dim)
		}
	}
	for _, v := range vectors {
		f.data = append(f.data, v...)
	}
	return nil
}

// Vector returns a copy of the vector at position i.
func (f *Flat) Vector(i int) []float32 {
	out := make([]float32, f.dim)
	copy(out, f.data[i*f.dim:(i+1)*f.dim])
	return out
}

// Search returns up to k nearest vectors ordered by ascending distance.
// Equal distances keep insertion order.
func (f *Flat) Search(query []float32, k int) ([]Result, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: query has %d values, index expects %d", ErrDimensionMismatch, len(query), f.dim)
	}
	n := f.Len()
	if k > n {
		k = n
	}
	if k <= 0 {
		return []Result{}, nil
	}

	results := make([]Result, n)
	for i := 0; i < n; i++ {
		results[i] = Result{Position: i, Distance: squaredL2(query, f.data[i*f.dim:(i+1)*f.dim])}
	}
	sort.SliceStable(results, func(a, b int) bool {
		return results[a].Distance < results[b].Distance
	})
	return results[:k], nil
}

func squaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}
