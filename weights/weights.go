// Package weights implements per-sample importance weight vectors used to bias
// the initial distribution and the kernel density estimates of an inverse
// problem. A weight vector assigns one non-negative scalar to each parameter
// sample and must sum up to 1 to represent probability.
package weights

import (
	"fmt"

	mud "github.com/cdelcastillo21/mud"
	"gonum.org/v1/gonum/floats"
)

// Uniform returns a weight vector of length n with equal probabilities.
// It panics if n is non-positive.
func Uniform(n int) []float64 {
	if n <= 0 {
		panic(fmt.Sprintf("invalid weight vector length: %d", n))
	}

	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}

	return w
}

// Combine multiplies the supplied weight rows element-wise into a single
// vector. Each row represents an independent weighting criterion applied to
// the same samples. It returns error if no rows are given or if the rows do
// not all have the same length.
func Combine(rows ...[]float64) ([]float64, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no weight rows supplied", mud.ErrShapeMismatch)
	}

	w := make([]float64, len(rows[0]))
	copy(w, rows[0])

	for i, row := range rows[1:] {
		if len(row) != len(w) {
			return nil, fmt.Errorf("%w: weight row %d has length %d, expected %d", mud.ErrShapeMismatch, i+1, len(row), len(w))
		}
		floats.Mul(w, row)
	}

	return w, nil
}

// Normalize scales w so its entries sum up to 1 and returns the result as a
// new vector. It returns error if the weight sum is not positive, as such a
// vector cannot represent probability.
func Normalize(w []float64) ([]float64, error) {
	sum := floats.Sum(w)
	if sum <= 0 {
		return nil, fmt.Errorf("%w: weight sum %v", mud.ErrNumericalInstability, sum)
	}

	norm := make([]float64, len(w))
	copy(norm, w)
	floats.Scale(1/sum, norm)

	return norm, nil
}
