package matrix

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// RowSums returns a slice containing m row sums.
// It panics if m is nil.
func RowSums(m *mat.Dense) []float64 {
	rows, _ := m.Dims()
	sum := make([]float64, rows)

	for i := 0; i < rows; i++ {
		sum[i] = floats.Sum(m.RawRowView(i))
	}

	return sum
}

// RowProds returns a slice containing m row products.
// It panics if m is nil.
func RowProds(m *mat.Dense) []float64 {
	rows, _ := m.Dims()
	prod := make([]float64, rows)

	for i := 0; i < rows; i++ {
		prod[i] = floats.Prod(m.RawRowView(i))
	}

	return prod
}
