package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

func TestRowSums(t *testing.T) {
	assert := assert.New(t)

	data := []float64{1.2, 3.4, 4.5, 6.7, 8.9, 10.0}
	rowSums := []float64{4.6, 11.2, 18.9}
	delta := 0.001

	m := mat.NewDense(3, 2, data)
	assert.NotNil(m)

	res := RowSums(m)
	assert.NotNil(res)
	assert.InDeltaSlice(rowSums, res, delta)
	// should panic
	assert.Panics(func() { RowSums(nil) })
}

func TestRowProds(t *testing.T) {
	assert := assert.New(t)

	data := []float64{1.0, 2.0, 3.0, 4.0, 0.0, 5.0}
	rowProds := []float64{2.0, 12.0, 0.0}
	delta := 0.001

	m := mat.NewDense(3, 2, data)
	assert.NotNil(m)

	res := RowProds(m)
	assert.NotNil(res)
	assert.InDeltaSlice(rowProds, res, delta)
	// should panic
	assert.Panics(func() { RowProds(nil) })
}
