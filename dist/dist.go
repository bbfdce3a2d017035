// Package dist implements closed-form distribution adapters which evaluate
// probability density over batches of sample points. A batch is a matrix with
// one point per row; the adapters return one density value per point.
//
// Product distributions treat coordinates as independent and multiply the
// marginal densities (or sum the marginal log-densities) across the columns of
// each row. Batch adapts any point-wise multivariate density, such as
// distmv.Normal, to the same interface.
package dist

import (
	"fmt"
	"math"

	mud "github.com/cdelcastillo21/mud"
	"github.com/cdelcastillo21/mud/matrix"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Continuous is a univariate continuous distribution. It is satisfied by the
// distributions in gonum.org/v1/gonum/stat/distuv.
type Continuous interface {
	// Prob returns the density at x
	Prob(x float64) float64
	// LogProb returns the log-density at x
	LogProb(x float64) float64
}

// Product is a distribution over vectors whose coordinates are independent.
// The density of a point is the product of its marginal coordinate densities.
type Product struct {
	// marginals holds one distribution per coordinate
	marginals []Continuous
	// iid marks a single marginal broadcast across all coordinates
	iid bool
}

// NewProduct creates a new Product distribution with one marginal per
// coordinate and returns it. It returns error if no marginals are given.
func NewProduct(marginals ...Continuous) (*Product, error) {
	if len(marginals) == 0 {
		return nil, fmt.Errorf("%w: no marginal distributions supplied", mud.ErrShapeMismatch)
	}

	return &Product{marginals: marginals}, nil
}

// NewIID creates a new Product distribution which broadcasts a single
// marginal across every coordinate of the evaluated points.
func NewIID(marginal Continuous) *Product {
	return &Product{marginals: []Continuous{marginal}, iid: true}
}

// StdNormal returns the standard normal distribution broadcast across every
// coordinate. It is the default observed and likelihood distribution.
func StdNormal() *Product {
	return NewIID(distuv.Normal{Mu: 0, Sigma: 1})
}

// UniformBox returns the uniform distribution over the box domain. Each row
// of domain bounds one coordinate; the bound order within a row does not
// matter. It returns error if domain does not have exactly two columns or if
// any coordinate has zero width.
func UniformBox(domain mat.Matrix) (*Product, error) {
	r, c := domain.Dims()
	if c != 2 {
		return nil, fmt.Errorf("%w: domain must have 2 columns, has %d", mud.ErrShapeMismatch, c)
	}

	marginals := make([]Continuous, r)
	for i := 0; i < r; i++ {
		mn := math.Min(domain.At(i, 0), domain.At(i, 1))
		mx := math.Max(domain.At(i, 0), domain.At(i, 1))
		if mn == mx {
			return nil, fmt.Errorf("%w: domain row %d has zero width", mud.ErrShapeMismatch, i)
		}
		marginals[i] = distuv.Uniform{Min: mn, Max: mx}
	}

	return &Product{marginals: marginals}, nil
}

// Default returns the default initial (or prior) distribution for the given
// parameter domain: uniform over the domain box if one is supplied, the
// standard normal otherwise. It returns error if the supplied domain is
// malformed.
func Default(domain mat.Matrix) (mud.LogDistribution, error) {
	if domain == nil {
		return StdNormal(), nil
	}

	return UniformBox(domain)
}

// Prob returns one density value per row of x: the product of the marginal
// densities across the row's coordinates. It panics if the number of columns
// of x does not match the number of marginals.
func (p *Product) Prob(x mat.Matrix) []float64 {
	return matrix.RowProds(p.eval(x, Continuous.Prob))
}

// LogProb returns one log-density value per row of x: the sum of the marginal
// log-densities across the row's coordinates. It panics if the number of
// columns of x does not match the number of marginals.
func (p *Product) LogProb(x mat.Matrix) []float64 {
	return matrix.RowSums(p.eval(x, Continuous.LogProb))
}

// Marginal returns the marginal distribution of coordinate i. It panics if i
// is out of range for a non-broadcast Product.
func (p *Product) Marginal(i int) Continuous {
	if p.iid {
		return p.marginals[0]
	}
	return p.marginals[i]
}

// eval fills an r x c matrix with the per-coordinate marginal evaluations.
func (p *Product) eval(x mat.Matrix, f func(Continuous, float64) float64) *mat.Dense {
	r, c := x.Dims()
	if !p.iid && c != len(p.marginals) {
		panic(fmt.Sprintf("point dimension mismatch: %d marginals, %d coordinates", len(p.marginals), c))
	}

	dens := mat.NewDense(r, c, nil)
	for j := 0; j < c; j++ {
		m := p.marginals[0]
		if !p.iid {
			m = p.marginals[j]
		}
		for i := 0; i < r; i++ {
			dens.Set(i, j, f(m, x.At(i, j)))
		}
	}

	return dens
}

// PointProber evaluates probability density at a single point. It is
// satisfied by the distributions in gonum.org/v1/gonum/stat/distmv.
type PointProber interface {
	// Prob returns the density at the point x
	Prob(x []float64) float64
}

// PointLogProber evaluates log-density at a single point.
type PointLogProber interface {
	// LogProb returns the log-density at the point x
	LogProb(x []float64) float64
}

// Batch adapts a point-wise multivariate density to batch evaluation.
type Batch struct {
	// p is the wrapped point-wise density
	p PointProber
}

// NewBatch creates a new Batch adapter around p and returns it.
func NewBatch(p PointProber) *Batch {
	return &Batch{p: p}
}

// Prob returns one density value per row of x.
func (b *Batch) Prob(x mat.Matrix) []float64 {
	r, c := x.Dims()
	point := make([]float64, c)
	dens := make([]float64, r)

	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			point[j] = x.At(i, j)
		}
		dens[i] = b.p.Prob(point)
	}

	return dens
}

// LogProb returns one log-density value per row of x. It uses the wrapped
// density's own log evaluation when available and falls back to the log of
// the linear density otherwise.
func (b *Batch) LogProb(x mat.Matrix) []float64 {
	lp, ok := b.p.(PointLogProber)
	if !ok {
		dens := b.Prob(x)
		for i := range dens {
			dens[i] = math.Log(dens[i])
		}
		return dens
	}

	r, c := x.Dims()
	point := make([]float64, c)
	dens := make([]float64, r)

	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			point[j] = x.At(i, j)
		}
		dens[i] = lp.LogProb(point)
	}

	return dens
}
