package bayes

import (
	"testing"

	mud "github.com/cdelcastillo21/mud"
	"github.com/cdelcastillo21/mud/dist"
	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// scenario holds a repeated-observation fixture: n one dimensional samples
// from U(0,1), each replicated numObs times as the model output, and noisy
// observations of the true value 0.5.
type scenario struct {
	x    *mat.Dense
	y    *mat.Dense
	data []float64
}

func newScenario(n, numObs int, noise float64, seed uint64) *scenario {
	src := rand.NewSource(seed)
	u := distuv.Uniform{Min: 0, Max: 1, Src: src}
	eps := distuv.Normal{Mu: 0, Sigma: noise, Src: src}

	xd := make([]float64, n)
	for i := range xd {
		xd[i] = u.Rand()
	}
	x := mat.NewDense(n, 1, xd)

	y := mat.NewDense(n, numObs, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < numObs; j++ {
			y.Set(i, j, x.At(i, 0))
		}
	}

	data := make([]float64, numObs)
	for j := range data {
		data[j] = 0.5 + eps.Rand()
	}

	return &scenario{x: x, y: y, data: data}
}

// likelihood builds the per-observation normal likelihood around the noisy
// data values.
func (s *scenario) likelihood(noise float64) (*dist.Product, error) {
	marginals := make([]dist.Continuous, len(s.data))
	for j, d := range s.data {
		marginals[j] = distuv.Normal{Mu: d, Sigma: noise}
	}

	return dist.NewProduct(marginals...)
}

func TestNewProblem(t *testing.T) {
	assert := assert.New(t)

	x := mat.NewDense(3, 1, []float64{0.1, 0.5, 0.9})
	y := mat.NewVecDense(3, []float64{1, 2, 3})

	p, err := NewProblem(x, y, nil)
	assert.NoError(err)
	assert.Equal(3, p.NumSamples())
	assert.Nil(p.Domain())

	// sample count mismatch
	_, err = NewProblem(x, mat.NewVecDense(2, []float64{1, 2}), nil)
	assert.ErrorIs(err, mud.ErrShapeMismatch)

	// domain row count disagrees with parameter dimension
	_, err = NewProblem(x, y, mat.NewDense(2, 2, []float64{0, 1, 0, 1}))
	assert.ErrorIs(err, mud.ErrShapeMismatch)

	// nil data
	_, err = NewProblem(x, nil, nil)
	assert.Error(err)
}

func TestMAPPoint(t *testing.T) {
	assert := assert.New(t)

	s := newScenario(100, 50, 0.05, 31)
	p, err := NewProblem(s.x, s.y, mat.NewDense(1, 2, []float64{0, 1}))
	assert.NoError(err)

	ll, err := s.likelihood(0.05)
	assert.NoError(err)
	assert.NoError(p.SetLikelihood(ll))

	pt, err := p.MAPPoint()
	assert.NoError(err)
	assert.InDelta(0.5, pt.AtVec(0), 0.05)

	// the MAP point is a row of the original sample matrix
	found := false
	for i := 0; i < 100; i++ {
		if s.x.At(i, 0) == pt.AtVec(0) {
			found = true
			break
		}
	}
	assert.True(found)

	est, err := p.Estimate()
	assert.NoError(err)
	assert.Equal(pt.AtVec(0), est.AtVec(0))
}

func TestLogLikelihood(t *testing.T) {
	assert := assert.New(t)

	s := newScenario(100, 50, 0.05, 32)
	domain := mat.NewDense(1, 2, []float64{0, 1})

	ll, err := s.likelihood(0.05)
	assert.NoError(err)

	linear, err := NewProblem(s.x, s.y, domain)
	assert.NoError(err)
	assert.NoError(linear.SetLikelihood(ll))
	linearPt, err := linear.MAPPoint()
	assert.NoError(err)

	logp, err := NewProblem(s.x, s.y, domain)
	assert.NoError(err)
	assert.NoError(logp.SetLogLikelihood(ll))
	logPt, err := logp.MAPPoint()
	assert.NoError(err)

	// log-space fusion selects the same sample as linear fusion
	assert.Equal(linearPt.AtVec(0), logPt.AtVec(0))

	assert.Len(logp.Posterior(), 100)

	// a nil log-likelihood has no default
	assert.Error(logp.SetLogLikelihood(nil))
}

func TestFitDefaults(t *testing.T) {
	assert := assert.New(t)

	s := newScenario(50, 10, 0.05, 33)
	p, err := NewProblem(s.x, s.y, mat.NewDense(1, 2, []float64{0, 1}))
	assert.NoError(err)

	assert.NoError(p.Fit())
	assert.Len(p.Prior(), 50)
	assert.Len(p.Likelihood(), 50)
	assert.Len(p.Posterior(), 50)
	assert.NotNil(p.PriorDist())
	assert.NotNil(p.LikelihoodDist())

	// default prior over a [0,1] domain is the unit uniform
	for _, v := range p.Prior() {
		assert.InDelta(1.0, v, 1e-12)
	}
}

func TestSetPriorTwice(t *testing.T) {
	assert := assert.New(t)

	s := newScenario(40, 10, 0.05, 34)
	p, err := NewProblem(s.x, s.y, nil)
	assert.NoError(err)

	d := dist.NewIID(distuv.Normal{Mu: 0.5, Sigma: 0.2})
	assert.NoError(p.SetPrior(d))
	first := p.Prior()
	assert.NoError(p.SetPrior(d))
	assert.Equal(first, p.Prior())
}

func TestNumericalInstability(t *testing.T) {
	assert := assert.New(t)

	s := newScenario(50, 10, 0.05, 35)
	p, err := NewProblem(s.x, s.y, mat.NewDense(1, 2, []float64{0, 1}))
	assert.NoError(err)

	// a likelihood centered far outside the sampled outputs underflows to
	// zero everywhere, leaving a degenerate posterior
	far := dist.NewIID(distuv.Normal{Mu: 100, Sigma: 0.01})
	assert.NoError(p.SetLikelihood(far))

	err = p.Fit()
	assert.ErrorIs(err, mud.ErrNumericalInstability)

	_, err = p.MAPPoint()
	assert.ErrorIs(err, mud.ErrNumericalInstability)
}

// truncatedDist violates the per-sample evaluation contract by returning
// fewer density values than points.
type truncatedDist struct{}

func (truncatedDist) Prob(x mat.Matrix) []float64 {
	r, _ := x.Dims()
	return make([]float64, r-1)
}

func TestContractViolationPanics(t *testing.T) {
	assert := assert.New(t)

	s := newScenario(20, 5, 0.05, 36)
	p, err := NewProblem(s.x, s.y, mat.NewDense(1, 2, []float64{0, 1}))
	assert.NoError(err)

	assert.NoError(p.SetLikelihood(truncatedDist{}))
	assert.Panics(func() { _ = p.Fit() })
}
