package viz

import (
	"testing"

	mud "github.com/cdelcastillo21/mud"
	"github.com/cdelcastillo21/mud/density"
	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

func testProblem(t *testing.T) *density.Problem {
	t.Helper()

	n, numObs := 200, 20
	src := rand.NewSource(42)
	u := distuv.Uniform{Min: 0, Max: 1, Src: src}
	eps := distuv.Normal{Mu: 0, Sigma: 0.05, Src: src}

	xd := make([]float64, n)
	for i := range xd {
		xd[i] = u.Rand()
	}
	x := mat.NewDense(n, 1, xd)

	preds := mat.NewDense(n, numObs, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < numObs; j++ {
			preds.Set(i, j, x.At(i, 0))
		}
	}
	data := make([]float64, numObs)
	for j := range data {
		data[j] = 0.5 + eps.Rand()
	}

	w, err := mud.WME(preds, data, 0.05)
	if err != nil {
		t.Fatalf("failed to compute WME statistic: %v", err)
	}

	p, err := density.NewProblem(x, mat.NewVecDense(n, w), mat.NewDense(1, 2, []float64{0, 1}))
	if err != nil {
		t.Fatalf("failed to create problem: %v", err)
	}

	return p
}

func TestParamSpace(t *testing.T) {
	assert := assert.New(t)

	p := testProblem(t)

	plt, err := ParamSpace(p, 0, 100)
	assert.NoError(err)
	assert.NotNil(plt)

	// invalid arguments
	_, err = ParamSpace(nil, 0, 100)
	assert.Error(err)
	_, err = ParamSpace(p, 1, 100)
	assert.Error(err)
	_, err = ParamSpace(p, 0, 1)
	assert.Error(err)
}

func TestParamSpaceNoDomain(t *testing.T) {
	assert := assert.New(t)

	x := mat.NewDense(3, 1, []float64{0.1, 0.5, 0.9})
	y := mat.NewVecDense(3, []float64{0.1, 0.5, 0.9})
	p, err := density.NewProblem(x, y, nil)
	assert.NoError(err)

	_, err = ParamSpace(p, 0, 100)
	assert.Error(err)
}

func TestObsSpace(t *testing.T) {
	assert := assert.New(t)

	p := testProblem(t)

	// explicit range
	plt, err := ObsSpace(p, 0, 100, -5, 5)
	assert.NoError(err)
	assert.NotNil(plt)

	// default range
	plt, err = ObsSpace(p, 0, 100, 0, 0)
	assert.NoError(err)
	assert.NotNil(plt)

	// invalid arguments
	_, err = ObsSpace(nil, 0, 100, -5, 5)
	assert.Error(err)
	_, err = ObsSpace(p, 2, 100, -5, 5)
	assert.Error(err)
	_, err = ObsSpace(p, 0, 0, -5, 5)
	assert.Error(err)
}
