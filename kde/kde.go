// Package kde implements weighted Gaussian kernel density estimation over
// multivariate samples. It is the default estimator for the predicted
// distribution of a data-consistent inverse problem: the pushforward of the
// initial distribution is not known in closed form and must be estimated from
// the model output samples themselves.
//
// The kernel covariance is the (optionally weighted) sample covariance scaled
// by a squared bandwidth factor. The factor is selected with Scott's rule by
// default; Silverman's rule or a fixed scalar can be requested instead.
package kde

import (
	"fmt"
	"math"

	mud "github.com/cdelcastillo21/mud"
	"github.com/cdelcastillo21/mud/weights"
	"github.com/milosgajdos/matrix"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Method selects the bandwidth factor rule.
type Method int

const (
	// Scott is Scott's rule: neff^(-1/(d+4))
	Scott Method = iota
	// Silverman is Silverman's rule: (neff*(d+2)/4)^(-1/(d+4))
	Silverman
)

// KDE represents options for fitting a weighted Gaussian kernel density
// estimate. The zero value is a reasonable default configuration: uniform
// sample weights and Scott's rule bandwidth.
type KDE struct {
	// Method is the bandwidth selection rule
	Method Method
	// Factor is a fixed bandwidth factor which overrides Method when positive
	Factor float64
	// Weights are per-sample importance weights; uniform when nil.
	// They do not need to be normalized.
	Weights []float64
}

// Density is a fitted weighted Gaussian kernel density estimate.
type Density struct {
	// samples stores the kernel centers, one per row
	samples *mat.Dense
	// logw stores the log of the normalized sample weights
	logw []float64
	// factor is the selected bandwidth factor
	factor float64
	// chol is the Cholesky factorization of the kernel covariance
	chol mat.Cholesky
	// logNorm is the log normalization constant of a single kernel
	logNorm float64
}

// Fit fits a kernel density estimate to the samples stored in the rows of s
// and returns it. It returns error if s is empty, if the configured weights
// do not match the number of samples, or if the kernel covariance is not
// positive definite (for example when all samples coincide).
func (k KDE) Fit(s mat.Matrix) (*Density, error) {
	n, d := s.Dims()
	if n == 0 || d == 0 {
		return nil, fmt.Errorf("%w: empty sample matrix [%d x %d]", mud.ErrShapeMismatch, n, d)
	}

	w := k.Weights
	if w == nil {
		w = weights.Uniform(n)
	} else if len(w) != n {
		return nil, fmt.Errorf("%w: %d weights for %d samples", mud.ErrShapeMismatch, len(w), n)
	}
	w, err := weights.Normalize(w)
	if err != nil {
		return nil, err
	}

	samples := mat.DenseCopyOf(s)

	// Kish's effective sample size drives the bandwidth rules
	neff := 1 / floats.Dot(w, w)
	factor := k.Factor
	if factor <= 0 {
		switch k.Method {
		case Silverman:
			factor = math.Pow(neff*(float64(d)+2)/4, -1/(float64(d)+4))
		default:
			factor = math.Pow(neff, -1/(float64(d)+4))
		}
	}

	var cov mat.Symmetric
	if k.Weights == nil {
		// matrix.Cov expects variables in rows and observations in columns
		cov, err = matrix.Cov(mat.DenseCopyOf(samples.T()), "cols")
		if err != nil {
			return nil, fmt.Errorf("failed to calculate sample covariance: %v", err)
		}
	} else {
		cov, err = weightedCov(samples, w)
		if err != nil {
			return nil, err
		}
	}

	kernel := mat.NewSymDense(d, nil)
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			kernel.SetSym(i, j, factor*factor*cov.At(i, j))
		}
	}

	dens := &Density{
		samples: samples,
		factor:  factor,
	}

	if ok := dens.chol.Factorize(kernel); !ok {
		return nil, fmt.Errorf("%w: kernel covariance is not positive definite", mud.ErrNumericalInstability)
	}
	dens.logNorm = 0.5*dens.chol.LogDet() + float64(d)/2*math.Log(2*math.Pi)

	dens.logw = make([]float64, n)
	for i := range w {
		dens.logw[i] = math.Log(w[i])
	}

	return dens, nil
}

// weightedCov computes the covariance of the samples under normalized
// importance weights:
//
//	sum_i w_i (x_i - mu)(x_i - mu)' / (1 - sum_i w_i^2)
//
// with mu the weighted sample mean. The correction term reduces to the usual
// n-1 denominator for uniform weights. It returns error if the weights are so
// concentrated that the correction is not positive.
func weightedCov(samples *mat.Dense, w []float64) (*mat.SymDense, error) {
	n, d := samples.Dims()

	denom := 1 - floats.Dot(w, w)
	if denom <= 0 {
		return nil, fmt.Errorf("%w: weights too concentrated for covariance estimation", mud.ErrNumericalInstability)
	}

	mean := make([]float64, d)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			mean[j] += w[i] * samples.At(i, j)
		}
	}

	cov := mat.NewSymDense(d, nil)
	for r := 0; r < d; r++ {
		for c := r; c < d; c++ {
			sum := 0.0
			for i := 0; i < n; i++ {
				sum += w[i] * (samples.At(i, r) - mean[r]) * (samples.At(i, c) - mean[c])
			}
			cov.SetSym(r, c, sum/denom)
		}
	}

	return cov, nil
}

// Prob returns one density value per row of x.
func (d *Density) Prob(x mat.Matrix) []float64 {
	dens := d.LogProb(x)
	for i := range dens {
		dens[i] = math.Exp(dens[i])
	}

	return dens
}

// LogProb returns one log-density value per row of x. Each value is the
// log-sum-exp over the weighted kernel contributions of every sample, so
// evaluation cost is proportional to the number of samples per query point.
func (d *Density) LogProb(x mat.Matrix) []float64 {
	rows, cols := x.Dims()
	_, dim := d.samples.Dims()
	if cols != dim {
		panic(fmt.Sprintf("point dimension mismatch: kernel dimension %d, %d coordinates", dim, cols))
	}

	n := len(d.logw)
	terms := make([]float64, n)
	diff := mat.NewVecDense(dim, nil)
	sol := mat.NewVecDense(dim, nil)

	dens := make([]float64, rows)
	for i := 0; i < rows; i++ {
		for j := 0; j < n; j++ {
			for c := 0; c < dim; c++ {
				diff.SetVec(c, x.At(i, c)-d.samples.At(j, c))
			}
			if err := d.chol.SolveVecTo(sol, diff); err != nil {
				// factorization succeeded in Fit, so the solve cannot fail
				panic(err)
			}
			terms[j] = d.logw[j] - 0.5*mat.Dot(diff, sol)
		}
		dens[i] = floats.LogSumExp(terms) - d.logNorm
	}

	return dens
}

// Factor returns the bandwidth factor the estimate was fitted with.
func (d *Density) Factor() float64 {
	return d.factor
}

// Cov returns the kernel covariance matrix of the estimate.
func (d *Density) Cov() mat.Symmetric {
	_, dim := d.samples.Dims()
	kernel := mat.NewSymDense(dim, nil)
	d.chol.ToSym(kernel)

	return kernel
}
