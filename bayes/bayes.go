// Package bayes implements the Bayesian inversion engine for parameter
// identification. Given parameter samples and their forward model outputs it
// fuses a prior density over the samples with a likelihood of the outputs
// into a posterior and locates the Maximum A Posteriori (MAP) point: the
// sample with the highest posterior density.
package bayes

import (
	"fmt"
	"math"

	mud "github.com/cdelcastillo21/mud"
	"github.com/cdelcastillo21/mud/dist"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Problem is a Bayesian inverse problem. It owns the parameter samples X
// (one sample per row), the paired model outputs y and the three density
// arrays derived from them. The same single-writer contract as for the
// data-consistent problem applies: no concurrent mutation.
type Problem struct {
	// x stores parameter samples, one per row
	x *mat.Dense
	// y stores model output samples, one per row, paired with x by index
	y *mat.Dense
	// domain is an optional [min,max] box, one row per parameter dimension
	domain *mat.Dense
	// prior holds the prior density of every x row; nil when unset
	prior []float64
	// likelihood holds the likelihood of every y row; nil when unset.
	// Values are log-densities when logMode is true.
	likelihood []float64
	// posterior holds the fused density; nil until Fit has run
	posterior []float64
	// logMode records that the likelihood was set in log space and the
	// posterior must be fused in log space
	logMode bool
	// retained distribution objects for plotting collaborators
	priorDist      mud.Distribution
	likelihoodDist mud.Distribution
}

// NewProblem creates a new Bayesian inverse problem from parameter samples x
// and paired model outputs y, with an optional domain box (one [min,max] row
// per parameter dimension; pass nil for no domain). A one dimensional output
// set can be passed as a mat.Vector: it is stored as a single-column matrix.
// It returns error if x and y disagree on the number of samples or if the
// domain row count disagrees with the parameter dimension.
func NewProblem(x, y mat.Matrix, domain mat.Matrix) (*Problem, error) {
	if x == nil || y == nil {
		return nil, fmt.Errorf("invalid sample data supplied")
	}

	xr, xc := x.Dims()
	yr, _ := y.Dims()
	if xr != yr {
		return nil, fmt.Errorf("%w: %d parameter samples, %d output samples", mud.ErrShapeMismatch, xr, yr)
	}

	p := &Problem{
		x: mat.DenseCopyOf(x),
		y: mat.DenseCopyOf(y),
	}

	if domain != nil {
		dr, dc := domain.Dims()
		if dr != xc || dc != 2 {
			return nil, fmt.Errorf("%w: domain is [%d x %d], expected [%d x 2]", mud.ErrShapeMismatch, dr, dc, xc)
		}
		p.domain = mat.DenseCopyOf(domain)
	}

	return p, nil
}

// NumSamples returns the number of parameter samples.
func (p *Problem) NumSamples() int {
	n, _ := p.x.Dims()
	return n
}

// SetPrior installs the prior distribution over parameter space and computes
// the prior density of every sample. If d is nil the default is used:
// uniform over the problem domain when one was supplied, the standard normal
// otherwise. Installing a prior resets the posterior.
func (p *Problem) SetPrior(d mud.Distribution) error {
	if d == nil {
		def, err := dist.Default(p.domainOrNil())
		if err != nil {
			return err
		}
		d = def
	}

	p.prior = d.Prob(p.x)
	p.priorDist = d
	p.posterior = nil

	return nil
}

// SetLikelihood installs the likelihood distribution and evaluates its
// density at every output sample. If d is nil the standard normal is used.
// Installing a likelihood resets the posterior.
func (p *Problem) SetLikelihood(d mud.Distribution) error {
	if d == nil {
		d = dist.StdNormal()
	}

	p.likelihood = d.Prob(p.y)
	p.likelihoodDist = d
	p.logMode = false
	p.posterior = nil

	return nil
}

// SetLogLikelihood installs the likelihood distribution in log space: the
// stored values are log-densities and Fit fuses the posterior as
// log(prior) + log-likelihood. Installing a likelihood resets the posterior.
func (p *Problem) SetLogLikelihood(d mud.LogDistribution) error {
	if d == nil {
		return fmt.Errorf("invalid likelihood distribution supplied")
	}

	p.likelihood = d.LogProb(p.y)
	p.likelihoodDist = d
	p.logMode = true
	p.posterior = nil

	return nil
}

// Fit computes the posterior density of every parameter sample as
// prior x likelihood, or log(prior) + likelihood when the likelihood was set
// in log space. Density slots still unset are first installed with their
// defaults. It returns ErrNumericalInstability if the posterior sums to
// exactly zero across all samples, as a degenerate posterior cannot be used
// for estimation. It panics if the fused array length disagrees with the
// number of samples, which signals a distribution adapter that does not
// respect per-sample evaluation.
func (p *Problem) Fit() error {
	if p.prior == nil {
		if err := p.SetPrior(nil); err != nil {
			return err
		}
	}
	if p.likelihood == nil {
		if err := p.SetLikelihood(nil); err != nil {
			return err
		}
	}

	n := p.NumSamples()
	if len(p.prior) != n || len(p.likelihood) != n {
		panic(fmt.Sprintf("density length mismatch: %d prior and %d likelihood values for %d samples", len(p.prior), len(p.likelihood), n))
	}

	posterior := make([]float64, n)
	if p.logMode {
		for i := range posterior {
			posterior[i] = math.Log(p.prior[i]) + p.likelihood[i]
		}
	} else {
		floats.MulTo(posterior, p.prior, p.likelihood)
	}
	if floats.Sum(posterior) == 0 {
		return fmt.Errorf("%w: posterior density is zero at every sample", mud.ErrNumericalInstability)
	}

	p.posterior = posterior

	return nil
}

// MAPPoint returns the Maximum A Posteriori point: the parameter sample with
// the highest posterior density. Ties resolve to the sample with the lowest
// index. It runs Fit first if the posterior has not been computed yet. The
// returned vector is a row view of the problem's sample matrix and must not
// be modified.
func (p *Problem) MAPPoint() (mat.Vector, error) {
	if p.posterior == nil {
		if err := p.Fit(); err != nil {
			return nil, err
		}
	}

	return p.x.RowView(floats.MaxIdx(p.posterior)), nil
}

// Estimate returns the most probable parameter sample: the MAP point.
func (p *Problem) Estimate() (mat.Vector, error) {
	return p.MAPPoint()
}

// X returns a copy of the parameter sample matrix.
func (p *Problem) X() *mat.Dense {
	return mat.DenseCopyOf(p.x)
}

// Y returns a copy of the model output matrix.
func (p *Problem) Y() *mat.Dense {
	return mat.DenseCopyOf(p.y)
}

// Domain returns a copy of the domain box, or nil if none was supplied.
func (p *Problem) Domain() *mat.Dense {
	if p.domain == nil {
		return nil
	}
	return mat.DenseCopyOf(p.domain)
}

// Prior returns a copy of the prior density array, or nil if unset.
func (p *Problem) Prior() []float64 {
	return copySlice(p.prior)
}

// Likelihood returns a copy of the likelihood array, or nil if unset. Values
// are log-densities if the likelihood was installed with SetLogLikelihood.
func (p *Problem) Likelihood() []float64 {
	return copySlice(p.likelihood)
}

// Posterior returns a copy of the posterior density array, or nil if Fit has
// not run. Values are log-densities if the likelihood was installed with
// SetLogLikelihood.
func (p *Problem) Posterior() []float64 {
	return copySlice(p.posterior)
}

// PriorDist returns the retained prior distribution, or nil if unset.
func (p *Problem) PriorDist() mud.Distribution {
	return p.priorDist
}

// LikelihoodDist returns the retained likelihood distribution, or nil if
// unset.
func (p *Problem) LikelihoodDist() mud.Distribution {
	return p.likelihoodDist
}

func (p *Problem) domainOrNil() mat.Matrix {
	if p.domain == nil {
		return nil
	}
	return p.domain
}

func copySlice(s []float64) []float64 {
	if s == nil {
		return nil
	}
	c := make([]float64, len(s))
	copy(c, s)
	return c
}
