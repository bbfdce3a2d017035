// Package density implements the data-consistent inversion engine for
// parameter identification. Given parameter samples, the forward model
// outputs they produce and a distribution of observed data, it reweights the
// initial sample distribution by the ratio of observed to predicted densities
// and locates the Maximal Updated Density (MUD) point: the sample with the
// highest updated density.
package density

import (
	"fmt"
	"math"

	mud "github.com/cdelcastillo21/mud"
	"github.com/cdelcastillo21/mud/dist"
	"github.com/cdelcastillo21/mud/kde"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Problem is a data-consistent inverse problem. It owns the parameter samples
// X (one sample per row), the paired model outputs y (row i of y is the model
// output for row i of X) and the four density arrays derived from them.
//
// Problem is not safe for concurrent mutation: at most one goroutine may call
// its Set methods or Fit at a time. Read-only accessors are safe to call
// concurrently once Fit has completed and no further mutation occurs.
type Problem struct {
	// x stores parameter samples, one per row
	x *mat.Dense
	// y stores model output samples, one per row, paired with x by index
	y *mat.Dense
	// domain is an optional [min,max] box, one row per parameter dimension
	domain *mat.Dense
	// initial holds the initial density of every x row; nil when unset
	initial []float64
	// predicted holds the predicted density of every y row; nil when unset
	predicted []float64
	// observed holds the observed density of every y row; nil when unset
	observed []float64
	// ratio holds observed/predicted; nil until Fit has run
	ratio []float64
	// updated holds the fused density; nil until Fit has run
	updated []float64
	// retained distribution objects for plotting collaborators
	initialDist   mud.Distribution
	predictedDist mud.Distribution
	observedDist  mud.Distribution
}

// NewProblem creates a new data-consistent inverse problem from parameter
// samples x and paired model outputs y, with an optional domain box (one
// [min,max] row per parameter dimension; pass nil for no domain). A one
// dimensional output set can be passed as a mat.Vector: it is stored as a
// single-column matrix. It returns error if x and y disagree on the number of
// samples or if the domain row count disagrees with the parameter dimension.
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

// ParamDim returns the dimension of a parameter sample.
func (p *Problem) ParamDim() int {
	_, d := p.x.Dims()
	return d
}

// ObsDim returns the dimension of a model output sample.
func (p *Problem) ObsDim() int {
	_, d := p.y.Dims()
	return d
}

// SetInitial installs the distribution the parameter samples were drawn from
// and computes the initial density of every sample. If d is nil the default
// is used: uniform over the problem domain when one was supplied, the
// standard normal otherwise. Installing an initial distribution resets the
// predicted, ratio and updated arrays.
func (p *Problem) SetInitial(d mud.Distribution) error {
	if d == nil {
		def, err := dist.Default(p.domainOrNil())
		if err != nil {
			return err
		}
		d = def
	}

	p.initial = d.Prob(p.x)
	p.initialDist = d
	p.predicted = nil
	p.invalidate()

	return nil
}

// SetPredicted installs the predicted distribution, the pushforward of the
// initial distribution through the forward model, and evaluates its density
// at every output sample. If d is nil a Gaussian kernel density estimate is
// fitted to the output samples instead, as by SetPredictedKDE with default
// bandwidth and uniform weights. Installing a predicted distribution resets
// the ratio and updated arrays.
func (p *Problem) SetPredicted(d mud.Distribution) error {
	if d == nil {
		return p.SetPredictedKDE(0, nil)
	}

	p.predicted = d.Prob(p.y)
	p.predictedDist = d
	p.invalidate()

	return nil
}

// SetPredictedKDE fits a weighted Gaussian kernel density estimate to the
// output samples and uses it as the predicted distribution. A non-positive
// factor selects the bandwidth with Scott's rule; nil weights are uniform.
// Installing a predicted distribution resets the ratio and updated arrays.
// It returns error if the estimate fails to be fitted.
func (p *Problem) SetPredictedKDE(factor float64, w []float64) error {
	est, err := kde.KDE{Factor: factor, Weights: w}.Fit(p.y)
	if err != nil {
		return fmt.Errorf("failed to fit predicted density estimate: %w", err)
	}

	p.predicted = est.Prob(p.y)
	p.predictedDist = est
	p.invalidate()

	return nil
}

// SetObserved installs the distribution of the observed data in output space
// and evaluates its density at every output sample. If d is nil the standard
// normal is used. Installing an observed distribution resets the ratio and
// updated arrays.
func (p *Problem) SetObserved(d mud.Distribution) error {
	if d == nil {
		d = dist.StdNormal()
	}

	p.observed = d.Prob(p.y)
	p.observedDist = d
	p.invalidate()

	return nil
}

// Fit computes the updated density of every parameter sample. Any density
// slot still unset is first installed with its default, in order: initial,
// predicted, observed. The ratio of observed to predicted densities is then
// computed with 0/0 mapped to 0 (a sample with no support under either
// distribution carries no update information) and multiplied by the initial
// density. Fit is idempotent: with no intervening Set calls a refit
// recomputes the same arrays.
func (p *Problem) Fit() error {
	for _, ensure := range []func() error{
		func() error {
			if p.initial == nil {
				return p.SetInitial(nil)
			}
			return nil
		},
		func() error {
			if p.predicted == nil {
				return p.SetPredicted(nil)
			}
			return nil
		},
		func() error {
			if p.observed == nil {
				return p.SetObserved(nil)
			}
			return nil
		},
	} {
		if err := ensure(); err != nil {
			return err
		}
	}

	p.fuse()

	return nil
}

// fuse computes the ratio and updated arrays from the set density slots.
func (p *Problem) fuse() {
	n := p.NumSamples()

	ratio := make([]float64, n)
	for i := range ratio {
		r := p.observed[i] / p.predicted[i]
		if math.IsNaN(r) {
			r = 0
		}
		ratio[i] = r
	}

	updated := make([]float64, n)
	floats.MulTo(updated, p.initial, ratio)

	p.ratio = ratio
	p.updated = updated
}

// invalidate resets the arrays derived from the density slots.
func (p *Problem) invalidate() {
	p.ratio = nil
	p.updated = nil
}

// MUDPoint returns the Maximal Updated Density point: the parameter sample
// with the highest updated density. Ties resolve to the sample with the
// lowest index. It runs Fit first if the updated density has not been
// computed yet. The returned vector is a row view of the problem's sample
// matrix and must not be modified.
func (p *Problem) MUDPoint() (mat.Vector, error) {
	if p.updated == nil {
		if err := p.Fit(); err != nil {
			return nil, err
		}
	}

	return p.x.RowView(floats.MaxIdx(p.updated)), nil
}

// Estimate returns the most probable parameter sample: the MUD point.
func (p *Problem) Estimate() (mat.Vector, error) {
	return p.MUDPoint()
}

// ExpR returns the mean of the observed to predicted density ratio across
// the samples. It runs Fit first if needed. Values near 1 indicate the
// predictability assumption holds: the predicted distribution captures the
// pushforward of the initial distribution. Values far from 1 flag
// inconsistency between model and data.
func (p *Problem) ExpR() (float64, error) {
	if p.updated == nil {
		if err := p.Fit(); err != nil {
			return 0, err
		}
	}

	return stat.Mean(p.ratio, nil), nil
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

// Initial returns a copy of the initial density array, or nil if unset.
func (p *Problem) Initial() []float64 {
	return copySlice(p.initial)
}

// Predicted returns a copy of the predicted density array, or nil if unset.
func (p *Problem) Predicted() []float64 {
	return copySlice(p.predicted)
}

// Observed returns a copy of the observed density array, or nil if unset.
func (p *Problem) Observed() []float64 {
	return copySlice(p.observed)
}

// Ratio returns a copy of the observed/predicted ratio array, or nil if Fit
// has not run.
func (p *Problem) Ratio() []float64 {
	return copySlice(p.ratio)
}

// Updated returns a copy of the updated density array, or nil if Fit has not
// run.
func (p *Problem) Updated() []float64 {
	return copySlice(p.updated)
}

// InitialDist returns the retained initial distribution, or nil if unset.
func (p *Problem) InitialDist() mud.Distribution {
	return p.initialDist
}

// PredictedDist returns the retained predicted distribution, or nil if unset.
func (p *Problem) PredictedDist() mud.Distribution {
	return p.predictedDist
}

// ObservedDist returns the retained observed distribution, or nil if unset.
func (p *Problem) ObservedDist() mud.Distribution {
	return p.observedDist
}

// domainOrNil returns the domain as a mat.Matrix which is nil when no domain
// was supplied. The typed nil of the struct field cannot be used directly as
// a nil interface value.
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
