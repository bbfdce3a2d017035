package density

import (
	"fmt"

	mud "github.com/cdelcastillo21/mud"
	"github.com/cdelcastillo21/mud/weights"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// WeightedProblem is a data-consistent inverse problem with per-sample
// importance weights. The weights bias both the initial density and the
// kernel density estimate of the predicted distribution, which models a
// previous iteration's updated density acting as the initial density of the
// next iteration in sequential inversion.
type WeightedProblem struct {
	Problem
	// w is the normalized per-sample weight vector
	w []float64
}

// NewWeightedProblem creates a new weighted data-consistent inverse problem.
// Parameters x, y and domain behave as in NewProblem. Any number of weight
// rows may be supplied; they are combined by element-wise product and
// normalized to sum up to 1. With no rows the weights are uniform. It returns
// error if any weight row length disagrees with the number of samples.
func NewWeightedProblem(x, y mat.Matrix, domain mat.Matrix, wrows ...[]float64) (*WeightedProblem, error) {
	base, err := NewProblem(x, y, domain)
	if err != nil {
		return nil, err
	}

	p := &WeightedProblem{Problem: *base}
	if err := p.SetWeights(wrows...); err != nil {
		return nil, err
	}

	return p, nil
}

// SetWeights replaces the weight vector. Rows are combined by element-wise
// product and the combined vector is normalized to sum up to 1; with no rows
// the weights are uniform. Changing the weights resets the initial,
// predicted, ratio and updated arrays, as all of them derive from the
// weights. It returns error if any row length disagrees with the number of
// samples or if the combined weights sum to zero.
func (p *WeightedProblem) SetWeights(wrows ...[]float64) error {
	n := p.NumSamples()

	w := weights.Uniform(n)
	if len(wrows) > 0 {
		for i, row := range wrows {
			if len(row) != n {
				return fmt.Errorf("%w: weight row %d has length %d, expected %d", mud.ErrShapeMismatch, i, len(row), n)
			}
		}

		combined, err := weights.Combine(wrows...)
		if err != nil {
			return err
		}
		w, err = weights.Normalize(combined)
		if err != nil {
			return err
		}
	}

	p.w = w
	p.initial = nil
	p.predicted = nil
	p.invalidate()

	return nil
}

// SetInitial computes the initial density as in Problem.SetInitial and biases
// it element-wise by the weight vector.
func (p *WeightedProblem) SetInitial(d mud.Distribution) error {
	if err := p.Problem.SetInitial(d); err != nil {
		return err
	}

	floats.Mul(p.initial, p.w)

	return nil
}

// SetPredicted installs an explicit predicted distribution as in
// Problem.SetPredicted. If d is nil the weighted kernel density estimate is
// fitted instead, as by SetPredictedKDE with default bandwidth.
func (p *WeightedProblem) SetPredicted(d mud.Distribution) error {
	if d == nil {
		return p.SetPredictedKDE(0)
	}

	return p.Problem.SetPredicted(d)
}

// SetPredictedKDE fits the predicted kernel density estimate with the
// problem's weight vector forced in; unlike the unweighted variant the KDE
// weights are not independently selectable. A non-positive factor selects the
// bandwidth with Scott's rule.
func (p *WeightedProblem) SetPredictedKDE(factor float64) error {
	return p.Problem.SetPredictedKDE(factor, p.w)
}

// Fit computes the updated density as in Problem.Fit, installing the
// weighted defaults for any density slot still unset.
func (p *WeightedProblem) Fit() error {
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

// MUDPoint returns the Maximal Updated Density point, running the weighted
// Fit first if the updated density has not been computed yet.
func (p *WeightedProblem) MUDPoint() (mat.Vector, error) {
	if p.updated == nil {
		if err := p.Fit(); err != nil {
			return nil, err
		}
	}

	return p.Problem.MUDPoint()
}

// Estimate returns the most probable parameter sample: the MUD point.
func (p *WeightedProblem) Estimate() (mat.Vector, error) {
	return p.MUDPoint()
}

// ExpR returns the weighted average of the observed to predicted density
// ratio, using the problem's weight vector. It runs the weighted Fit first if
// needed.
func (p *WeightedProblem) ExpR() (float64, error) {
	if p.updated == nil {
		if err := p.Fit(); err != nil {
			return 0, err
		}
	}

	return stat.Mean(p.ratio, p.w), nil
}

// Weights returns a copy of the normalized weight vector.
func (p *WeightedProblem) Weights() []float64 {
	return copySlice(p.w)
}
