package mud

import (
	"errors"

	"gonum.org/v1/gonum/mat"
)

// ErrShapeMismatch is returned when the dimensions of supplied data disagree
// with the dimensions of the problem: a domain with a different number of rows
// than there are parameter dimensions, or a weight row whose length is not the
// number of samples.
var ErrShapeMismatch = errors.New("shape mismatch")

// ErrNumericalInstability is returned when a fitted density is numerically
// degenerate and cannot be used for estimation: typically a posterior which is
// zero at every sample.
var ErrNumericalInstability = errors.New("numerically unstable")

// Distribution evaluates probability density over a batch of points.
type Distribution interface {
	// Prob returns one density value per row of x
	Prob(x mat.Matrix) []float64
}

// LogDistribution is a Distribution which can also evaluate log-density.
type LogDistribution interface {
	// Distribution evaluates density over a batch of points
	Distribution
	// LogProb returns one log-density value per row of x
	LogProb(x mat.Matrix) []float64
}

// Problem is an inverse parameter identification problem
type Problem interface {
	// Fit computes the fused density over the parameter samples
	Fit() error
	// Estimate returns the most probable parameter sample
	Estimate() (mat.Vector, error)
}
