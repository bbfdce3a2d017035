// Package viz renders overlay plots of the densities fitted by a
// data-consistent inverse problem. It is a read-only collaborator: it
// consumes the problem's exported accessors and performs no inversion of its
// own. ParamSpace overlays the initial density with a ratio-weighted kernel
// density estimate of the updated density over parameter space; ObsSpace
// overlays the predicted pushforward with the updated pushforward over
// observation space.
package viz

import (
	"fmt"
	"image/color"
	"math"

	"github.com/aclements/go-moremath/vec"
	mud "github.com/cdelcastillo21/mud"
	"github.com/cdelcastillo21/mud/dist"
	"github.com/cdelcastillo21/mud/kde"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Problem is the surface of a data-consistent inverse problem the plots
// consume. It is implemented by density.Problem and density.WeightedProblem.
type Problem interface {
	// Fit computes the updated density
	Fit() error
	// X returns the parameter samples
	X() *mat.Dense
	// Y returns the model outputs
	Y() *mat.Dense
	// Domain returns the parameter domain box, or nil
	Domain() *mat.Dense
	// Ratio returns the observed to predicted density ratio
	Ratio() []float64
	// InitialDist returns the retained initial distribution
	InitialDist() mud.Distribution
	// PredictedDist returns the retained predicted distribution
	PredictedDist() mud.Distribution
}

// Weighted is implemented by problems carrying a per-sample weight vector.
type Weighted interface {
	// Weights returns the normalized weight vector
	Weights() []float64
}

// ParamSpace creates a plot of the densities over parameter space for the
// parameter with index idx, evaluated at points grid points: the initial
// marginal density where the initial distribution exposes marginals, and a
// kernel density estimate of the updated samples weighted by the
// observed/predicted ratio (biased by the problem weights where present).
// It runs Fit first if needed.
// It returns error if p is nil, has no domain, or if idx or points is
// invalid.
func ParamSpace(p Problem, idx, points int) (*plot.Plot, error) {
	if p == nil {
		return nil, fmt.Errorf("invalid problem supplied")
	}
	if points < 2 {
		return nil, fmt.Errorf("invalid number of grid points: %d", points)
	}

	if err := p.Fit(); err != nil {
		return nil, err
	}

	domain := p.Domain()
	if domain == nil {
		return nil, fmt.Errorf("problem has no domain to plot over")
	}
	dims, _ := domain.Dims()
	if idx < 0 || idx >= dims {
		return nil, fmt.Errorf("invalid parameter index: %d", idx)
	}

	grid := boxGrid(domain, points)
	xs := grid.ColView(idx)

	plt := plot.New()
	plt.Title.Text = "Parameter space"
	plt.X.Label.Text = "parameter"
	plt.Y.Label.Text = "density"
	plt.Legend.Top = true

	// the initial density overlay needs per-coordinate marginals
	if prod, ok := p.InitialDist().(*dist.Product); ok {
		m := prod.Marginal(idx)
		initDens := make([]float64, points)
		for i := range initDens {
			initDens[i] = m.Prob(xs.AtVec(i))
		}

		initLine, err := plotter.NewLine(makePoints(xs, initDens))
		if err != nil {
			return nil, fmt.Errorf("failed to create initial density line: %v", err)
		}
		initLine.LineStyle.Color = color.RGBA{B: 255, A: 255}
		initLine.LineStyle.Width = vg.Points(2)
		initLine.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(2)}

		plt.Add(initLine)
		plt.Legend.Add("initial", initLine)
	}

	// approximate the updated density by reweighting the parameter samples
	// with the observed/predicted ratio
	w := p.Ratio()
	if wp, ok := p.(Weighted); ok {
		floats.Mul(w, wp.Weights())
	}
	est, err := kde.KDE{Weights: w}.Fit(p.X())
	if err != nil {
		return nil, fmt.Errorf("failed to estimate updated density: %w", err)
	}
	upDens := est.Prob(grid)

	upLine, err := plotter.NewLine(makePoints(xs, upDens))
	if err != nil {
		return nil, fmt.Errorf("failed to create updated density line: %v", err)
	}
	upLine.LineStyle.Color = color.RGBA{A: 255}
	upLine.LineStyle.Width = vg.Points(2)
	upLine.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(2), vg.Points(1), vg.Points(2)}

	plt.Add(upLine)
	plt.Legend.Add("updated", upLine)

	return plt, nil
}

// ObsSpace creates a plot of the pushforward densities over observation
// space for the observable with index idx, evaluated at points grid points
// over [lo, hi] per observation dimension (the range defaults to [-1, 1]
// when lo >= hi): the predicted distribution and a kernel density estimate
// of the outputs weighted by the observed/predicted ratio. It runs Fit first
// if needed.
// It returns error if p is nil or if idx or points is invalid.
func ObsSpace(p Problem, idx, points int, lo, hi float64) (*plot.Plot, error) {
	if p == nil {
		return nil, fmt.Errorf("invalid problem supplied")
	}
	if points < 2 {
		return nil, fmt.Errorf("invalid number of grid points: %d", points)
	}

	if err := p.Fit(); err != nil {
		return nil, err
	}

	y := p.Y()
	_, obsDim := y.Dims()
	if idx < 0 || idx >= obsDim {
		return nil, fmt.Errorf("invalid observation index: %d", idx)
	}

	if lo >= hi {
		lo, hi = -1, 1
	}
	line := vec.Linspace(lo, hi, points)
	grid := mat.NewDense(points, obsDim, nil)
	for j := 0; j < obsDim; j++ {
		grid.SetCol(j, line)
	}
	xs := grid.ColView(idx)

	plt := plot.New()
	plt.Title.Text = "Observation space"
	plt.X.Label.Text = "observable"
	plt.Y.Label.Text = "density"
	plt.Legend.Top = true

	predDens := p.PredictedDist().Prob(grid)
	predLine, err := plotter.NewLine(makePoints(xs, predDens))
	if err != nil {
		return nil, fmt.Errorf("failed to create predicted density line: %v", err)
	}
	predLine.LineStyle.Color = color.RGBA{B: 255, A: 255}
	predLine.LineStyle.Width = vg.Points(2)
	predLine.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(2)}

	plt.Add(predLine)
	plt.Legend.Add("predicted", predLine)

	est, err := kde.KDE{Weights: p.Ratio()}.Fit(y)
	if err != nil {
		return nil, fmt.Errorf("failed to estimate updated pushforward: %w", err)
	}
	upDens := est.Prob(grid)

	upLine, err := plotter.NewLine(makePoints(xs, upDens))
	if err != nil {
		return nil, fmt.Errorf("failed to create updated pushforward line: %v", err)
	}
	upLine.LineStyle.Color = color.RGBA{A: 255}
	upLine.LineStyle.Width = vg.Points(2)
	upLine.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(2), vg.Points(1), vg.Points(2)}

	plt.Add(upLine)
	plt.Legend.Add("updated", upLine)

	return plt, nil
}

// boxGrid builds a points x dims matrix whose column j sweeps the [min,max]
// range of domain row j.
func boxGrid(domain *mat.Dense, points int) *mat.Dense {
	dims, _ := domain.Dims()
	grid := mat.NewDense(points, dims, nil)

	for j := 0; j < dims; j++ {
		mn := math.Min(domain.At(j, 0), domain.At(j, 1))
		mx := math.Max(domain.At(j, 0), domain.At(j, 1))
		grid.SetCol(j, vec.Linspace(mn, mx, points))
	}

	return grid
}

func makePoints(xs mat.Vector, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(ys))
	for i := range ys {
		pts[i].X = xs.AtVec(i)
		pts[i].Y = ys[i]
	}

	return pts
}
