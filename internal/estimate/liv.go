// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

package estimate

import (
	"math"

	"github.com/OpenSourceEconomics/ose-course-data-science/internal/dgp"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/model"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// LIVOptions configures the local IV estimator. Zero values take the defaults.
type LIVOptions struct {
	Degree     int     // degree of the polynomial K(P), at least 2 (default 3)
	GridPoints int     // points of the MTE grid (default 100)
	GridLow    float64 // first grid point (default 0.005)
	GridHigh   float64 // last grid point (default 0.995)
	NoTrim     bool    // keep units outside the common support
}

func (o LIVOptions) withDefaults() LIVOptions {
	if o.Degree == 0 {
		o.Degree = 3
	}
	if o.GridPoints == 0 {
		o.GridPoints = 100
	}
	if o.GridLow == 0 && o.GridHigh == 0 {
		o.GridLow, o.GridHigh = 0.005, 0.995
	}
	return o
}

func (o LIVOptions) validate() error {
	switch {
	case o.Degree < 2:
		return model.Configf("ESTIMATION.liv.degree", "polynomial degree must be at least 2, got %d", o.Degree)
	case o.GridPoints < 2:
		return model.Configf("ESTIMATION.liv.grid", "need at least 2 grid points, got %d", o.GridPoints)
	case !(0 < o.GridLow && o.GridLow < o.GridHigh && o.GridHigh < 1):
		return model.Configf("ESTIMATION.liv.grid", "grid must lie inside (0, 1), got [%v, %v]", o.GridLow, o.GridHigh)
	}
	return nil
}

// LIVFit is the fitted local IV model.
//
//	E[Y | X, P] = X β0 + P · X (β1 - β0) + K(P),  K(P) = sum_{j>=2} α_j P^j
//
// The marginal treatment effect at resistance u is x (β1 - β0) + K'(u).
type LIVFit struct {
	B0    []float64 // untreated outcome coefficients
	B1    []float64 // treated outcome coefficients
	Alpha []float64 // α_2 ... α_degree

	Grid []float64 // u grid
	MTEU []float64 // K'(u) on the grid
	MTE  []float64 // X̄ (β1 - β0) + K'(u) on the grid

	Support [2]float64 // common support of the propensity score
	Used    int        // units left after trimming
}

// LocalIVEstimator integrates the MTE curve over the grid.
type LocalIVEstimator struct {
	opts LIVOptions
}

// NewLocalIV returns a local IV estimator.
func NewLocalIV(opts LIVOptions) *LocalIVEstimator {
	return &LocalIVEstimator{opts: opts.withDefaults()}
}

func (e *LocalIVEstimator) Kind() Kind { return LocalIV }

func (e *LocalIVEstimator) Requires() Requirements {
	return Requirements{Exogenous: true, Endogenous: true, Choice: true}
}

func (e *LocalIVEstimator) Estimate(p *dgp.Panel, in model.Inputs) (Effect, error) {
	fit, err := FitLocalIV(p, in, e.opts)
	if err != nil {
		return Effect{Estimator: LocalIV}, err
	}
	return Effect{Estimator: LocalIV, Value: stat.Mean(fit.MTE, nil)}, nil
}

// FitLocalIV estimates the propensity score with a probit, trims to the
// common support and fits the partially linear outcome model.
func FitLocalIV(p *dgp.Panel, in model.Inputs, opts LIVOptions) (*LIVFit, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	name := LocalIV.String()

	Z, err := p.Design(in.Choice)
	if err != nil {
		return nil, model.Configf("CHOICE.order", "%v", err)
	}
	X, err := p.Design(in.Exogenous)
	if err != nil {
		return nil, model.Configf("TREATED.order", "%v", err)
	}

	probit, err := FitProbit(Z, p.D)
	if err != nil {
		return nil, err
	}
	prop := probit.Propensity(Z)

	n, k := X.Dims()
	lo, hi := 0.0, 1.0
	if !opts.NoTrim {
		lo, hi = commonSupport(prop, p.D)
	}
	keep := make([]bool, n)
	used := 0
	for i, v := range prop {
		keep[i] = v >= lo && v <= hi
		if keep[i] {
			used++
		}
	}
	if used == 0 {
		return nil, model.Estimationf(name, "no units on the common support [%v, %v]", lo, hi)
	}

	// Design [X, X·P, P^2, ..., P^degree]
	cols := make([][]float64, 0, 2*k+opts.Degree-1)
	xCols := make([][]float64, k)
	for j := 0; j < k; j++ {
		xCols[j] = make([]float64, n)
		for i := 0; i < n; i++ {
			xCols[j][i] = X.At(i, j)
		}
		cols = append(cols, xCols[j])
	}
	for j := 0; j < k; j++ {
		c := make([]float64, n)
		for i := range c {
			c[i] = xCols[j][i] * prop[i]
		}
		cols = append(cols, c)
	}
	for d := 2; d <= opts.Degree; d++ {
		c := make([]float64, n)
		for i := range c {
			c[i] = math.Pow(prop[i], float64(d))
		}
		cols = append(cols, c)
	}

	design := subset(buildDesign(n, cols...), keep)
	b, err := leastSquares(name, design, subsetVec(p.Y, keep))
	if err != nil {
		return nil, err
	}

	fit := &LIVFit{
		B0:      b[:k],
		B1:      make([]float64, k),
		Alpha:   b[2*k:],
		Support: [2]float64{lo, hi},
		Used:    used,
	}
	delta := b[k : 2*k]
	for j := range fit.B1 {
		fit.B1[j] = fit.B0[j] + delta[j]
	}

	// Observable part of the gain, averaged over the trimmed sample
	xbar := columnMeans(subset(X, keep))
	observed := floats.Dot(xbar, delta)

	fit.Grid = floats.Span(make([]float64, opts.GridPoints), opts.GridLow, opts.GridHigh)
	fit.MTEU = make([]float64, opts.GridPoints)
	fit.MTE = make([]float64, opts.GridPoints)
	for g, u := range fit.Grid {
		// K'(u) = sum_j j α_j u^{j-1}
		slope := 0.0
		for j, a := range fit.Alpha {
			deg := float64(j + 2)
			slope += deg * a * math.Pow(u, deg-1)
		}
		fit.MTEU[g] = slope
		fit.MTE[g] = observed + slope
	}
	return fit, nil
}

// commonSupport is the overlap of the propensity ranges of treated and
// untreated units.
func commonSupport(prop, d []float64) (lo, hi float64) {
	minT, maxT := math.Inf(1), math.Inf(-1)
	minU, maxU := math.Inf(1), math.Inf(-1)
	for i, v := range prop {
		if d[i] == 1 {
			minT, maxT = math.Min(minT, v), math.Max(maxT, v)
		} else {
			minU, maxU = math.Min(minU, v), math.Max(maxU, v)
		}
	}
	return math.Max(minT, minU), math.Min(maxT, maxU)
}
