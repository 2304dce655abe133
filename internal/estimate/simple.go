// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

package estimate

import (
	"slices"

	"github.com/OpenSourceEconomics/ose-course-data-science/internal/dgp"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/model"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ConventionalEstimator reads the effects off both potential outcomes. It is
// the benchmark the other estimators are compared against.
type ConventionalEstimator struct{}

func (ConventionalEstimator) Kind() Kind             { return Conventional }
func (ConventionalEstimator) Requires() Requirements { return Requirements{} }

func (ConventionalEstimator) Estimate(p *dgp.Panel, _ model.Inputs) (Effect, error) {
	eff, err := dgp.ConventionalEffects(p)
	if err != nil {
		return Effect{Estimator: Conventional}, err
	}
	return Effect{Estimator: Conventional, Value: eff.ATE, TT: eff.TT, TUT: eff.TUT, Pair: true}, nil
}

// RandomizationEstimator is the naive difference in means
// mean(Y | D=1) - mean(Y | D=0).
type RandomizationEstimator struct{}

func (RandomizationEstimator) Kind() Kind { return Randomization }

func (RandomizationEstimator) Requires() Requirements {
	return Requirements{Endogenous: true}
}

func (RandomizationEstimator) Estimate(p *dgp.Panel, _ model.Inputs) (Effect, error) {
	var treated, untreated []float64
	for i, d := range p.D {
		if d == 1 {
			treated = append(treated, p.Y[i])
		} else {
			untreated = append(untreated, p.Y[i])
		}
	}
	if len(treated) == 0 || len(untreated) == 0 {
		return Effect{Estimator: Randomization}, model.Estimationf(Randomization.String(),
			"treated=%d untreated=%d, need both arms", len(treated), len(untreated))
	}
	return Effect{
		Estimator: Randomization,
		Value:     stat.Mean(treated, nil) - stat.Mean(untreated, nil),
	}, nil
}

// OLSOptions configures the OLS estimator.
type OLSOptions struct {
	// Add the outcome covariates (other than the constant) to [const, D]
	WithCovariates bool
}

// OLSEstimator regresses Y on a constant and D and reports the D coefficient.
type OLSEstimator struct {
	opts OLSOptions
}

// NewOLS returns an OLS estimator.
func NewOLS(opts OLSOptions) *OLSEstimator {
	return &OLSEstimator{opts: opts}
}

func (e *OLSEstimator) Kind() Kind { return OLS }

func (e *OLSEstimator) Requires() Requirements {
	return Requirements{Endogenous: true, Exogenous: e.opts.WithCovariates}
}

func (e *OLSEstimator) Estimate(p *dgp.Panel, in model.Inputs) (Effect, error) {
	n := p.Len()
	cols := [][]float64{ones(n), p.D}
	if e.opts.WithCovariates {
		for _, name := range in.Exogenous {
			if name == model.ConstName {
				continue
			}
			col, ok := p.Column(name)
			if !ok {
				return Effect{Estimator: OLS}, model.Configf("TREATED.order", "panel has no covariate %q", name)
			}
			cols = append(cols, col)
		}
	}

	b, err := leastSquares(OLS.String(), buildDesign(n, cols...), p.Y)
	if err != nil {
		return Effect{Estimator: OLS}, err
	}
	return Effect{Estimator: OLS, Value: b[1]}, nil
}

// IVEstimator is two-stage least squares. Structural regressors are the
// exogenous covariates plus D; instruments are the exogenous covariates plus
// the excluded instruments. Reports the coefficient on D.
type IVEstimator struct{}

func (IVEstimator) Kind() Kind { return IV }

func (IVEstimator) Requires() Requirements {
	return Requirements{Exogenous: true, Endogenous: true, Instruments: true}
}

func (IVEstimator) Estimate(p *dgp.Panel, in model.Inputs) (Effect, error) {
	name := IV.String()

	exog, err := p.Design(in.Exogenous)
	if err != nil {
		return Effect{Estimator: IV}, model.Configf("TREATED.order", "%v", err)
	}
	Z, err := p.Design(slices.Concat(in.Exogenous, in.Instruments))
	if err != nil {
		return Effect{Estimator: IV}, model.Configf("ESTIMATION.instruments", "%v", err)
	}

	// First stage: project D on the instrument space
	pi, err := leastSquares(name+" first stage", Z, p.D)
	if err != nil {
		return Effect{Estimator: IV}, err
	}
	dHat := fitted(Z, pi)

	// Second stage: Y on [exogenous, D-hat]
	n, k := exog.Dims()
	cols := make([][]float64, 0, k+1)
	for j := 0; j < k; j++ {
		cols = append(cols, mat.Col(nil, j, exog))
	}
	cols = append(cols, dHat)

	b, err := leastSquares(name+" second stage", buildDesign(n, cols...), p.Y)
	if err != nil {
		return Effect{Estimator: IV}, err
	}
	return Effect{Estimator: IV, Value: b[k]}, nil
}
