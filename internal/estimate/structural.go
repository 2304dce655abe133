// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

package estimate

import (
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/dgp"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/model"
	"gonum.org/v1/gonum/mat"
)

// SwitchingFit holds the fitted structural model.
type SwitchingFit struct {
	Gamma []float64 // probit choice coefficients (γ / sd(V))
	B1    []float64 // treated outcome coefficients
	B0    []float64 // untreated outcome coefficients
	Rho1V float64   // cov(U1, V) / sd(V)
	Rho0V float64   // cov(U0, V) / sd(V)
}

// StructuralEstimator fits the switching-regression model in two steps:
// a probit of D on the choice covariates, then one least-squares regression
// per regime with the selection correction term as an extra regressor.
//
//	E[Y | X, D=1] = X β1 + σ1V/σV · (-φ(c)/Φ(c))
//	E[Y | X, D=0] = X β0 + σ0V/σV · ( φ(c)/(1-Φ(c)))
//
// where c = Z γ/σV is the probit index. The effect is X̄ (β1 - β0).
type StructuralEstimator struct{}

func (StructuralEstimator) Kind() Kind { return Structural }

func (StructuralEstimator) Requires() Requirements {
	return Requirements{Exogenous: true, Endogenous: true, Choice: true}
}

func (e StructuralEstimator) Estimate(p *dgp.Panel, in model.Inputs) (Effect, error) {
	fit, err := FitSwitching(p, in)
	if err != nil {
		return Effect{Estimator: Structural}, err
	}

	X, _ := p.Design(in.Exogenous)
	Z, _ := p.Design(in.Choice)
	index := fitted(Z, fit.Gamma)

	// Per-unit gain x'(β1 - β0) plus the expected unobserved gain given D
	n, k := X.Dims()
	var sumAll, sumTT, sumTUT float64
	var nTT, nTUT int
	for i := 0; i < n; i++ {
		gain := 0.0
		for j := 0; j < k; j++ {
			gain += X.At(i, j) * (fit.B1[j] - fit.B0[j])
		}
		sumAll += gain

		c := index[i]
		if p.D[i] == 1 {
			sumTT += gain + (fit.Rho1V-fit.Rho0V)*treatedCorrection(c)
			nTT++
		} else {
			sumTUT += gain + (fit.Rho1V-fit.Rho0V)*untreatedCorrection(c)
			nTUT++
		}
	}

	return Effect{
		Estimator: Structural,
		Value:     sumAll / float64(n),
		TT:        sumTT / float64(nTT),
		TUT:       sumTUT / float64(nTUT),
		Pair:      true,
	}, nil
}

// FitSwitching runs both steps and returns the coefficients.
func FitSwitching(p *dgp.Panel, in model.Inputs) (*SwitchingFit, error) {
	name := Structural.String()

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
	index := probit.Index(Z)

	n, k := X.Dims()
	treated := make([]bool, n)
	lambda := make([]float64, n)
	for i := 0; i < n; i++ {
		treated[i] = p.D[i] == 1
		if treated[i] {
			lambda[i] = treatedCorrection(index[i])
		} else {
			lambda[i] = untreatedCorrection(index[i])
		}
	}

	regime := func(label string, keep []bool) ([]float64, float64, error) {
		Xr := subset(withColumn(X, lambda), keep)
		if Xr == nil {
			return nil, 0, model.Estimationf(name, "no %s units", label)
		}
		b, err := leastSquares(name+" "+label, Xr, subsetVec(p.Y, keep))
		if err != nil {
			return nil, 0, err
		}
		return b[:k], b[k], nil
	}

	untreated := make([]bool, n)
	for i := range treated {
		untreated[i] = !treated[i]
	}

	b1, rho1, err := regime("treated", treated)
	if err != nil {
		return nil, err
	}
	b0, rho0, err := regime("untreated", untreated)
	if err != nil {
		return nil, err
	}

	return &SwitchingFit{Gamma: probit.Gamma, B1: b1, B0: b0, Rho1V: rho1, Rho0V: rho0}, nil
}

// treatedCorrection is E[V/σV | V/σV < c] = -φ(c)/Φ(c).
func treatedCorrection(c float64) float64 {
	return -mills(c)
}

// untreatedCorrection is E[V/σV | V/σV >= c] = φ(c)/(1-Φ(c)).
func untreatedCorrection(c float64) float64 {
	return mills(-c)
}

// withColumn returns [X, col].
func withColumn(X *mat.Dense, col []float64) *mat.Dense {
	n, k := X.Dims()
	out := mat.NewDense(n, k+1, nil)
	out.Slice(0, n, 0, k).(*mat.Dense).Copy(X)
	out.SetCol(k, col)
	return out
}
