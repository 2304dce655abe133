// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

package estimate

import (
	"math"

	"github.com/OpenSourceEconomics/ose-course-data-science/internal/model"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	probitMaxIter = 100
	probitTol     = 1e-9
)

// Probit is a fitted probit model of the treatment decision.
type Probit struct {
	Gamma      []float64
	Iterations int
	LogLik     float64
}

// Index returns Z γ for every row of Z.
func (pr *Probit) Index(Z *mat.Dense) []float64 {
	return fitted(Z, pr.Gamma)
}

// Propensity returns Φ(Z γ) for every row of Z.
func (pr *Probit) Propensity(Z *mat.Dense) []float64 {
	idx := pr.Index(Z)
	for i, v := range idx {
		idx[i] = distuv.UnitNormal.CDF(v)
	}
	return idx
}

// FitProbit maximises the probit log-likelihood of d on Z by Newton-Raphson
// with step halving.
//
// Gradient:  sum_i λ_i z_i,             λ_i = q_i φ(q_i z_i'γ) / Φ(q_i z_i'γ), q_i = 2d_i - 1
// Hessian:  -sum_i λ_i (λ_i + z_i'γ) z_i z_i'
func FitProbit(Z *mat.Dense, d []float64) (*Probit, error) {
	n, k := Z.Dims()
	if n != len(d) {
		return nil, model.Estimationf("probit", "design has %d rows, treatment has %d", n, len(d))
	}
	treated := floats.Sum(d)
	if treated == 0 || treated == float64(n) {
		return nil, model.Estimationf("probit", "treatment does not vary")
	}

	gamma := make([]float64, k)
	ll := probitLogLik(Z, d, gamma)

	grad := mat.NewVecDense(k, nil)
	info := mat.NewSymDense(k, nil)
	row := make([]float64, k)

	for iter := 1; iter <= probitMaxIter; iter++ {
		grad.Zero()
		info.Zero()

		xb := fitted(Z, gamma)
		for i := 0; i < n; i++ {
			q := 2*d[i] - 1
			lambda := q * mills(q*xb[i])
			w := lambda * (lambda + xb[i])

			mat.Row(row, i, Z)
			for a := 0; a < k; a++ {
				grad.SetVec(a, grad.AtVec(a)+lambda*row[a])
				for b := a; b < k; b++ {
					info.SetSym(a, b, info.At(a, b)+w*row[a]*row[b])
				}
			}
		}

		var chol mat.Cholesky
		if !chol.Factorize(info) {
			return nil, model.Estimationf("probit", "information matrix is singular at iteration %d", iter)
		}
		var step mat.VecDense
		if err := chol.SolveVecTo(&step, grad); err != nil {
			return nil, model.Estimationf("probit", "newton step: %v", err)
		}

		// Halve the step until the likelihood does not fall
		scale := 1.0
		next := make([]float64, k)
		var nextLL float64
		for half := 0; half < 30; half++ {
			for a := range next {
				next[a] = gamma[a] + scale*step.AtVec(a)
			}
			nextLL = probitLogLik(Z, d, next)
			if nextLL >= ll-1e-12 {
				break
			}
			scale /= 2
		}

		change := 0.0
		for a := range next {
			change = math.Max(change, math.Abs(next[a]-gamma[a]))
		}
		gamma, ll = next, nextLL

		if change < probitTol {
			return &Probit{Gamma: gamma, Iterations: iter, LogLik: ll}, nil
		}
		if floats.Norm(gamma, math.Inf(1)) > 1e6 {
			return nil, model.Estimationf("probit", "coefficients diverge, outcome is perfectly separated")
		}
	}

	return nil, model.Estimationf("probit", "no convergence after %d iterations", probitMaxIter)
}

func probitLogLik(Z *mat.Dense, d, gamma []float64) float64 {
	xb := fitted(Z, gamma)
	ll := 0.0
	for i, v := range xb {
		q := 2*d[i] - 1
		ll += logCDF(q * v)
	}
	return ll
}

// logCDF is log Φ(z), accurate far into the lower tail.
func logCDF(z float64) float64 {
	if z > -30 {
		return math.Log(distuv.UnitNormal.CDF(z))
	}
	// Mills-ratio asymptote: Φ(z) ≈ φ(z) / -z
	return distuv.UnitNormal.LogProb(z) - math.Log(-z)
}

// mills is φ(z)/Φ(z), the inverse Mills ratio.
func mills(z float64) float64 {
	if z > -30 {
		return distuv.UnitNormal.Prob(z) / distuv.UnitNormal.CDF(z)
	}
	return -z
}
