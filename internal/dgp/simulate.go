// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

// Package dgp simulates synthetic panels from a generalized Roy model:
// covariates, correlated unobservables (U1, U0, V), potential outcomes,
// the treatment decision and the observed outcome.
package dgp

import (
	"math"
	"math/rand"

	"github.com/OpenSourceEconomics/ose-course-data-science/internal/model"
	"gonum.org/v1/gonum/mat"
)

// Simulate draws a synthetic panel of units from spec using seed.
// units <= 0 falls back to SIMULATION.agents. When table is non-nil its
// columns take precedence over covariate designs and its first units rows
// are used.
//
// For a fixed (spec, units, seed, table) the panel is bit-identical across calls.
// Covariates are drawn before the unobservables, so panels that differ only in
// the covariance of (U1, U0, V) share their covariates and base normal draws.
func Simulate(spec model.Spec, units int, seed int64, table *Table) (*Panel, error) {
	// Reject configuration problems before any draw
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	var available []string
	if table != nil {
		available = table.Names
	}
	if err := spec.ValidateCovariates(available); err != nil {
		return nil, err
	}

	n := units
	if n <= 0 {
		n = spec.Simulation.Agents
	}
	if n <= 0 {
		return nil, model.Configf("SIMULATION.agents", "need at least one unit")
	}
	if table != nil && table.Rows() < n {
		return nil, model.Configf("covariates", "table has %d rows, need %d", table.Rows(), n)
	}

	L, err := factorCovariance(spec.Dist.Covariance())
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(seed))

	// 1. Covariates, column by column
	names := spec.CovariateNames()
	X := mat.NewDense(n, len(names), nil)
	for j, name := range names {
		switch {
		case name == model.ConstName:
			for i := 0; i < n; i++ {
				X.Set(i, j, 1.0)
			}
		case table.Index(name) >= 0:
			src := table.Index(name)
			for i := 0; i < n; i++ {
				X.Set(i, j, table.Data.At(i, src))
			}
		default:
			design, _ := spec.Design(name)
			for i := 0; i < n; i++ {
				X.Set(i, j, drawCovariate(design, rng))
			}
		}
	}

	// 2. Unobservables: u = L z with z ~ N(0, I_3)
	p := &Panel{
		Names:     names,
		X:         X,
		U1:        make([]float64, n),
		U0:        make([]float64, n),
		V:         make([]float64, n),
		Y1:        make([]float64, n),
		Y0:        make([]float64, n),
		Choice:    make([]float64, n),
		D:         make([]float64, n),
		Y:         make([]float64, n),
		Dependent: spec.Dependent(),
		Indicator: spec.Indicator(),
	}

	z := mat.NewVecDense(3, nil)
	var u mat.VecDense
	for i := 0; i < n; i++ {
		for k := 0; k < 3; k++ {
			z.SetVec(k, rng.NormFloat64())
		}
		u.MulVec(L, z)
		p.U1[i], p.U0[i], p.V[i] = u.AtVec(0), u.AtVec(1), u.AtVec(2)
	}

	// 3. Outcomes and choice
	treatedIdx := columnIndex(names, spec.Treated.Order)
	choiceIdx := columnIndex(names, spec.Choice.Order)
	for i := 0; i < n; i++ {
		p.Y1[i] = rowDot(X, i, treatedIdx, spec.Treated.Params) + p.U1[i]
		p.Y0[i] = rowDot(X, i, treatedIdx, spec.Untreated.Params) + p.U0[i]
		p.Choice[i] = rowDot(X, i, choiceIdx, spec.Choice.Params)
		if p.Choice[i]-p.V[i] > 0 {
			p.D[i] = 1
			p.Y[i] = p.Y1[i]
		} else {
			p.Y[i] = p.Y0[i]
		}
	}

	return p, nil
}

// factorCovariance returns L with L L' = sigma. Cholesky is tried first; a
// positive semi-definite but singular matrix (|rho| = 1) falls back to the
// symmetric eigen-decomposition L = Q sqrt(Λ).
func factorCovariance(sigma *mat.SymDense) (*mat.Dense, error) {
	k := sigma.SymmetricDim()

	var chol mat.Cholesky
	if chol.Factorize(sigma) {
		var tri mat.TriDense
		chol.LTo(&tri)
		return mat.DenseCopyOf(&tri), nil
	}

	var eig mat.EigenSym
	if !eig.Factorize(sigma, true) {
		return nil, model.Configf("DIST", "covariance matrix cannot be factorized")
	}
	vals := eig.Values(nil)
	var Q mat.Dense
	eig.VectorsTo(&Q)

	L := mat.NewDense(k, k, nil)
	for j := 0; j < k; j++ {
		if vals[j] < -psdTol {
			return nil, model.Configf("DIST", "covariance matrix is not positive semi-definite")
		}
		s := math.Sqrt(math.Max(vals[j], 0))
		for i := 0; i < k; i++ {
			L.Set(i, j, Q.At(i, j)*s)
		}
	}
	return L, nil
}

// psdTol absorbs round-off in eigenvalues of a singular covariance matrix.
const psdTol = 1e-10

func drawCovariate(c model.CovariateDesign, rng *rand.Rand) float64 {
	switch c.Type {
	case model.CovBinary:
		if rng.Float64() < c.Prob {
			return 1
		}
		return 0
	case model.CovUniform:
		return c.Low + (c.High-c.Low)*rng.Float64()
	default:
		return c.Mean + c.Sd*rng.NormFloat64()
	}
}

// columnIndex maps each name in order to its column in names.
func columnIndex(names, order []string) []int {
	idx := make([]int, len(order))
	for k, name := range order {
		idx[k] = -1
		for j, n := range names {
			if n == name {
				idx[k] = j
				break
			}
		}
	}
	return idx
}

// rowDot computes sum_k X[i, idx[k]] * params[k].
func rowDot(X *mat.Dense, i int, idx []int, params []float64) float64 {
	val := 0.0
	for k, j := range idx {
		val += X.At(i, j) * params[k]
	}
	return val
}
