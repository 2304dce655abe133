// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

package estimate

import (
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/model"
	"gonum.org/v1/gonum/mat"
)

// Above this condition number X'X is treated as numerically singular and the
// SVD path decides the rank.
const maxCond = 1e12

// rankTol is the relative singular-value cutoff of the SVD rank check.
const rankTol = 1e-10

// leastSquares solves min ||y - X b|| for b.
//
// First try: normal equations via Cholesky of X'X.
// Fallback: SVD of X. A rank-deficient design is an EstimationError, never a
// minimum-norm solution.
func leastSquares(name string, X *mat.Dense, y []float64) ([]float64, error) {
	n, m := X.Dims()
	if n != len(y) {
		return nil, model.Estimationf(name, "design has %d rows, outcome has %d", n, len(y))
	}
	if n < m {
		return nil, model.Estimationf(name, "need at least %d observations, got %d", m, n)
	}

	yv := mat.NewVecDense(n, y)

	var xtx mat.SymDense
	xtx.SymOuterK(1, X.T())

	var xty mat.VecDense
	xty.MulVec(X.T(), yv)

	var chol mat.Cholesky
	if chol.Factorize(&xtx) && chol.Cond() < maxCond {
		var b mat.VecDense
		if err := chol.SolveVecTo(&b, &xty); err == nil {
			return b.RawVector().Data, nil
		}
	}

	// X'X singular or badly conditioned
	var svd mat.SVD
	if !svd.Factorize(X, mat.SVDThin) {
		return nil, model.Estimationf(name, "SVD factorization of the design failed")
	}
	rank := svd.Rank(rankTol)
	if rank < m {
		return nil, model.Estimationf(name, "design matrix is rank deficient (rank %d of %d columns)", rank, m)
	}

	var B mat.Dense
	svd.SolveTo(&B, yv, rank)
	return mat.Col(nil, 0, &B), nil
}

// buildDesign stacks columns into an n x len(cols) matrix.
func buildDesign(n int, cols ...[]float64) *mat.Dense {
	X := mat.NewDense(n, len(cols), nil)
	for j, c := range cols {
		X.SetCol(j, c)
	}
	return X
}

// ones returns a constant column.
func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

// fitted returns X b.
func fitted(X *mat.Dense, b []float64) []float64 {
	var out mat.VecDense
	out.MulVec(X, mat.NewVecDense(len(b), b))
	return out.RawVector().Data
}

// subset keeps the rows of X whose mask is true.
func subset(X *mat.Dense, mask []bool) *mat.Dense {
	_, m := X.Dims()
	var rows []float64
	k := 0
	for i, keep := range mask {
		if keep {
			rows = append(rows, mat.Row(nil, i, X)...)
			k++
		}
	}
	if k == 0 {
		return nil
	}
	return mat.NewDense(k, m, rows)
}

// subsetVec keeps the entries of v whose mask is true.
func subsetVec(v []float64, mask []bool) []float64 {
	var out []float64
	for i, keep := range mask {
		if keep {
			out = append(out, v[i])
		}
	}
	return out
}

// columnMeans returns the mean of every column of X.
func columnMeans(X mat.Matrix) []float64 {
	n, m := X.Dims()
	out := make([]float64, m)
	if n == 0 {
		return out
	}
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			out[j] += X.At(i, j)
		}
	}
	for j := range out {
		out[j] /= float64(n)
	}
	return out
}
