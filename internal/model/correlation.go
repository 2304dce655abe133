// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

package model

import "math"

// UpdateCorrelation returns a copy of spec in which cov(U1, V) is set to
// rho * sd(U1) * sd(V). Every other entry is unchanged and spec itself is
// never modified.
// rho must lie in [-1, 1].
func UpdateCorrelation(spec Spec, rho float64) (Spec, error) {
	if math.IsNaN(rho) || rho < -1 || rho > 1 {
		return Spec{}, Configf("rho", "correlation must lie in [-1, 1], got %v", rho)
	}
	out := spec.Clone()
	out.Dist.CovU1V = rho * out.Dist.SdU1 * out.Dist.SdV
	// store -0 as 0
	if out.Dist.CovU1V == 0 {
		out.Dist.CovU1V = 0
	}
	return out, nil
}

// WithCovU1V returns a copy of spec with cov(U1, V) replaced verbatim.
// The sweep uses it to restore the snapshot taken before the grid ran.
func WithCovU1V(spec Spec, cov float64) Spec {
	out := spec.Clone()
	out.Dist.CovU1V = cov
	return out
}
