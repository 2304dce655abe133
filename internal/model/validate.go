// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

package model

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// psdTol is the relative tolerance used when checking eigenvalues of the
// covariance matrix. Matrices with a smallest eigenvalue below -psdTol times
// the largest are rejected.
const psdTol = 1e-10

// Validate checks the specification before any draw is attempted.
// Every failure is a *ConfigError.
func (s Spec) Validate() error {
	if s.Simulation.Agents < 0 {
		return Configf("SIMULATION.agents", "must be >= 0, got %d", s.Simulation.Agents)
	}

	for _, item := range []struct {
		name string
		eq   Equation
	}{
		{"TREATED", s.Treated},
		{"UNTREATED", s.Untreated},
		{"CHOICE", s.Choice},
	} {
		if err := item.eq.validate(item.name); err != nil {
			return err
		}
	}

	// Both potential outcomes are indexed by the same covariates
	if !slices.Equal(s.Treated.Order, s.Untreated.Order) {
		return Configf("UNTREATED.order", "must equal TREATED.order %v, got %v", s.Treated.Order, s.Untreated.Order)
	}

	if s.Dependent() == s.Indicator() {
		return Configf("ESTIMATION", "dependent and indicator share the label %q", s.Dependent())
	}

	reserved := s.ReservedNames()
	for _, item := range []struct {
		field string
		names []string
	}{
		{"TREATED.order", s.Treated.Order},
		{"UNTREATED.order", s.Untreated.Order},
		{"CHOICE.order", s.Choice.Order},
		{"ESTIMATION.instruments", s.Estimation.Instruments},
	} {
		for _, n := range item.names {
			if slices.Contains(reserved, n) {
				return Configf(item.field, "%q names a panel column, not a covariate", n)
			}
		}
	}

	if err := s.Dist.Validate(); err != nil {
		return err
	}

	for i, c := range s.Covariates {
		if err := c.validate(); err != nil {
			return err
		}
		if slices.Contains(reserved, c.Name) {
			return Configf("COVARIATES."+c.Name, "%q names a panel column, not a covariate", c.Name)
		}
		for _, other := range s.Covariates[:i] {
			if other.Name == c.Name {
				return Configf("COVARIATES", "duplicate covariate %q", c.Name)
			}
		}
	}
	return nil
}

// ValidateCovariates checks that every covariate the equations use can be
// produced, either from its design or from the supplied external columns.
// A column named like the outcome, the treatment or an unobservable is never
// a covariate.
func (s Spec) ValidateCovariates(available []string) error {
	reserved := s.ReservedNames()
	for _, name := range s.CovariateNames() {
		if name == ConstName {
			continue
		}
		if slices.Contains(reserved, name) {
			return Configf("COVARIATES", "%q names a panel column, not a covariate", name)
		}
		if _, ok := s.Design(name); ok {
			continue
		}
		if slices.Contains(available, name) {
			continue
		}
		return Configf("COVARIATES", "no design or covariate column for %q", name)
	}
	return nil
}

func (e Equation) validate(section string) error {
	if len(e.Order) == 0 {
		return Configf(section+".order", "is empty")
	}
	if len(e.Order) != len(e.Params) {
		return Configf(section, "order has %d entries but params has %d", len(e.Order), len(e.Params))
	}
	for i, n := range e.Order {
		if n == "" {
			return Configf(section+".order", "entry %d has no name", i)
		}
		if slices.Contains(e.Order[:i], n) {
			return Configf(section+".order", "duplicate covariate %q", n)
		}
	}
	if !isFinite(e.Params...) {
		return Configf(section+".params", "contains NaN or Inf")
	}
	return nil
}

func (c CovariateDesign) validate() error {
	field := "COVARIATES." + c.Name
	if c.Name == "" {
		return Configf("COVARIATES", "covariate without a name")
	}
	if c.Name == ConstName {
		return Configf(field, "the constant is implicit and cannot be designed")
	}
	switch c.Type {
	case CovNormal:
		if !(c.Sd > 0) || !isFinite(c.Mean, c.Sd) {
			return Configf(field, "normal covariate needs a finite mean and sd > 0")
		}
	case CovBinary:
		if !(c.Prob >= 0 && c.Prob <= 1) {
			return Configf(field, "binary covariate needs prob in [0, 1], got %v", c.Prob)
		}
	case CovUniform:
		if !isFinite(c.Low, c.High) || !(c.High > c.Low) {
			return Configf(field, "uniform covariate needs low < high")
		}
	default:
		return Configf(field, "unknown covariate type %q", c.Type)
	}
	return nil
}

// Validate checks standard deviations, the Cauchy–Schwarz bound of every
// covariance and positive semi-definiteness of the full matrix.
func (d Distribution) Validate() error {
	if !isFinite(d.SdU1, d.SdU0, d.SdV, d.CovU1U0, d.CovU1V, d.CovU0V) {
		return Configf("DIST", "contains NaN or Inf")
	}
	for _, sd := range []struct {
		name string
		val  float64
	}{
		{"sd_u1", d.SdU1},
		{"sd_u0", d.SdU0},
		{"sd_v", d.SdV},
	} {
		if sd.val <= 0 {
			return Configf("DIST."+sd.name, "must be > 0, got %v", sd.val)
		}
	}

	for _, c := range []struct {
		name   string
		cov    float64
		sa, sb float64
	}{
		{"cov_u1_u0", d.CovU1U0, d.SdU1, d.SdU0},
		{"cov_u1_v", d.CovU1V, d.SdU1, d.SdV},
		{"cov_u0_v", d.CovU0V, d.SdU0, d.SdV},
	} {
		bound := c.sa * c.sb
		if math.Abs(c.cov) > bound*(1+1e-12) {
			return Configf("DIST."+c.name, "|%v| exceeds sd product %v", c.cov, bound)
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(d.Covariance(), false); !ok {
		return Configf("DIST", "eigen decomposition of the covariance failed")
	}
	vals := eig.Values(nil)
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo < -psdTol*math.Max(hi, 1) {
		return Configf("DIST", "covariance matrix is not positive semi-definite (smallest eigenvalue %v)", lo)
	}
	return nil
}
