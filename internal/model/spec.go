// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

// Package model holds the generalized Roy model specification: outcome and
// choice equations, the joint distribution of the unobservables (U1, U0, V)
// and the covariate design used to simulate synthetic panels.
package model

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// ConstName is the reserved name of the intercept column.
const ConstName = "const"

// Default labels of the dependent variable and the treatment indicator.
const (
	DefaultDependent = "Y"
	DefaultIndicator = "D"
)

// Simulation settings of a model
type Simulation struct {
	// Number of synthetic units
	Agents int `yaml:"agents"`
	// RNG seed used by the DGP
	Seed int64 `yaml:"seed"`
	// Base name for persisted panels, optional
	Source string `yaml:"source,omitempty"`
}

// Estimation settings of a model
type Estimation struct {
	// Label of the observed outcome
	Dependent string `yaml:"dependent"`
	// Label of the treatment indicator
	Indicator string `yaml:"indicator"`
	// Excluded instruments. Empty means: choice covariates that are not outcome covariates
	Instruments []string `yaml:"instruments,omitempty"`
}

// Equation is a linear index: Order names the covariates and Params their coefficients.
type Equation struct {
	Order  []string  `yaml:"order,flow"`
	Params []float64 `yaml:"params,flow"`
}

// Distribution of the unobservables (U1, U0, V), stored as standard deviations
// and covariances like the course's initialization files.
type Distribution struct {
	SdU1    float64 `yaml:"sd_u1"`
	CovU1U0 float64 `yaml:"cov_u1_u0"`
	CovU1V  float64 `yaml:"cov_u1_v"`
	SdU0    float64 `yaml:"sd_u0"`
	CovU0V  float64 `yaml:"cov_u0_v"`
	SdV     float64 `yaml:"sd_v"`
}

// What kind of distribution a covariate is drawn from
type CovariateType string

const (
	CovNormal  CovariateType = "normal"
	CovBinary  CovariateType = "binary"
	CovUniform CovariateType = "uniform"
)

// CovariateDesign is the design distribution of one observed covariate.
type CovariateDesign struct {
	Name string        `yaml:"name"`
	Type CovariateType `yaml:"type"`
	// normal
	Mean float64 `yaml:"mean,omitempty"`
	Sd   float64 `yaml:"sd,omitempty"`
	// binary
	Prob float64 `yaml:"prob,omitempty"`
	// uniform
	Low  float64 `yaml:"low,omitempty"`
	High float64 `yaml:"high,omitempty"`
}

// Spec is the complete model specification. Treat it as a value: the
// Correlation Updater and every other transformation return a new Spec.
type Spec struct {
	Simulation Simulation        `yaml:"SIMULATION"`
	Estimation Estimation        `yaml:"ESTIMATION"`
	Treated    Equation          `yaml:"TREATED"`
	Untreated  Equation          `yaml:"UNTREATED"`
	Choice     Equation          `yaml:"CHOICE"`
	Dist       Distribution      `yaml:"DIST"`
	Covariates []CovariateDesign `yaml:"COVARIATES,omitempty"`
}

// Clone returns a deep copy so callers can never alias the slices of another Spec.
func (s Spec) Clone() Spec {
	out := s
	out.Estimation.Instruments = slices.Clone(s.Estimation.Instruments)
	out.Treated = s.Treated.clone()
	out.Untreated = s.Untreated.clone()
	out.Choice = s.Choice.clone()
	out.Covariates = slices.Clone(s.Covariates)
	return out
}

func (e Equation) clone() Equation {
	return Equation{Order: slices.Clone(e.Order), Params: slices.Clone(e.Params)}
}

// Dependent returns the outcome label, falling back to "Y".
func (s Spec) Dependent() string {
	if s.Estimation.Dependent == "" {
		return DefaultDependent
	}
	return s.Estimation.Dependent
}

// Indicator returns the treatment label, falling back to "D".
func (s Spec) Indicator() string {
	if s.Estimation.Indicator == "" {
		return DefaultIndicator
	}
	return s.Estimation.Indicator
}

// ReservedNames returns the panel labels that are not covariates: the
// outcome, the treatment, the potential outcomes and the unobservables.
func (s Spec) ReservedNames() []string {
	dep := s.Dependent()
	return []string{dep, s.Indicator(), dep + "1", dep + "0", "U1", "U0", "V"}
}

// Covariance returns the 3x3 covariance matrix of (U1, U0, V).
func (d Distribution) Covariance() *mat.SymDense {
	return mat.NewSymDense(3, []float64{
		d.SdU1 * d.SdU1, d.CovU1U0, d.CovU1V,
		d.CovU1U0, d.SdU0 * d.SdU0, d.CovU0V,
		d.CovU1V, d.CovU0V, d.SdV * d.SdV,
	})
}

// CorrelationU1V returns the implied correlation between U1 and V.
func (d Distribution) CorrelationU1V() float64 {
	return d.CovU1V / (d.SdU1 * d.SdV)
}

// CorrelationU0V returns the implied correlation between U0 and V.
func (d Distribution) CorrelationU0V() float64 {
	return d.CovU0V / (d.SdU0 * d.SdV)
}

// CovariateNames returns every covariate name used by the outcome or choice
// equations, the constant first and otherwise in order of first appearance.
func (s Spec) CovariateNames() []string {
	names := []string{}
	seen := map[string]bool{}
	hasConst := false
	for _, eq := range []Equation{s.Treated, s.Untreated, s.Choice} {
		for _, n := range eq.Order {
			if n == ConstName {
				hasConst = true
				continue
			}
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	if hasConst {
		names = append([]string{ConstName}, names...)
	}
	return names
}

// Design returns the covariate design with the given name.
func (s Spec) Design(name string) (CovariateDesign, bool) {
	for _, c := range s.Covariates {
		if c.Name == name {
			return c, true
		}
	}
	return CovariateDesign{}, false
}

// Inputs are the variable sets an estimator can draw on.
type Inputs struct {
	// Structural (exogenous) regressors of the outcome equation
	Exogenous []string
	// Endogenous treatment variable
	Endogenous string
	// Excluded instruments, disjoint from Exogenous
	Instruments []string
	// Choice-equation covariates (probit regressors)
	Choice []string
}

// Inputs derives the estimator input sets from the specification.
func (s Spec) Inputs() Inputs {
	in := Inputs{
		Exogenous:  slices.Clone(s.Treated.Order),
		Endogenous: s.Indicator(),
		Choice:     slices.Clone(s.Choice.Order),
	}
	if len(s.Estimation.Instruments) > 0 {
		in.Instruments = slices.Clone(s.Estimation.Instruments)
		return in
	}
	for _, n := range s.Choice.Order {
		if n == ConstName || slices.Contains(s.Treated.Order, n) {
			continue
		}
		in.Instruments = append(in.Instruments, n)
	}
	return in
}

// BetaDiff returns β1 - β0 over the shared outcome order.
func (s Spec) BetaDiff() []float64 {
	out := make([]float64, len(s.Treated.Params))
	for i := range out {
		out[i] = s.Treated.Params[i] - s.Untreated.Params[i]
	}
	return out
}

// isFinite reports whether every value is a real number.
func isFinite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
