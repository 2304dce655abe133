// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

// Package estimate is the estimator bank: treatment-effect estimators that
// consume one synthetic panel and return a scalar effect (or an ATE/TT/TUT
// triple), selected through a registry keyed by Kind.
package estimate

import (
	"fmt"
	"slices"

	"github.com/OpenSourceEconomics/ose-course-data-science/internal/dgp"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/model"
)

// Effect is one estimate tagged with the estimator that produced it.
// Value is the headline effect (ATE for every estimator but Randomization and
// OLS, which report their raw coefficient). TT and TUT are set when Pair is true.
type Effect struct {
	Estimator Kind
	Value     float64
	TT        float64
	TUT       float64
	Pair      bool
}

// Requirements are the input sets an estimator cannot run without.
type Requirements struct {
	Exogenous   bool // outcome regressors
	Endogenous  bool // treatment indicator
	Instruments bool // excluded instruments, disjoint from Exogenous
	Choice      bool // choice-equation regressors for a propensity model
}

// Estimator is one member of the bank.
type Estimator interface {
	Kind() Kind
	Requires() Requirements
	Estimate(p *dgp.Panel, in model.Inputs) (Effect, error)
}

// CheckInputs returns a ConfigError when in cannot satisfy req.
func CheckInputs(k Kind, req Requirements, in model.Inputs) error {
	field := "ESTIMATION." + k.String()
	if req.Exogenous && len(in.Exogenous) == 0 {
		return model.Configf(field, "needs exogenous regressors")
	}
	if req.Endogenous && in.Endogenous == "" {
		return model.Configf(field, "needs a treatment indicator")
	}
	if req.Choice && len(in.Choice) == 0 {
		return model.Configf(field, "needs choice-equation regressors")
	}
	if req.Instruments {
		if len(in.Instruments) == 0 {
			return model.Configf(field, "needs at least one excluded instrument")
		}
		for _, z := range in.Instruments {
			if slices.Contains(in.Exogenous, z) {
				return model.Configf(field, "instrument %q is also an exogenous regressor", z)
			}
			if z == in.Endogenous {
				return model.Configf(field, "treatment %q cannot instrument itself", z)
			}
		}
	}
	return nil
}

// Registry maps each Kind to its estimator.
type Registry struct {
	estimators map[Kind]Estimator
}

// NewRegistry builds a registry from the given estimators. A later estimator
// replaces an earlier one of the same Kind.
func NewRegistry(estimators ...Estimator) *Registry {
	r := &Registry{estimators: make(map[Kind]Estimator, len(estimators))}
	for _, e := range estimators {
		r.Register(e)
	}
	return r
}

// DefaultRegistry holds the whole bank with default options.
func DefaultRegistry() *Registry {
	return NewRegistry(
		ConventionalEstimator{},
		RandomizationEstimator{},
		NewOLS(OLSOptions{}),
		IVEstimator{},
		StructuralEstimator{},
		NewLocalIV(LIVOptions{}),
	)
}

// Register adds or replaces an estimator.
func (r *Registry) Register(e Estimator) {
	r.estimators[e.Kind()] = e
}

// Lookup returns the estimator for k.
func (r *Registry) Lookup(k Kind) (Estimator, error) {
	e, ok := r.estimators[k]
	if !ok {
		return nil, model.Configf("estimator", "no estimator registered for %s", k)
	}
	return e, nil
}

// Kinds lists the registered kinds in bank order.
func (r *Registry) Kinds() []Kind {
	var out []Kind
	for _, k := range Kinds() {
		if _, ok := r.estimators[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// Validate checks that k is registered and that in satisfies its requirements.
func (r *Registry) Validate(k Kind, in model.Inputs) error {
	e, err := r.Lookup(k)
	if err != nil {
		return err
	}
	return CheckInputs(k, e.Requires(), in)
}

// Run validates the inputs and then estimates.
func (r *Registry) Run(k Kind, p *dgp.Panel, in model.Inputs) (Effect, error) {
	if err := r.Validate(k, in); err != nil {
		return Effect{}, err
	}
	e, _ := r.Lookup(k)
	eff, err := e.Estimate(p, in)
	if err != nil {
		return Effect{Estimator: k}, fmt.Errorf("%s: %w", k, err)
	}
	return eff, nil
}
