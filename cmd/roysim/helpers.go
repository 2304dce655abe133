// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/OpenSourceEconomics/ose-course-data-science/internal/dgp"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/model"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/store"
)

// inputs reads the model specification and the optional covariate table.
// When a correlation is configured it is applied to the specification.
func (a *app) inputs(applyRho bool) (model.Spec, *dgp.Table, error) {
	if err := a.cfg.RequireSpec(); err != nil {
		return model.Spec{}, nil, err
	}
	spec, err := store.ReadSpec(a.cfg.Spec)
	if err != nil {
		return model.Spec{}, nil, err
	}
	if applyRho && a.cfg.Rho != nil {
		if spec, err = model.UpdateCorrelation(spec, *a.cfg.Rho); err != nil {
			return model.Spec{}, nil, err
		}
	}

	var table *dgp.Table
	if a.cfg.Covariates != "" {
		if table, err = store.LoadCovariates(a.cfg.Covariates); err != nil {
			return model.Spec{}, nil, err
		}
		a.log.Debug("loaded covariates", "path", a.cfg.Covariates, "rows", table.Rows(), "columns", table.Names)
	}
	return spec, table, nil
}

// unitsAndSeed resolves the panel size and seed against the specification.
func (a *app) unitsAndSeed(spec model.Spec) (int, int64) {
	units, seed := a.cfg.Units, spec.Simulation.Seed
	if units <= 0 {
		units = spec.Simulation.Agents
	}
	if a.cfg.Seed != nil {
		seed = *a.cfg.Seed
	}
	return units, seed
}

// outputPath returns name inside the output directory, creating it.
func (a *app) outputPath(name string) (string, error) {
	if err := os.MkdirAll(a.cfg.Output, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	return filepath.Join(a.cfg.Output, name), nil
}

// openStore opens the configured run store.
func (a *app) openStore() (*store.RunStore, error) {
	if a.cfg.DB == "" {
		return nil, model.Configf("db", "no run store configured (--db or db: in roysim.yaml)")
	}
	return store.OpenRunStore(a.cfg.DB)
}
