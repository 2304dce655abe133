// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

package main

import (
	"fmt"

	"github.com/OpenSourceEconomics/ose-course-data-science/internal/dgp"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/model"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/report"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/store"
	"github.com/spf13/cobra"
)

// simulate draws the configured panel.
func (a *app) simulate() (model.Spec, *dgp.Panel, error) {
	spec, table, err := a.inputs(true)
	if err != nil {
		return model.Spec{}, nil, err
	}
	units, seed := a.unitsAndSeed(spec)
	p, err := dgp.Simulate(spec, units, seed, table)
	if err != nil {
		return model.Spec{}, nil, err
	}
	a.log.Debug("simulated panel", "units", p.Len(), "treated", p.Treated(), "seed", seed)
	return spec, p, nil
}

func newSimulateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate one panel and write it to CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			spec, p, err := a.simulate()
			if err != nil {
				return err
			}

			name := "panel"
			if spec.Simulation.Source != "" {
				name = spec.Simulation.Source
			}
			path, err := a.outputPath(name + ".csv")
			if err != nil {
				return err
			}
			if err := store.WritePanelCSV(path, p); err != nil {
				return err
			}
			a.log.Info("wrote panel", "path", path, "units", p.Len())

			effects, err := dgp.ConventionalEffects(p)
			if err != nil {
				return err
			}
			policy, err := dgp.PolicyATE(spec, p)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report.EffectsTable(effects, policy, a.cfg.TableMode()))
			return nil
		},
	}
	cmd.Flags().Float64("rho", 0, "corr(U1, V) of the panel (default: as in the specification)")
	return cmd
}

func newEffectsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "effects",
		Short: "Print the treatment effects of a specification and every estimator's estimate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			spec, p, err := a.simulate()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			mode := a.cfg.TableMode()

			report.PrintSpecSummary(out, spec)

			policy, err := dgp.PolicyATE(spec, p)
			if err != nil {
				return err
			}
			effects, err := dgp.ConventionalEffects(p)
			if err != nil {
				// a panel without both arms still has a policy ATE
				a.log.Warn("no conventional effects", "err", err)
				effects = dgp.Effects{ATE: policy}
			}
			fmt.Fprintln(out, report.EffectsTable(effects, policy, mode))

			registry := a.cfg.Registry()
			in := spec.Inputs()
			var rows []report.EstimateRow
			for _, k := range registry.Kinds() {
				e, err := registry.Run(k, p, in)
				rows = append(rows, report.EstimateRow{Kind: k, Effect: e, Err: err})
			}
			fmt.Fprintln(out, report.EstimatesTable(rows, policy, mode))
			return nil
		},
	}
	cmd.Flags().Float64("rho", 0, "corr(U1, V) of the panel (default: as in the specification)")
	return cmd
}
