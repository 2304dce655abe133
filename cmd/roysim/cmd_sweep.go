// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

package main

import (
	"fmt"

	"github.com/OpenSourceEconomics/ose-course-data-science/internal/logging"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/report"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/store"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/sweep"
	"github.com/spf13/cobra"
)

func newSweepCmd(a *app) *cobra.Command {
	var writeBack bool

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run one estimator across a grid of corr(U1, V)",
		Long: `sweep simulates one panel per grid correlation and runs the estimator on
each. The table compares every estimate with the policy ATE of its panel.
Results are written to <output>/sweep_<estimator>.csv and, when --db is set,
stored as a run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			spec, table, err := a.inputs(false)
			if err != nil {
				return err
			}
			kind, err := a.cfg.Kind()
			if err != nil {
				return err
			}
			grid, err := a.cfg.GridValues()
			if err != nil {
				return err
			}
			units, seed := a.unitsAndSeed(spec)

			opts := sweep.Options{
				Estimator:  kind,
				Registry:   a.cfg.Registry(),
				Units:      units,
				Seed:       &seed,
				Workers:    a.cfg.Workers,
				Covariates: table,
				Grid:       grid,
				Logger:     logging.New("sweep"),
			}
			if writeBack {
				opts.SpecWriter = store.WriteSpec
				opts.SpecPath = a.cfg.Spec
			}

			res, err := sweep.NewDriver(spec, opts).Run(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, report.SweepTable(res, a.cfg.TableMode()))

			path, err := a.outputPath("sweep_" + kind.String() + ".csv")
			if err != nil {
				return err
			}
			if err := store.WriteSweepCSV(path, res); err != nil {
				return err
			}
			a.log.Info("wrote sweep", "path", path, "points", len(res.Points), "failed", res.Failed())

			if a.cfg.DB == "" {
				return nil
			}
			rs, err := a.openStore()
			if err != nil {
				return err
			}
			defer rs.Close()
			id, err := rs.SaveRun(cmd.Context(), store.NewRun(spec, a.cfg.Spec, units, seed, res))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "saved run %s\n", id)
			return nil
		},
	}

	f := cmd.Flags()
	f.Float64("grid-start", sweep.DefaultStart, "first correlation of the grid")
	f.Float64("grid-stop", sweep.DefaultStop, "last correlation of the grid")
	f.Int("grid-points", sweep.DefaultPoints, "number of grid points")
	f.BoolVar(&writeBack, "write-back", false, "write the baseline specification back to --spec when done")
	return cmd
}
