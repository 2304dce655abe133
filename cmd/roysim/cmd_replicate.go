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

func newReplicateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replicate",
		Short: "Sampling distribution of one estimator at a fixed correlation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			spec, table, err := a.inputs(true)
			if err != nil {
				return err
			}
			kind, err := a.cfg.Kind()
			if err != nil {
				return err
			}
			units, seed := a.unitsAndSeed(spec)

			rep, err := sweep.Replicate(cmd.Context(), spec, sweep.ReplicateOptions{
				Estimator:    kind,
				Registry:     a.cfg.Registry(),
				Replications: a.cfg.Replications,
				Units:        units,
				Seed:         &seed,
				Workers:      a.cfg.Workers,
				Covariates:   table,
				Logger:       logging.New("replicate"),
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), report.ReplicationTable(rep, a.cfg.TableMode()))

			path, err := a.outputPath("replications_" + kind.String() + ".csv")
			if err != nil {
				return err
			}
			if err := store.WriteReplicationCSV(path, rep); err != nil {
				return err
			}
			a.log.Info("wrote replications", "path", path, "n", rep.Summary.N, "failed", rep.Summary.Failed)
			return nil
		},
	}

	f := cmd.Flags()
	f.Float64("rho", 0, "corr(U1, V) of the study (default: as in the specification)")
	f.IntP("replications", "r", 100, "number of replications")
	return cmd
}
