// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

package main

import (
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/model"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/store"
	"github.com/spf13/cobra"
)

func newCorrelateCmd(a *app) *cobra.Command {
	var (
		inPlace bool
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "correlate",
		Short: "Set corr(U1, V) of a specification",
		Long: `correlate sets cov(U1, V) to rho * sd(U1) * sd(V) and leaves every other
entry of the specification unchanged. The result is printed unless
--in-place or --out is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Rho == nil {
				return model.Configf("rho", "correlate needs --rho")
			}
			if inPlace && outPath != "" {
				return model.Configf("out", "--in-place and --out are exclusive")
			}
			spec, _, err := a.inputs(true)
			if err != nil {
				return err
			}

			switch {
			case inPlace:
				outPath = a.cfg.Spec
			case outPath == "":
				return store.EncodeSpec(cmd.OutOrStdout(), spec)
			}
			if err := store.WriteSpec(spec, outPath); err != nil {
				return err
			}
			a.log.Info("updated specification", "path", outPath, "rho", *a.cfg.Rho, "cov_u1_v", spec.Dist.CovU1V)
			return nil
		},
	}

	f := cmd.Flags()
	f.Float64("rho", 0, "target corr(U1, V) in [-1, 1]")
	f.BoolVar(&inPlace, "in-place", false, "overwrite --spec")
	f.StringVar(&outPath, "out", "", "write the updated specification to this file")
	return cmd
}
