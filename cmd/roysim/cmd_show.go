// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

package main

import (
	"fmt"

	"github.com/OpenSourceEconomics/ose-course-data-science/internal/model"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/report"
	"github.com/spf13/cobra"
)

func newShowCmd(a *app) *cobra.Command {
	var del bool

	cmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "List stored sweep runs or print one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, err := a.openStore()
			if err != nil {
				return err
			}
			defer rs.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			mode := a.cfg.TableMode()

			if len(args) == 0 {
				if del {
					return model.Configf("delete", "--delete needs a run id")
				}
				runs, err := rs.ListRuns(ctx)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(out, "no stored runs")
					return nil
				}
				fmt.Fprintln(out, report.RunsTable(runs, mode))
				return nil
			}

			id := args[0]
			if del {
				if err := rs.DeleteRun(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(out, "deleted run %s\n", id)
				return nil
			}

			run, err := rs.LoadRun(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Created:   %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "Spec:      %s\n", run.SpecPath)
			fmt.Fprintf(out, "Units:     %d\n", run.Units)
			fmt.Fprintf(out, "Seed:      %d\n", run.Seed)
			fmt.Fprintln(out, report.RunTable(run, mode))
			return nil
		},
	}
	cmd.Flags().BoolVar(&del, "delete", false, "delete the run instead of printing it")
	return cmd
}
