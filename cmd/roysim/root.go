// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

package main

import (
	"log/slog"

	"github.com/OpenSourceEconomics/ose-course-data-science/internal/config"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/logging"
	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

// app carries the resolved configuration from the root command to the
// subcommands.
type app struct {
	cfgFile string
	cfg     *config.Config
	log     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "roysim",
		Short: "Monte Carlo harness for treatment-effect estimators in the generalized Roy model",
		Long: `roysim simulates synthetic panels from a generalized Roy model and runs
treatment-effect estimators on them while the correlation between the
unobserved gain U1 and the unobserved cost V is swept across a grid.`,
		Version: version,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}
			return a.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default: ./roysim.yaml)")
	pf.StringP("spec", "s", "", "model specification (YAML)")
	pf.String("covariates", "", "covariate table (CSV with a header row), optional")
	pf.StringP("estimator", "e", config.DefaultEstimator, "estimator: conventional, randomization, ols, iv, structural, local-iv")
	pf.Bool("ols-covariates", false, "OLS also regresses on the outcome covariates")
	pf.IntP("units", "n", 0, "units per panel (default SIMULATION.agents)")
	pf.Int64("seed", 0, "simulation seed (default SIMULATION.seed)")
	pf.IntP("workers", "j", 0, "parallel workers (default number of CPUs)")
	pf.StringP("output", "o", config.DefaultOutput, "directory for CSV output")
	pf.String("db", "", "SQLite run store, empty disables it")
	pf.String("format", "ascii", "table format: ascii or markdown")
	pf.String("log-level", config.DefaultLogLevel, "log level: debug, info, warn, error")
	pf.String("log-format", config.DefaultLogFormat, "log format: text or json")

	_ = root.RegisterFlagCompletionFunc("estimator", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"conventional", "randomization", "ols", "iv", "structural", "local-iv"}, cobra.ShellCompDirectiveNoFileComp
	})

	root.AddCommand(newSweepCmd(a))
	root.AddCommand(newReplicateCmd(a))
	root.AddCommand(newSimulateCmd(a))
	root.AddCommand(newEffectsCmd(a))
	root.AddCommand(newCorrelateCmd(a))
	root.AddCommand(newShowCmd(a))
	return root
}

// load resolves the layered configuration for cmd and sets up logging.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logging.Init(cfg.LogLevel(), cfg.Log.Format, cmd.ErrOrStderr())

	a.cfg = cfg
	a.log = logging.New("roysim")
	if cfg.File != "" {
		a.log.Debug("using config file", "path", cfg.File)
	}
	return nil
}
