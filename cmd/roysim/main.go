// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

// roysim runs Monte Carlo studies of treatment-effect estimators under
// essential heterogeneity in the generalized Roy model.
//
// Usage:
//
//	roysim sweep     --spec model.grmpy.yml --estimator ols [--grid-points 10] [--write-back]
//	roysim replicate --spec model.grmpy.yml --estimator iv --rho -0.5 [--replications 200]
//	roysim simulate  --spec model.grmpy.yml [--rho -0.5] [-o out]
//	roysim effects   --spec model.grmpy.yml [--rho -0.5]
//	roysim correlate --spec model.grmpy.yml --rho -0.5 [--in-place | --out file]
//	roysim show      [run-id] [--delete] --db out/roysim.db
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/OpenSourceEconomics/ose-course-data-science/internal/model"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for configuration errors and 1 for everything else.
func exitCode(err error) int {
	if errors.Is(err, model.ErrConfiguration) {
		return 2
	}
	return 1
}
