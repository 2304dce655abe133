// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/OpenSourceEconomics/ose-course-data-science/internal/model"
	"gonum.org/v1/gonum/mat"
)

// PrintSpecSummary writes a summary of the model specification to w.
func PrintSpecSummary(w io.Writer, spec model.Spec) {
	fmt.Fprintln(w, "       Generalized Roy Model Summary     ")

	// Basic dimensions
	fmt.Fprintf(w, "Number of agents (N):    %d\n", spec.Simulation.Agents)
	fmt.Fprintf(w, "Seed:                    %d\n", spec.Simulation.Seed)
	fmt.Fprintf(w, "Outcome / indicator:     %s / %s\n", spec.Dependent(), spec.Indicator())
	fmt.Fprintln(w)

	// Equations
	for _, item := range []struct {
		name string
		eq   model.Equation
	}{
		{"Treated outcome (beta1)", spec.Treated},
		{"Untreated outcome (beta0)", spec.Untreated},
		{"Choice (gamma)", spec.Choice},
	} {
		fmt.Fprintf(w, "%s:\n", item.name)
		for i, name := range item.eq.Order {
			p := 0.0
			if i < len(item.eq.Params) {
				p = item.eq.Params[i]
			}
			fmt.Fprintf(w, "  %-12s %10.4f\n", name, p)
		}
		fmt.Fprintln(w)
	}

	in := spec.Inputs()
	if len(in.Instruments) > 0 {
		fmt.Fprintln(w, "Excluded instruments:")
		fmt.Fprintf(w, "  %s\n", strings.Join(in.Instruments, ", "))
		fmt.Fprintln(w)
	}

	// Covariance of the unobservables
	fmt.Fprintln(w, "Covariance of (U1, U0, V):")
	fmt.Fprintf(w, "%v\n", mat.Formatted(spec.Dist.Covariance(), mat.Prefix("  ")))
	fmt.Fprintf(w, "corr(U1, V) = %.4f   corr(U0, V) = %.4f\n", spec.Dist.CorrelationU1V(), spec.Dist.CorrelationU0V())
	fmt.Fprintln(w)

	if len(spec.Covariates) > 0 {
		fmt.Fprintln(w, "Covariate designs:")
		for _, c := range spec.Covariates {
			fmt.Fprintf(w, "  %-12s %s\n", c.Name, describeDesign(c))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "=========================================")
}

func describeDesign(c model.CovariateDesign) string {
	switch c.Type {
	case model.CovNormal:
		return fmt.Sprintf("normal(mean=%g, sd=%g)", c.Mean, c.Sd)
	case model.CovBinary:
		return fmt.Sprintf("binary(p=%g)", c.Prob)
	case model.CovUniform:
		return fmt.Sprintf("uniform(%g, %g)", c.Low, c.High)
	}
	return string(c.Type)
}
