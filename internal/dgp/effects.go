// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

package dgp

import (
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/model"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Effects are the conventional average treatment effects of a panel,
// computed from both potential outcomes.
type Effects struct {
	ATE float64 // E[Y1 - Y0]
	TT  float64 // E[Y1 - Y0 | D = 1]
	TUT float64 // E[Y1 - Y0 | D = 0]
}

// ConventionalEffects returns ATE, TT and TUT of p. Needs units in both arms.
func ConventionalEffects(p *Panel) (Effects, error) {
	n := p.Len()
	if n == 0 {
		return Effects{}, model.Estimationf("conventional", "empty panel")
	}

	benefit := make([]float64, n)
	var treated, untreated []float64
	for i := 0; i < n; i++ {
		benefit[i] = p.Y1[i] - p.Y0[i]
		if p.D[i] == 1 {
			treated = append(treated, benefit[i])
		} else {
			untreated = append(untreated, benefit[i])
		}
	}
	if len(treated) == 0 || len(untreated) == 0 {
		return Effects{}, model.Estimationf("conventional", "treated=%d untreated=%d, need both arms", len(treated), len(untreated))
	}

	return Effects{
		ATE: stat.Mean(benefit, nil),
		TT:  stat.Mean(treated, nil),
		TUT: stat.Mean(untreated, nil),
	}, nil
}

// PolicyATE is the population effect implied by the model's own coefficients
// at the panel's covariate means: X̄'(β1 - β0).
func PolicyATE(spec model.Spec, p *Panel) (float64, error) {
	X, err := p.Design(spec.Treated.Order)
	if err != nil {
		return 0, err
	}
	diff := spec.BetaDiff()
	ate := 0.0
	for k, d := range diff {
		ate += d * meanCol(X, k)
	}
	return ate, nil
}

func meanCol(X mat.Matrix, j int) float64 {
	r, _ := X.Dims()
	if r == 0 {
		return 0
	}
	sum := 0.0
	for i := 0; i < r; i++ {
		sum += X.At(i, j)
	}
	return sum / float64(r)
}
