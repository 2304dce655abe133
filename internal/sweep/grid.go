// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

package sweep

import (
	"math"

	"github.com/OpenSourceEconomics/ose-course-data-science/internal/model"
	"gonum.org/v1/gonum/floats"
)

// Reference design: 10 points from no correlation to almost perfect negative
// correlation between the gain U1 and the cost V.
const (
	DefaultStart  = 0.0
	DefaultStop   = -0.99
	DefaultPoints = 10
)

// Grid returns points equally spaced correlations from start to stop, both
// ends included. A single point is start.
func Grid(start, stop float64, points int) ([]float64, error) {
	if points < 1 {
		return nil, model.Configf("grid.points", "need at least one grid point, got %d", points)
	}
	for _, v := range []float64{start, stop} {
		if math.IsNaN(v) || v < -1 || v > 1 {
			return nil, model.Configf("grid", "correlation %v outside [-1, 1]", v)
		}
	}
	if points == 1 {
		return []float64{start}, nil
	}
	grid := floats.Span(make([]float64, points), start, stop)
	// pin the end point exactly
	grid[points-1] = stop
	return grid, nil
}

// DefaultGrid is the reference grid over [0, -0.99].
func DefaultGrid() []float64 {
	g, _ := Grid(DefaultStart, DefaultStop, DefaultPoints)
	return g
}
