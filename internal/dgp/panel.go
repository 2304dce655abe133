// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

package dgp

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// Table is an external covariate table: one row per unit, one column per
// named covariate.
type Table struct {
	Names []string
	Data  *mat.Dense
}

// Rows returns the number of units in the table.
func (t *Table) Rows() int {
	if t == nil || t.Data == nil {
		return 0
	}
	r, _ := t.Data.Dims()
	return r
}

// Index returns the column index of name, or -1.
func (t *Table) Index(name string) int {
	if t == nil {
		return -1
	}
	return slices.Index(t.Names, name)
}

// Panel is one synthetic sample of the generalized Roy model.
type Panel struct {
	// Covariate names, the constant first when the model has one
	Names []string
	// Covariate matrix (N x len(Names))
	X *mat.Dense

	// Unobservables
	U1, U0, V []float64

	// Potential outcomes
	Y1, Y0 []float64

	// Choice index Z'γ (before subtracting V)
	Choice []float64

	// Treatment indicator, 1 iff Choice - V > 0
	D []float64

	// Observed outcome D*Y1 + (1-D)*Y0
	Y []float64

	// Labels of the observed outcome and the treatment indicator
	Dependent string
	Indicator string
}

// Len returns the number of units.
func (p *Panel) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Y)
}

// Treated returns the number of treated units.
func (p *Panel) Treated() int {
	n := 0
	for _, d := range p.D {
		if d == 1 {
			n++
		}
	}
	return n
}

// Column returns a named column. Outcome and treatment labels, the potential
// outcomes ("<dep>1", "<dep>0") and the unobservables resolve as well as covariates.
func (p *Panel) Column(name string) ([]float64, bool) {
	switch name {
	case p.Dependent:
		return p.Y, true
	case p.Indicator:
		return p.D, true
	case p.Dependent + "1":
		return p.Y1, true
	case p.Dependent + "0":
		return p.Y0, true
	case "U1":
		return p.U1, true
	case "U0":
		return p.U0, true
	case "V":
		return p.V, true
	}
	j := slices.Index(p.Names, name)
	if j < 0 {
		return nil, false
	}
	return mat.Col(nil, j, p.X), true
}

// Design builds an N x len(names) matrix from named columns.
func (p *Panel) Design(names []string) (*mat.Dense, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("design needs at least one column")
	}
	n := p.Len()
	out := mat.NewDense(n, len(names), nil)
	for j, name := range names {
		col, ok := p.Column(name)
		if !ok {
			return nil, fmt.Errorf("panel has no column %q", name)
		}
		out.SetCol(j, col)
	}
	return out, nil
}

// Header returns the column labels used when the panel is written out.
func (p *Panel) Header() []string {
	h := slices.Clone(p.Names)
	return append(h, p.Dependent+"1", p.Dependent+"0", "U1", "U0", "V", p.Indicator, p.Dependent)
}

// Row returns unit i in Header order.
func (p *Panel) Row(i int) []float64 {
	row := mat.Row(nil, i, p.X)
	return append(row, p.Y1[i], p.Y0[i], p.U1[i], p.U0[i], p.V[i], p.D[i], p.Y[i])
}
