// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/OpenSourceEconomics/ose-course-data-science/internal/dgp"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/model"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/sweep"
	"gonum.org/v1/gonum/mat"
)

// LoadCovariates loads a covariate table: a header row of covariate names
// followed by one numeric row per unit.
func LoadCovariates(path string) (*dgp.Table, error) {
	// 1. Open file
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	// 2. Make CSV reader
	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	// 3. Read header row
	header, err := r.Read()
	if err == io.EOF {
		return nil, model.Configf("covariates", "%s is empty", path)
	}
	if err != nil {
		return nil, model.Configf("covariates", "read header of %s: %v", path, err)
	}
	K := len(header)
	seen := make(map[string]bool, K)
	for j, name := range header {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			return nil, model.Configf("covariates", "%s: column %d has an empty or duplicate name", path, j+1)
		}
		seen[name] = true
		header[j] = name
	}

	var (
		data []float64 // flat data for mat.Dense
		rows int
	)

	// 4. Read each data row
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, model.Configf("covariates", "%s row %d: %v", path, rows+2, err)
		}
		if len(record) == 1 && record[0] == "" {
			continue
		}
		if len(record) != K {
			return nil, model.Configf("covariates", "%s row %d: expected %d columns, got %d", path, rows+2, K, len(record))
		}
		for j, s := range record {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, model.Configf("covariates", "%s row %d col %d (%q): not a number", path, rows+2, j+1, s)
			}
			data = append(data, v)
		}
		rows++
	}

	if rows == 0 {
		return nil, model.Configf("covariates", "no data rows in %s", path)
	}

	// 5. Build the table
	return &dgp.Table{Names: header, Data: mat.NewDense(rows, K, data)}, nil
}

// WritePanelCSV writes one row per unit in panel.Header order.
func WritePanelCSV(path string, p *dgp.Panel) error {
	header := p.Header()
	return writeCSV(path, header, p.Len(), func(i int) []string {
		return formatRow(p.Row(i))
	})
}

// WriteSweepCSV writes one row per grid point: correlation, estimate, truth,
// bias and status. Missing estimates are written as NaN.
func WriteSweepCSV(path string, res *sweep.Result) error {
	header := []string{"rho", "estimate", "truth", "bias", "status"}
	return writeCSV(path, header, len(res.Points), func(i int) []string {
		p := res.Points[i]
		est := p.Effect.Value
		status := "ok"
		if p.Missing {
			est = math.NaN()
			status = "missing"
		}
		return []string{
			formatFloat(p.Rho),
			formatFloat(est),
			formatFloat(p.Truth),
			formatFloat(est - p.Truth),
			status,
		}
	})
}

// WriteReplicationCSV writes one row per replication: seed, estimate, truth.
func WriteReplicationCSV(path string, rep *sweep.Replication) error {
	header := []string{"seed", "estimate", "truth"}
	return writeCSV(path, header, len(rep.Seeds), func(i int) []string {
		return []string{
			strconv.FormatInt(rep.Seeds[i], 10),
			formatFloat(rep.Estimates[i]),
			formatFloat(rep.Truth[i]),
		}
	})
}

func writeCSV(path string, header []string, rows int, row func(i int) []string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	for i := 0; i < rows; i++ {
		if err := writer.Write(row(i)); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return file.Close()
}

func formatRow(vals []float64) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = formatFloat(v)
	}
	return out
}

// formatFloat uses the shortest representation that parses back exactly.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
