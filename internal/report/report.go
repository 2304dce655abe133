// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

// Package report renders sweep results, treatment effects and replication
// studies as terminal or Markdown tables.
package report

import (
	"math"
	"strconv"
	"strings"

	"github.com/OpenSourceEconomics/ose-course-data-science/internal/dgp"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/estimate"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/model"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/store"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/sweep"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Mode controls the output format.
type Mode int

const (
	ASCII    Mode = iota // fixed-width terminal tables
	Markdown             // GitHub-flavoured Markdown tables
)

// ParseMode maps "ascii" / "markdown" (or "md") to a Mode. Empty means ASCII.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ascii", "text":
		return ASCII, nil
	case "markdown", "md":
		return Markdown, nil
	}
	return ASCII, model.Configf("format", "unknown table format %q (want ascii or markdown)", s)
}

// Number of decimals shown for estimates
const decimals = 4

func newWriter(m Mode) table.Writer {
	w := table.NewWriter()
	if m == ASCII {
		w.SetStyle(table.StyleLight)
	}
	return w
}

func render(w table.Writer, m Mode) string {
	if m == Markdown {
		return w.RenderMarkdown()
	}
	return w.Render()
}

// rightAligned right-aligns columns first..last (1-based).
func rightAligned(first, last int) []table.ColumnConfig {
	cfgs := make([]table.ColumnConfig, 0, last-first+1)
	for n := first; n <= last; n++ {
		cfgs = append(cfgs, table.ColumnConfig{Number: n, Align: text.AlignRight})
	}
	return cfgs
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// SweepTable renders one row per grid point.
func SweepTable(res *sweep.Result, m Mode) string {
	w := newWriter(m)
	w.SetTitle("Sweep: " + res.Estimator.String())
	w.AppendHeader(table.Row{"#", "rho", "estimate", "truth", "bias", "status"})
	for _, p := range res.Points {
		est := p.Effect.Value
		status := "ok"
		if p.Missing {
			est = math.NaN()
			status = "missing"
		}
		w.AppendRow(table.Row{p.Index, num(p.Rho), num(est), num(p.Truth), num(est - p.Truth), status})
	}
	w.AppendFooter(table.Row{"", "", "", "", "failed", strconv.Itoa(res.Failed())})
	w.SetColumnConfigs(rightAligned(1, 5))
	return render(w, m)
}

// EffectsTable renders ATE, TT and TUT next to the policy ATE X̄'(β1 - β0).
func EffectsTable(e dgp.Effects, policy float64, m Mode) string {
	w := newWriter(m)
	w.SetTitle("Treatment effects")
	w.AppendHeader(table.Row{"parameter", "value"})
	w.AppendRows([]table.Row{
		{"ATE", num(e.ATE)},
		{"TT", num(e.TT)},
		{"TUT", num(e.TUT)},
		{"policy ATE", num(policy)},
	})
	w.SetColumnConfigs(rightAligned(2, 2))
	return render(w, m)
}

// ReplicationTable renders the summary of a replication study.
func ReplicationTable(rep *sweep.Replication, m Mode) string {
	s := rep.Summary
	w := newWriter(m)
	w.SetTitle("Replications: " + rep.Estimator.String())
	w.AppendHeader(table.Row{"n", "failed", "mean", "std", "truth", "bias", "rmse"})
	w.AppendRow(table.Row{s.N, s.Failed, num(s.Mean), num(s.Std), num(s.Truth), num(s.Bias), num(s.RMSE)})
	w.SetColumnConfigs(rightAligned(1, 7))
	return render(w, m)
}

// RunsTable renders the listing of stored runs.
func RunsTable(runs []store.RunInfo, m Mode) string {
	w := newWriter(m)
	w.AppendHeader(table.Row{"id", "created", "estimator", "points", "failed"})
	for _, r := range runs {
		w.AppendRow(table.Row{r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Estimator, r.Points, r.Failed})
	}
	w.SetColumnConfigs(rightAligned(4, 5))
	return render(w, m)
}

// RunTable renders the points of one stored run.
func RunTable(run *store.Run, m Mode) string {
	w := newWriter(m)
	w.SetTitle("Run " + run.ID + " (" + run.Estimator + ")")
	w.AppendHeader(table.Row{"#", "rho", "estimate", "truth", "error"})
	for _, p := range run.Points {
		w.AppendRow(table.Row{p.Index, num(p.Rho), num(p.Estimate), num(p.Truth), p.Error})
	}
	w.SetColumnConfigs(rightAligned(1, 4))
	return render(w, m)
}

// EstimateRow is the outcome of one estimator on one panel.
type EstimateRow struct {
	Kind   estimate.Kind
	Effect estimate.Effect
	Err    error
}

// EstimatesTable compares estimators on the same panel against the truth.
// TT and TUT are shown for estimators that report them.
func EstimatesTable(rows []EstimateRow, truth float64, m Mode) string {
	w := newWriter(m)
	w.SetTitle("Estimators")
	w.AppendHeader(table.Row{"estimator", "estimate", "bias", "TT", "TUT", "status"})
	for _, r := range rows {
		if r.Err != nil {
			w.AppendRow(table.Row{r.Kind.String(), "-", "-", "-", "-", r.Err.Error()})
			continue
		}
		tt, tut := math.NaN(), math.NaN()
		if r.Effect.Pair {
			tt, tut = r.Effect.TT, r.Effect.TUT
		}
		w.AppendRow(table.Row{r.Kind.String(), num(r.Effect.Value), num(r.Effect.Value - truth), num(tt), num(tut), "ok"})
	}
	w.SetColumnConfigs(append(rightAligned(2, 5), table.ColumnConfig{Number: 6, WidthMax: 60}))
	return render(w, m)
}
