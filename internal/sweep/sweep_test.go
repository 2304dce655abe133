// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

package sweep

import (
	"bufio"
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/OpenSourceEconomics/ose-course-data-science/internal/dgp"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/estimate"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/model"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

// referenceSpec is the end-to-end design: treated [1.0], untreated [0.5],
// choice [1.0], unit variances, 10,000 units.
func referenceSpec() model.Spec {
	return model.Spec{
		Simulation: model.Simulation{Agents: 10000, Seed: 132},
		Treated:    model.Equation{Order: []string{"const"}, Params: []float64{1.0}},
		Untreated:  model.Equation{Order: []string{"const"}, Params: []float64{0.5}},
		Choice:     model.Equation{Order: []string{"const"}, Params: []float64{1.0}},
		Dist:       model.Distribution{SdU1: 1, SdU0: 1, SdV: 1},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedOf(v int64) *int64 { return &v }

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// selectiveEstimator fails whenever the sample correlation of U1 and V is
// below a threshold, standing in for an estimator that breaks down at
// strong selection.
type selectiveEstimator struct {
	threshold float64
}

func (selectiveEstimator) Kind() estimate.Kind             { return estimate.OLS }
func (selectiveEstimator) Requires() estimate.Requirements { return estimate.Requirements{} }
func (e selectiveEstimator) Estimate(p *dgp.Panel, _ model.Inputs) (estimate.Effect, error) {
	if stat.Correlation(p.U1, p.V, nil) < e.threshold {
		return estimate.Effect{}, model.Estimationf("selective", "design matrix is singular")
	}
	return estimate.Effect{Estimator: estimate.OLS, Value: 1}, nil
}

func TestGridFixtures(t *testing.T) {
	dir := filepath.Join("testdata", "Grid")
	inputs, err := os.ReadDir(filepath.Join(dir, "input"))
	require.NoError(t, err)
	require.NotEmpty(t, inputs)

	for _, entry := range inputs {
		in := readFloats(t, filepath.Join(dir, "input", entry.Name()))
		want := readFloats(t, filepath.Join(dir, "output", entry.Name()))
		require.Len(t, in, 3, entry.Name())

		got, err := Grid(in[0], in[1], int(in[2]))
		require.NoError(t, err, entry.Name())
		require.Len(t, got, len(want), entry.Name())
		for i := range want {
			if !almostEqual(got[i], want[i], 1e-12) {
				t.Errorf("%s: grid[%d] = %v, want %v", entry.Name(), i, got[i], want[i])
			}
		}
	}
}

func TestGridRejects(t *testing.T) {
	_, err := Grid(0, -0.99, 0)
	assert.ErrorIs(t, err, model.ErrConfiguration)
	_, err = Grid(0, -1.2, 5)
	assert.ErrorIs(t, err, model.ErrConfiguration)
	_, err = Grid(math.NaN(), 0, 5)
	assert.ErrorIs(t, err, model.ErrConfiguration)

	g := DefaultGrid()
	require.Len(t, g, DefaultPoints)
	assert.Equal(t, DefaultStart, g[0])
	assert.Equal(t, DefaultStop, g[len(g)-1])
}

func TestSweepEndToEnd(t *testing.T) {
	spec := referenceSpec()
	d := NewDriver(spec, Options{Estimator: estimate.Randomization, Logger: quietLogger()})

	res, err := d.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Points, 10)
	assert.Equal(t, estimate.Randomization, res.Estimator)
	assert.Zero(t, res.Failed())

	for i, p := range res.Points {
		assert.Equal(t, i, p.Index)
		assert.InDelta(t, DefaultGrid()[i], p.Rho, 1e-15)
		assert.InDelta(t, 0.5, res.Truth[i], 1e-12)
	}

	// Selection on gains pushes the naive estimate away from 0.5, more so
	// the stronger the correlation
	values := res.Values()
	for i := 1; i < len(values); i++ {
		assert.Greater(t, values[i]-0.5, values[i-1]-0.5-0.03, "point %d", i)
	}
	assert.Greater(t, values[9]-values[0], 0.2)

	// Done restores the baseline
	assert.Equal(t, Done, d.State())
	assert.Empty(t, cmp.Diff(spec, d.Spec()))
}

func TestSweepOLSWithCovariatesAtZero(t *testing.T) {
	reg := estimate.DefaultRegistry()
	reg.Register(estimate.NewOLS(estimate.OLSOptions{WithCovariates: true}))

	d := NewDriver(referenceSpec(), Options{
		Estimator: estimate.OLS,
		Registry:  reg,
		Units:     400000,
		Grid:      []float64{0},
		Logger:    quietLogger(),
	})
	res, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res.Values()[0], 0.02)
}

func TestSweepIsIdempotent(t *testing.T) {
	d := NewDriver(referenceSpec(), Options{Estimator: estimate.OLS, Units: 2000, Logger: quietLogger()})
	first, err := d.Run(context.Background())
	require.NoError(t, err)
	second, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Values(), second.Values())
}

func TestSweepIndependentOfWorkerCount(t *testing.T) {
	run := func(workers int) []float64 {
		d := NewDriver(referenceSpec(), Options{
			Estimator: estimate.Conventional,
			Units:     3000,
			Workers:   workers,
			Logger:    quietLogger(),
		})
		res, err := d.Run(context.Background())
		require.NoError(t, err)
		return res.Values()
	}
	assert.Equal(t, run(1), run(4))
}

func TestSweepRecordsFailures(t *testing.T) {
	reg := estimate.DefaultRegistry()
	reg.Register(selectiveEstimator{threshold: -0.5})

	d := NewDriver(referenceSpec(), Options{
		Estimator: estimate.OLS,
		Registry:  reg,
		Units:     5000,
		Logger:    quietLogger(),
	})
	res, err := d.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Points, 10)
	assert.Equal(t, 5, res.Failed())

	for i, p := range res.Points {
		if i < 5 {
			assert.False(t, p.Missing, "point %d", i)
			assert.Equal(t, 1.0, p.Effect.Value)
			continue
		}
		assert.True(t, p.Missing, "point %d", i)
		assert.ErrorIs(t, p.Err, model.ErrEstimation)
		assert.True(t, math.IsNaN(res.Values()[i]))
	}
}

func TestSweepUnidentifiedEstimatorMissesEveryPoint(t *testing.T) {
	// Constant-only choice: the structural model is not identified
	d := NewDriver(referenceSpec(), Options{
		Estimator: estimate.Structural,
		Units:     1000,
		Grid:      []float64{0, -0.5},
		Logger:    quietLogger(),
	})
	res, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Failed())
}

func TestSweepConfigurationErrorBeforeSimulation(t *testing.T) {
	var mu sync.Mutex
	var seen []State
	observe := func(_ int, s State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	}

	// No excluded instrument in the reference design
	d := NewDriver(referenceSpec(), Options{Estimator: estimate.IV, Observe: observe, Logger: quietLogger()})
	_, err := d.Run(context.Background())
	assert.ErrorIs(t, err, model.ErrConfiguration)
	assert.Equal(t, []State{Initializing}, seen)

	d = NewDriver(referenceSpec(), Options{Estimator: estimate.OLS, Grid: []float64{0, 1.5}, Logger: quietLogger()})
	_, err = d.Run(context.Background())
	assert.ErrorIs(t, err, model.ErrConfiguration)

	bad := referenceSpec()
	bad.Dist.SdV = -1
	_, err = NewDriver(bad, Options{Estimator: estimate.OLS, Logger: quietLogger()}).Run(context.Background())
	assert.ErrorIs(t, err, model.ErrConfiguration)
}

func TestSweepRejectsInfeasibleGridPoint(t *testing.T) {
	var mu sync.Mutex
	var seen []State
	observe := func(_ int, s State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	}

	// PSD at rho = 0, not at rho = -0.99
	spec := referenceSpec()
	spec.Dist.CovU1U0 = 0.5
	spec.Dist.CovU0V = 0.5
	require.NoError(t, spec.Validate())

	d := NewDriver(spec, Options{
		Estimator: estimate.Randomization,
		Units:     500,
		Workers:   1,
		Observe:   observe,
		Logger:    quietLogger(),
	})
	_, err := d.Run(context.Background())
	require.ErrorIs(t, err, model.ErrConfiguration)
	assert.Contains(t, err.Error(), "positive semi-definite")
	assert.Equal(t, []State{Initializing}, seen)
	assert.Empty(t, cmp.Diff(spec, d.Spec()))
}

func TestSweepSeed(t *testing.T) {
	run := func(seed *int64) float64 {
		d := NewDriver(referenceSpec(), Options{
			Estimator: estimate.Conventional,
			Units:     2000,
			Seed:      seed,
			Grid:      []float64{-0.5},
			Logger:    quietLogger(),
		})
		res, err := d.Run(context.Background())
		require.NoError(t, err)
		return res.Values()[0]
	}

	// nil falls back to SIMULATION.seed, an explicit zero is a seed like any other
	assert.Equal(t, run(seedOf(132)), run(nil))
	assert.NotEqual(t, run(nil), run(seedOf(0)))
	assert.Equal(t, run(seedOf(0)), run(seedOf(0)))
}

func TestSweepStateSequence(t *testing.T) {
	type step struct {
		index int
		state State
	}
	var mu sync.Mutex
	var steps []step

	d := NewDriver(referenceSpec(), Options{
		Estimator: estimate.Randomization,
		Units:     500,
		Workers:   1,
		Grid:      []float64{0, -0.5},
		Logger:    quietLogger(),
		Observe: func(i int, s State) {
			mu.Lock()
			steps = append(steps, step{i, s})
			mu.Unlock()
		},
	})
	_, err := d.Run(context.Background())
	require.NoError(t, err)

	want := []step{
		{-1, Initializing},
		{0, Simulating}, {0, Estimating}, {0, Collecting},
		{1, Simulating}, {1, Estimating}, {1, Collecting},
		{-1, Done},
	}
	assert.Equal(t, want, steps)
}

func TestSweepCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	spec := referenceSpec()
	d := NewDriver(spec, Options{Estimator: estimate.OLS, Units: 500, Logger: quietLogger()})
	res, err := d.Run(ctx)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, cmp.Diff(spec, d.Spec()))
}

func TestSweepCancelledMidway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var simulated int
	d := NewDriver(referenceSpec(), Options{
		Estimator: estimate.OLS,
		Units:     500,
		Workers:   1,
		Logger:    quietLogger(),
		Observe: func(i int, s State) {
			if s != Simulating {
				return
			}
			mu.Lock()
			simulated++
			mu.Unlock()
			if i == 2 {
				cancel()
			}
		},
	})
	_, err := d.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, simulated, 10)
	assert.Equal(t, Done, d.State())
}

func TestSweepWritesBaselineBack(t *testing.T) {
	spec := referenceSpec()
	var written []model.Spec
	writer := func(s model.Spec, path string) error {
		assert.Equal(t, "model.grmpy.yml", path)
		written = append(written, s)
		return nil
	}

	d := NewDriver(spec, Options{
		Estimator:  estimate.Randomization,
		Units:      500,
		Grid:       []float64{-0.3, -0.6},
		SpecWriter: writer,
		SpecPath:   "model.grmpy.yml",
		Logger:     quietLogger(),
	})
	_, err := d.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, written, 1)
	assert.Empty(t, cmp.Diff(spec, written[0]))
}

func TestSweepPropagatesWriterError(t *testing.T) {
	ioErr := &fs.PathError{Op: "open", Path: "/ro/model.yml", Err: fs.ErrPermission}
	d := NewDriver(referenceSpec(), Options{
		Estimator:  estimate.Randomization,
		Units:      500,
		Grid:       []float64{0},
		SpecWriter: func(model.Spec, string) error { return ioErr },
		SpecPath:   "/ro/model.yml",
		Logger:     quietLogger(),
	})
	res, err := d.Run(context.Background())
	assert.Nil(t, res)
	assert.Same(t, ioErr, err)
	assert.True(t, errors.Is(err, fs.ErrPermission))
}

func TestReplicateRandomizationUnbiasedWithoutSelection(t *testing.T) {
	rep, err := Replicate(context.Background(), referenceSpec(), ReplicateOptions{
		Estimator:    estimate.Randomization,
		Replications: 200,
		Logger:       quietLogger(),
	})
	require.NoError(t, err)
	assert.Equal(t, 200, rep.Summary.N)
	assert.Zero(t, rep.Summary.Failed)
	assert.InDelta(t, 0.5, rep.Summary.Mean, 0.05)
	assert.InDelta(t, 0.5, rep.Summary.Truth, 1e-12)
	assert.Greater(t, rep.Summary.Std, 0.0)
}

func TestReplicateReproducible(t *testing.T) {
	opts := ReplicateOptions{Estimator: estimate.OLS, Replications: 8, Units: 500, Seed: seedOf(7), Logger: quietLogger()}
	a, err := Replicate(context.Background(), referenceSpec(), opts)
	require.NoError(t, err)
	opts.Workers = 1
	b, err := Replicate(context.Background(), referenceSpec(), opts)
	require.NoError(t, err)
	assert.Equal(t, a.Seeds, b.Seeds)
	assert.Equal(t, a.Estimates, b.Estimates)
}

func TestReplicateExplicitZeroSeed(t *testing.T) {
	opts := ReplicateOptions{Estimator: estimate.OLS, Replications: 3, Units: 300, Logger: quietLogger()}
	fromSpec, err := Replicate(context.Background(), referenceSpec(), opts)
	require.NoError(t, err)

	opts.Seed = seedOf(0)
	zero, err := Replicate(context.Background(), referenceSpec(), opts)
	require.NoError(t, err)
	assert.NotEqual(t, fromSpec.Seeds, zero.Seeds)

	opts.Seed = seedOf(132)
	same, err := Replicate(context.Background(), referenceSpec(), opts)
	require.NoError(t, err)
	assert.Equal(t, fromSpec.Seeds, same.Seeds)
}

func TestReplicateCountsFailures(t *testing.T) {
	rep, err := Replicate(context.Background(), referenceSpec(), ReplicateOptions{
		Estimator:    estimate.Structural,
		Replications: 4,
		Units:        300,
		Logger:       quietLogger(),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, rep.Summary.Failed)
	assert.True(t, math.IsNaN(rep.Summary.Mean))
}

// readFloats reads one float per line, skipping blank lines and # comments.
func readFloats(t *testing.T, path string) []float64 {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var vals []float64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		require.NoError(t, err)
		vals = append(vals, v)
	}
	require.NoError(t, scanner.Err())
	return vals
}
