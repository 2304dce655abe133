// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

// Package sweep drives the Monte Carlo comparison: for every correlation on
// a grid it updates the model, simulates a panel, runs one estimator and
// collects the estimate next to the true effect.
package sweep

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/OpenSourceEconomics/ose-course-data-science/internal/dgp"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/estimate"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/logging"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/model"
	"golang.org/x/sync/errgroup"
)

// State is a phase of the sweep. Every grid point moves through
// Simulating, Estimating and Collecting in that order.
type State int32

const (
	Initializing State = iota
	Simulating
	Estimating
	Collecting
	Done
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "Initializing"
	case Simulating:
		return "Simulating"
	case Estimating:
		return "Estimating"
	case Collecting:
		return "Collecting"
	case Done:
		return "Done"
	}
	return "Unknown"
}

// SpecWriter persists a model specification, e.g. store.WriteSpec.
type SpecWriter func(spec model.Spec, path string) error

// Options configure one sweep. Zero values take the defaults noted per field.
type Options struct {
	Estimator estimate.Kind
	Registry  *estimate.Registry // default estimate.DefaultRegistry()

	Units   int    // units per panel, default SIMULATION.agents
	Seed    *int64 // nil means SIMULATION.seed
	Workers int    // default runtime.NumCPU()

	Covariates *dgp.Table // external covariate table, optional
	Grid       []float64  // correlations cov(U1,V)/(sd U1 sd V), default DefaultGrid()

	// When set, the baseline spec is written back to SpecPath at Done.
	SpecWriter SpecWriter
	SpecPath   string

	// Observe is called on every state change of every grid point (index -1
	// for the sweep-wide Initializing and Done). It must be safe for
	// concurrent use when Workers > 1.
	Observe func(index int, s State)

	Logger *slog.Logger // default logging.New("sweep")
}

// Point is the outcome of one grid point.
type Point struct {
	Index   int
	Rho     float64
	Effect  estimate.Effect
	Truth   float64 // X̄ (β1 - β0) of the simulated panel
	Err     error   // estimation failure, when Missing
	Missing bool
}

// Result is the ordered output of a sweep.
type Result struct {
	Estimator estimate.Kind
	Points    []Point
	Truth     []float64
}

// Values returns the estimates in grid order, NaN where a point is missing.
func (r *Result) Values() []float64 {
	out := make([]float64, len(r.Points))
	for i, p := range r.Points {
		if p.Missing {
			out[i] = math.NaN()
			continue
		}
		out[i] = p.Effect.Value
	}
	return out
}

// Rhos returns the grid.
func (r *Result) Rhos() []float64 {
	out := make([]float64, len(r.Points))
	for i, p := range r.Points {
		out[i] = p.Rho
	}
	return out
}

// Failed counts the missing points.
func (r *Result) Failed() int {
	n := 0
	for _, p := range r.Points {
		if p.Missing {
			n++
		}
	}
	return n
}

// Driver runs sweeps over one baseline specification.
type Driver struct {
	opts Options
	log  *slog.Logger

	mu       sync.Mutex
	baseline model.Spec
	spec     model.Spec // current spec, equal to baseline outside Run

	state atomic.Int32
}

// NewDriver returns a driver for spec. The spec is copied.
func NewDriver(spec model.Spec, opts Options) *Driver {
	if opts.Registry == nil {
		opts.Registry = estimate.DefaultRegistry()
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Grid == nil {
		opts.Grid = DefaultGrid()
	}
	if opts.Logger == nil {
		opts.Logger = logging.New("sweep")
	}
	return &Driver{
		opts:     opts,
		log:      opts.Logger,
		baseline: spec.Clone(),
		spec:     spec.Clone(),
	}
}

// State returns the most recent state change.
func (d *Driver) State() State {
	return State(d.state.Load())
}

// Spec returns a copy of the driver's current specification.
func (d *Driver) Spec() model.Spec {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.spec.Clone()
}

func (d *Driver) enter(index int, s State) {
	d.state.Store(int32(s))
	d.log.Debug("state", "point", index, "to", s.String())
	if d.opts.Observe != nil {
		d.opts.Observe(index, s)
	}
}

// job is the spec snapshot one worker owns.
type job struct {
	index int
	rho   float64
	spec  model.Spec
}

// Run executes the sweep. Configuration errors are returned before any panel
// is simulated. Estimation failures are recorded per point. If ctx is
// cancelled the sweep stops dispatching and returns ctx.Err().
// The baseline specification is restored (and written back when a
// SpecWriter is set) however Run ends.
func (d *Driver) Run(ctx context.Context) (res *Result, err error) {
	d.enter(-1, Initializing)

	jobs, units, seed, err := d.prepare()
	if err != nil {
		return nil, err
	}

	defer func() {
		if rerr := d.restore(); rerr != nil && err == nil {
			res, err = nil, rerr
		}
		d.enter(-1, Done)
	}()

	d.log.Info("sweep started",
		"estimator", d.opts.Estimator.String(),
		"points", len(jobs),
		"units", units,
		"workers", d.opts.Workers)

	points := make([]Point, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Workers)
	for _, j := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			p, err := d.runPoint(gctx, j, units, seed)
			if err != nil {
				return err
			}
			points[j.index] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res = &Result{Estimator: d.opts.Estimator, Points: points, Truth: make([]float64, len(points))}
	for i, p := range points {
		res.Truth[i] = p.Truth
	}

	d.log.Info("sweep finished", "estimator", d.opts.Estimator.String(), "failed", res.Failed())
	return res, nil
}

// prepare validates everything a sweep needs and builds one spec per point.
func (d *Driver) prepare() ([]job, int, int64, error) {
	base := d.Spec()
	if err := base.Validate(); err != nil {
		return nil, 0, 0, err
	}
	var available []string
	if d.opts.Covariates != nil {
		available = d.opts.Covariates.Names
	}
	if err := base.ValidateCovariates(available); err != nil {
		return nil, 0, 0, err
	}
	if err := d.opts.Registry.Validate(d.opts.Estimator, base.Inputs()); err != nil {
		return nil, 0, 0, err
	}
	if len(d.opts.Grid) == 0 {
		return nil, 0, 0, model.Configf("grid", "empty correlation grid")
	}

	units := d.opts.Units
	if units <= 0 {
		units = base.Simulation.Agents
	}
	if units <= 0 {
		return nil, 0, 0, model.Configf("SIMULATION.agents", "need at least one unit")
	}
	if d.opts.Covariates != nil && d.opts.Covariates.Rows() < units {
		return nil, 0, 0, model.Configf("covariates", "table has %d rows, need %d", d.opts.Covariates.Rows(), units)
	}
	seed := base.Simulation.Seed
	if d.opts.Seed != nil {
		seed = *d.opts.Seed
	}

	// A PSD baseline is not PSD at every correlation once cov(U1,U0) or
	// cov(U0,V) is non-zero.
	jobs := make([]job, len(d.opts.Grid))
	for i, rho := range d.opts.Grid {
		s, err := model.UpdateCorrelation(base, rho)
		if err != nil {
			return nil, 0, 0, err
		}
		if err := s.Dist.Validate(); err != nil {
			d.log.Debug("infeasible grid point", "point", i, "rho", rho, "error", err)
			return nil, 0, 0, err
		}
		jobs[i] = job{index: i, rho: rho, spec: s}
	}
	return jobs, units, seed, nil
}

// runPoint walks one grid point through Simulating, Estimating and
// Collecting. Only cancellation and configuration errors abort the sweep.
func (d *Driver) runPoint(ctx context.Context, j job, units int, seed int64) (Point, error) {
	p := Point{Index: j.index, Rho: j.rho, Effect: estimate.Effect{Estimator: d.opts.Estimator}}

	d.enter(j.index, Simulating)
	d.setCurrent(j.spec)
	panel, err := dgp.Simulate(j.spec, units, seed, d.opts.Covariates)
	if err != nil {
		return p, err
	}
	if err := ctx.Err(); err != nil {
		return p, err
	}

	d.enter(j.index, Estimating)
	truth, err := dgp.PolicyATE(j.spec, panel)
	if err != nil {
		return p, model.Configf("TREATED.order", "%v", err)
	}
	p.Truth = truth

	eff, err := d.opts.Registry.Run(d.opts.Estimator, panel, j.spec.Inputs())
	switch {
	case err == nil:
		p.Effect = eff
	case errors.Is(err, model.ErrEstimation):
		p.Missing = true
		p.Err = err
		p.Effect.Value = math.NaN()
		d.log.Warn("estimation failed", "point", j.index, "rho", j.rho, "error", err)
	default:
		return p, err
	}
	if err := ctx.Err(); err != nil {
		return p, err
	}

	d.enter(j.index, Collecting)
	return p, nil
}

// setCurrent records the spec of the point in flight.
func (d *Driver) setCurrent(s model.Spec) {
	d.mu.Lock()
	d.spec = s
	d.mu.Unlock()
}

// restore puts the baseline back and writes it out when configured.
func (d *Driver) restore() error {
	d.mu.Lock()
	d.spec = d.baseline.Clone()
	base := d.baseline.Clone()
	d.mu.Unlock()

	if d.opts.SpecWriter == nil || d.opts.SpecPath == "" {
		return nil
	}
	return d.opts.SpecWriter(base, d.opts.SpecPath)
}
