// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

package sweep

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"runtime"

	"github.com/OpenSourceEconomics/ose-course-data-science/internal/dgp"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/estimate"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/logging"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/model"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// ReplicateOptions configure a replication study.
type ReplicateOptions struct {
	Estimator    estimate.Kind
	Registry     *estimate.Registry // default estimate.DefaultRegistry()
	Replications int                // default 100
	Units        int                // default SIMULATION.agents
	Seed         *int64             // master seed, nil means SIMULATION.seed
	Workers      int                // default runtime.NumCPU()
	Covariates   *dgp.Table
	Logger       *slog.Logger
}

// Summary describes the sampling distribution of an estimator.
type Summary struct {
	N      int     // successful replications
	Failed int     // replications with an estimation failure
	Mean   float64 // mean estimate
	Std    float64 // standard deviation of the estimates
	Truth  float64 // mean true effect
	Bias   float64 // Mean - Truth
	RMSE   float64 // root mean squared error against the per-panel truth
}

// Replication holds one estimate per seed of a fixed specification.
type Replication struct {
	Estimator estimate.Kind
	Seeds     []int64
	Estimates []float64 // NaN where the estimator failed
	Truth     []float64
	Summary   Summary
}

// Replicate simulates the same specification under many seeds and runs one
// estimator on each panel. Seeds are drawn from a master generator so the
// study is reproducible whatever the number of workers.
func Replicate(ctx context.Context, spec model.Spec, opts ReplicateOptions) (*Replication, error) {
	if opts.Registry == nil {
		opts.Registry = estimate.DefaultRegistry()
	}
	if opts.Replications <= 0 {
		opts.Replications = 100
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	seed := spec.Simulation.Seed
	if opts.Seed != nil {
		seed = *opts.Seed
	}
	if opts.Logger == nil {
		opts.Logger = logging.New("replicate")
	}

	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Registry.Validate(opts.Estimator, spec.Inputs()); err != nil {
		return nil, err
	}

	// Per-replication seeds so no generator is shared across goroutines
	master := rand.New(rand.NewSource(seed))
	rep := &Replication{
		Estimator: opts.Estimator,
		Seeds:     make([]int64, opts.Replications),
		Estimates: make([]float64, opts.Replications),
		Truth:     make([]float64, opts.Replications),
	}
	for i := range rep.Seeds {
		rep.Seeds[i] = master.Int63()
	}

	inputs := spec.Inputs()
	failed := make([]bool, opts.Replications)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := range rep.Seeds {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			panel, err := dgp.Simulate(spec, opts.Units, rep.Seeds[i], opts.Covariates)
			if err != nil {
				return err
			}
			truth, err := dgp.PolicyATE(spec, panel)
			if err != nil {
				return err
			}
			rep.Truth[i] = truth

			eff, err := opts.Registry.Run(opts.Estimator, panel, inputs)
			if errors.Is(err, model.ErrEstimation) {
				failed[i] = true
				rep.Estimates[i] = math.NaN()
				opts.Logger.Warn("estimation failed", "replication", i, "error", err)
				return gctx.Err()
			}
			if err != nil {
				return err
			}
			rep.Estimates[i] = eff.Value
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rep.Summary = summarize(rep.Estimates, rep.Truth, failed)
	opts.Logger.Info("replication finished",
		"estimator", opts.Estimator.String(),
		"replications", opts.Replications,
		"mean", rep.Summary.Mean,
		"failed", rep.Summary.Failed)
	return rep, nil
}

func summarize(estimates, truth []float64, failed []bool) Summary {
	var ok, okTruth []float64
	sq := 0.0
	s := Summary{}
	for i, v := range estimates {
		if failed[i] {
			s.Failed++
			continue
		}
		ok = append(ok, v)
		okTruth = append(okTruth, truth[i])
		sq += (v - truth[i]) * (v - truth[i])
	}
	s.N = len(ok)
	if s.N == 0 {
		s.Mean, s.Std, s.Truth, s.Bias, s.RMSE = math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN()
		return s
	}
	s.Mean = stat.Mean(ok, nil)
	if s.N > 1 {
		s.Std = stat.StdDev(ok, nil)
	}
	s.Truth = stat.Mean(okTruth, nil)
	s.Bias = s.Mean - s.Truth
	s.RMSE = math.Sqrt(sq / float64(s.N))
	return s
}
