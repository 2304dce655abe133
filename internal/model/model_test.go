// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

package model

import (
	"bufio"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// baseSpec is the two-covariate reference model used across the tests.
func baseSpec() Spec {
	return Spec{
		Simulation: Simulation{Agents: 1000, Seed: 132},
		Estimation: Estimation{Dependent: "Y", Indicator: "D"},
		Treated:    Equation{Order: []string{"const", "X2"}, Params: []float64{1.0, 0.5}},
		Untreated:  Equation{Order: []string{"const", "X2"}, Params: []float64{0.5, 0.5}},
		Choice:     Equation{Order: []string{"const", "X2", "Z1"}, Params: []float64{0.2, 0.3, 1.0}},
		Dist:       Distribution{SdU1: 1, SdU0: 1, SdV: 1},
		Covariates: []CovariateDesign{
			{Name: "X2", Type: CovNormal, Mean: 0, Sd: 1},
			{Name: "Z1", Type: CovNormal, Mean: 0, Sd: 1},
		},
	}
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestValidateAcceptsBaseSpec(t *testing.T) {
	require.NoError(t, baseSpec().Validate())
	require.NoError(t, baseSpec().ValidateCovariates(nil))
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Spec)
		field  string
	}{
		{"negative agents", func(s *Spec) { s.Simulation.Agents = -1 }, "SIMULATION.agents"},
		{"empty treated order", func(s *Spec) { s.Treated = Equation{} }, "TREATED.order"},
		{"params length mismatch", func(s *Spec) { s.Choice.Params = s.Choice.Params[:1] }, "CHOICE"},
		{"untreated order differs", func(s *Spec) { s.Untreated.Order = []string{"const", "Z1"} }, "UNTREATED.order"},
		{"zero sd", func(s *Spec) { s.Dist.SdV = 0 }, "DIST.sd_v"},
		{"cauchy schwarz", func(s *Spec) { s.Dist.CovU1V = 1.5 }, "DIST.cov_u1_v"},
		{"nan param", func(s *Spec) { s.Treated.Params[1] = math.NaN() }, "TREATED.params"},
		{"bad covariate type", func(s *Spec) { s.Covariates[0].Type = "poisson" }, "COVARIATES.X2"},
		{"binary prob", func(s *Spec) { s.Covariates[1] = CovariateDesign{Name: "Z1", Type: CovBinary, Prob: 1.2} }, "COVARIATES.Z1"},
		{"same labels", func(s *Spec) { s.Estimation.Indicator = "Y" }, "ESTIMATION"},
		{"unobservable in outcome order", func(s *Spec) {
			s.Treated.Order = []string{"const", "V"}
			s.Untreated.Order = []string{"const", "V"}
		}, "TREATED.order"},
		{"potential outcome in choice order", func(s *Spec) { s.Choice.Order[2] = "Y1" }, "CHOICE.order"},
		{"custom outcome label", func(s *Spec) {
			s.Estimation.Dependent = "wage"
			s.Choice.Order[2] = "wage0"
		}, "CHOICE.order"},
		{"treatment as instrument", func(s *Spec) { s.Estimation.Instruments = []string{"D"} }, "ESTIMATION.instruments"},
		{"design named like an unobservable", func(s *Spec) { s.Covariates[1].Name = "U1" }, "COVARIATES.U1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := baseSpec()
			tc.mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfiguration))
			var ce *ConfigError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tc.field, ce.Field)
		})
	}
}

func TestValidateRejectsNonPSD(t *testing.T) {
	// Each pair is within Cauchy–Schwarz, the triple is not jointly feasible
	s := baseSpec()
	s.Dist.CovU1U0 = 0.9
	s.Dist.CovU1V = 0.9
	s.Dist.CovU0V = -0.9
	err := s.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), "positive semi-definite")
}

func TestValidateAcceptsSingularPSD(t *testing.T) {
	s := baseSpec()
	s.Dist.CovU1V = -1
	assert.NoError(t, s.Validate())
}

func TestValidateCovariatesMissingDesign(t *testing.T) {
	s := baseSpec()
	s.Covariates = s.Covariates[:1]
	err := s.ValidateCovariates(nil)
	require.ErrorIs(t, err, ErrConfiguration)
	assert.NoError(t, s.ValidateCovariates([]string{"Z1"}))
}

func TestValidateCovariatesRejectsPanelLabels(t *testing.T) {
	s := baseSpec()
	s.Choice.Order[2] = "V"
	s.Covariates = s.Covariates[:1]

	// an external column named V cannot stand in for the covariate
	err := s.ValidateCovariates([]string{"V"})
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Contains(t, err.Error(), `"V"`)

	assert.Equal(t, []string{"Y", "D", "Y1", "Y0", "U1", "U0", "V"}, baseSpec().ReservedNames())
}

func TestCovariateNames(t *testing.T) {
	assert.Equal(t, []string{"const", "X2", "Z1"}, baseSpec().CovariateNames())
}

func TestInputs(t *testing.T) {
	in := baseSpec().Inputs()
	assert.Equal(t, []string{"const", "X2"}, in.Exogenous)
	assert.Equal(t, "D", in.Endogenous)
	assert.Equal(t, []string{"Z1"}, in.Instruments)

	s := baseSpec()
	s.Estimation.Instruments = []string{"X2"}
	assert.Equal(t, []string{"X2"}, s.Inputs().Instruments)
}

func TestCloneDoesNotAlias(t *testing.T) {
	s := baseSpec()
	c := s.Clone()
	c.Treated.Params[0] = 99
	c.Covariates[0].Mean = 7
	assert.Equal(t, 1.0, s.Treated.Params[0])
	assert.Equal(t, 0.0, s.Covariates[0].Mean)
}

func TestUpdateCorrelationLeavesInputUntouched(t *testing.T) {
	s := baseSpec()
	s.Dist.SdU1 = 2
	s.Dist.SdV = 0.5
	before := s.Clone()

	out, err := UpdateCorrelation(s, -0.5)
	require.NoError(t, err)
	assert.InDelta(t, -0.5, out.Dist.CovU1V, 1e-15)

	assert.Empty(t, cmp.Diff(before, s))

	// Only cov(U1, V) moved
	want := before.Clone()
	want.Dist.CovU1V = out.Dist.CovU1V
	assert.Empty(t, cmp.Diff(want, out))
}

func TestUpdateCorrelationRejectsOutOfRange(t *testing.T) {
	for _, rho := range []float64{-1.01, 1.5, math.NaN(), math.Inf(1)} {
		_, err := UpdateCorrelation(baseSpec(), rho)
		assert.ErrorIs(t, err, ErrConfiguration, "rho=%v", rho)
	}
}

func TestWithCovU1V(t *testing.T) {
	s := baseSpec()
	out := WithCovU1V(s, -0.191)
	assert.Equal(t, -0.191, out.Dist.CovU1V)
	assert.Equal(t, 0.0, s.Dist.CovU1V)
}

// Correlation update fixtures: each input file holds sd_u1, sd_v and rho,
// each output file the expected covariance.
func TestUpdateCorrelationFixtures(t *testing.T) {
	dir := filepath.Join("testdata", "CorrelationUpdate")
	inputs, err := os.ReadDir(filepath.Join(dir, "input"))
	require.NoError(t, err)
	require.NotEmpty(t, inputs)

	for _, entry := range inputs {
		in := readFloats(t, filepath.Join(dir, "input", entry.Name()))
		out := readFloats(t, filepath.Join(dir, "output", entry.Name()))
		require.Len(t, in, 3, entry.Name())
		require.Len(t, out, 1, entry.Name())

		s := baseSpec()
		s.Dist.SdU1, s.Dist.SdV = in[0], in[1]
		got, err := UpdateCorrelation(s, in[2])
		require.NoError(t, err)
		if !almostEqual(got.Dist.CovU1V, out[0], 1e-12) {
			t.Errorf("%s: cov(U1,V) = %v, want %v", entry.Name(), got.Dist.CovU1V, out[0])
		}
	}
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

func TestUpdateCorrelationProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	sd := gen.Float64Range(0.01, 10)

	properties.Property("rho = 0 gives zero covariance for any sds", prop.ForAll(
		func(sdU1, sdV float64) bool {
			s := baseSpec()
			s.Dist.SdU1, s.Dist.SdV = sdU1, sdV
			out, err := UpdateCorrelation(s, 0)
			return err == nil && out.Dist.CovU1V == 0 && !math.Signbit(out.Dist.CovU1V)
		},
		sd, sd,
	))

	properties.Property("updated covariance respects Cauchy–Schwarz", prop.ForAll(
		func(sdU1, sdV, rho float64) bool {
			s := baseSpec()
			s.Dist.SdU1, s.Dist.SdV = sdU1, sdV
			out, err := UpdateCorrelation(s, rho)
			if err != nil {
				return false
			}
			return math.Abs(out.Dist.CovU1V) <= sdU1*sdV*(1+1e-12)
		},
		sd, sd, gen.Float64Range(-1, 1),
	))

	properties.Property("covariances beyond the bound are rejected", prop.ForAll(
		func(sdU1, sdV, excess float64) bool {
			s := baseSpec()
			s.Dist.SdU1, s.Dist.SdV = sdU1, sdV
			s.Dist.CovU1V = -(sdU1*sdV + excess)
			return errors.Is(s.Validate(), ErrConfiguration)
		},
		sd, sd, gen.Float64Range(1e-3, 5),
	))

	properties.Property("implied correlation is recovered", prop.ForAll(
		func(sdU1, sdV, rho float64) bool {
			s := baseSpec()
			s.Dist.SdU1, s.Dist.SdV = sdU1, sdV
			out, err := UpdateCorrelation(s, rho)
			return err == nil && almostEqual(out.Dist.CorrelationU1V(), rho, 1e-9)
		},
		sd, sd, gen.Float64Range(-1, 1),
	))

	properties.TestingRun(t)
}
