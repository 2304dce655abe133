// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/OpenSourceEconomics/ose-course-data-science/internal/estimate"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/model"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/report"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFile = `spec: model.grmpy.yml
estimator: ols
units: 2000
grid:
  start: 0.5
  stop: -0.5
  points: 5
log:
  level: debug
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roysim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func testFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("roysim", pflag.ContinueOnError)
	flags.String("config", "", "")
	flags.String("estimator", DefaultEstimator, "")
	flags.Int("units", 0, "")
	flags.Int64("seed", 0, "")
	flags.Bool("ols-covariates", false, "")
	flags.Int("grid-points", 10, "")
	flags.Float64("grid-stop", -0.99, "")
	flags.String("log-level", DefaultLogLevel, "")
	return flags
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultEstimator, cfg.Estimator)
	assert.Equal(t, DefaultReplications, cfg.Replications)
	assert.Equal(t, 10, cfg.Grid.Points)
	assert.Equal(t, -0.99, cfg.Grid.Stop)
	assert.Equal(t, "", cfg.File)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
	assert.Equal(t, report.ASCII, cfg.TableMode())

	grid, err := cfg.GridValues()
	require.NoError(t, err)
	assert.Len(t, grid, 10)
	assert.ErrorIs(t, cfg.RequireSpec(), model.ErrConfiguration)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, sampleFile)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "model.grmpy.yml", cfg.Spec)
	assert.Equal(t, 2000, cfg.Units)
	assert.Equal(t, GridConfig{Start: 0.5, Stop: -0.5, Points: 5}, cfg.Grid)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
	// untouched keys keep their defaults
	assert.Equal(t, DefaultLogFormat, cfg.Log.Format)

	kind, err := cfg.Kind()
	require.NoError(t, err)
	assert.Equal(t, estimate.OLS, kind)
	assert.NoError(t, cfg.RequireSpec())
}

func TestLoadFindsFileInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "roysim.yml"), []byte("units: 77\n"), 0o644))
	t.Chdir(dir)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 77, cfg.Units)
	assert.Equal(t, "roysim.yml", cfg.File)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, sampleFile)
	t.Setenv("ROYSIM_UNITS", "3000")
	t.Setenv("ROYSIM_GRID_POINTS", "7")
	t.Setenv("ROYSIM_LOG_FORMAT", "json")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Units)
	assert.Equal(t, 7, cfg.Grid.Points)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 0.5, cfg.Grid.Start)
	assert.Nil(t, cfg.Rho)
}

func TestRhoFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ROYSIM_RHO", "-0.25")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	require.NotNil(t, cfg.Rho)
	assert.Equal(t, -0.25, *cfg.Rho)
	assert.NoError(t, cfg.Validate())
}

func TestFlagsOverrideEnv(t *testing.T) {
	path := writeConfig(t, sampleFile)
	t.Setenv("ROYSIM_UNITS", "3000")

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--units=4000", "--grid-points=3", "--estimator=iv"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Units)
	assert.Equal(t, 3, cfg.Grid.Points)
	assert.Equal(t, "iv", cfg.Estimator)
	// unset flags do not shadow the file
	assert.Equal(t, -0.5, cfg.Grid.Stop)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Nil(t, cfg.Seed)
}

func TestSeedZeroIsExplicit(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Nil(t, cfg.Seed)

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--seed=0"}))
	cfg, err = Load("", flags)
	require.NoError(t, err)
	require.NotNil(t, cfg.Seed)
	assert.Equal(t, int64(0), *cfg.Seed)

	t.Setenv("ROYSIM_SEED", "0")
	cfg, err = Load("", nil)
	require.NoError(t, err)
	require.NotNil(t, cfg.Seed)
	assert.Equal(t, int64(0), *cfg.Seed)
}

func TestOLSCovariates(t *testing.T) {
	path := writeConfig(t, sampleFile+"ols_covariates: true\n")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.True(t, cfg.OLSCovariates)
	ols, err := cfg.Registry().Lookup(estimate.OLS)
	require.NoError(t, err)
	assert.True(t, ols.Requires().Exogenous)

	t.Setenv("ROYSIM_OLS_COVARIATES", "false")
	cfg, err = Load(path, nil)
	require.NoError(t, err)
	assert.False(t, cfg.OLSCovariates)
	ols, err = cfg.Registry().Lookup(estimate.OLS)
	require.NoError(t, err)
	assert.False(t, ols.Requires().Exogenous)
}

func TestValidateRejects(t *testing.T) {
	base := func(t *testing.T) *Config {
		cfg, err := Load(writeConfig(t, sampleFile), nil)
		require.NoError(t, err)
		return cfg
	}

	cases := map[string]func(c *Config){
		"estimator":    func(c *Config) { c.Estimator = "magic" },
		"units":        func(c *Config) { c.Units = -1 },
		"workers":      func(c *Config) { c.Workers = -2 },
		"replications": func(c *Config) { c.Replications = 0 },
		"rho":          func(c *Config) { rho := 1.5; c.Rho = &rho },
		"grid points":  func(c *Config) { c.Grid.Points = 0 },
		"grid range":   func(c *Config) { c.Grid.Stop = -2 },
		"format":       func(c *Config) { c.Format = "html" },
		"log level":    func(c *Config) { c.Log.Level = "loud" },
		"log format":   func(c *Config) { c.Log.Format = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base(t)
			mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), model.ErrConfiguration)
		})
	}
}

func TestNestedKey(t *testing.T) {
	assert.Equal(t, "grid.points", nestedKey("GRID_POINTS"))
	assert.Equal(t, "log.level", nestedKey("log-level"))
	assert.Equal(t, "units", nestedKey("UNITS"))
	assert.Equal(t, "ols_covariates", nestedKey("ols-covariates"))
	assert.Equal(t, "db", nestedKey("db"))
}
