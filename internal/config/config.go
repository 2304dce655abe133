// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

// Package config loads the run configuration of the roysim command.
//
// Values are layered, highest priority first: explicitly set flags,
// ROYSIM_* environment variables, the roysim.yaml file, built-in defaults.
package config

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/OpenSourceEconomics/ose-course-data-science/internal/estimate"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/logging"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/model"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/report"
	"github.com/OpenSourceEconomics/ose-course-data-science/internal/sweep"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of environment overrides: ROYSIM_UNITS, ROYSIM_GRID_POINTS, ...
const EnvPrefix = "ROYSIM_"

// Default values
const (
	DefaultEstimator    = "randomization"
	DefaultReplications = 100
	DefaultOutput       = "out"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
)

// Config file names searched in the working directory
var configFiles = []string{"roysim.yaml", "roysim.yml"}

// GridConfig is the correlation grid of a sweep.
type GridConfig struct {
	Start  float64 `koanf:"start"`
	Stop   float64 `koanf:"stop"`
	Points int     `koanf:"points"`
}

// LogConfig selects the log level and handler.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Config is the resolved run configuration.
type Config struct {
	Spec       string `koanf:"spec"`       // model specification (YAML)
	Covariates string `koanf:"covariates"` // optional covariate table (CSV)
	Estimator  string `koanf:"estimator"`

	// OLS also regresses on the outcome covariates
	OLSCovariates bool `koanf:"ols_covariates"`

	Units        int      `koanf:"units"` // 0 means SIMULATION.agents
	Seed         *int64   `koanf:"seed"`  // nil means SIMULATION.seed
	Workers      int      `koanf:"workers"`
	Replications int      `koanf:"replications"`
	Rho          *float64 `koanf:"rho"` // corr(U1, V) for replicate and correlate, nil keeps the model's

	Grid GridConfig `koanf:"grid"`

	Output string `koanf:"output"` // directory for CSV output
	DB     string `koanf:"db"`     // run store, empty disables it
	Format string `koanf:"format"` // table format: ascii or markdown

	Log LogConfig `koanf:"log"`

	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"estimator":      DefaultEstimator,
		"ols_covariates": false,
		"units":          0,
		"workers":        0,
		"replications":   DefaultReplications,
		"grid.start":     sweep.DefaultStart,
		"grid.stop":      sweep.DefaultStop,
		"grid.points":    sweep.DefaultPoints,
		"output":         DefaultOutput,
		"format":         "ascii",
		"log.level":      DefaultLogLevel,
		"log.format":     DefaultLogFormat,
	}
}

// findConfigFile returns explicit, else the first roysim.yaml / roysim.yml
// in the working directory, else "".
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range configFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// nestedKey maps a flat name (grid_points, log-level) to its koanf key.
func nestedKey(name string) string {
	key := strings.ReplaceAll(strings.ToLower(name), "-", "_")
	for _, section := range []string{"grid_", "log_"} {
		if strings.HasPrefix(key, section) {
			return strings.TrimSuffix(section, "_") + "." + strings.TrimPrefix(key, section)
		}
	}
	return key
}

// Load resolves the configuration. cfgFile may be empty; flags may be nil.
// Only flags the user set explicitly override lower layers.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	// 2. Config file
	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", used, err)
		}
	}

	// 3. Environment: ROYSIM_GRID_POINTS -> grid.points
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return nestedKey(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	// 4. Flags that were set explicitly
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			return nestedKey(f.Name), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, model.Configf("config", "decode: %v", err)
	}
	cfg.File = used
	return &cfg, nil
}

// Validate checks every field that does not depend on the model
// specification. Failures are *model.ConfigError.
func (c *Config) Validate() error {
	if _, err := estimate.ParseKind(c.Estimator); err != nil {
		return err
	}
	if c.Units < 0 {
		return model.Configf("units", "must be >= 0, got %d", c.Units)
	}
	if c.Workers < 0 {
		return model.Configf("workers", "must be >= 0, got %d", c.Workers)
	}
	if c.Replications < 1 {
		return model.Configf("replications", "must be >= 1, got %d", c.Replications)
	}
	if c.Rho != nil && (math.IsNaN(*c.Rho) || *c.Rho < -1 || *c.Rho > 1) {
		return model.Configf("rho", "must lie in [-1, 1], got %v", *c.Rho)
	}
	if _, err := c.GridValues(); err != nil {
		return err
	}
	if _, err := report.ParseMode(c.Format); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return err
	}
	return nil
}

// RequireSpec reports a ConfigError when no specification path is set.
func (c *Config) RequireSpec() error {
	if strings.TrimSpace(c.Spec) == "" {
		return model.Configf("spec", "no model specification given (--spec or spec: in roysim.yaml)")
	}
	return nil
}

// Kind returns the configured estimator.
func (c *Config) Kind() (estimate.Kind, error) {
	return estimate.ParseKind(c.Estimator)
}

// Registry returns the estimator bank with the configured options.
func (c *Config) Registry() *estimate.Registry {
	reg := estimate.DefaultRegistry()
	if c.OLSCovariates {
		reg.Register(estimate.NewOLS(estimate.OLSOptions{WithCovariates: true}))
	}
	return reg
}

// GridValues returns the correlation grid.
func (c *Config) GridValues() ([]float64, error) {
	return sweep.Grid(c.Grid.Start, c.Grid.Stop, c.Grid.Points)
}

// TableMode returns the table format.
func (c *Config) TableMode() report.Mode {
	m, _ := report.ParseMode(c.Format)
	return m
}

// LogLevel returns the parsed log level, Info when invalid.
func (c *Config) LogLevel() slog.Level {
	l, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}
