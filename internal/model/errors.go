// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

package model

import (
	"errors"
	"fmt"
)

// Error kinds shared by every package of the harness. Callers match them with errors.Is.
var (
	// ErrConfiguration marks an invalid or missing model or run setting.
	// It is fatal and raised before any simulation work begins.
	ErrConfiguration = errors.New("configuration error")

	// ErrEstimation marks a numeric failure of a single estimator call
	// (singular design, unidentified model, empty treatment arm).
	ErrEstimation = errors.New("estimation failure")
)

// ConfigError describes which setting is wrong and why.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %s", ErrConfiguration, e.Reason)
	}
	return fmt.Sprintf("%v: %s: %s", ErrConfiguration, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }

// Configf builds a ConfigError with a formatted reason.
func Configf(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// EstimationError reports which estimator failed.
type EstimationError struct {
	Estimator string
	Reason    string
}

func (e *EstimationError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrEstimation, e.Estimator, e.Reason)
}

func (e *EstimationError) Unwrap() error { return ErrEstimation }

// Estimationf builds an EstimationError with a formatted reason.
func Estimationf(estimator, format string, args ...any) error {
	return &EstimationError{Estimator: estimator, Reason: fmt.Sprintf(format, args...)}
}
