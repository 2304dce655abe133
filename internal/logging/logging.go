// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

// Package logging sets up the slog default used by the harness.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/OpenSourceEconomics/ose-course-data-science/internal/model"
)

// Init installs a text or JSON handler as the slog default.
// Output goes to os.Stderr unless a writer is given.
func Init(level slog.Level, format string, w ...io.Writer) {
	var out io.Writer = os.Stderr
	if len(w) > 0 && w[0] != nil {
		out = w[0]
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// New returns the default logger tagged with a component attribute.
func New(component string) *slog.Logger {
	return slog.Default().With(slog.String("component", component))
}

// ParseLevel maps debug, info, warn or error to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return slog.LevelInfo, model.Configf("log.level", "unknown log level %q", name)
	}
	return level, nil
}

// ParseFormat accepts "text" or "json".
func ParseFormat(name string) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(name)); f {
	case "text", "json":
		return f, nil
	case "":
		return "text", nil
	default:
		return "", model.Configf("log.format", "unknown log format %q", name)
	}
}
