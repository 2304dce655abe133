// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

// Package store persists everything outside the statistical core: model
// specifications (YAML), covariate tables, panels and sweep results (CSV)
// and a history of sweep runs (SQLite).
package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/OpenSourceEconomics/ose-course-data-science/internal/model"
	"gopkg.in/yaml.v3"
)

// ReadSpec loads a model specification from a YAML file. File errors are
// returned with the path attached; malformed content is a ConfigError.
func ReadSpec(path string) (model.Spec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.Spec{}, fmt.Errorf("read spec %s: %w", path, err)
	}
	spec, err := DecodeSpec(bytes.NewReader(raw))
	if err != nil {
		return model.Spec{}, fmt.Errorf("%s: %w", path, err)
	}
	return spec, nil
}

// DecodeSpec parses one YAML document. Unknown keys are rejected.
func DecodeSpec(r io.Reader) (model.Spec, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var spec model.Spec
	if err := dec.Decode(&spec); err != nil {
		if errors.Is(err, io.EOF) {
			return model.Spec{}, model.Configf("spec", "empty document")
		}
		return model.Spec{}, model.Configf("spec", "%v", err)
	}
	return spec, nil
}

// WriteSpec writes spec to path as YAML, replacing the file.
func WriteSpec(spec model.Spec, path string) error {
	var buf bytes.Buffer
	if err := EncodeSpec(&buf, spec); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write spec %s: %w", path, err)
	}
	return nil
}

// EncodeSpec writes spec as YAML with two-space indentation.
func EncodeSpec(w io.Writer, spec model.Spec) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(spec); err != nil {
		return fmt.Errorf("encode spec: %w", err)
	}
	return enc.Close()
}
