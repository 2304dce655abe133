// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Oct 19th 2026
// Project: Essential Heterogeneity Monte Carlo for the Generalized Roy Model
// Class: 02-613 at Caregie Mellon University

package estimate

import (
	"strings"

	"github.com/OpenSourceEconomics/ose-course-data-science/internal/model"
)

// Kind selects one estimator of the bank.
type Kind int

const (
	Conventional  Kind = iota // ATE/TT/TUT from both potential outcomes
	Randomization             // difference in means
	OLS                       // Y on D (and covariates)
	IV                        // two-stage least squares
	Structural                // probit + control-function switching regressions
	LocalIV                   // polynomial local IV, integrated MTE curve
)

var kindNames = [...]string{
	Conventional:  "conventional",
	Randomization: "randomization",
	OLS:           "ols",
	IV:            "iv",
	Structural:    "structural",
	LocalIV:       "local-iv",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Kinds lists every estimator in bank order.
func Kinds() []Kind {
	return []Kind{Conventional, Randomization, OLS, IV, Structural, LocalIV}
}

// aliases accepted by ParseKind, including the labels used by the course notebooks
var kindAliases = map[string]Kind{
	"conventional":                 Conventional,
	"conventional_average_effects": Conventional,
	"truth":                        Conventional,
	"random":                       Randomization,
	"randomization":                Randomization,
	"ols":                          OLS,
	"ordinary_least_squares":       OLS,
	"iv":                           IV,
	"2sls":                         IV,
	"instrumental_variables":       IV,
	"structural":                   Structural,
	"grmpy":                        Structural,
	"grmpy-par":                    Structural,
	"local-iv":                     LocalIV,
	"liv":                          LocalIV,
	"grmpy-liv":                    LocalIV,
	"grmpy-semipar":                LocalIV,
}

// ParseKind maps an estimator label to its Kind. Matching ignores case and
// treats '_' and '-' alike.
func ParseKind(name string) (Kind, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if k, ok := kindAliases[key]; ok {
		return k, nil
	}
	if k, ok := kindAliases[strings.ReplaceAll(key, "_", "-")]; ok {
		return k, nil
	}
	if k, ok := kindAliases[strings.ReplaceAll(key, "-", "_")]; ok {
		return k, nil
	}
	return 0, model.Configf("estimator", "unknown estimator %q", name)
}

// MarshalText lets a Kind appear as its name in YAML and flags.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
