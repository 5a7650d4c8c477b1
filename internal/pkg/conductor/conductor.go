// Package conductor maps overhead conductor model labels to a conductor class and a
// rated ampacity.
package conductor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"strings"

	"github.com/ohowland/feedercap/internal/pkg/topology"
)

var ErrUnknownModel = errors.New("unknown conductor model")

// Table holds rated currents (A) keyed by cross-section label (mm2).
type Table struct {
	DefaultRated float64            `json:"DefaultRated"`
	Insulated    map[string]float64 `json:"Insulated"`
	Bare         map[string]float64 `json:"Bare"`
}

// Load reads a conductor table from a JSON file.
func Load(path string) (Table, error) {
	jsonFile, err := ioutil.ReadFile(path)
	if err != nil {
		return Table{}, err
	}

	t := Table{}
	if err := json.Unmarshal(jsonFile, &t); err != nil {
		return Table{}, err
	}
	if t.DefaultRated <= 0 {
		t.DefaultRated = 1000
	}
	return t, nil
}

// Parse resolves a model label such as JKLYJ-10-240, JKLGYJ-10/185, JL/G1A-240/30 or
// LGJ-120/20. Unknown sizes keep the default rating. Unknown families return
// ErrUnknownModel together with the default rating and the insulated class.
func (t Table) Parse(model string) (topology.Class, float64, error) {
	parts := strings.Split(strings.TrimSpace(model), "-")
	family := parts[0]

	switch {
	case strings.HasPrefix(family, "JKLYJ"), family == "JKLGYJ", family == "JLYJ", family == "JKYJ":
		var size string
		switch len(parts) {
		case 3:
			size = parts[2]
		case 2:
			if pieces := strings.Split(parts[1], "/"); len(pieces) > 1 {
				size = pieces[1]
			} else {
				size = parts[1]
			}
		}
		return topology.Insulated, t.lookup(t.Insulated, size), nil

	case strings.HasPrefix(family, "JL/"):
		var size string
		if len(parts) > 1 {
			size = strings.Split(parts[1], "/")[0]
		}
		return topology.Insulated, t.lookup(t.Insulated, size), nil

	case family == "LGJ":
		var size string
		if len(parts) > 1 {
			size = strings.Split(parts[1], "/")[0]
		}
		return topology.Bare, t.lookup(t.Bare, size), nil
	}

	return topology.Insulated, t.DefaultRated, fmt.Errorf("%q: %w", model, ErrUnknownModel)
}

func (t Table) lookup(m map[string]float64, size string) float64 {
	if v, ok := m[size]; ok {
		return v
	}
	return t.DefaultRated
}
