package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"log"
	"path/filepath"

	"github.com/ohowland/feedercap/internal/pkg/conductor"
	"github.com/ohowland/feedercap/internal/pkg/topology"
)

// FeederError ties a failure to the feeder it aborted.
type FeederError struct {
	Feeder string
	Err    error
}

func (e *FeederError) Error() string {
	return fmt.Sprintf("feeder %v: %v", e.Feeder, e.Err)
}

func (e *FeederError) Unwrap() error {
	return e.Err
}

// Rating is a rated device span between two nodes. A zero RatedI is resolved from
// Model through the conductor table.
type Rating struct {
	From   string         `json:"From"`
	To     string         `json:"To"`
	Model  string         `json:"Model"`
	RatedI float64        `json:"RatedI"`
	Class  topology.Class `json:"Class"`
}

// Feeder is one feeder snapshot ready for analysis.
type Feeder struct {
	ID         string
	Name       string
	Substation string
	Graph      *topology.Graph
	Source     string
	Switches   []string
	Ratings    []Rating
	History    string
}

type feederFile struct {
	ID         string   `json:"ID"`
	Name       string   `json:"Name"`
	Substation string   `json:"Substation"`
	Topology   string   `json:"Topology"`
	History    string   `json:"History"`
	Switches   []string `json:"Switches"`
	Ratings    []Rating `json:"Ratings"`
}

// LoadFeeder reads a feeder description. Topology and history paths are relative to
// the feeder file.
func LoadFeeder(path string, table conductor.Table) (*Feeder, error) {
	jsonFile, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	ff := feederFile{}
	if err := json.Unmarshal(jsonFile, &ff); err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	g, source, err := topology.Load(resolve(dir, ff.Topology))
	if err != nil {
		return nil, &FeederError{Feeder: ff.ID, Err: err}
	}

	ratings := make([]Rating, 0, len(ff.Ratings))
	for _, r := range ff.Ratings {
		if r.RatedI <= 0 {
			class, rated, err := table.Parse(r.Model)
			if errors.Is(err, conductor.ErrUnknownModel) {
				log.Printf("[Analysis] feeder %v: %v, using %v A", ff.ID, err, rated)
			}
			r.RatedI, r.Class = rated, class
		}
		if r.Class == 0 {
			r.Class = topology.Insulated
		}
		ratings = append(ratings, r)
	}

	history := ""
	if ff.History != "" {
		history = resolve(dir, ff.History)
	}

	return &Feeder{
		ID:         ff.ID,
		Name:       ff.Name,
		Substation: ff.Substation,
		Graph:      g,
		Source:     source,
		Switches:   ff.Switches,
		Ratings:    ratings,
		History:    history,
	}, nil
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
