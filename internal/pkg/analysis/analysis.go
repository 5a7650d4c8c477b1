// Package analysis runs the capacity pipeline of a feeder: path indexing, rating
// assignment, margins, propagation, associations and warnings, then load placement on
// request.
package analysis

import (
	"encoding/json"
	"io/ioutil"
	"log"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/ohowland/feedercap/internal/pkg/association"
	"github.com/ohowland/feedercap/internal/pkg/capacity"
	"github.com/ohowland/feedercap/internal/pkg/conductor"
	"github.com/ohowland/feedercap/internal/pkg/history"
	"github.com/ohowland/feedercap/internal/pkg/loadpos"
	"github.com/ohowland/feedercap/internal/pkg/symcomp"
	"github.com/ohowland/feedercap/internal/pkg/topology"
	"github.com/ohowland/feedercap/internal/pkg/warning"
)

// Config is read from a JSON file; capacity and warning settings are inlined.
type Config struct {
	capacity.Config
	warning.Thresholds
	ConductorTable string `json:"ConductorTable"`
}

// History is everything the pipeline reads from the aggregation store.
type History interface {
	capacity.History
	loadpos.Inputs
	warning.Measurements
	Profile(id string, season int) symcomp.Profile
	YearProfile(id string) symcomp.Profile
	TransformerRefs() []association.Ref
}

type Analyzer struct {
	pid        uuid.UUID
	config     Config
	calc       *capacity.Calculator
	optimizer  *loadpos.Optimizer
	conductors conductor.Table
}

// New reads the analyzer configuration. The conductor table path is relative to the
// configuration file.
func New(configPath string) (*Analyzer, error) {
	jsonConfig, err := ioutil.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	cfg := Config{
		Config:     capacity.DefaultConfig(),
		Thresholds: warning.DefaultThresholds(),
	}
	if err := json.Unmarshal(jsonConfig, &cfg); err != nil {
		return nil, err
	}

	table := conductor.Table{DefaultRated: 1000}
	if cfg.ConductorTable != "" {
		table, err = conductor.Load(resolve(filepath.Dir(configPath), cfg.ConductorTable))
		if err != nil {
			return nil, err
		}
	}
	return NewWithConfig(cfg, table)
}

func NewWithConfig(cfg Config, table conductor.Table) (*Analyzer, error) {
	pid, err := uuid.NewUUID()
	if err != nil {
		return nil, err
	}
	return &Analyzer{
		pid:        pid,
		config:     cfg,
		calc:       capacity.NewCalculator(cfg.Config),
		optimizer:  loadpos.NewOptimizer(cfg.Config),
		conductors: table,
	}, nil
}

func (a *Analyzer) PID() uuid.UUID {
	return a.pid
}

func (a *Analyzer) Config() Config {
	return a.config
}

// Conductors is the conductor table used to resolve rating models.
func (a *Analyzer) Conductors() conductor.Table {
	return a.conductors
}

// Result is everything one feeder run produced.
type Result struct {
	PID          uuid.UUID
	Feeder       *Feeder
	Paths        *topology.Paths
	MainLine     *topology.Edge
	Margins      []capacity.Grid
	Capacity     []capacity.Grid
	Candidates   []loadpos.Candidate
	Associations *association.Table
	Warnings     []warning.Record
	Unbalance    []UnbalanceRow
}

// Run analyzes one feeder. A missing source aborts the feeder with no partial result.
func (a *Analyzer) Run(f *Feeder, hist History) (*Result, error) {
	log.Printf("[Analysis] feeder %v: run started", f.ID)
	g := f.Graph

	paths, err := topology.Index(g, f.Source)
	if err != nil {
		return nil, &FeederError{Feeder: f.ID, Err: err}
	}

	if dead, err := topology.Unreachable(g, f.Source); err == nil && len(dead) > 0 {
		log.Printf("[Analysis] feeder %v: %d nodes not energized from %v", f.ID, len(dead), f.Source)
	}

	skipped := 0
	for _, r := range f.Ratings {
		if _, err := topology.AssignRating(g, paths, r.From, r.To, r.RatedI, r.Class); err != nil {
			skipped++
		}
	}
	if skipped > 0 {
		log.Printf("[Analysis] feeder %v: %d of %d rating spans skipped", f.ID, skipped, len(f.Ratings))
	}

	main, err := topology.MainLine(g, f.Source)
	if err != nil {
		return nil, &FeederError{Feeder: f.ID, Err: err}
	}

	margins := a.calc.Margins(g, main, hist)
	propagated, err := a.calc.Propagate(g, f.Source, margins)
	if err != nil {
		return nil, &FeederError{Feeder: f.ID, Err: err}
	}

	allow := association.NewAllow(f.Switches)
	assoc, err := association.Build(g, f.Source, allow)
	if err != nil {
		return nil, &FeederError{Feeder: f.ID, Err: err}
	}

	candidates := make([]loadpos.Candidate, 0, len(f.Switches))
	switches := make([]association.Ref, 0, len(f.Switches))
	for _, id := range f.Switches {
		e, ok := g.EdgeOfDevice(id)
		if !ok {
			log.Printf("[Analysis] feeder %v: switch %v not in topology", f.ID, id)
			continue
		}
		depth := paths.Depth(e.Index)
		if depth < 0 {
			log.Printf("[Analysis] feeder %v: switch %v not energized from %v", f.ID, id, f.Source)
			continue
		}
		ref := association.Ref{ID: id, Name: e.Name()}
		switches = append(switches, ref)
		candidates = append(candidates, loadpos.Candidate{
			Switch:   ref,
			Depth:    depth,
			Capacity: propagated[e.Index],
			RatedI:   e.LimI,
		})
	}

	transformers := make([]association.Ref, 0)
	for _, e := range g.Edges() {
		if e.Kind() == topology.Transformer {
			transformers = append(transformers, association.Ref{ID: e.ID(), Name: e.Name()})
		}
	}
	warnings := a.config.Thresholds.Transformers(transformers, assoc, hist)
	warnings = append(warnings, a.config.Thresholds.Lines(switches, assoc, g, hist)...)

	result := &Result{
		PID:          a.pid,
		Feeder:       f,
		Paths:        paths,
		MainLine:     main,
		Margins:      margins,
		Capacity:     propagated,
		Candidates:   candidates,
		Associations: assoc,
		Warnings:     warnings,
		Unbalance:    unbalanceRows(f.ID, hist),
	}
	log.Printf("[Analysis] feeder %v: run finished, %d candidates, %d warnings", f.ID, len(candidates), len(warnings))
	return result, nil
}

// PlaceLoad ranks the feeder's switches for a new load curve in kW.
func (a *Analyzer) PlaceLoad(res *Result, hist History, load []float64) (loadpos.Placement, error) {
	req, err := loadpos.NewRequest(load, a.config.PointNum)
	if err != nil {
		return loadpos.Placement{}, err
	}
	return a.optimizer.Place(req, res.Candidates, res.Associations, hist), nil
}

// RunFile loads a feeder file and its history, then runs it.
func (a *Analyzer) RunFile(path string) (*Result, *history.Store, error) {
	f, err := LoadFeeder(path, a.conductors)
	if err != nil {
		return nil, nil, err
	}
	hist := &history.Store{PointNum: a.config.PointNum}
	if f.History != "" {
		hist, err = history.Load(f.History, a.config.PointNum)
		if err != nil {
			return nil, nil, &FeederError{Feeder: f.ID, Err: err}
		}
	}
	res, err := a.Run(f, hist)
	if err != nil {
		return nil, nil, err
	}
	return res, hist, nil
}

// Batch runs several feeder files. A failing feeder is reported and skipped.
func (a *Analyzer) Batch(paths []string) ([]*Result, []error) {
	results := make([]*Result, 0, len(paths))
	errs := make([]error, 0)
	for _, p := range paths {
		res, _, err := a.RunFile(p)
		if err != nil {
			log.Printf("[Analysis] %v skipped: %v", p, err)
			errs = append(errs, err)
			continue
		}
		results = append(results, res)
	}
	return results, errs
}

// FeederCapacity is the best switch year-mean capacity of a feeder.
type FeederCapacity struct {
	Feeder string  `json:"Feeder" bson:"feeder"`
	Mean   float64 `json:"Mean" bson:"mean"`
}

// Summary is the fleet view over many feeders.
type Summary struct {
	Warnings warning.Tally
	Best     FeederCapacity
	Worst    FeederCapacity
	Feeders  int
}

// Summarize tallies warnings and finds the feeders with the largest and smallest
// best-switch capacity.
func Summarize(results []*Result) Summary {
	s := Summary{}
	for i, res := range results {
		s.Warnings.Add(res.Warnings...)
		fc := FeederCapacity{Feeder: res.Feeder.ID, Mean: res.BestMean()}
		if i == 0 || fc.Mean > s.Best.Mean {
			s.Best = fc
		}
		if i == 0 || fc.Mean < s.Worst.Mean {
			s.Worst = fc
		}
		s.Feeders++
	}
	return s
}

// BestMean is the largest year-mean propagated capacity over the feeder's switches.
func (r *Result) BestMean() float64 {
	best := 0.0
	for _, c := range r.Candidates {
		if m := c.Capacity.YearMean(); m > best {
			best = m
		}
	}
	return best
}
