// Package history serves seasonally aggregated measurements of one feeder.
package history

import (
	"encoding/json"
	"io/ioutil"
	"sort"
	"strconv"

	"github.com/ohowland/feedercap/internal/pkg/association"
	"github.com/ohowland/feedercap/internal/pkg/capacity"
	"github.com/ohowland/feedercap/internal/pkg/symcomp"
	"gonum.org/v1/gonum/floats"
)

// Series holds one day curve per season, keyed by the 1-based season label.
type Series map[string][]float64

func (s Series) season(season, n int) []float64 {
	return capacity.Curve(s[strconv.Itoa(season+1)], n)
}

// Phases holds per-phase seasonal maxima.
type Phases struct {
	A Series `json:"A"`
	B Series `json:"B"`
	C Series `json:"C"`
}

// Transformer holds the aggregated data of one distribution transformer.
// Power values are in W, ratings in kVA.
type Transformer struct {
	Name       string                      `json:"Name"`
	RatedKVA   float64                     `json:"RatedKVA"`
	SeasonMaxW Series                      `json:"SeasonMaxW"`
	ShapeW     Series                      `json:"ShapeW"`
	MinPhase   map[string]string           `json:"MinPhase"`
	Samples    map[string][]symcomp.Sample `json:"Samples"`
}

type Store struct {
	PointNum     int                    `json:"PointNum"`
	MainLine     Phases                 `json:"MainLine"`
	Devices      map[string]Series      `json:"Devices"`
	SwitchShapes map[string]Series      `json:"SwitchShapes"`
	Transformers map[string]Transformer `json:"Transformers"`
}

// Load reads a store from a JSON file.
func Load(path string, points int) (*Store, error) {
	jsonFile, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	s := &Store{}
	if err := json.Unmarshal(jsonFile, s); err != nil {
		return nil, err
	}
	if s.PointNum <= 0 {
		s.PointNum = points
	}
	return s, nil
}

// MainLineMax is the per-slot maximum over the three main line phases.
func (s *Store) MainLineMax(season int) []float64 {
	n := s.PointNum
	return capacity.PhaseMax(s.MainLine.A.season(season, n), s.MainLine.B.season(season, n), s.MainLine.C.season(season, n), n)
}

// DeviceMax is the seasonal per-slot maximum current of a device.
func (s *Store) DeviceMax(id string, season int) []float64 {
	return s.Devices[id].season(season, s.PointNum)
}

// DeviceYearMax is the largest current recorded on a device in any season.
func (s *Store) DeviceYearMax(id string) float64 {
	return yearMax(s.Devices[id], s.PointNum)
}

func (s *Store) SwitchShape(id string, season int) []float64 {
	return s.SwitchShapes[id].season(season, s.PointNum)
}

// TransformerShape is the typical seasonal load of a transformer in kW.
func (s *Store) TransformerShape(id string, season int) []float64 {
	shape := s.Transformers[id].ShapeW.season(season, s.PointNum)
	for i := range shape {
		shape[i] /= 1000
	}
	return shape
}

// TransformerRated returns the rated capacity in kVA.
func (s *Store) TransformerRated(id string) float64 {
	return s.Transformers[id].RatedKVA
}

// TransformerYearMax is the largest seasonal power of a transformer in kW.
func (s *Store) TransformerYearMax(id string) float64 {
	return yearMax(s.Transformers[id].SeasonMaxW, s.PointNum) / 1000
}

// TransformerHeadroom is rated capacity less seasonal maximum power, in kW.
func (s *Store) TransformerHeadroom(id string) capacity.Grid {
	tf := s.Transformers[id]
	seasonMax := [capacity.SeasonCount][]float64{}
	for season := range seasonMax {
		seasonMax[season] = tf.SeasonMaxW.season(season, s.PointNum)
	}
	return capacity.NewCalculator(capacity.Config{PointNum: s.PointNum}).TransformerHeadroom(tf.RatedKVA, seasonMax)
}

// MinPhase returns the least loaded phase of a transformer in a season. Without a
// recorded label it is derived from the raw samples.
func (s *Store) MinPhase(id string, season int) symcomp.Phase {
	tf := s.Transformers[id]
	switch tf.MinPhase[strconv.Itoa(season+1)] {
	case "A":
		return symcomp.PhaseA
	case "B":
		return symcomp.PhaseB
	case "C":
		return symcomp.PhaseC
	}
	return s.Profile(id, season).MinPhase
}

// Profile summarizes the unbalance of a transformer's samples in a season.
func (s *Store) Profile(id string, season int) symcomp.Profile {
	return symcomp.SeasonProfile(s.Transformers[id].Samples[strconv.Itoa(season+1)])
}

// YearProfile summarizes the unbalance over every season with samples.
func (s *Store) YearProfile(id string) symcomp.Profile {
	seasons := make([]symcomp.Profile, capacity.SeasonCount)
	for season := range seasons {
		seasons[season] = s.Profile(id, season)
	}
	return symcomp.YearProfile(seasons)
}

// TransformerRefs lists every transformer ordered by id.
func (s *Store) TransformerRefs() []association.Ref {
	refs := make([]association.Ref, 0, len(s.Transformers))
	for id, tf := range s.Transformers {
		refs = append(refs, association.Ref{ID: id, Name: tf.Name})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].ID < refs[j].ID })
	return refs
}

func yearMax(series Series, n int) float64 {
	max := 0.0
	for season := 0; season < capacity.SeasonCount; season++ {
		if c := series.season(season, n); len(c) > 0 {
			if m := floats.Max(c); m > max {
				max = m
			}
		}
	}
	return max
}
