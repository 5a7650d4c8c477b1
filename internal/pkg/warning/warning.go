// Package warning classifies measured loading against equipment ratings.
package warning

import (
	"github.com/ohowland/feedercap/internal/pkg/association"
	"github.com/ohowland/feedercap/internal/pkg/topology"
)

type Level int

const (
	Normal Level = iota
	Heavy
	Overload
)

func (l Level) String() string {
	switch l {
	case Heavy:
		return "heavy"
	case Overload:
		return "overload"
	default:
		return "normal"
	}
}

// Thresholds bound the loading ratio bands. Ratios at or above Suspect are treated as
// bad measurements and raise no warning. All bounds are exclusive.
type Thresholds struct {
	Heavy    float64 `json:"HeavyRatio"`
	Overload float64 `json:"OverloadRatio"`
	Suspect  float64 `json:"SuspectRatio"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{Heavy: 0.8, Overload: 1, Suspect: 2}
}

// Classify returns the level and loading ratio of a measured maximum against a rating.
func (t Thresholds) Classify(max, rated float64) (Level, float64) {
	if rated <= 0 {
		return Normal, 0
	}
	ratio := max / rated
	switch {
	case ratio > t.Overload && ratio < t.Suspect:
		return Overload, ratio
	case ratio > t.Heavy && ratio < t.Overload:
		return Heavy, ratio
	default:
		return Normal, ratio
	}
}

// Record is one raised warning. Related names the associated line of a transformer or
// the guarding switch of a line.
type Record struct {
	Level   Level
	Kind    topology.Kind
	Device  association.Ref
	Related association.Ref
	Max     float64
	Rated   float64
	Ratio   float64
}

// Measurements supplies yearly maxima and ratings.
type Measurements interface {
	TransformerYearMax(id string) float64
	TransformerRated(id string) float64
	DeviceYearMax(id string) float64
}

// Transformers classifies measured power against rated capacity.
func (t Thresholds) Transformers(tfs []association.Ref, table *association.Table, m Measurements) []Record {
	records := make([]Record, 0)
	for _, tf := range tfs {
		max, rated := m.TransformerYearMax(tf.ID), m.TransformerRated(tf.ID)
		level, ratio := t.Classify(max, rated)
		if level == Normal {
			continue
		}
		line, _ := table.LineOf(tf.ID)
		records = append(records, Record{
			Level:   level,
			Kind:    topology.Transformer,
			Device:  tf,
			Related: line,
			Max:     max,
			Rated:   rated,
			Ratio:   ratio,
		})
	}
	return records
}

// Lines classifies each line span against its assigned ampacity using the current
// measured at every switch guarding it.
func (t Thresholds) Lines(switches []association.Ref, table *association.Table, g *topology.Graph, m Measurements) []Record {
	records := make([]Record, 0)
	for _, sw := range switches {
		max := m.DeviceYearMax(sw.ID)
		for _, line := range table.LinesOf(sw.ID) {
			e, ok := g.EdgeOfDevice(line.ID)
			if !ok {
				continue
			}
			level, ratio := t.Classify(max, e.LimI)
			if level == Normal {
				continue
			}
			records = append(records, Record{
				Level:   level,
				Kind:    topology.Line,
				Device:  line,
				Related: sw,
				Max:     max,
				Rated:   e.LimI,
				Ratio:   ratio,
			})
		}
	}
	return records
}

// Tally counts warnings per device kind and level.
type Tally struct {
	LineHeavy           int
	LineOverload        int
	TransformerHeavy    int
	TransformerOverload int
}

func (c *Tally) Add(records ...Record) {
	for _, r := range records {
		switch {
		case r.Kind == topology.Line && r.Level == Heavy:
			c.LineHeavy++
		case r.Kind == topology.Line && r.Level == Overload:
			c.LineOverload++
		case r.Kind == topology.Transformer && r.Level == Heavy:
			c.TransformerHeavy++
		case r.Kind == topology.Transformer && r.Level == Overload:
			c.TransformerOverload++
		}
	}
}

func (c Tally) Total() int {
	return c.LineHeavy + c.LineOverload + c.TransformerHeavy + c.TransformerOverload
}
