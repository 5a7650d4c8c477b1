package analysis

import (
	"time"

	"github.com/ohowland/feedercap/internal/pkg/association"
	"github.com/ohowland/feedercap/internal/pkg/capacity"
	"github.com/ohowland/feedercap/internal/pkg/loadpos"
	"github.com/ohowland/feedercap/internal/pkg/msg"
	"github.com/ohowland/feedercap/internal/pkg/symcomp"
)

// YearSeason labels rows aggregated over the whole year.
const YearSeason = -1

// CapacityRow is the propagated capacity curve of one switch in one season, in A.
type CapacityRow struct {
	Feeder string    `json:"Feeder" bson:"feeder"`
	ID     string    `json:"ID" bson:"id"`
	Name   string    `json:"Name" bson:"name"`
	Season int       `json:"Season" bson:"season"`
	Curve  []float64 `json:"Curve" bson:"curve"`
}

// RatingRow is the assigned ampacity of one edge.
type RatingRow struct {
	Feeder string  `json:"Feeder" bson:"feeder"`
	ID     string  `json:"ID" bson:"id"`
	Name   string  `json:"Name" bson:"name"`
	RatedI float64 `json:"RatedI" bson:"ratedI"`
	Class  int     `json:"Class" bson:"class"`
}

type WarningRow struct {
	Feeder      string  `json:"Feeder" bson:"feeder"`
	Substation  string  `json:"Substation" bson:"substation"`
	Level       int     `json:"Level" bson:"level"`
	Kind        string  `json:"Kind" bson:"kind"`
	ID          string  `json:"ID" bson:"id"`
	Name        string  `json:"Name" bson:"name"`
	RelatedID   string  `json:"RelatedID" bson:"relatedId"`
	RelatedName string  `json:"RelatedName" bson:"relatedName"`
	Max         float64 `json:"Max" bson:"max"`
	Rated       float64 `json:"Rated" bson:"rated"`
	Ratio       float64 `json:"Ratio" bson:"ratio"`
}

// Association kinds.
const (
	SwitchTransformer = "switch-transformer"
	TransformerLine   = "transformer-line"
	SwitchLine        = "switch-line"
)

type AssociationRow struct {
	Feeder   string `json:"Feeder" bson:"feeder"`
	Kind     string `json:"Kind" bson:"kind"`
	FromID   string `json:"FromID" bson:"fromId"`
	FromName string `json:"FromName" bson:"fromName"`
	ToID     string `json:"ToID" bson:"toId"`
	ToName   string `json:"ToName" bson:"toName"`
}

// UnbalanceRow holds mean unbalance ratios of one transformer. Season is 1..4 or YearSeason.
type UnbalanceRow struct {
	Feeder   string  `json:"Feeder" bson:"feeder"`
	ID       string  `json:"ID" bson:"id"`
	Season   int     `json:"Season" bson:"season"`
	NegI     float64 `json:"NegI" bson:"negI"`
	ZeroI    float64 `json:"ZeroI" bson:"zeroI"`
	NegV     float64 `json:"NegV" bson:"negV"`
	ZeroV    float64 `json:"ZeroV" bson:"zeroV"`
	MinPhase string  `json:"MinPhase" bson:"minPhase"`
}

// PlacementRow is one season of a load placement request. Switch curves are in A,
// transformer curves and the load in kW.
type PlacementRow struct {
	Request           string    `json:"Request" bson:"request"`
	Feeder            string    `json:"Feeder" bson:"feeder"`
	Substation        string    `json:"Substation" bson:"substation"`
	Season            int       `json:"Season" bson:"season"`
	Created           time.Time `json:"Created" bson:"created"`
	Feasible          bool      `json:"Feasible" bson:"feasible"`
	LowVoltage        bool      `json:"LowVoltage" bson:"lowVoltage"`
	SwitchID          string    `json:"SwitchID" bson:"switchId"`
	SwitchName        string    `json:"SwitchName" bson:"switchName"`
	SwitchMean        float64   `json:"SwitchMean" bson:"switchMean"`
	SwitchMin         float64   `json:"SwitchMin" bson:"switchMin"`
	SwitchRatedI      float64   `json:"SwitchRatedI" bson:"switchRatedI"`
	SecondID          string    `json:"SecondID" bson:"secondId"`
	SecondName        string    `json:"SecondName" bson:"secondName"`
	SecondMean        float64   `json:"SecondMean" bson:"secondMean"`
	SecondMin         float64   `json:"SecondMin" bson:"secondMin"`
	TransformerID     string    `json:"TransformerID" bson:"transformerId"`
	TransformerName   string    `json:"TransformerName" bson:"transformerName"`
	TransformerRated  float64   `json:"TransformerRated" bson:"transformerRated"`
	Phase             string    `json:"Phase" bson:"phase"`
	Load              []float64 `json:"Load" bson:"load"`
	LoadI             []float64 `json:"LoadI" bson:"loadI"`
	SwitchBefore      []float64 `json:"SwitchBefore" bson:"switchBefore"`
	SwitchAfter       []float64 `json:"SwitchAfter" bson:"switchAfter"`
	TransformerBefore []float64 `json:"TransformerBefore" bson:"transformerBefore"`
	TransformerAfter  []float64 `json:"TransformerAfter" bson:"transformerAfter"`
}

// Key identifies the record a row describes within one run. Season is 0 for rows that
// are not seasonal.
type Key struct {
	Feeder string `json:"Feeder" bson:"feeder"`
	Device string `json:"Device" bson:"device"`
	Season int    `json:"Season" bson:"season"`
}

// Row is a flattened result record.
type Row interface {
	Key() Key
}

func (r CapacityRow) Key() Key  { return Key{r.Feeder, r.ID, r.Season} }
func (r RatingRow) Key() Key    { return Key{r.Feeder, r.ID, 0} }
func (r UnbalanceRow) Key() Key { return Key{r.Feeder, r.ID, r.Season} }
func (r PlacementRow) Key() Key { return Key{r.Feeder, r.Request, r.Season} }

// Warnings are keyed by kind, device and related device.
func (r WarningRow) Key() Key {
	return Key{r.Feeder, r.Kind + ":" + r.ID + ":" + r.RelatedID, 0}
}

func (r AssociationRow) Key() Key {
	return Key{r.Feeder, r.Kind + ":" + r.FromID + ":" + r.ToID, 0}
}

// CapacityRows lists the propagated capacity of every candidate switch.
func (r *Result) CapacityRows() []CapacityRow {
	rows := make([]CapacityRow, 0, len(r.Candidates)*capacity.SeasonCount)
	for _, c := range r.Candidates {
		for s := 0; s < capacity.SeasonCount; s++ {
			rows = append(rows, CapacityRow{
				Feeder: r.Feeder.ID,
				ID:     c.Switch.ID,
				Name:   c.Switch.Name,
				Season: s + 1,
				Curve:  c.Capacity[s],
			})
		}
	}
	return rows
}

func (r *Result) RatingRows() []RatingRow {
	edges := r.Feeder.Graph.Edges()
	rows := make([]RatingRow, 0, len(edges))
	for _, e := range edges {
		rows = append(rows, RatingRow{
			Feeder: r.Feeder.ID,
			ID:     e.ID(),
			Name:   e.Name(),
			RatedI: e.LimI,
			Class:  int(e.Class),
		})
	}
	return rows
}

func (r *Result) WarningRows() []WarningRow {
	rows := make([]WarningRow, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		rows = append(rows, WarningRow{
			Feeder:      r.Feeder.ID,
			Substation:  r.Feeder.Substation,
			Level:       int(w.Level),
			Kind:        string(w.Kind),
			ID:          w.Device.ID,
			Name:        w.Device.Name,
			RelatedID:   w.Related.ID,
			RelatedName: w.Related.Name,
			Max:         w.Max,
			Rated:       w.Rated,
			Ratio:       w.Ratio,
		})
	}
	return rows
}

func (r *Result) AssociationRows() []AssociationRow {
	rows := make([]AssociationRow, 0)
	add := func(kind string, pairs []association.Pair) {
		for _, p := range pairs {
			rows = append(rows, AssociationRow{
				Feeder:   r.Feeder.ID,
				Kind:     kind,
				FromID:   p.From.ID,
				FromName: p.From.Name,
				ToID:     p.To.ID,
				ToName:   p.To.Name,
			})
		}
	}
	add(SwitchTransformer, r.Associations.SwitchTransformer)
	add(TransformerLine, r.Associations.TransformerLine)
	add(SwitchLine, r.Associations.SwitchLine)
	return rows
}

func unbalanceRows(feeder string, hist History) []UnbalanceRow {
	rows := make([]UnbalanceRow, 0)
	for _, tf := range hist.TransformerRefs() {
		for s := 0; s < capacity.SeasonCount; s++ {
			p := hist.Profile(tf.ID, s)
			if p.Samples == 0 {
				continue
			}
			rows = append(rows, unbalanceRow(feeder, tf.ID, s+1, p))
		}
		if year := hist.YearProfile(tf.ID); year.Samples > 0 {
			rows = append(rows, unbalanceRow(feeder, tf.ID, YearSeason, year))
		}
	}
	return rows
}

func unbalanceRow(feeder, id string, season int, p symcomp.Profile) UnbalanceRow {
	return UnbalanceRow{
		Feeder:   feeder,
		ID:       id,
		Season:   season,
		NegI:     p.NegI,
		ZeroI:    p.ZeroI,
		NegV:     p.NegV,
		ZeroV:    p.ZeroV,
		MinPhase: p.MinPhase.String(),
	}
}

// Messages wraps every result row in a message from the run.
func (r *Result) Messages() []msg.Msg {
	msgs := make([]msg.Msg, 0)
	for _, row := range r.CapacityRows() {
		msgs = append(msgs, msg.New(r.PID, msg.Capacity, row))
	}
	for _, row := range r.RatingRows() {
		msgs = append(msgs, msg.New(r.PID, msg.Rating, row))
	}
	for _, row := range r.WarningRows() {
		msgs = append(msgs, msg.New(r.PID, msg.Warning, row))
	}
	for _, row := range r.AssociationRows() {
		msgs = append(msgs, msg.New(r.PID, msg.Association, row))
	}
	for _, row := range r.Unbalance {
		msgs = append(msgs, msg.New(r.PID, msg.Unbalance, row))
	}
	return msgs
}

// PlacementRows flattens a placement into one row per season.
func (r *Result) PlacementRows(p loadpos.Placement, created time.Time) []PlacementRow {
	rows := make([]PlacementRow, 0, capacity.SeasonCount)
	for _, s := range p.Seasons {
		row := PlacementRow{
			Request:    p.Request.ID.String(),
			Feeder:     r.Feeder.ID,
			Substation: r.Feeder.Substation,
			Season:     s.Season,
			Created:    created,
			Feasible:   s.Feasible,
			LowVoltage: s.LowVoltage,
			Load:       p.Request.Load,
			LoadI:      p.LoadI,
		}
		if s.Primary != nil {
			row.SwitchID = s.Primary.Switch.ID
			row.SwitchName = s.Primary.Switch.Name
			row.SwitchMean = s.Primary.Mean
			row.SwitchMin = s.Primary.Min
			row.SwitchRatedI = s.Primary.RatedI
			row.SwitchBefore = s.SwitchBefore
			row.SwitchAfter = s.SwitchAfter
		}
		if s.Secondary != nil {
			row.SecondID = s.Secondary.Switch.ID
			row.SecondName = s.Secondary.Switch.Name
			row.SecondMean = s.Secondary.Mean
			row.SecondMin = s.Secondary.Min
		}
		if s.LowVoltage {
			row.TransformerID = s.Transformer.ID
			row.TransformerName = s.Transformer.Name
			row.TransformerRated = s.TransformerRated
			row.Phase = s.Phase.String()
			row.TransformerBefore = s.TransformerBefore
			row.TransformerAfter = s.TransformerAfter
		}
		rows = append(rows, row)
	}
	return rows
}

// PlacementMessages wraps a placement in one message per season.
func (r *Result) PlacementMessages(p loadpos.Placement) []msg.Msg {
	msgs := make([]msg.Msg, 0, capacity.SeasonCount)
	for _, row := range r.PlacementRows(p, time.Now()) {
		msgs = append(msgs, msg.New(r.PID, msg.Placement, row))
	}
	return msgs
}
