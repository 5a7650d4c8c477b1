// Package loadpos picks the connection point of a new load on a feeder.
package loadpos

import (
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/ohowland/feedercap/internal/pkg/association"
	"github.com/ohowland/feedercap/internal/pkg/capacity"
	"github.com/ohowland/feedercap/internal/pkg/symcomp"
	"gonum.org/v1/gonum/floats"
)

var ErrBadLoadCurve = errors.New("load curve does not match point count")

// Request is a new load curve in kW, one value per slot.
type Request struct {
	ID   uuid.UUID
	Load []float64
}

func NewRequest(load []float64, points int) (Request, error) {
	if len(load) != points {
		return Request{}, fmt.Errorf("got %d points, want %d: %w", len(load), points, ErrBadLoadCurve)
	}
	id, err := uuid.NewUUID()
	if err != nil {
		return Request{}, err
	}
	return Request{ID: id, Load: load}, nil
}

// Candidate is a switch the load may connect behind.
type Candidate struct {
	Switch   association.Ref
	Depth    int
	Capacity capacity.Grid
	RatedI   float64
}

// Inputs supplies seasonal shapes and transformer data. Seasons are 0-based.
type Inputs interface {
	SwitchShape(id string, season int) []float64
	TransformerShape(id string, season int) []float64
	TransformerHeadroom(id string) capacity.Grid
	TransformerRated(id string) float64
	MinPhase(id string, season int) symcomp.Phase
}

// Downstream resolves the transformers fed through a switch.
type Downstream interface {
	TransformersOf(id string) []association.Ref
}

// Choice is a ranked feasible switch with its post-insertion residual statistics.
type Choice struct {
	Switch association.Ref
	Depth  int
	Mean   float64
	Min    float64
	RatedI float64
}

func (c Choice) Score() float64 {
	return c.Mean + c.Min
}

// SeasonResult is the placement outcome of one season. Season is 1-based.
type SeasonResult struct {
	Season    int
	Primary   *Choice
	Secondary *Choice

	// Feasible is set when some switch can carry the load.
	Feasible bool
	// LowVoltage is set when a transformer behind the primary switch can carry the load.
	LowVoltage       bool
	Transformer      association.Ref
	TransformerRated float64
	Phase            symcomp.Phase

	SwitchBefore      []float64
	SwitchAfter       []float64
	TransformerBefore []float64
	TransformerAfter  []float64
}

type Placement struct {
	Request Request
	LoadI   []float64
	Seasons [capacity.SeasonCount]SeasonResult
}

type Optimizer struct {
	cfg capacity.Config
}

func NewOptimizer(cfg capacity.Config) *Optimizer {
	return &Optimizer{cfg: cfg}
}

// Place ranks candidates season by season.
func (o *Optimizer) Place(req Request, candidates []Candidate, down Downstream, in Inputs) Placement {
	n := o.cfg.PointNum
	loadI := make([]float64, n)
	for i, p := range capacity.Curve(req.Load, n) {
		loadI[i] = o.cfg.Current(p)
	}

	p := Placement{Request: req, LoadI: loadI}
	for s := 0; s < capacity.SeasonCount; s++ {
		p.Seasons[s] = o.season(s, req, loadI, candidates, down, in)
	}
	return p
}

func (o *Optimizer) season(s int, req Request, loadI []float64, candidates []Candidate, down Downstream, in Inputs) SeasonResult {
	n := o.cfg.PointNum
	result := SeasonResult{Season: s + 1}

	var r ranking
	for _, c := range candidates {
		choice, ok := residual(c, s, loadI)
		if !ok {
			continue
		}
		r.offer(choice)
	}
	if r.best == nil {
		log.Printf("[LoadPos] season %d: no feasible switch for request %v", s+1, req.ID)
		return result
	}

	result.Feasible = true
	result.Primary = r.best
	result.Secondary = r.second

	sw := r.best.Switch.ID
	result.SwitchBefore = capacity.Curve(in.SwitchShape(sw, s), n)
	result.SwitchAfter = make([]float64, n)
	floats.AddTo(result.SwitchAfter, result.SwitchBefore, loadI)

	load := capacity.Curve(req.Load, n)
	var (
		chosen association.Ref
		found  bool
		maxSum float64
	)
	for _, tf := range down.TransformersOf(sw) {
		headroom := capacity.Curve(in.TransformerHeadroom(tf.ID)[s], n)
		if !covers(headroom, load) {
			continue
		}
		sum := floats.Sum(headroom)
		if !found || sum > maxSum {
			chosen, maxSum, found = tf, sum, true
		}
	}
	if !found {
		log.Printf("[LoadPos] season %d: switch %v has no transformer with headroom", s+1, sw)
		return result
	}

	result.LowVoltage = true
	result.Transformer = chosen
	result.TransformerRated = in.TransformerRated(chosen.ID)
	result.Phase = in.MinPhase(chosen.ID, s)
	result.TransformerBefore = capacity.Curve(in.TransformerShape(chosen.ID, s), n)
	result.TransformerAfter = make([]float64, n)
	floats.AddTo(result.TransformerAfter, result.TransformerBefore, load)
	return result
}

// residual scores a candidate for one season. Any negative slot makes it infeasible.
func residual(c Candidate, s int, loadI []float64) (Choice, bool) {
	capc := c.Capacity[s]
	if len(capc) < len(loadI) {
		return Choice{}, false
	}
	res := make([]float64, len(loadI))
	floats.SubTo(res, capc[:len(loadI)], loadI)
	if len(res) == 0 || floats.Min(res) < 0 {
		return Choice{}, false
	}
	return Choice{
		Switch: c.Switch,
		Depth:  c.Depth,
		Mean:   floats.Sum(res) / float64(len(res)),
		Min:    floats.Min(res),
		RatedI: c.RatedI,
	}, true
}

func covers(headroom, load []float64) bool {
	for i := range load {
		if headroom[i] < load[i] {
			return false
		}
	}
	return true
}

// ranking keeps the best and second best choices.
type ranking struct {
	best   *Choice
	second *Choice
}

func (r *ranking) offer(c Choice) {
	switch {
	case r.best == nil:
		r.best = &c

	case c.Score() > r.best.Score():
		r.second = r.best
		r.best = &c

	case c.Score() == r.best.Score():
		// equal score: the shallower switch leads, the incumbent keeps ties on depth
		if c.Depth < r.best.Depth {
			r.second = r.best
			r.best = &c
			return
		}
		if r.second == nil || r.second.Score() < c.Score() || c.Depth < r.second.Depth {
			r.second = &c
		}

	default:
		if r.second == nil || c.Score() > r.second.Score() ||
			(c.Score() == r.second.Score() && c.Depth < r.second.Depth) {
			r.second = &c
		}
	}
}
