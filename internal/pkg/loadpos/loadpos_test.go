package loadpos

import (
	"math"
	"testing"

	"github.com/ohowland/feedercap/internal/pkg/association"
	"github.com/ohowland/feedercap/internal/pkg/capacity"
	"github.com/ohowland/feedercap/internal/pkg/symcomp"
	"gotest.tools/v3/assert"
)

const points = 4

type fakeInputs struct {
	headroom map[string]capacity.Grid
	rated    map[string]float64
	phase    map[string]symcomp.Phase
}

func (f fakeInputs) SwitchShape(id string, season int) []float64 {
	return []float64{1, 2, 3, 4}
}

func (f fakeInputs) TransformerShape(id string, season int) []float64 {
	return []float64{10, 10, 10, 10}
}

func (f fakeInputs) TransformerHeadroom(id string) capacity.Grid {
	return f.headroom[id]
}

func (f fakeInputs) TransformerRated(id string) float64 {
	return f.rated[id]
}

func (f fakeInputs) MinPhase(id string, season int) symcomp.Phase {
	return f.phase[id]
}

type fakeDownstream map[string][]association.Ref

func (d fakeDownstream) TransformersOf(id string) []association.Ref {
	return d[id]
}

func testOptimizer() *Optimizer {
	cfg := capacity.DefaultConfig()
	cfg.PointNum = points
	return NewOptimizer(cfg)
}

func sw(id string, depth int, capacityPerSlot float64) Candidate {
	return Candidate{
		Switch:   association.Ref{ID: id, Name: id},
		Depth:    depth,
		Capacity: capacity.FillGrid(points, capacityPerSlot),
		RatedI:   400,
	}
}

func request(t *testing.T, kw float64) Request {
	load := make([]float64, points)
	for i := range load {
		load[i] = kw
	}
	req, err := NewRequest(load, points)
	assert.NilError(t, err)
	return req
}

func TestRejectBadLoadCurve(t *testing.T) {
	_, err := NewRequest([]float64{1, 2}, points)
	assert.ErrorIs(t, err, ErrBadLoadCurve)
}

func TestPrimaryAndSecondary(t *testing.T) {
	req := request(t, 0)
	p := testOptimizer().Place(req, []Candidate{sw("K15", 1, 7.5), sw("K20", 2, 10)}, fakeDownstream{}, fakeInputs{})

	for _, season := range p.Seasons {
		assert.Assert(t, season.Feasible)
		assert.Equal(t, season.Primary.Switch.ID, "K20")
		assert.Equal(t, season.Primary.Score(), 20.0)
		assert.Equal(t, season.Secondary.Switch.ID, "K15")
		assert.Equal(t, season.Secondary.Score(), 15.0)
		assert.Assert(t, !season.LowVoltage)
	}
	assert.Equal(t, p.Seasons[2].Season, 3)
}

func TestNegativeResidualDiscards(t *testing.T) {
	// 6 A on a 10 kV basis
	req := request(t, 6*10*math.Sqrt(3))
	c := sw("K1", 0, 100)
	c.Capacity[1][2] = 5

	p := testOptimizer().Place(req, []Candidate{c}, fakeDownstream{}, fakeInputs{})
	assert.Assert(t, p.Seasons[0].Feasible)
	assert.Assert(t, !p.Seasons[1].Feasible)
	assert.Assert(t, p.Seasons[1].Primary == nil)
	assert.Assert(t, math.Abs(p.LoadI[0]-6) < 1e-9)
}

func TestNeverSelectsNegativeSlot(t *testing.T) {
	req := request(t, 10*math.Sqrt(3))
	tight := sw("tight", 0, 50)
	tight.Capacity[0][3] = 0.5
	p := testOptimizer().Place(req, []Candidate{tight, sw("loose", 3, 2)}, fakeDownstream{}, fakeInputs{})

	assert.Equal(t, p.Seasons[0].Primary.Switch.ID, "loose")
	assert.Assert(t, p.Seasons[0].Secondary == nil)
	assert.Equal(t, p.Seasons[1].Primary.Switch.ID, "tight")
	assert.Equal(t, p.Seasons[1].Secondary.Switch.ID, "loose")
}

func TestTieBreakByDepth(t *testing.T) {
	var r ranking
	r.offer(Choice{Switch: association.Ref{ID: "A"}, Depth: 3, Mean: 10, Min: 10})
	r.offer(Choice{Switch: association.Ref{ID: "B"}, Depth: 1, Mean: 10, Min: 10})
	assert.Equal(t, r.best.Switch.ID, "B")
	assert.Equal(t, r.second.Switch.ID, "A")

	r.offer(Choice{Switch: association.Ref{ID: "C"}, Depth: 2, Mean: 10, Min: 10})
	assert.Equal(t, r.best.Switch.ID, "B")
	assert.Equal(t, r.second.Switch.ID, "C")

	r.offer(Choice{Switch: association.Ref{ID: "D"}, Depth: 2, Mean: 10, Min: 10})
	assert.Equal(t, r.second.Switch.ID, "C")

	r.offer(Choice{Switch: association.Ref{ID: "E"}, Depth: 5, Mean: 15, Min: 10})
	assert.Equal(t, r.best.Switch.ID, "E")
	assert.Equal(t, r.second.Switch.ID, "B")

	r.offer(Choice{Switch: association.Ref{ID: "F"}, Depth: 0, Mean: 12, Min: 10})
	assert.Equal(t, r.second.Switch.ID, "F")

	r.offer(Choice{Switch: association.Ref{ID: "G"}, Depth: 9, Mean: 1, Min: 1})
	assert.Equal(t, r.best.Switch.ID, "E")
	assert.Equal(t, r.second.Switch.ID, "F")
}

func TestEqualScoreLowerSecondIsReplaced(t *testing.T) {
	var r ranking
	r.offer(Choice{Switch: association.Ref{ID: "A"}, Depth: 1, Mean: 10, Min: 10})
	r.offer(Choice{Switch: association.Ref{ID: "B"}, Depth: 1, Mean: 5, Min: 5})
	r.offer(Choice{Switch: association.Ref{ID: "C"}, Depth: 4, Mean: 10, Min: 10})
	assert.Equal(t, r.best.Switch.ID, "A")
	assert.Equal(t, r.second.Switch.ID, "C")
}

func TestTransformerSelection(t *testing.T) {
	tight := capacity.FillGrid(points, 100)
	tight[0][1] = 1
	in := fakeInputs{
		headroom: map[string]capacity.Grid{
			"T1": capacity.FillGrid(points, 50),
			"T2": tight,
			"T3": capacity.FillGrid(points, 60),
		},
		rated: map[string]float64{"T1": 200, "T2": 400, "T3": 315},
		phase: map[string]symcomp.Phase{"T3": symcomp.PhaseB},
	}
	down := fakeDownstream{"K1": {{ID: "T1"}, {ID: "T2"}, {ID: "T3"}}}

	p := testOptimizer().Place(request(t, 20), []Candidate{sw("K1", 0, 100)}, down, in)

	winter := p.Seasons[0]
	assert.Assert(t, winter.LowVoltage)
	assert.Equal(t, winter.Transformer.ID, "T3")
	assert.Equal(t, winter.TransformerRated, 315.0)
	assert.Equal(t, winter.Phase, symcomp.PhaseB)
	assert.DeepEqual(t, winter.TransformerBefore, []float64{10, 10, 10, 10})
	assert.DeepEqual(t, winter.TransformerAfter, []float64{30, 30, 30, 30})
	assert.Equal(t, len(winter.SwitchAfter), points)
	assert.Assert(t, winter.SwitchAfter[3] > winter.SwitchBefore[3])

	// T2 is feasible outside season 1 and has the most headroom
	assert.Equal(t, p.Seasons[1].Transformer.ID, "T2")
}

func TestNoTransformerHeadroom(t *testing.T) {
	in := fakeInputs{
		headroom: map[string]capacity.Grid{"T1": capacity.FillGrid(points, 5)},
	}
	down := fakeDownstream{"K1": {{ID: "T1"}}}
	p := testOptimizer().Place(request(t, 20), []Candidate{sw("K1", 0, 100)}, down, in)

	for _, season := range p.Seasons {
		assert.Assert(t, season.Feasible)
		assert.Assert(t, !season.LowVoltage)
		assert.Equal(t, season.Primary.Switch.ID, "K1")
	}
}
