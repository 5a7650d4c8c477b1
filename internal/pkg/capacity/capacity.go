package capacity

import (
	"log"

	"github.com/ohowland/feedercap/internal/pkg/topology"
)

// History supplies seasonal per-slot maxima. Missing series may be nil or short; they
// read as zero current.
type History interface {
	MainLineMax(season int) []float64
	DeviceMax(id string, season int) []float64
}

type Calculator struct {
	cfg Config
}

func NewCalculator(cfg Config) *Calculator {
	if cfg.PointNum <= 0 {
		cfg.PointNum = DefaultConfig().PointNum
	}
	return &Calculator{cfg: cfg}
}

func (c *Calculator) Config() Config {
	return c.cfg
}

// MainMargin is the headroom of the main line: rated limit derated per season, less the
// historical three-phase maximum.
func (c *Calculator) MainMargin(main *topology.Edge, hist History) Grid {
	m := NewGrid(c.cfg.PointNum)
	if main == nil {
		return FillGrid(c.cfg.PointNum, topology.Unrated)
	}
	for s := 0; s < SeasonCount; s++ {
		limit := main.LimI * c.cfg.Factor(main.Class, s)
		load := Curve(hist.MainLineMax(s), c.cfg.PointNum)
		for i := range m[s] {
			m[s][i] = limit - load[i]
		}
	}
	return m
}

// Margins returns the local margin grid of every edge, indexed by edge index. The main
// line edge carries the main margin. Every other edge is capped by the main margin and
// by each composing device's derated limit less its historical maximum.
func (c *Calculator) Margins(g *topology.Graph, main *topology.Edge, hist History) []Grid {
	mainMargin := c.MainMargin(main, hist)
	margins := make([]Grid, g.EdgeCount())

	for _, e := range g.Edges() {
		m := mainMargin.Clone()
		margins[e.Index] = m
		if main != nil && e.Index == main.Index {
			continue
		}
		for s := 0; s < SeasonCount; s++ {
			limit := e.LimI * c.cfg.Factor(e.Class, s)
			for _, d := range e.Devices {
				load := Curve(hist.DeviceMax(d.ID, s), c.cfg.PointNum)
				for i := range m[s] {
					if v := limit - load[i]; v < m[s][i] {
						m[s][i] = v
					}
				}
			}
		}
	}
	return margins
}

// Propagate folds margins along the rooted tree: each edge ends up with the cellwise
// minimum of its own margin and the propagated capacity of every ancestor edge.
// Edges unreachable from source keep their local margin.
func (c *Calculator) Propagate(g *topology.Graph, source string, margins []Grid) ([]Grid, error) {
	capacity := make([]Grid, len(margins))
	for i, m := range margins {
		capacity[i] = m.Clone()
	}

	err := topology.Walk(g, source, topology.Visitor{
		Descend: func(e *topology.Edge, _ *topology.Node, path []*topology.Edge) {
			cur := capacity[e.Index]
			for _, a := range path[:len(path)-1] {
				cur.MinInto(capacity[a.Index])
			}
		},
	})
	if err != nil {
		log.Printf("[Capacity] propagation aborted: %v", err)
		return nil, err
	}
	return capacity, nil
}

// TransformerHeadroom converts a transformer's seasonal power maxima (W) into headroom
// in kW against its rated capacity (kVA).
func (c *Calculator) TransformerHeadroom(rated float64, seasonMax [SeasonCount][]float64) Grid {
	h := NewGrid(c.cfg.PointNum)
	for s := range h {
		p := Curve(seasonMax[s], c.cfg.PointNum)
		for i := range h[s] {
			h[s][i] = rated - p[i]/1000
		}
	}
	return h
}

// PhaseMax reduces three interleaved phase curves to the per-slot maximum.
func PhaseMax(a, b, c []float64, n int) []float64 {
	out := Curve(a, n)
	for _, p := range [][]float64{b, c} {
		p = Curve(p, n)
		for i := range out {
			if p[i] > out[i] {
				out[i] = p[i]
			}
		}
	}
	return out
}
