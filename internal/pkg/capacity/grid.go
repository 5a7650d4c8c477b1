// Package capacity computes per-edge seasonal ampacity margins and folds them into
// bottleneck capacities along the feeder.
package capacity

import (
	"gonum.org/v1/gonum/floats"
)

// SeasonCount is the number of season buckets. Seasons are indexed 0..3 in code and
// labelled 1..4 in every external record.
const SeasonCount = 4

// Grid holds one day curve per season.
type Grid [SeasonCount][]float64

func NewGrid(points int) Grid {
	g := Grid{}
	for s := range g {
		g[s] = make([]float64, points)
	}
	return g
}

// FillGrid returns a grid with every cell set to v.
func FillGrid(points int, v float64) Grid {
	g := NewGrid(points)
	for s := range g {
		for i := range g[s] {
			g[s][i] = v
		}
	}
	return g
}

func (g Grid) Clone() Grid {
	c := Grid{}
	for s := range g {
		c[s] = make([]float64, len(g[s]))
		copy(c[s], g[s])
	}
	return c
}

// Mean of a season's curve. Empty curves report 0.
func (g Grid) Mean(season int) float64 {
	if len(g[season]) == 0 {
		return 0
	}
	return floats.Sum(g[season]) / float64(len(g[season]))
}

// Min of a season's curve. Empty curves report 0.
func (g Grid) Min(season int) float64 {
	if len(g[season]) == 0 {
		return 0
	}
	return floats.Min(g[season])
}

// MinInto lowers every cell of g to the matching cell of o.
func (g Grid) MinInto(o Grid) {
	for s := range g {
		for i := range g[s] {
			if i < len(o[s]) && o[s][i] < g[s][i] {
				g[s][i] = o[s][i]
			}
		}
	}
}

// Below reports whether every cell of g is at or below the matching cell of o.
func (g Grid) Below(o Grid) bool {
	for s := range g {
		for i := range g[s] {
			if i >= len(o[s]) || g[s][i] > o[s][i] {
				return false
			}
		}
	}
	return true
}

// YearMean averages the seasonal means.
func (g Grid) YearMean() float64 {
	sum := 0.0
	for s := range g {
		sum += g.Mean(s)
	}
	return sum / SeasonCount
}

// Curve normalizes v to n points. Missing tails read as zeros and extra points are cut.
func Curve(v []float64, n int) []float64 {
	c := make([]float64, n)
	copy(c, v)
	return c
}
