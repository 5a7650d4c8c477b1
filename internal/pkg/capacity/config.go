package capacity

import (
	"math"

	"github.com/ohowland/feedercap/internal/pkg/topology"
)

// Derating holds the seasonal multipliers applied to rated ampacity per conductor class.
type Derating struct {
	InsulatedSummer float64 `json:"InsulatedSummer"`
	InsulatedWinter float64 `json:"InsulatedWinter"`
	BareSummer      float64 `json:"BareSummer"`
	BareWinter      float64 `json:"BareWinter"`
}

// Config parameterizes margin computation.
type Config struct {
	PointNum      int      `json:"PointNum"`
	NominalKV     float64  `json:"NominalKV"`
	SummerSeasons []int    `json:"SummerSeasons"`
	Derating      Derating `json:"Derating"`
}

// DefaultConfig returns 96 slots on a 10 kV basis with seasons 2 and 3 derated as summer.
func DefaultConfig() Config {
	return Config{
		PointNum:      96,
		NominalKV:     10,
		SummerSeasons: []int{2, 3},
		Derating: Derating{
			InsulatedSummer: 1.09,
			InsulatedWinter: 1.52,
			BareSummer:      0.88,
			BareWinter:      1.15,
		},
	}
}

// Summer reports whether the 0-based season index takes the summer factor.
// SummerSeasons carries 1-based season labels.
func (c Config) Summer(season int) bool {
	for _, s := range c.SummerSeasons {
		if s == season+1 {
			return true
		}
	}
	return false
}

// Factor is the derating multiplier of class in the 0-based season.
func (c Config) Factor(class topology.Class, season int) float64 {
	summer := c.Summer(season)
	switch {
	case class == topology.Bare && summer:
		return c.Derating.BareSummer
	case class == topology.Bare:
		return c.Derating.BareWinter
	case summer:
		return c.Derating.InsulatedSummer
	default:
		return c.Derating.InsulatedWinter
	}
}

// Current converts three-phase power in kW to line current in A on the nominal basis.
func (c Config) Current(kw float64) float64 {
	return kw / (c.NominalKV * math.Sqrt(3))
}
