// Package symcomp computes three-phase unbalance from symmetrical components.
package symcomp

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/cmplxs"
	"gonum.org/v1/gonum/floats"
)

// Epsilon bounds the summed phasor magnitude below which a sample is treated as empty.
const Epsilon = 1e-8

var (
	a  = cmplx.Rect(1, 2*math.Pi/3)
	a2 = cmplx.Rect(1, 4*math.Pi/3)

	positive = []complex128{1, a, a2}
	negative = []complex128{1, a2, a}
	zero     = []complex128{1, 1, 1}
)

// Phase identifies one of the three phases.
type Phase int

const (
	PhaseA Phase = iota
	PhaseB
	PhaseC
)

func (p Phase) String() string {
	switch p {
	case PhaseA:
		return "A"
	case PhaseB:
		return "B"
	case PhaseC:
		return "C"
	default:
		return "?"
	}
}

// Sequences returns the positive, negative and zero sequence magnitudes of fa, fb, fc.
func Sequences(fa, fb, fc complex128) (pos, neg, zer float64) {
	f := []complex128{fa, fb, fc}
	return sequence(positive, f), sequence(negative, f), sequence(zero, f)
}

func sequence(weights, f []complex128) float64 {
	dst := make([]complex128, len(f))
	cmplxs.MulTo(dst, weights, f)
	return cmplx.Abs(cmplxs.Sum(dst) / 3)
}

// Unbalance returns the negative and zero sequence unbalance ratios, both relative to
// the positive sequence. Empty samples and samples with no positive sequence return (0, 0).
func Unbalance(fa, fb, fc complex128) (neg, zer float64) {
	if cmplxs.Norm([]complex128{fa, fb, fc}, 1) < Epsilon {
		return 0, 0
	}
	pos, n, z := Sequences(fa, fb, fc)
	if pos < Epsilon {
		return 0, 0
	}
	return n / pos, z / pos
}

// FromMagnitudes builds phasors from RMS phase magnitudes assuming ideal 120 degree spacing.
func FromMagnitudes(ma, mb, mc float64) (complex128, complex128, complex128) {
	return complex(ma, 0), complex(mb, 0) * a2, complex(mc, 0) * a
}

// MinPhase returns the phase with the smallest value. The first minimum wins.
func MinPhase(va, vb, vc float64) Phase {
	return Phase(floats.MinIdx([]float64{va, vb, vc}))
}

// Sample is one three-phase meter reading.
type Sample struct {
	Ia, Ib, Ic float64
	Ua, Ub, Uc float64
}

// Profile summarizes a season of samples.
type Profile struct {
	NegI, ZeroI float64
	NegV, ZeroV float64
	MaxNegI     float64
	MaxNegV     float64
	MeanI       [3]float64
	MinPhase    Phase
	Samples     int
}

// SeasonProfile averages per-sample unbalance over samples and picks the phase carrying
// the smallest mean current.
func SeasonProfile(samples []Sample) Profile {
	p := Profile{Samples: len(samples)}
	if len(samples) == 0 {
		return p
	}

	for _, s := range samples {
		ni, zi := Unbalance(FromMagnitudes(s.Ia, s.Ib, s.Ic))
		nv, zv := Unbalance(FromMagnitudes(s.Ua, s.Ub, s.Uc))
		p.NegI += ni
		p.ZeroI += zi
		p.NegV += nv
		p.ZeroV += zv
		p.MaxNegI = math.Max(p.MaxNegI, ni)
		p.MaxNegV = math.Max(p.MaxNegV, nv)
		p.MeanI[0] += s.Ia
		p.MeanI[1] += s.Ib
		p.MeanI[2] += s.Ic
	}

	n := float64(len(samples))
	p.NegI /= n
	p.ZeroI /= n
	p.NegV /= n
	p.ZeroV /= n
	floats.Scale(1/n, p.MeanI[:])
	p.MinPhase = MinPhase(p.MeanI[0], p.MeanI[1], p.MeanI[2])
	return p
}

// YearProfile averages the seasons that carried samples.
func YearProfile(seasons []Profile) Profile {
	year := Profile{}
	count := 0.0
	for _, s := range seasons {
		if s.Samples == 0 {
			continue
		}
		count++
		year.Samples += s.Samples
		year.NegI += s.NegI
		year.ZeroI += s.ZeroI
		year.NegV += s.NegV
		year.ZeroV += s.ZeroV
		year.MaxNegI = math.Max(year.MaxNegI, s.MaxNegI)
		year.MaxNegV = math.Max(year.MaxNegV, s.MaxNegV)
		floats.Add(year.MeanI[:], s.MeanI[:])
	}
	if count == 0 {
		return year
	}
	year.NegI /= count
	year.ZeroI /= count
	year.NegV /= count
	year.ZeroV /= count
	floats.Scale(1/count, year.MeanI[:])
	year.MinPhase = MinPhase(year.MeanI[0], year.MeanI[1], year.MeanI[2])
	return year
}
