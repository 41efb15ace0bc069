package dynamics

import (
	"fmt"
	"math"
	"sort"
)

// VolCurve is a deterministic instantaneous volatility term structure.
type VolCurve interface {
	// Vol returns the instantaneous volatility at time t.
	Vol(t float64) float64

	// Breakpoints returns the curve's discontinuity times inside the
	// open interval (t0, t1), ascending. A smooth curve returns nil.
	Breakpoints(t0, t1 float64) []float64
}

// ConstVol is a flat volatility curve.
type ConstVol struct {
	sigma float64
}

// NewConstVol returns a flat curve at level sigma.
func NewConstVol(sigma float64) (ConstVol, error) {
	if sigma < 0 || math.IsNaN(sigma) || math.IsInf(sigma, 0) {
		return ConstVol{}, fmt.Errorf("dynamics: const vol %v: %w", sigma, ErrCurve)
	}
	return ConstVol{sigma: sigma}, nil
}

func (c ConstVol) Vol(t float64) float64 { return c.sigma }

func (c ConstVol) Breakpoints(t0, t1 float64) []float64 { return nil }

// PiecewiseConstVol is a right-continuous step curve: vols[k] applies on
// [times[k-1], times[k]) with times[-1] = -inf and vols[len(times)]
// applying from the last time onward.
type PiecewiseConstVol struct {
	times []float64
	vols  []float64
}

// NewPiecewiseConstVol builds a step curve from ascending switch times
// and len(times)+1 levels.
func NewPiecewiseConstVol(times, vols []float64) (*PiecewiseConstVol, error) {
	if len(vols) != len(times)+1 {
		return nil, fmt.Errorf("dynamics: %d times need %d vols, got %d: %w",
			len(times), len(times)+1, len(vols), ErrCurve)
	}
	for k, t := range times {
		if k > 0 && t <= times[k-1] {
			return nil, fmt.Errorf("dynamics: switch times not ascending at %d: %w", k, ErrCurve)
		}
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, fmt.Errorf("dynamics: switch time %v: %w", t, ErrCurve)
		}
	}
	for _, v := range vols {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("dynamics: vol level %v: %w", v, ErrCurve)
		}
	}
	p := &PiecewiseConstVol{
		times: append([]float64(nil), times...),
		vols:  append([]float64(nil), vols...),
	}
	return p, nil
}

func (p *PiecewiseConstVol) Vol(t float64) float64 {
	k := sort.SearchFloat64s(p.times, t)
	if k < len(p.times) && p.times[k] == t {
		k++
	}
	return p.vols[k]
}

func (p *PiecewiseConstVol) Breakpoints(t0, t1 float64) []float64 {
	lo := sort.SearchFloat64s(p.times, t0)
	if lo < len(p.times) && p.times[lo] == t0 {
		lo++
	}
	hi := sort.SearchFloat64s(p.times, t1)
	if lo >= hi {
		return nil
	}
	return p.times[lo:hi]
}

// productIntegral computes ∫ a(s)·b(s) ds over [t0, t1] exactly for
// piecewise-constant curves by splitting at the union of both curves'
// breakpoints and evaluating at subinterval midpoints.
func productIntegral(a, b VolCurve, t0, t1 float64) float64 {
	if t1 <= t0 {
		return 0
	}
	pts := mergeBreakpoints(a.Breakpoints(t0, t1), b.Breakpoints(t0, t1))
	sum := 0.0
	lo := t0
	for _, p := range pts {
		mid := 0.5 * (lo + p)
		sum += a.Vol(mid) * b.Vol(mid) * (p - lo)
		lo = p
	}
	mid := 0.5 * (lo + t1)
	sum += a.Vol(mid) * b.Vol(mid) * (t1 - lo)
	return sum
}

// mergeBreakpoints merges two ascending slices, dropping duplicates.
func mergeBreakpoints(a, b []float64) []float64 {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	out := make([]float64, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
