package evolve

import (
	"errors"
	"fmt"
	"math"
)

// ErrGrid reports an unusable time grid.
var ErrGrid = errors.New("evolve: invalid grid")

// Grid is a fixed simulation time axis starting at zero. The same Grid
// value must be shared across all paths of a run.
type Grid struct {
	times []float64
}

// Regular builds a grid of the given horizon with uniform steps.
func Regular(horizon float64, steps int) (Grid, error) {
	if steps < 1 {
		return Grid{}, fmt.Errorf("%w: %d steps", ErrGrid, steps)
	}
	if horizon <= 0 || math.IsNaN(horizon) || math.IsInf(horizon, 0) {
		return Grid{}, fmt.Errorf("%w: horizon %v", ErrGrid, horizon)
	}
	ts := make([]float64, steps+1)
	for i := range ts {
		ts[i] = horizon * float64(i) / float64(steps)
	}
	return Grid{times: ts}, nil
}

// FromTimes builds a grid from explicit points, which must start at zero
// and strictly ascend.
func FromTimes(ts []float64) (Grid, error) {
	if len(ts) < 2 {
		return Grid{}, fmt.Errorf("%w: need at least two points", ErrGrid)
	}
	if ts[0] != 0 {
		return Grid{}, fmt.Errorf("%w: starts at %v", ErrGrid, ts[0])
	}
	for i, t := range ts {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return Grid{}, fmt.Errorf("%w: point %d is %v", ErrGrid, i, t)
		}
		if i > 0 && t <= ts[i-1] {
			return Grid{}, fmt.Errorf("%w: not ascending at %d", ErrGrid, i)
		}
	}
	out := make([]float64, len(ts))
	copy(out, ts)
	return Grid{times: out}, nil
}

// Steps returns the number of evolution steps.
func (g Grid) Steps() int { return len(g.times) - 1 }

// Horizon returns the final grid time.
func (g Grid) Horizon() float64 { return g.times[len(g.times)-1] }

// Times returns the grid points. Read-only.
func (g Grid) Times() []float64 { return g.times }

// T returns grid point i.
func (g Grid) T(i int) float64 { return g.times[i] }

// Dt returns the length of step i.
func (g Grid) Dt(i int) float64 { return g.times[i+1] - g.times[i] }
