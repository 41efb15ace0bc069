package evolve

import (
	"context"
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/quantfall/xasim/internal/process"
)

// Path is one simulated trajectory. States[i] is the realization at
// Times[i]; Times aliases the grid and is read-only.
type Path struct {
	Times  []float64
	States []process.State
}

// Terminal returns the final state.
func (p *Path) Terminal() process.State {
	return p.States[len(p.States)-1]
}

// PathError wraps a failing step with its position on the grid.
type PathError struct {
	Step    int
	T       float64
	Wrapped error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.T, e.Wrapped)
}

func (e *PathError) Unwrap() error {
	return e.Wrapped
}

// Engine advances paths over one shared state process. Safe for
// concurrent use; all paths share the process's moment caches.
type Engine struct {
	proc  *process.StateProcess
	draws *drawPool
}

func NewEngine(p *process.StateProcess) *Engine {
	return &Engine{proc: p, draws: newDrawPool(p.Size())}
}

// Process returns the underlying state process.
func (e *Engine) Process() *process.StateProcess { return e.proc }

// RunPath simulates one path across g. The seed fully determines the
// path: innovations come from a dedicated PCG source.
func (e *Engine) RunPath(ctx context.Context, g Grid, seed uint64) (*Path, error) {
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(seed)}
	dw := e.draws.Get()
	defer e.draws.Put(dw)

	x := e.proc.InitialValues()
	path := &Path{
		Times:  g.Times(),
		States: make([]process.State, 0, g.Steps()+1),
	}
	path.States = append(path.States, x)

	for i := 0; i < g.Steps(); i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		for k := range dw {
			dw[k] = normal.Rand()
		}
		next, err := e.proc.Evolve(g.T(i), x, g.Dt(i), dw)
		if err != nil {
			return nil, &PathError{Step: i, T: g.T(i), Wrapped: err}
		}
		x = next
		path.States = append(path.States, x)
	}
	return path, nil
}

// RunPathWithCallback streams one path to fn step by step, stopping
// early without error when fn returns false.
func (e *Engine) RunPathWithCallback(ctx context.Context, g Grid, seed uint64, fn func(t float64, x process.State) bool) error {
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(seed)}
	dw := e.draws.Get()
	defer e.draws.Put(dw)

	x := e.proc.InitialValues()
	if !fn(g.T(0), x) {
		return nil
	}
	for i := 0; i < g.Steps(); i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		for k := range dw {
			dw[k] = normal.Rand()
		}
		next, err := e.proc.Evolve(g.T(i), x, g.Dt(i), dw)
		if err != nil {
			return &PathError{Step: i, T: g.T(i), Wrapped: err}
		}
		x = next
		if !fn(g.T(i+1), x) {
			return nil
		}
	}
	return nil
}
