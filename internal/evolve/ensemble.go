package evolve

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
)

var ErrEnsemble = errors.New("evolve: invalid ensemble")

// Batch holds the paths of one ensemble run.
type Batch struct {
	Grid  Grid
	Paths []*Path
}

// Terminal collects the terminal value of one factor across all paths.
func (b *Batch) Terminal(factor int) []float64 {
	out := make([]float64, len(b.Paths))
	for k, p := range b.Paths {
		out[k] = p.Terminal()[factor]
	}
	return out
}

// Slice collects one factor at one grid step across all paths.
func (b *Batch) Slice(step, factor int) []float64 {
	out := make([]float64, len(b.Paths))
	for k, p := range b.Paths {
		out[k] = p.States[step][factor]
	}
	return out
}

// Ensemble runs many paths of one engine with consecutive seeds, so a
// run is reproducible from (seedBase, paths) alone.
type Ensemble struct {
	engine   *Engine
	paths    int
	seedBase uint64
	workers  int
}

func NewEnsemble(e *Engine, paths int, seedBase uint64) (*Ensemble, error) {
	if paths < 1 {
		return nil, fmt.Errorf("%w: paths %d", ErrEnsemble, paths)
	}
	return &Ensemble{
		engine:   e,
		paths:    paths,
		seedBase: seedBase,
		workers:  runtime.GOMAXPROCS(0),
	}, nil
}

// WithWorkers bounds the number of concurrently running paths.
func (en *Ensemble) WithWorkers(n int) *Ensemble {
	if n > 0 {
		en.workers = n
	}
	return en
}

// Run simulates all paths. Path k uses seed seedBase+k; the first
// failing path's error is returned.
func (en *Ensemble) Run(ctx context.Context, g Grid) (*Batch, error) {
	paths := make([]*Path, en.paths)
	errs := make([]error, en.paths)
	sem := make(chan struct{}, en.workers)

	var wg sync.WaitGroup
	for k := 0; k < en.paths; k++ {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			errs[k] = ctx.Err()
			continue
		}
		wg.Add(1)
		go func(k int) {
			defer wg.Done()
			defer func() { <-sem }()
			paths[k], errs[k] = en.engine.RunPath(ctx, g, en.seedBase+uint64(k))
		}(k)
	}
	wg.Wait()

	for k, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("path %d: %w", k, err)
		}
	}
	return &Batch{Grid: g, Paths: paths}, nil
}
