package suite

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/quantfall/xasim/internal/evolve"
	"github.com/quantfall/xasim/internal/scenario"
)

// corrSweeper is the mutable-correlation surface a sweep needs. The
// plain parametric provider has it; overlays that hide mutation do not.
type corrSweeper interface {
	Correlations() *mat.SymDense
	SetCorrelation(*mat.SymDense) error
}

// CorrSweep varies one correlation entry across a range and reruns the
// scenario at each value. Every point reuses the same seeds, so the
// differences between points come from the correlation alone.
type CorrSweep struct {
	First  string
	Second string
	Min    float64
	Max    float64
	Points int
}

// SweepPoint holds the realized terminal statistics at one input
// correlation value. RealizedCorr is the sample correlation of the two
// swept factors' terminal values; under salvaging it can sit well away
// from the input.
type SweepPoint struct {
	Value        float64
	RealizedCorr float64
	Std          []float64
}

// RunCorrSweep executes the sweep. The provider is mutated in place
// between points; caches are flushed each time.
func RunCorrSweep(ctx context.Context, cfg *scenario.Config, sw *CorrSweep) ([]SweepPoint, error) {
	if sw.Points < 2 {
		return nil, fmt.Errorf("%w: sweep needs at least 2 points", ErrSuite)
	}
	if sw.Min < -1 || sw.Max > 1 || sw.Min >= sw.Max {
		return nil, fmt.Errorf("%w: sweep range [%g, %g]", ErrSuite, sw.Min, sw.Max)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	i := factorIndex(cfg, sw.First)
	j := factorIndex(cfg, sw.Second)
	if i < 0 || j < 0 || i == j {
		return nil, fmt.Errorf("%w: sweep pair %q, %q", ErrSuite, sw.First, sw.Second)
	}

	prov, proc, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	setter, ok := prov.(corrSweeper)
	if !ok {
		return nil, fmt.Errorf("%w: provider does not support correlation updates", ErrSuite)
	}
	g, err := cfg.Grid()
	if err != nil {
		return nil, err
	}
	en, err := evolve.NewEnsemble(evolve.NewEngine(proc), cfg.Paths, cfg.Seed)
	if err != nil {
		return nil, err
	}
	if cfg.Workers > 0 {
		en = en.WithWorkers(cfg.Workers)
	}

	step := (sw.Max - sw.Min) / float64(sw.Points-1)
	points := make([]SweepPoint, 0, sw.Points)

	for k := 0; k < sw.Points; k++ {
		v := sw.Min + float64(k)*step

		corr := setter.Correlations()
		corr.SetSym(i, j, v)
		if err := setter.SetCorrelation(corr); err != nil {
			return points, fmt.Errorf("value %g: %w", v, err)
		}
		proc.FlushCache()

		batch, err := en.Run(ctx, g)
		if err != nil {
			return points, fmt.Errorf("value %g: %w", v, err)
		}

		stds := make([]float64, len(cfg.Factors))
		for f := range cfg.Factors {
			stds[f] = stat.StdDev(batch.Terminal(f), nil)
		}
		points = append(points, SweepPoint{
			Value:        v,
			RealizedCorr: stat.Correlation(batch.Terminal(i), batch.Terminal(j), nil),
			Std:          stds,
		})
	}

	return points, nil
}

func factorIndex(cfg *scenario.Config, name string) int {
	for i, f := range cfg.Factors {
		if f.Name == name {
			return i
		}
	}
	return -1
}
