package stats

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/quantfall/xasim/internal/evolve"
)

var (
	ErrEmpty = errors.New("stats: empty batch")
	ErrRange = errors.New("stats: argument out of range")
)

// DefaultProbs are the quantile levels used for fan charts.
var DefaultProbs = []float64{0.05, 0.25, 0.5, 0.75, 0.95}

// Fan holds per-step quantile bands of one factor across a batch.
// Bands[j][i] is the Probs[j] quantile at grid step i.
type Fan struct {
	Factor int
	Times  []float64
	Probs  []float64
	Bands  [][]float64
}

// GenerateFan computes quantile bands of one factor at every grid step.
func GenerateFan(b *evolve.Batch, factor int, probs []float64) (*Fan, error) {
	if err := checkBatch(b, factor); err != nil {
		return nil, err
	}
	if err := checkProbs(probs); err != nil {
		return nil, err
	}

	steps := len(b.Grid.Times())
	fan := &Fan{
		Factor: factor,
		Times:  b.Grid.Times(),
		Probs:  probs,
		Bands:  make([][]float64, len(probs)),
	}
	for j := range fan.Bands {
		fan.Bands[j] = make([]float64, steps)
	}

	for i := 0; i < steps; i++ {
		vals := b.Slice(i, factor)
		sort.Float64s(vals)
		for j, p := range probs {
			fan.Bands[j][i] = stat.Quantile(p, stat.Empirical, vals, nil)
		}
	}
	return fan, nil
}

// Summary describes the terminal distribution of one factor.
type Summary struct {
	Factor    int
	Mean      float64
	Std       float64
	Min       float64
	Max       float64
	Probs     []float64
	Quantiles []float64
}

// TerminalSummary computes moments and quantiles of one factor's
// terminal values.
func TerminalSummary(b *evolve.Batch, factor int, probs []float64) (*Summary, error) {
	if err := checkBatch(b, factor); err != nil {
		return nil, err
	}
	if err := checkProbs(probs); err != nil {
		return nil, err
	}

	vals := b.Terminal(factor)
	sort.Float64s(vals)

	s := &Summary{
		Factor:    factor,
		Mean:      stat.Mean(vals, nil),
		Std:       stat.StdDev(vals, nil),
		Min:       vals[0],
		Max:       vals[len(vals)-1],
		Probs:     probs,
		Quantiles: make([]float64, len(probs)),
	}
	for j, p := range probs {
		s.Quantiles[j] = stat.Quantile(p, stat.Empirical, vals, nil)
	}
	return s, nil
}

// MeanPath computes the per-step mean of one factor across a batch.
func MeanPath(b *evolve.Batch, factor int) ([]float64, error) {
	if err := checkBatch(b, factor); err != nil {
		return nil, err
	}
	steps := len(b.Grid.Times())
	out := make([]float64, steps)
	for i := 0; i < steps; i++ {
		out[i] = stat.Mean(b.Slice(i, factor), nil)
	}
	return out, nil
}

// IncrementCovariance estimates the sample covariance of the one-step
// increments over the given grid step across all paths of a batch.
func IncrementCovariance(b *evolve.Batch, step int) (*mat.SymDense, error) {
	if b == nil || len(b.Paths) == 0 {
		return nil, ErrEmpty
	}
	if step < 0 || step >= b.Grid.Steps() {
		return nil, fmt.Errorf("%w: step %d", ErrRange, step)
	}

	n := len(b.Paths[0].States[0])
	incs := make([][]float64, n)
	for i := 0; i < n; i++ {
		incs[i] = make([]float64, len(b.Paths))
		for k, p := range b.Paths {
			incs[i][k] = p.States[step+1][i] - p.States[step][i]
		}
	}

	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cov.SetSym(i, j, stat.Covariance(incs[i], incs[j], nil))
		}
	}
	return cov, nil
}

func checkBatch(b *evolve.Batch, factor int) error {
	if b == nil || len(b.Paths) == 0 {
		return ErrEmpty
	}
	if factor < 0 || factor >= len(b.Paths[0].States[0]) {
		return fmt.Errorf("%w: factor %d", ErrRange, factor)
	}
	return nil
}

func checkProbs(probs []float64) error {
	if len(probs) == 0 {
		return fmt.Errorf("%w: no quantile levels", ErrRange)
	}
	for j, p := range probs {
		if p < 0 || p > 1 {
			return fmt.Errorf("%w: probability %v", ErrRange, p)
		}
		if j > 0 && p <= probs[j-1] {
			return fmt.Errorf("%w: probabilities not ascending", ErrRange)
		}
	}
	return nil
}
