package dynamics

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// MeanReversion parameterizes the pullback kappa*(theta - x) applied to
// a credit factor's drift.
type MeanReversion struct {
	Kappa float64
	Theta float64
}

// CreditOverlay decorates a Parametric provider with mean-reverting,
// state-dependent drift on selected credit factors. It wraps rather
// than embeds the base: a state-dependent drift has no closed-form
// transition, so the overlay must not satisfy the exact-scheme
// interface.
type CreditOverlay struct {
	base *Parametric

	mu sync.RWMutex
	mr map[int]MeanReversion

	version atomic.Uint64
}

// NewCreditOverlay wires mean reversion onto the base provider's credit
// factors. Every index in mr must name a credit factor of base.
func NewCreditOverlay(base *Parametric, mr map[int]MeanReversion) (*CreditOverlay, error) {
	if base == nil {
		return nil, fmt.Errorf("dynamics: nil base provider: %w", ErrFactor)
	}
	if len(mr) == 0 {
		return nil, fmt.Errorf("dynamics: overlay with no mean reversion: %w", ErrFactor)
	}
	for i, m := range mr {
		if i < 0 || i >= base.Size() {
			return nil, fmt.Errorf("dynamics: overlay index %d of %d: %w", i, base.Size(), ErrIndex)
		}
		if f := base.Factor(i); f.Kind != KindCredit {
			return nil, fmt.Errorf("dynamics: overlay on %s factor %q: %w", f.Kind, f.Name, ErrFactor)
		}
		if m.Kappa < 0 {
			return nil, fmt.Errorf("dynamics: negative reversion speed %v: %w", m.Kappa, ErrFactor)
		}
	}
	o := &CreditOverlay{base: base, mr: make(map[int]MeanReversion, len(mr))}
	for i, m := range mr {
		o.mr[i] = m
	}
	return o, nil
}

func (o *CreditOverlay) Size() int { return o.base.Size() }

func (o *CreditOverlay) Factor(i int) Factor { return o.base.Factor(i) }

func (o *CreditOverlay) InitialValue(i int) float64 { return o.base.InitialValue(i) }

// Drift is the base drift with kappa*(theta - x_i) replacing the credit
// components under overlay.
func (o *CreditOverlay) Drift(t float64, x []float64) []float64 {
	mu := o.base.Drift(t, x)
	o.mu.RLock()
	defer o.mu.RUnlock()
	for i, m := range o.mr {
		if i < len(x) {
			mu[i] = m.Kappa * (m.Theta - x[i])
		}
	}
	return mu
}

func (o *CreditOverlay) Volatility(i int, t float64) float64 { return o.base.Volatility(i, t) }

func (o *CreditOverlay) Correlation(i, j int, t float64) float64 { return o.base.Correlation(i, j, t) }

// Version folds the base counter into the overlay's own, so a mutation
// on either side invalidates dependent caches.
func (o *CreditOverlay) Version() uint64 { return o.base.Version() + o.version.Load() }

// SetMeanReversion updates one factor's pullback and bumps the version.
func (o *CreditOverlay) SetMeanReversion(i int, m MeanReversion) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.mr[i]; !ok {
		return fmt.Errorf("dynamics: factor %d has no overlay: %w", i, ErrIndex)
	}
	if m.Kappa < 0 {
		return fmt.Errorf("dynamics: negative reversion speed %v: %w", m.Kappa, ErrFactor)
	}
	o.mr[i] = m
	o.version.Add(1)
	return nil
}
