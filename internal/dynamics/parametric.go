package dynamics

import (
	"fmt"
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/mat"

	"github.com/quantfall/xasim/internal/psd"
)

// Parametric is a Provider with deterministic coefficients: one volatility
// curve per factor and a constant correlation matrix. Coefficients never
// depend on the state, so Parametric also satisfies IntegralProvider and
// can drive the exact scheme.
//
// Drift follows the factor kind under the log-relative representation:
// rate and credit factors are driftless, FX factors carry the martingale
// correction -sigma^2/2.
type Parametric struct {
	factors []Factor
	initial []float64

	mu   sync.RWMutex
	vols []VolCurve
	corr *mat.SymDense

	version atomic.Uint64
}

// NewParametric builds a provider from parallel factor and curve slices
// and a correlation matrix. The matrix is checked for shape and range
// only; positive semidefiniteness is the repair step's concern.
func NewParametric(factors []Factor, vols []VolCurve, corr *mat.SymDense) (*Parametric, error) {
	n := len(factors)
	if n == 0 {
		return nil, fmt.Errorf("dynamics: empty factor set: %w", ErrFactor)
	}
	if len(vols) != n {
		return nil, fmt.Errorf("dynamics: %d factors, %d vol curves: %w", n, len(vols), ErrFactor)
	}
	seen := make(map[string]bool, n)
	for i, f := range factors {
		if f.Name == "" {
			return nil, fmt.Errorf("dynamics: factor %d has no name: %w", i, ErrFactor)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("dynamics: duplicate factor %q: %w", f.Name, ErrFactor)
		}
		seen[f.Name] = true
		if vols[i] == nil {
			return nil, fmt.Errorf("dynamics: factor %q has no vol curve: %w", f.Name, ErrFactor)
		}
	}
	if corr == nil || corr.SymmetricDim() != n {
		return nil, fmt.Errorf("dynamics: correlation dimension: %w", ErrCorrelation)
	}
	if err := psd.ValidateCorrelation(corr, psd.DefaultTol); err != nil {
		return nil, fmt.Errorf("dynamics: %w: %w", ErrCorrelation, err)
	}
	p := &Parametric{
		factors: append([]Factor(nil), factors...),
		initial: make([]float64, n),
		vols:    append([]VolCurve(nil), vols...),
		corr:    mat.NewSymDense(n, nil),
	}
	p.corr.CopySym(corr)
	return p, nil
}

// SetInitialValues overrides the zero start state, for processes quoted
// in absolute rather than log-relative terms.
func (p *Parametric) SetInitialValues(x0 []float64) error {
	if len(x0) != len(p.initial) {
		return fmt.Errorf("dynamics: %d initial values for %d factors: %w",
			len(x0), len(p.initial), ErrFactor)
	}
	copy(p.initial, x0)
	p.version.Add(1)
	return nil
}

func (p *Parametric) Size() int { return len(p.factors) }

func (p *Parametric) Factor(i int) Factor { return p.factors[i] }

func (p *Parametric) InitialValue(i int) float64 { return p.initial[i] }

func (p *Parametric) Drift(t float64, x []float64) []float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	mu := make([]float64, len(p.factors))
	for i, f := range p.factors {
		if f.Kind == KindFX {
			s := p.vols[i].Vol(t)
			mu[i] = -0.5 * s * s
		}
	}
	return mu
}

func (p *Parametric) Volatility(i int, t float64) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.vols[i].Vol(t)
}

func (p *Parametric) Correlation(i, j int, t float64) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.corr.At(i, j)
}

func (p *Parametric) Version() uint64 { return p.version.Load() }

// CovarianceIntegral returns rho_ij * integral of sigma_i*sigma_j over
// [t0, t0+dt], exact for piecewise-constant curves.
func (p *Parametric) CovarianceIntegral(i, j int, t0, dt float64) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.corr.At(i, j) * productIntegral(p.vols[i], p.vols[j], t0, t0+dt)
}

// DriftIntegral returns the closed-form drift of factor i over [t0, t0+dt].
func (p *Parametric) DriftIntegral(i int, t0, dt float64) float64 {
	if p.factors[i].Kind != KindFX {
		return 0
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return -0.5 * productIntegral(p.vols[i], p.vols[i], t0, t0+dt)
}

// SetVol replaces factor i's volatility curve and bumps the version.
// Callers must flush dependent caches before the next step.
func (p *Parametric) SetVol(i int, c VolCurve) error {
	if i < 0 || i >= len(p.factors) {
		return fmt.Errorf("dynamics: vol index %d of %d: %w", i, len(p.factors), ErrIndex)
	}
	if c == nil {
		return fmt.Errorf("dynamics: nil vol curve: %w", ErrCurve)
	}
	p.mu.Lock()
	p.vols[i] = c
	p.mu.Unlock()
	p.version.Add(1)
	return nil
}

// SetCorrelation replaces the correlation matrix and bumps the version.
func (p *Parametric) SetCorrelation(corr *mat.SymDense) error {
	if corr == nil || corr.SymmetricDim() != len(p.factors) {
		return fmt.Errorf("dynamics: correlation dimension: %w", ErrCorrelation)
	}
	if err := psd.ValidateCorrelation(corr, psd.DefaultTol); err != nil {
		return fmt.Errorf("dynamics: %w: %w", ErrCorrelation, err)
	}
	p.mu.Lock()
	p.corr.CopySym(corr)
	p.mu.Unlock()
	p.version.Add(1)
	return nil
}

// Correlations returns a copy of the current correlation matrix.
func (p *Parametric) Correlations() *mat.SymDense {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := mat.NewSymDense(len(p.factors), nil)
	out.CopySym(p.corr)
	return out
}
