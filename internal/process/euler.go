package process

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/quantfall/xasim/internal/dynamics"
	"github.com/quantfall/xasim/internal/psd"
)

// instMoments bundles the repaired instantaneous covariance with its fixed
// square root, so repeated draws at one grid time sample from one basis.
type instMoments struct {
	cov  *mat.SymDense
	sqrt *mat.Dense
}

// eulerScheme serves the instantaneous surface: drift evaluated fresh on
// every call, diffusion assembled from the provider's kernel at a single
// time and cached under the exact time key.
type eulerScheme struct {
	p       dynamics.Provider
	repair  *psd.Repairer
	moments *table[float64, instMoments]
	nocache bool
}

func newEulerScheme(p dynamics.Provider, r *psd.Repairer, nocache bool) *eulerScheme {
	return &eulerScheme{
		p:       p,
		repair:  r,
		moments: newTable[float64, instMoments](),
		nocache: nocache,
	}
}

// instantaneous returns the repaired covariance sigma_i*sigma_j*rho_ij at
// t and its square root. The returned matrices are the cached instances
// and must be treated as read-only.
func (e *eulerScheme) instantaneous(t float64) (instMoments, error) {
	ver := e.p.Version()
	if !e.nocache {
		m, ok, err := e.moments.get(t, ver)
		if err != nil {
			return instMoments{}, err
		}
		if ok {
			return m, nil
		}
	}

	n := e.p.Size()
	raw := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		si := e.p.Volatility(i, t)
		raw.SetSym(i, i, si*si)
		for j := i + 1; j < n; j++ {
			raw.SetSym(i, j, si*e.p.Volatility(j, t)*e.p.Correlation(i, j, t))
		}
	}
	cov, err := e.repair.Repair(raw)
	if err != nil {
		return instMoments{}, fmt.Errorf("process: covariance at t=%g: %w", t, err)
	}
	root, err := psd.Sqrt(cov, e.repair.Tol())
	if err != nil {
		return instMoments{}, fmt.Errorf("process: diffusion at t=%g: %w", t, err)
	}

	m := instMoments{cov: cov, sqrt: root}
	if !e.nocache {
		e.moments.put(t, m, ver, e.p.Version())
	}
	return m, nil
}

// diffusion returns a copy of the cached square root at t.
func (e *eulerScheme) diffusion(t float64) (*mat.Dense, error) {
	m, err := e.instantaneous(t)
	if err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(m.sqrt), nil
}

func (e *eulerScheme) expectedDrift(t0 float64, x0 State, dt float64) (State, error) {
	mu := e.p.Drift(t0, x0)
	out := make(State, len(mu))
	for i, v := range mu {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: drift[%d] at t=%g", ErrNonFinite, i, t0)
		}
		out[i] = v * dt
	}
	return out, nil
}

func (e *eulerScheme) covariance(t0 float64, x0 State, dt float64) (*mat.SymDense, error) {
	m, err := e.instantaneous(t0)
	if err != nil {
		return nil, err
	}
	n := m.cov.SymmetricDim()
	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			out.SetSym(i, j, m.cov.At(i, j)*dt)
		}
	}
	return out, nil
}

func (e *eulerScheme) stdDeviation(t0 float64, x0 State, dt float64) (*mat.Dense, error) {
	m, err := e.instantaneous(t0)
	if err != nil {
		return nil, err
	}
	var out mat.Dense
	out.Scale(math.Sqrt(dt), m.sqrt)
	return &out, nil
}

func (e *eulerScheme) flushCache() {
	e.moments.flush()
}
