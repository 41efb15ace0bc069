package process

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/quantfall/xasim/internal/dynamics"
	"github.com/quantfall/xasim/internal/psd"
)

// exactScheme serves closed-form interval moments for state-independent
// dynamics. Drift, repaired covariance and the derived square root live in
// three independent tables so drift-only callers never pay for a matrix
// factorization, while covariance work is shared between the covariance
// and stdDeviation paths for the same key.
type exactScheme struct {
	p       dynamics.IntegralProvider
	repair  *psd.Repairer
	drifts  *table[intervalKey, State]
	covs    *table[intervalKey, *mat.SymDense]
	sqrts   *table[intervalKey, *mat.Dense]
	nocache bool
}

func newExactScheme(p dynamics.IntegralProvider, r *psd.Repairer, nocache bool) *exactScheme {
	return &exactScheme{
		p:       p,
		repair:  r,
		drifts:  newTable[intervalKey, State](),
		covs:    newTable[intervalKey, *mat.SymDense](),
		sqrts:   newTable[intervalKey, *mat.Dense](),
		nocache: nocache,
	}
}

func (s *exactScheme) expectedDrift(t0 float64, x0 State, dt float64) (State, error) {
	key := intervalKey{t0: t0, dt: dt}
	ver := s.p.Version()
	if !s.nocache {
		mu, ok, err := s.drifts.get(key, ver)
		if err != nil {
			return nil, err
		}
		if ok {
			return mu.Clone(), nil
		}
	}

	n := s.p.Size()
	mu := make(State, n)
	for i := 0; i < n; i++ {
		v := s.p.DriftIntegral(i, t0, dt)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: drift integral[%d] over [%g, %g]", ErrNonFinite, i, t0, t0+dt)
		}
		mu[i] = v
	}
	if !s.nocache {
		s.drifts.put(key, mu, ver, s.p.Version())
	}
	return mu.Clone(), nil
}

// repairedCovariance integrates the kernel over [t0, t0+dt] and repairs
// the result. The returned matrix is the cached instance; callers must
// copy before handing it out.
func (s *exactScheme) repairedCovariance(t0, dt float64) (*mat.SymDense, error) {
	key := intervalKey{t0: t0, dt: dt}
	ver := s.p.Version()
	if !s.nocache {
		c, ok, err := s.covs.get(key, ver)
		if err != nil {
			return nil, err
		}
		if ok {
			return c, nil
		}
	}

	n := s.p.Size()
	raw := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := s.p.CovarianceIntegral(i, j, t0, dt)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: covariance integral[%d,%d] over [%g, %g]", ErrNonFinite, i, j, t0, t0+dt)
			}
			raw.SetSym(i, j, v)
		}
	}
	cov, err := s.repair.Repair(raw)
	if err != nil {
		return nil, fmt.Errorf("process: covariance over [%g, %g]: %w", t0, t0+dt, err)
	}
	if !s.nocache {
		s.covs.put(key, cov, ver, s.p.Version())
	}
	return cov, nil
}

func (s *exactScheme) covariance(t0 float64, x0 State, dt float64) (*mat.SymDense, error) {
	cov, err := s.repairedCovariance(t0, dt)
	if err != nil {
		return nil, err
	}
	out := mat.NewSymDense(cov.SymmetricDim(), nil)
	out.CopySym(cov)
	return out, nil
}

func (s *exactScheme) stdDeviation(t0 float64, x0 State, dt float64) (*mat.Dense, error) {
	key := intervalKey{t0: t0, dt: dt}
	ver := s.p.Version()
	if !s.nocache {
		q, ok, err := s.sqrts.get(key, ver)
		if err != nil {
			return nil, err
		}
		if ok {
			return mat.DenseCopyOf(q), nil
		}
	}

	cov, err := s.repairedCovariance(t0, dt)
	if err != nil {
		return nil, err
	}
	root, err := psd.Sqrt(cov, s.repair.Tol())
	if err != nil {
		return nil, fmt.Errorf("process: stdDeviation over [%g, %g]: %w", t0, t0+dt, err)
	}
	if !s.nocache {
		s.sqrts.put(key, root, ver, s.p.Version())
	}
	return mat.DenseCopyOf(root), nil
}

// flushCache clears all three tables. Each table's clear excludes any
// in-flight insert into that table.
func (s *exactScheme) flushCache() {
	s.drifts.flush()
	s.covs.flush()
	s.sqrts.flush()
}
