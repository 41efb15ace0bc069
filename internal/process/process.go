package process

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/quantfall/xasim/internal/dynamics"
	"github.com/quantfall/xasim/internal/psd"
)

// StateProcess implements the uniform stochastic-process contract over a
// dynamics provider and routes interval moments to the active scheme. One
// instance is shared read-only across all concurrently simulated paths;
// provider mutations require FlushCache before the next step.
type StateProcess struct {
	provider dynamics.Provider
	scheme   Scheme
	euler    *eulerScheme
	exact    *exactScheme
	active   discretization
}

type options struct {
	scheme  Scheme
	salvage psd.Salvager
	tol     float64
	nocache bool
}

// Option configures a StateProcess at construction.
type Option func(*options)

// WithScheme selects the discretization. Default is SchemeEuler.
func WithScheme(s Scheme) Option {
	return func(o *options) { o.scheme = s }
}

// WithSalvaging overrides the default spectral repair policy.
func WithSalvaging(s psd.Salvager) Option {
	return func(o *options) { o.salvage = s }
}

// WithTolerance overrides the eigenvalue tolerance used by repair and
// square-root extraction.
func WithTolerance(tol float64) Option {
	return func(o *options) { o.tol = tol }
}

// WithoutCache disables memoization. Returned values must not change;
// intended for cache-transparency checks and bias hunting.
func WithoutCache() Option {
	return func(o *options) { o.nocache = true }
}

// New binds a provider to a discretization scheme. SchemeExact requires
// the provider to implement dynamics.IntegralProvider.
func New(p dynamics.Provider, opts ...Option) (*StateProcess, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil", ErrProvider)
	}
	if p.Size() <= 0 {
		return nil, fmt.Errorf("%w: size %d", ErrProvider, p.Size())
	}
	o := options{scheme: SchemeEuler, tol: psd.DefaultTol}
	for _, opt := range opts {
		opt(&o)
	}
	if o.scheme != SchemeEuler && o.scheme != SchemeExact {
		return nil, fmt.Errorf("%w: %v", ErrScheme, o.scheme)
	}

	repair := psd.NewRepairer(o.salvage).WithTol(o.tol)
	sp := &StateProcess{
		provider: p,
		scheme:   o.scheme,
		euler:    newEulerScheme(p, repair, o.nocache),
	}
	if o.scheme == SchemeExact {
		ip, ok := p.(dynamics.IntegralProvider)
		if !ok {
			return nil, fmt.Errorf("%w: provider has no closed-form integrals", ErrScheme)
		}
		sp.exact = newExactScheme(ip, repair, o.nocache)
		sp.active = sp.exact
	} else {
		sp.active = sp.euler
	}
	return sp, nil
}

// Size returns the fixed factor count.
func (sp *StateProcess) Size() int { return sp.provider.Size() }

// Scheme returns the active discretization.
func (sp *StateProcess) Scheme() Scheme { return sp.scheme }

// Provider returns the bound dynamics provider.
func (sp *StateProcess) Provider() dynamics.Provider { return sp.provider }

// InitialValues returns the deterministic state at time zero.
func (sp *StateProcess) InitialValues() State {
	x := make(State, sp.provider.Size())
	for i := range x {
		x[i] = sp.provider.InitialValue(i)
	}
	return x
}

// Drift returns the instantaneous drift at (t, x), evaluated fresh on
// every call. It may depend on the state.
func (sp *StateProcess) Drift(t float64, x State) (State, error) {
	if err := sp.checkPoint(t, x); err != nil {
		return nil, err
	}
	mu := State(sp.provider.Drift(t, x))
	if len(mu) != sp.provider.Size() {
		return nil, fmt.Errorf("%w: provider drift length %d", ErrDimension, len(mu))
	}
	if !mu.IsValid() {
		return nil, fmt.Errorf("%w: drift at t=%g", ErrNonFinite, t)
	}
	return mu, nil
}

// Diffusion returns the square root of the repaired instantaneous
// covariance at t, cached under the exact time key.
func (sp *StateProcess) Diffusion(t float64, x State) (*mat.Dense, error) {
	if err := sp.checkPoint(t, x); err != nil {
		return nil, err
	}
	q, err := sp.euler.diffusion(t)
	if err != nil {
		return nil, &StepError{Op: "diffusion", T: t, Wrapped: err}
	}
	return q, nil
}

// ExpectedDrift returns the first moment of the step from (t0, x0) over
// dt: instantaneous drift scaled by dt under Euler, the closed-form drift
// integral under Exact.
func (sp *StateProcess) ExpectedDrift(t0 float64, x0 State, dt float64) (State, error) {
	if err := sp.checkInterval(t0, x0, dt); err != nil {
		return nil, err
	}
	mu, err := sp.active.expectedDrift(t0, x0, dt)
	if err != nil {
		return nil, &StepError{Op: "expectedDrift", T: t0, Dt: dt, Wrapped: err}
	}
	return mu, nil
}

// Covariance returns the second moment of the step from (t0, x0) over dt,
// repaired to positive semi-definite.
func (sp *StateProcess) Covariance(t0 float64, x0 State, dt float64) (*mat.SymDense, error) {
	if err := sp.checkInterval(t0, x0, dt); err != nil {
		return nil, err
	}
	cov, err := sp.active.covariance(t0, x0, dt)
	if err != nil {
		return nil, &StepError{Op: "covariance", T: t0, Dt: dt, Wrapped: err}
	}
	return cov, nil
}

// StdDeviation returns a square root of Covariance(t0, x0, dt). A given
// cache entry keeps one fixed factorization.
func (sp *StateProcess) StdDeviation(t0 float64, x0 State, dt float64) (*mat.Dense, error) {
	if err := sp.checkInterval(t0, x0, dt); err != nil {
		return nil, err
	}
	q, err := sp.active.stdDeviation(t0, x0, dt)
	if err != nil {
		return nil, &StepError{Op: "stdDeviation", T: t0, Dt: dt, Wrapped: err}
	}
	return q, nil
}

// Evolve advances one path from (t0, x0) by dt using the standard-normal
// draw dw: x1 = x0 + E[dx] + sqrtCov·dw.
func (sp *StateProcess) Evolve(t0 float64, x0 State, dt float64, dw State) (State, error) {
	if err := sp.checkInterval(t0, x0, dt); err != nil {
		return nil, err
	}
	n := sp.provider.Size()
	if len(dw) != n {
		return nil, fmt.Errorf("%w: %d draws for %d factors", ErrDimension, len(dw), n)
	}
	if !dw.IsValid() {
		return nil, fmt.Errorf("%w: innovation vector", ErrNonFinite)
	}

	mu, err := sp.active.expectedDrift(t0, x0, dt)
	if err != nil {
		return nil, &StepError{Op: "evolve", T: t0, Dt: dt, Wrapped: err}
	}
	q, err := sp.active.stdDeviation(t0, x0, dt)
	if err != nil {
		return nil, &StepError{Op: "evolve", T: t0, Dt: dt, Wrapped: err}
	}

	var y mat.VecDense
	y.MulVec(q, mat.NewVecDense(n, dw))
	x1 := make(State, n)
	for i := range x1 {
		x1[i] = x0[i] + mu[i] + y.AtVec(i)
	}
	if !x1.IsValid() {
		return nil, &StepError{Op: "evolve", T: t0, Dt: dt,
			Wrapped: fmt.Errorf("%w: evolved state", ErrNonFinite)}
	}
	return x1, nil
}

// FlushCache clears every memo table. Mandatory after any provider
// parameter mutation; omitting it risks stale moments on key collision
// with a pre-mutation generation.
func (sp *StateProcess) FlushCache() {
	sp.euler.flushCache()
	if sp.exact != nil {
		sp.exact.flushCache()
	}
}

func (sp *StateProcess) checkPoint(t float64, x State) error {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return fmt.Errorf("%w: time %v", ErrNonFinite, t)
	}
	if len(x) != sp.provider.Size() {
		return fmt.Errorf("%w: %d-dim state for %d factors", ErrDimension, len(x), sp.provider.Size())
	}
	if !x.IsValid() {
		return fmt.Errorf("%w: state vector", ErrNonFinite)
	}
	return nil
}

func (sp *StateProcess) checkInterval(t0 float64, x0 State, dt float64) error {
	if err := sp.checkPoint(t0, x0); err != nil {
		return err
	}
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt < 0 {
		return fmt.Errorf("%w: dt=%v", ErrStep, dt)
	}
	return nil
}
