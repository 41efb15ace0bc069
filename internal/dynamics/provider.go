package dynamics

// Provider supplies instantaneous dynamics for a fixed, ordered factor set.
// All methods must be safe for concurrent read access; parameter mutation
// is only allowed while no simulation step is in flight, the same
// discipline that governs cache flushing.
type Provider interface {
	// Size returns the total factor count. Fixed for the provider's life.
	Size() int

	// Factor returns the identity of component i.
	Factor(i int) Factor

	// InitialValue returns the deterministic time-zero value of component
	// i. Under the log-relative representation this is typically zero.
	InitialValue(i int) float64

	// Drift returns the instantaneous drift vector at (t, x). It may
	// depend on the state for non-Gaussian factors such as credit
	// intensities.
	Drift(t float64, x []float64) []float64

	// Volatility returns the instantaneous volatility of factor i at t.
	Volatility(i int, t float64) float64

	// Correlation returns the instantaneous correlation between factors
	// i and j at t. Correlation(i, i, t) is 1.
	Correlation(i, j int, t float64) float64

	// Version is a monotonic counter bumped on every parameter mutation.
	Version() uint64
}

// IntegralProvider extends Provider with closed-form integrals of the
// covariance kernel, available only for state-independent (Gaussian)
// coefficients. The exact discretization scheme requires this interface.
type IntegralProvider interface {
	Provider

	// CovarianceIntegral returns ∫ σᵢ(s)·σⱼ(s)·ρᵢⱼ(s) ds over
	// [t0, t0+dt].
	CovarianceIntegral(i, j int, t0, dt float64) float64

	// DriftIntegral returns the closed-form drift of factor i over
	// [t0, t0+dt], independent of the state.
	DriftIntegral(i int, t0, dt float64) float64
}
