// Package dynamics defines the factor dynamics supplied to the state
// process: per-factor instantaneous volatility, pairwise correlation and
// drift for an ordered, fixed set of risk factors.
//
// The central abstraction is [Provider]. A provider that can also integrate
// its own covariance kernel in closed form implements [IntegralProvider]
// and unlocks the exact discretization scheme; that is only possible when
// the coefficients do not depend on the state (Gaussian-type dynamics).
//
//   - [Parametric]: deterministic piecewise volatility term structures and
//     a constant correlation matrix; implements [IntegralProvider]
//   - [CreditOverlay]: wraps a Parametric and makes credit intensities
//     mean-revert toward a reversion level; the drift becomes
//     state-dependent, so the overlay is Euler-only
//
// Providers carry a monotonic version counter. Every parameter mutation
// bumps it, which lets downstream caches detect recalibration instead of
// relying purely on an explicit flush.
package dynamics
