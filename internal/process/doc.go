// Package process advances a joint vector of correlated risk factors
// through time for Monte Carlo valuation.
//
// [StateProcess] is the entry point. It binds a [dynamics.Provider] to one
// of two discretization schemes:
//
//   - [SchemeEuler]: instantaneous drift and diffusion at a single time,
//     usable for any dynamics including state-dependent drift. The square
//     root of the repaired instantaneous covariance is cached per time
//     point.
//   - [SchemeExact]: closed-form first and second moments over an interval,
//     obtained by integrating the provider's covariance kernel. Valid only
//     for state-independent coefficients, so the provider must implement
//     [dynamics.IntegralProvider]. Drift, covariance and the derived square
//     root are cached in three independent tables keyed by (start, length).
//
// Cache keys compare by exact float equality: path generators reuse the
// identical grid values across paths, and tolerance matching would merge
// distinguishable grid points. Every cached entry records the provider
// version it was computed under; entries from older parameter generations
// are discarded on access, and a version regression surfaces as
// [ErrConsistency]. [StateProcess.FlushCache] must still be called after
// any provider mutation before the next step.
//
// # Errors
//
// Failures fall into three classes. Configuration: [ErrProvider],
// [ErrDimension], [ErrScheme], [ErrStep]. Numerical: [ErrNonFinite] and
// the repair failures [psd.ErrSalvage], [psd.ErrIndefinite]. Consistency:
// [ErrConsistency]. All of them surface synchronously from the failing
// operation; a failing step aborts only the path that issued it.
package process
