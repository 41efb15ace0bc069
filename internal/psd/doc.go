// Package psd validates and repairs covariance and correlation matrices.
//
// Raw pairwise correlations supplied by a calibration layer are not
// guaranteed to form a positive semi-definite matrix. Before a matrix
// square root can be extracted for diffusion sampling, the matrix must be
// checked and, if needed, salvaged:
//
//   - [Spectral]: clip negative eigenvalues to zero and reassemble; for
//     correlation matrices the result is rescaled back to a unit diagonal
//   - [None]: reject any matrix that fails the check
//
// The [Repairer] bundles a salvaging policy with its tolerances and
// produces square roots via [Sqrt]: Cholesky when the matrix is positive
// definite, a spectral root V·√Λ otherwise. A given input always maps to
// the same factorization, so repeated draws against a cached root sample
// in a fixed basis.
package psd
