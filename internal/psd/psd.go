package psd

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Validate checks that every entry of a is finite. Shape and symmetry are
// carried by the mat.Symmetric type itself.
func Validate(a mat.Symmetric) error {
	n := a.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := a.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: entry (%d,%d)", ErrNotFinite, i, j)
			}
		}
	}
	return nil
}

// ValidateCorrelation checks the correlation invariants on top of Validate:
// a unit diagonal and off-diagonal entries within [-1, 1], both within tol.
func ValidateCorrelation(a mat.Symmetric, tol float64) error {
	if err := Validate(a); err != nil {
		return err
	}
	if tol <= 0 {
		tol = DefaultTol
	}
	n := a.SymmetricDim()
	for i := 0; i < n; i++ {
		if math.Abs(a.At(i, i)-1) > tol {
			return fmt.Errorf("%w: diagonal (%d,%d) = %g", ErrNotCorrelation, i, i, a.At(i, i))
		}
		for j := i + 1; j < n; j++ {
			if v := a.At(i, j); math.Abs(v) > 1+tol {
				return fmt.Errorf("%w: entry (%d,%d) = %g", ErrNotCorrelation, i, j, v)
			}
		}
	}
	return nil
}

// MinEigenvalue returns the smallest eigenvalue of a.
func MinEigenvalue(a mat.Symmetric) (float64, error) {
	var eig mat.EigenSym
	if !eig.Factorize(a, false) {
		return 0, ErrEigen
	}
	return minVal(eig.Values(nil)), nil
}

// Sqrt returns a square root Q of a with Q·Qᵗ = a. Positive definite input
// takes the Cholesky lower factor; semi-definite input falls back to the
// spectral root V·√Λ with negative roundoff eigenvalues (≥ -tol) clipped.
// The factorization for a given matrix is deterministic.
func Sqrt(a *mat.SymDense, tol float64) (*mat.Dense, error) {
	if tol <= 0 {
		tol = DefaultTol
	}
	var chol mat.Cholesky
	if chol.Factorize(a) {
		var l mat.TriDense
		chol.LTo(&l)
		return mat.DenseCopyOf(&l), nil
	}

	vals, vecs, err := eigenSym(a)
	if err != nil {
		return nil, err
	}
	if min := minVal(vals); min < -tol {
		return nil, fmt.Errorf("%w: smallest eigenvalue %g below tolerance %g", ErrIndefinite, min, tol)
	}
	n := a.SymmetricDim()
	q := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		root := 0.0
		if vals[j] > 0 {
			root = math.Sqrt(vals[j])
		}
		for i := 0; i < n; i++ {
			q.Set(i, j, vecs.At(i, j)*root)
		}
	}
	return q, nil
}

// Repairer validates, salvages and square-roots matrices under one policy.
// The zero value is not usable; construct with NewRepairer.
type Repairer struct {
	salvager Salvager
	tol      float64
}

// NewRepairer returns a Repairer around the given policy. A nil salvager
// selects the default spectral policy.
func NewRepairer(s Salvager) *Repairer {
	if s == nil {
		s = NewSpectral()
	}
	return &Repairer{salvager: s, tol: DefaultTol}
}

// WithTol overrides the eigenvalue tolerance.
func (r *Repairer) WithTol(tol float64) *Repairer {
	if tol > 0 {
		r.tol = tol
	}
	return r
}

// Policy returns the active salvaging policy name.
func (r *Repairer) Policy() string { return r.salvager.Name() }

// Tol returns the active eigenvalue tolerance.
func (r *Repairer) Tol() float64 { return r.tol }

// Repair returns a positive semi-definite version of a under the active
// policy, verifying the result lands within tolerance.
func (r *Repairer) Repair(a *mat.SymDense) (*mat.SymDense, error) {
	out, err := r.salvager.Salvage(a)
	if err != nil {
		return nil, err
	}
	min, err := MinEigenvalue(out)
	if err != nil {
		return nil, err
	}
	if min < -r.tol {
		return nil, fmt.Errorf("%w: post-salvage eigenvalue %g (policy %s)", ErrSalvage, min, r.salvager.Name())
	}
	return out, nil
}

// SqrtCov repairs a covariance matrix and returns its square root.
func (r *Repairer) SqrtCov(a *mat.SymDense) (*mat.Dense, error) {
	repaired, err := r.Repair(a)
	if err != nil {
		return nil, err
	}
	return Sqrt(repaired, r.tol)
}

// SqrtCorrelation additionally enforces the correlation invariants on the
// raw input before repair.
func (r *Repairer) SqrtCorrelation(a *mat.SymDense) (*mat.Dense, error) {
	if err := ValidateCorrelation(a, r.tol); err != nil {
		return nil, err
	}
	return r.SqrtCov(a)
}
