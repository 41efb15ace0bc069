package psd

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Repair errors.
var (
	// ErrNotFinite indicates a matrix entry is NaN or Inf.
	ErrNotFinite = errors.New("psd: matrix contains non-finite entries")

	// ErrNotCorrelation indicates a matrix violates the correlation shape
	// (unit diagonal, entries within [-1, 1]).
	ErrNotCorrelation = errors.New("psd: not a valid correlation matrix")

	// ErrIndefinite indicates a matrix is not positive semi-definite and the
	// active policy refuses to repair it.
	ErrIndefinite = errors.New("psd: matrix is not positive semi-definite")

	// ErrSalvage indicates salvaging could not reach the configured tolerance.
	ErrSalvage = errors.New("psd: salvaging failed to reach tolerance")

	// ErrEigen indicates the symmetric eigen decomposition did not converge.
	ErrEigen = errors.New("psd: eigen decomposition failed")
)

// DefaultTol is the eigenvalue tolerance below which negativity is treated
// as roundoff rather than a genuinely indefinite matrix.
const DefaultTol = 1e-10

// Salvager repairs a symmetric matrix that fails the positive
// semi-definiteness check. Implementations must be safe for concurrent use.
type Salvager interface {
	Name() string
	Salvage(a *mat.SymDense) (*mat.SymDense, error)
}

// Spectral clips negative eigenvalues to zero and reassembles the matrix.
// The result is the nearest positive semi-definite matrix in Frobenius
// norm. With RescaleDiag set, the repaired matrix is renormalized to the
// original diagonal (the correlation-matrix variant).
type Spectral struct {
	Tol         float64
	RescaleDiag bool
}

// NewSpectral returns the default salvaging policy for covariance input.
func NewSpectral() *Spectral {
	return &Spectral{Tol: DefaultTol}
}

// NewSpectralCorrelation returns the salvaging policy for correlation
// input, preserving the unit diagonal.
func NewSpectralCorrelation() *Spectral {
	return &Spectral{Tol: DefaultTol, RescaleDiag: true}
}

func (s *Spectral) Name() string {
	if s.RescaleDiag {
		return "spectral-corr"
	}
	return "spectral"
}

func (s *Spectral) tol() float64 {
	if s.Tol > 0 {
		return s.Tol
	}
	return DefaultTol
}

// Salvage returns a positive semi-definite repair of a, or a itself when no
// eigenvalue falls below -Tol. The returned matrix is always a fresh copy.
func (s *Spectral) Salvage(a *mat.SymDense) (*mat.SymDense, error) {
	if err := Validate(a); err != nil {
		return nil, err
	}
	vals, vecs, err := eigenSym(a)
	if err != nil {
		return nil, err
	}
	if minVal(vals) >= -s.tol() {
		out := mat.NewSymDense(a.SymmetricDim(), nil)
		out.CopySym(a)
		return out, nil
	}

	n := a.SymmetricDim()
	clipped := make([]float64, n)
	for i, v := range vals {
		if v > 0 {
			clipped[i] = v
		}
	}

	// B = V diag(clipped) Vᵗ, assembled column-scaled to avoid an
	// explicit diagonal matrix.
	scaled := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			scaled.Set(i, j, vecs.At(i, j)*clipped[j])
		}
	}
	var b mat.Dense
	b.Mul(scaled, vecs.T())

	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			out.SetSym(i, j, 0.5*(b.At(i, j)+b.At(j, i)))
		}
	}

	if s.RescaleDiag {
		rescaleDiagonal(out, a)
	}
	return out, nil
}

// rescaleDiagonal renormalizes b so its diagonal matches ref's. Zero or
// negative diagonals are left untouched (a degenerate factor stays
// degenerate).
func rescaleDiagonal(b *mat.SymDense, ref *mat.SymDense) {
	n := b.SymmetricDim()
	scale := make([]float64, n)
	for i := 0; i < n; i++ {
		bd, rd := b.At(i, i), ref.At(i, i)
		if bd > 0 && rd > 0 {
			scale[i] = math.Sqrt(rd / bd)
		} else {
			scale[i] = 1
		}
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			b.SetSym(i, j, b.At(i, j)*scale[i]*scale[j])
		}
	}
}

// None refuses to repair: any eigenvalue below -Tol is an error. Use when
// upstream inputs are contractually consistent and silent repair would hide
// a calibration bug.
type None struct {
	Tol float64
}

func (n *None) Name() string { return "none" }

func (n *None) Salvage(a *mat.SymDense) (*mat.SymDense, error) {
	if err := Validate(a); err != nil {
		return nil, err
	}
	tol := n.Tol
	if tol <= 0 {
		tol = DefaultTol
	}
	min, err := MinEigenvalue(a)
	if err != nil {
		return nil, err
	}
	if min < -tol {
		return nil, fmt.Errorf("%w: smallest eigenvalue %g", ErrIndefinite, min)
	}
	out := mat.NewSymDense(a.SymmetricDim(), nil)
	out.CopySym(a)
	return out, nil
}

func minVal(vals []float64) float64 {
	min := math.Inf(1)
	for _, v := range vals {
		if v < min {
			min = v
		}
	}
	return min
}

func eigenSym(a *mat.SymDense) ([]float64, *mat.Dense, error) {
	var eig mat.EigenSym
	if !eig.Factorize(a, true) {
		return nil, nil, ErrEigen
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	return vals, &vecs, nil
}
