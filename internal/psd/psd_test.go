package psd

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func checkRoot(t *testing.T, q *mat.Dense, want *mat.SymDense, tol float64) {
	t.Helper()
	var prod mat.Dense
	prod.Mul(q, q.T())
	n := want.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if d := math.Abs(prod.At(i, j) - want.At(i, j)); d > tol {
				t.Errorf("Q·Qᵗ (%d,%d) off by %g", i, j, d)
			}
		}
	}
}

func TestSqrtPositiveDefinite(t *testing.T) {
	a := mat.NewSymDense(2, []float64{4, 2, 2, 3})
	q, err := Sqrt(a, 0)
	if err != nil {
		t.Fatalf("sqrt failed: %v", err)
	}
	checkRoot(t, q, a, 1e-12)
}

func TestSqrtSemiDefinite(t *testing.T) {
	// Rank one: Cholesky fails, spectral root must take over.
	a := mat.NewSymDense(2, []float64{1, 1, 1, 1})
	q, err := Sqrt(a, 0)
	if err != nil {
		t.Fatalf("sqrt failed: %v", err)
	}
	checkRoot(t, q, a, 1e-12)
}

func TestSqrtRejectsIndefinite(t *testing.T) {
	a := mat.NewSymDense(2, []float64{1, 2, 2, 1}) // eigenvalues {3, -1}
	if _, err := Sqrt(a, 0); !errors.Is(err, ErrIndefinite) {
		t.Fatalf("want ErrIndefinite, got %v", err)
	}
}

func TestSqrtDeterministic(t *testing.T) {
	a := withEigenvalues([]float64{1.0, 0.4, 0.0})
	q1, err := Sqrt(a, 0)
	if err != nil {
		t.Fatalf("sqrt failed: %v", err)
	}
	q2, err := Sqrt(a, 0)
	if err != nil {
		t.Fatalf("sqrt failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if q1.At(i, j) != q2.At(i, j) {
				t.Fatalf("factorization not deterministic at (%d,%d)", i, j)
			}
		}
	}
}

func TestValidateCorrelation(t *testing.T) {
	tests := []struct {
		name    string
		data    []float64
		wantErr error
	}{
		{"valid", []float64{1, 0.3, 0.3, 1}, nil},
		{"bad diagonal", []float64{1.2, 0.3, 0.3, 1}, ErrNotCorrelation},
		{"entry above one", []float64{1, 1.5, 1.5, 1}, ErrNotCorrelation},
		{"non-finite", []float64{1, math.Inf(1), math.Inf(1), 1}, ErrNotFinite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCorrelation(mat.NewSymDense(2, tt.data), 0)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("want %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRepairerSqrtCovRepairsThenRoots(t *testing.T) {
	a := withEigenvalues([]float64{1.0, 0.0, -0.05})

	q, err := NewRepairer(nil).SqrtCov(a)
	if err != nil {
		t.Fatalf("sqrtcov failed: %v", err)
	}

	// Q·Qᵗ must be symmetric PSD regardless of the indefinite input.
	var prod mat.Dense
	prod.Mul(q, q.T())
	sym := mat.NewSymDense(3, nil)
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			if d := math.Abs(prod.At(i, j) - prod.At(j, i)); d > 1e-12 {
				t.Errorf("product asymmetric at (%d,%d): %g", i, j, d)
			}
			sym.SetSym(i, j, prod.At(i, j))
		}
	}
	min, err := MinEigenvalue(sym)
	if err != nil {
		t.Fatalf("eigen failed: %v", err)
	}
	if min < -1e-10 {
		t.Errorf("diffusion product not PSD: min eigenvalue %g", min)
	}
}

func TestRepairerRejectsUnsalvageable(t *testing.T) {
	a := mat.NewSymDense(2, []float64{1, 2, 2, 1})
	r := NewRepairer(&None{})
	if _, err := r.SqrtCov(a); !errors.Is(err, ErrIndefinite) {
		t.Fatalf("want ErrIndefinite, got %v", err)
	}
}

func TestRepairerCorrelationShapeCheck(t *testing.T) {
	a := mat.NewSymDense(2, []float64{2, 0.3, 0.3, 2}) // covariance, not correlation
	r := NewRepairer(NewSpectralCorrelation())
	if _, err := r.SqrtCorrelation(a); !errors.Is(err, ErrNotCorrelation) {
		t.Fatalf("want ErrNotCorrelation, got %v", err)
	}
}
