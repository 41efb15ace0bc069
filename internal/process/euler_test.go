package process

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/quantfall/xasim/internal/dynamics"
	"github.com/quantfall/xasim/internal/psd"
)

func TestDriftEvaluatedFresh(t *testing.T) {
	crVol, err := dynamics.NewConstVol(0.4)
	if err != nil {
		t.Fatalf("credit vol: %v", err)
	}
	p3, err := dynamics.NewParametric(
		[]dynamics.Factor{
			{Name: "rate", Kind: dynamics.KindRate},
			{Name: "fx", Kind: dynamics.KindFX},
			{Name: "cds", Kind: dynamics.KindCredit},
		},
		[]dynamics.VolCurve{mustConst(t, 0.01), mustConst(t, 0.15), crVol},
		mat.NewSymDense(3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1}),
	)
	if err != nil {
		t.Fatalf("NewParametric: %v", err)
	}
	overlay, err := dynamics.NewCreditOverlay(p3, map[int]dynamics.MeanReversion{
		2: {Kappa: 0.8, Theta: 0.03},
	})
	if err != nil {
		t.Fatalf("NewCreditOverlay: %v", err)
	}

	sp, err := New(overlay)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	mu1, err := sp.Drift(1.0, State{0, 0, 0.05})
	if err != nil {
		t.Fatalf("Drift: %v", err)
	}
	mu2, err := sp.Drift(1.0, State{0, 0, 0.10})
	if err != nil {
		t.Fatalf("Drift: %v", err)
	}
	want1 := 0.8 * (0.03 - 0.05)
	want2 := 0.8 * (0.03 - 0.10)
	if math.Abs(mu1[2]-want1) > 1e-15 || math.Abs(mu2[2]-want2) > 1e-15 {
		t.Errorf("state-dependent drift: got %v / %v, expected %v / %v", mu1[2], mu2[2], want1, want2)
	}
}

func mustConst(t *testing.T, sigma float64) dynamics.ConstVol {
	t.Helper()
	c, err := dynamics.NewConstVol(sigma)
	if err != nil {
		t.Fatalf("NewConstVol(%v): %v", sigma, err)
	}
	return c
}

func TestDiffusionCacheHit(t *testing.T) {
	sp, err := New(twoFactorProvider(t, 0.3))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	x := State{0, 0}

	q1, err := sp.Diffusion(0.5, x)
	if err != nil {
		t.Fatalf("Diffusion: %v", err)
	}
	q2, err := sp.Diffusion(0.5, x)
	if err != nil {
		t.Fatalf("Diffusion: %v", err)
	}
	r1, r2 := q1.RawMatrix(), q2.RawMatrix()
	for i := range r1.Data {
		if r1.Data[i] != r2.Data[i] {
			t.Fatalf("cache hit not bit-identical at %d: %v vs %v", i, r1.Data[i], r2.Data[i])
		}
	}
	if n := sp.euler.moments.size(); n != 1 {
		t.Errorf("entries after repeated key: got %d, expected 1", n)
	}

	if _, err := sp.Diffusion(0.75, x); err != nil {
		t.Fatalf("Diffusion: %v", err)
	}
	if n := sp.euler.moments.size(); n != 2 {
		t.Errorf("entries after second key: got %d, expected 2", n)
	}
}

func TestCacheTransparency(t *testing.T) {
	p := twoFactorProvider(t, 0.3)
	cached, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	raw, err := New(p, WithoutCache())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	x := State{0, 0}

	for _, tt := range []float64{0.25, 0.5, 0.25} {
		q1, err := cached.Diffusion(tt, x)
		if err != nil {
			t.Fatalf("cached Diffusion(%v): %v", tt, err)
		}
		q2, err := raw.Diffusion(tt, x)
		if err != nil {
			t.Fatalf("uncached Diffusion(%v): %v", tt, err)
		}
		a, b := q1.RawMatrix(), q2.RawMatrix()
		for i := range a.Data {
			if a.Data[i] != b.Data[i] {
				t.Fatalf("t=%v entry %d: cached %v, uncached %v", tt, i, a.Data[i], b.Data[i])
			}
		}
	}
	if n := raw.euler.moments.size(); n != 0 {
		t.Errorf("disabled cache holds %d entries", n)
	}
}

func TestDiffusionProductIsPSD(t *testing.T) {
	// Pairwise -0.6 is inconsistent for three factors (eigenvalues
	// {1.6, 1.6, -0.2}), so the repair unit must engage.
	corr := mat.NewSymDense(3, []float64{1, -0.6, -0.6, -0.6, 1, -0.6, -0.6, -0.6, 1})
	v := mustConst(t, 0.2)
	p, err := dynamics.NewParametric(
		[]dynamics.Factor{
			{Name: "a", Kind: dynamics.KindRate},
			{Name: "b", Kind: dynamics.KindRate},
			{Name: "c", Kind: dynamics.KindRate},
		},
		[]dynamics.VolCurve{v, v, v},
		corr,
	)
	if err != nil {
		t.Fatalf("NewParametric: %v", err)
	}

	sp, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	q, err := sp.Diffusion(0, State{0, 0, 0})
	if err != nil {
		t.Fatalf("Diffusion: %v", err)
	}

	var prod mat.Dense
	prod.Mul(q, q.T())
	n, _ := prod.Dims()
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if d := math.Abs(prod.At(i, j) - prod.At(j, i)); d > 1e-14 {
				t.Fatalf("product asymmetric at (%d,%d) by %g", i, j, d)
			}
			sym.SetSym(i, j, 0.5*(prod.At(i, j)+prod.At(j, i)))
		}
	}
	min, err := psd.MinEigenvalue(sym)
	if err != nil {
		t.Fatalf("MinEigenvalue: %v", err)
	}
	if min < -1e-10 {
		t.Errorf("diffusion product not PSD: min eigenvalue %g", min)
	}
}

func TestStrictPolicySurfacesRepairFailure(t *testing.T) {
	corr := mat.NewSymDense(3, []float64{1, -0.6, -0.6, -0.6, 1, -0.6, -0.6, -0.6, 1})
	v := mustConst(t, 0.2)
	p, err := dynamics.NewParametric(
		[]dynamics.Factor{
			{Name: "a", Kind: dynamics.KindRate},
			{Name: "b", Kind: dynamics.KindRate},
			{Name: "c", Kind: dynamics.KindRate},
		},
		[]dynamics.VolCurve{v, v, v},
		corr,
	)
	if err != nil {
		t.Fatalf("NewParametric: %v", err)
	}

	sp, err := New(p, WithSalvaging(&psd.None{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = sp.Diffusion(0, State{0, 0, 0})
	if !errors.Is(err, psd.ErrIndefinite) {
		t.Errorf("strict policy: got %v, expected %v", err, psd.ErrIndefinite)
	}
}

func TestStaleGenerationDiscardedWithoutFlush(t *testing.T) {
	p := twoFactorProvider(t, 0)
	sp, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	x := State{0, 0}

	q1, err := sp.Diffusion(1.0, x)
	if err != nil {
		t.Fatalf("Diffusion: %v", err)
	}
	if math.Abs(q1.At(1, 1)-0.15) > 1e-15 {
		t.Fatalf("initial vol: got %v, expected 0.15", q1.At(1, 1))
	}

	// Version bump without flush: the old entry must be discarded, not
	// served.
	if err := p.SetVol(1, mustConst(t, 0.30)); err != nil {
		t.Fatalf("SetVol: %v", err)
	}
	q2, err := sp.Diffusion(1.0, x)
	if err != nil {
		t.Fatalf("Diffusion: %v", err)
	}
	if math.Abs(q2.At(1, 1)-0.30) > 1e-15 {
		t.Errorf("post-bump vol: got %v, expected 0.30", q2.At(1, 1))
	}
}

func TestFlushThenParameterChange(t *testing.T) {
	p := twoFactorProvider(t, 0.3)
	sp, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	x := State{0, 0}

	c1, err := sp.Covariance(0, x, 0.25)
	if err != nil {
		t.Fatalf("Covariance: %v", err)
	}
	want := 0.3 * 0.01 * 0.15 * 0.25
	if math.Abs(c1.At(0, 1)-want) > 1e-12 {
		t.Fatalf("pre-change cross term: got %v, expected %v", c1.At(0, 1), want)
	}

	if err := p.SetCorrelation(mat.NewSymDense(2, []float64{1, -0.2, -0.2, 1})); err != nil {
		t.Fatalf("SetCorrelation: %v", err)
	}
	sp.FlushCache()

	c2, err := sp.Covariance(0, x, 0.25)
	if err != nil {
		t.Fatalf("Covariance: %v", err)
	}
	want = -0.2 * 0.01 * 0.15 * 0.25
	if math.Abs(c2.At(0, 1)-want) > 1e-12 {
		t.Errorf("post-change cross term: got %v, expected %v", c2.At(0, 1), want)
	}
	if n := sp.euler.moments.size(); n != 1 {
		t.Errorf("entries after flush and refill: got %d, expected 1", n)
	}
}

func TestEulerIntervalScaling(t *testing.T) {
	sp, err := New(twoFactorProvider(t, 0.3))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	x := State{0, 0}
	dt := 0.25

	cov, err := sp.Covariance(1.0, x, dt)
	if err != nil {
		t.Fatalf("Covariance: %v", err)
	}
	if got, want := cov.At(1, 1), 0.15*0.15*dt; math.Abs(got-want) > 1e-12 {
		t.Errorf("cov scaling: got %v, expected %v", got, want)
	}

	q, err := sp.StdDeviation(1.0, x, dt)
	if err != nil {
		t.Fatalf("StdDeviation: %v", err)
	}
	d, err := sp.Diffusion(1.0, x)
	if err != nil {
		t.Fatalf("Diffusion: %v", err)
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if got, want := q.At(i, j), d.At(i, j)*math.Sqrt(dt); math.Abs(got-want) > 1e-15 {
				t.Errorf("stddev scaling at (%d,%d): got %v, expected %v", i, j, got, want)
			}
		}
	}

	mu, err := sp.ExpectedDrift(1.0, x, dt)
	if err != nil {
		t.Fatalf("ExpectedDrift: %v", err)
	}
	if got, want := mu[1], -0.5*0.15*0.15*dt; math.Abs(got-want) > 1e-15 {
		t.Errorf("drift scaling: got %v, expected %v", got, want)
	}
}
