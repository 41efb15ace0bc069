package evolve_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/quantfall/xasim/internal/dynamics"
	"github.com/quantfall/xasim/internal/evolve"
	"github.com/quantfall/xasim/internal/process"
	"github.com/quantfall/xasim/internal/psd"
)

func rateFXProvider(rho float64) *dynamics.Parametric {
	irVol, err := dynamics.NewConstVol(0.01)
	Expect(err).NotTo(HaveOccurred())
	fxVol, err := dynamics.NewConstVol(0.15)
	Expect(err).NotTo(HaveOccurred())
	p, err := dynamics.NewParametric(
		[]dynamics.Factor{
			{Name: "eur-rate", Kind: dynamics.KindRate},
			{Name: "eurusd", Kind: dynamics.KindFX},
		},
		[]dynamics.VolCurve{irVol, fxVol},
		mat.NewSymDense(2, []float64{1, rho, rho, 1}),
	)
	Expect(err).NotTo(HaveOccurred())
	return p
}

// indefiniteProvider carries a pairwise correlation of -0.6 across three
// factors, whose matrix has a negative eigenvalue.
func indefiniteProvider() *dynamics.Parametric {
	vol, err := dynamics.NewConstVol(0.2)
	Expect(err).NotTo(HaveOccurred())
	p, err := dynamics.NewParametric(
		[]dynamics.Factor{
			{Name: "usd-rate", Kind: dynamics.KindRate},
			{Name: "eur-rate", Kind: dynamics.KindRate},
			{Name: "gbp-rate", Kind: dynamics.KindRate},
		},
		[]dynamics.VolCurve{vol, vol, vol},
		mat.NewSymDense(3, []float64{
			1, -0.6, -0.6,
			-0.6, 1, -0.6,
			-0.6, -0.6, 1,
		}),
	)
	Expect(err).NotTo(HaveOccurred())
	return p
}

var _ = Describe("Grid", func() {
	It("builds a uniform axis", func() {
		g, err := evolve.Regular(1.0, 4)
		Expect(err).NotTo(HaveOccurred())
		Expect(g.Times()).To(Equal([]float64{0, 0.25, 0.5, 0.75, 1}))
		Expect(g.Steps()).To(Equal(4))
		Expect(g.Horizon()).To(Equal(1.0))
		Expect(g.Dt(2)).To(Equal(0.25))
	})

	It("rejects unusable axes", func() {
		_, err := evolve.Regular(1.0, 0)
		Expect(err).To(MatchError(evolve.ErrGrid))
		_, err = evolve.Regular(0, 4)
		Expect(err).To(MatchError(evolve.ErrGrid))
		_, err = evolve.Regular(math.NaN(), 4)
		Expect(err).To(MatchError(evolve.ErrGrid))

		_, err = evolve.FromTimes(nil)
		Expect(err).To(MatchError(evolve.ErrGrid))
		_, err = evolve.FromTimes([]float64{0})
		Expect(err).To(MatchError(evolve.ErrGrid))
		_, err = evolve.FromTimes([]float64{0.1, 0.2})
		Expect(err).To(MatchError(evolve.ErrGrid))
		_, err = evolve.FromTimes([]float64{0, 0.5, 0.5})
		Expect(err).To(MatchError(evolve.ErrGrid))
		_, err = evolve.FromTimes([]float64{0, math.Inf(1)})
		Expect(err).To(MatchError(evolve.ErrGrid))
	})

	It("copies explicit points", func() {
		ts := []float64{0, 0.5, 1}
		g, err := evolve.FromTimes(ts)
		Expect(err).NotTo(HaveOccurred())
		ts[1] = 99
		Expect(g.T(1)).To(Equal(0.5))
	})
})

var _ = Describe("Engine", func() {
	var (
		eng *evolve.Engine
		g   evolve.Grid
	)

	BeforeEach(func() {
		sp, err := process.New(rateFXProvider(0.3))
		Expect(err).NotTo(HaveOccurred())
		eng = evolve.NewEngine(sp)
		g, err = evolve.Regular(1.0, 12)
		Expect(err).NotTo(HaveOccurred())
	})

	It("reproduces a path from its seed", func() {
		p1, err := eng.RunPath(context.Background(), g, 42)
		Expect(err).NotTo(HaveOccurred())
		p2, err := eng.RunPath(context.Background(), g, 42)
		Expect(err).NotTo(HaveOccurred())
		Expect(p2.States).To(Equal(p1.States))

		p3, err := eng.RunPath(context.Background(), g, 43)
		Expect(err).NotTo(HaveOccurred())
		Expect(p3.Terminal()).NotTo(Equal(p1.Terminal()))
	})

	It("covers every grid point", func() {
		p, err := eng.RunPath(context.Background(), g, 7)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.States).To(HaveLen(g.Steps() + 1))
		Expect(p.Times).To(Equal(g.Times()))
		Expect(p.States[0]).To(Equal(process.State{0, 0}))
	})

	It("streams states in grid order", func() {
		var ts []float64
		err := eng.RunPathWithCallback(context.Background(), g, 7, func(t float64, x process.State) bool {
			ts = append(ts, t)
			Expect(x).To(HaveLen(2))
			return true
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(ts).To(Equal(g.Times()))
	})

	It("honors an early stop without error", func() {
		count := 0
		err := eng.RunPathWithCallback(context.Background(), g, 7, func(t float64, x process.State) bool {
			count++
			return count < 3
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(3))
	})

	It("stops when the context is cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := eng.RunPath(ctx, g, 1)
		Expect(err).To(MatchError(context.Canceled))
	})

	It("reports the failing step", func() {
		sp, err := process.New(indefiniteProvider(), process.WithSalvaging(&psd.None{}))
		Expect(err).NotTo(HaveOccurred())
		strict := evolve.NewEngine(sp)

		_, err = strict.RunPath(context.Background(), g, 9)
		Expect(err).To(HaveOccurred())
		var perr *evolve.PathError
		Expect(errors.As(err, &perr)).To(BeTrue())
		Expect(perr.Step).To(Equal(0))
		Expect(errors.Is(err, psd.ErrIndefinite)).To(BeTrue())
	})
})
