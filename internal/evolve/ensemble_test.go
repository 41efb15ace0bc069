package evolve_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/quantfall/xasim/internal/evolve"
	"github.com/quantfall/xasim/internal/process"
	"github.com/quantfall/xasim/internal/psd"
)

var _ = Describe("Ensemble", func() {
	It("rejects an empty run", func() {
		sp, err := process.New(rateFXProvider(0.3))
		Expect(err).NotTo(HaveOccurred())
		_, err = evolve.NewEnsemble(evolve.NewEngine(sp), 0, 1)
		Expect(err).To(MatchError(evolve.ErrEnsemble))
	})

	It("matches the one-step moments of the process", func() {
		sp, err := process.New(rateFXProvider(0.3))
		Expect(err).NotTo(HaveOccurred())
		g, err := evolve.Regular(0.25, 1)
		Expect(err).NotTo(HaveOccurred())

		en, err := evolve.NewEnsemble(evolve.NewEngine(sp), 8192, 1000)
		Expect(err).NotTo(HaveOccurred())
		batch, err := en.Run(context.Background(), g)
		Expect(err).NotTo(HaveOccurred())
		Expect(batch.Paths).To(HaveLen(8192))

		rates := batch.Terminal(0)
		fxs := batch.Terminal(1)

		// Analytic one-step law: mean {0, -0.5*0.15^2*0.25}, covariance
		// 0.25 * [[0.0001, 0.00045], [0.00045, 0.0225]]. Tolerances sit
		// past five standard errors of each estimator at 8192 paths.
		Expect(stat.Mean(rates, nil)).To(BeNumerically("~", 0, 3e-4))
		Expect(stat.Mean(fxs, nil)).To(BeNumerically("~", -0.0028125, 4.5e-3))
		Expect(stat.Variance(rates, nil)).To(BeNumerically("~", 2.5e-5, 2.5e-6))
		Expect(stat.Variance(fxs, nil)).To(BeNumerically("~", 5.625e-3, 5.625e-4))
		Expect(stat.Covariance(rates, fxs, nil)).To(BeNumerically("~", 1.125e-4, 2.25e-5))
	})

	It("agrees with an independent reference sampler", func() {
		sp, err := process.New(rateFXProvider(0.3))
		Expect(err).NotTo(HaveOccurred())
		x0 := sp.InitialValues()

		mu, err := sp.ExpectedDrift(0, x0, 0.25)
		Expect(err).NotTo(HaveOccurred())
		cov, err := sp.Covariance(0, x0, 0.25)
		Expect(err).NotTo(HaveOccurred())

		ref, ok := distmv.NewNormal([]float64(mu), cov, rand.NewSource(99))
		Expect(ok).To(BeTrue())
		Expect(ref.Mean(nil)).To(Equal([]float64(mu)))

		n := 8192
		draw := make([]float64, 2)
		rates := make([]float64, n)
		fxs := make([]float64, n)
		for k := 0; k < n; k++ {
			ref.Rand(draw)
			rates[k] = draw[0]
			fxs[k] = draw[1]
		}
		Expect(stat.Mean(fxs, nil)).To(BeNumerically("~", -0.0028125, 4.5e-3))
		Expect(stat.Variance(rates, nil)).To(BeNumerically("~", 2.5e-5, 2.5e-6))
		Expect(stat.Variance(fxs, nil)).To(BeNumerically("~", 5.625e-3, 5.625e-4))
		Expect(stat.Covariance(rates, fxs, nil)).To(BeNumerically("~", 1.125e-4, 2.25e-5))
	})

	It("propagates the first failing path", func() {
		sp, err := process.New(indefiniteProvider(), process.WithSalvaging(&psd.None{}))
		Expect(err).NotTo(HaveOccurred())
		g, err := evolve.Regular(0.5, 2)
		Expect(err).NotTo(HaveOccurred())

		en, err := evolve.NewEnsemble(evolve.NewEngine(sp), 4, 1)
		Expect(err).NotTo(HaveOccurred())
		batch, err := en.Run(context.Background(), g)
		Expect(batch).To(BeNil())
		Expect(err).To(MatchError(ContainSubstring("path 0")))
		Expect(errors.Is(err, psd.ErrIndefinite)).To(BeTrue())
	})

	It("bounds concurrency without losing paths", func() {
		sp, err := process.New(rateFXProvider(0.3))
		Expect(err).NotTo(HaveOccurred())
		g, err := evolve.Regular(1.0, 8)
		Expect(err).NotTo(HaveOccurred())
		eng := evolve.NewEngine(sp)

		en, err := evolve.NewEnsemble(eng, 64, 500)
		Expect(err).NotTo(HaveOccurred())
		b1, err := en.WithWorkers(4).Run(context.Background(), g)
		Expect(err).NotTo(HaveOccurred())
		Expect(b1.Paths).To(HaveLen(64))
		for _, p := range b1.Paths {
			Expect(p.States).To(HaveLen(g.Steps() + 1))
		}
		Expect(b1.Paths[0].Terminal()).NotTo(Equal(b1.Paths[1].Terminal()))

		b2, err := en.Run(context.Background(), g)
		Expect(err).NotTo(HaveOccurred())
		Expect(b2.Paths[17].Terminal()).To(Equal(b1.Paths[17].Terminal()))
	})
})
