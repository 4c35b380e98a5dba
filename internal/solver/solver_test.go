package solver_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/voltlab/voltsim/internal/models"
	"github.com/voltlab/voltsim/internal/solver"
	"github.com/voltlab/voltsim/internal/symbolic"
	"github.com/voltlab/voltsim/internal/tape"
)

func linspace(t0, t1 float64, n int) []float64 {
	g := make([]float64, n)
	dt := (t1 - t0) / float64(n-1)
	for i := range g {
		g[i] = t0 + float64(i)*dt
	}
	g[n-1] = t1
	return g
}

// expectClose asserts |got - want| <= atol + rtol*|want| pointwise.
func expectClose(got, want []float64, rtol, atol float64) {
	GinkgoHelper()
	Expect(got).To(HaveLen(len(want)))
	for i := range want {
		Expect(math.Abs(got[i] - want[i])).To(
			BeNumerically("<=", atol+rtol*math.Abs(want[i])),
			"index %d: got %v, want %v", i, got[i], want[i],
		)
	}
}

func lowered(m *symbolic.Model) *symbolic.Model {
	GinkgoHelper()
	_, err := tape.Compile(m)
	Expect(err).NotTo(HaveOccurred())
	return m
}

var _ = Describe("Solver", func() {
	Describe("solving a lowered model", func() {
		for _, method := range []string{"rk45", "bdf"} {
			method := method
			Context("with the "+method+" family", func() {
				It("matches the analytic growth solution and keeps its timing invariants", func() {
					m := lowered(models.Growth(0.1))
					tEval := linspace(0, 1, 80)
					s := solver.New(solver.WithMethod(method), solver.WithTolerances(1e-8, 1e-8))

					sol, err := s.Solve(m, tEval, nil)
					Expect(err).NotTo(HaveOccurred())

					Expect(sol.T).To(Equal(tEval))
					Expect(sol.Termination).To(Equal(solver.TerminationFinalTime))
					Expect(sol.TotalTime).To(Equal(sol.SetUpTime + sol.SolveTime))

					want := make([]float64, len(tEval))
					for i, tk := range tEval {
						want[i] = math.Exp(0.1 * tk)
					}
					expectClose(sol.Y[0], want, 1e-7, 1e-7)
				})

				It("reuses the compiled closure on a second structurally identical solve", func() {
					m := lowered(models.DiffusionChain(40))
					tEval := linspace(0, 0.2, 50)
					s := solver.New(solver.WithMethod(method), solver.WithTolerances(1e-6, 1e-6))
					inputs := map[string]float64{"d": 0.01}

					first, err := s.Solve(m, tEval, inputs)
					Expect(err).NotTo(HaveOccurred())
					second, err := s.Solve(m, tEval, inputs)
					Expect(err).NotTo(HaveOccurred())

					Expect(second.SetUpTime).To(BeNumerically("<", first.SetUpTime))
					Expect(second.Y).To(Equal(first.Y))
				})
			})
		}
	})

	Describe("representation checking", func() {
		It("rejects every non-tape form identically", func() {
			tEval := linspace(0, 3, 100)
			for _, form := range []symbolic.Form{symbolic.FormSymbolic, symbolic.FormInterp, symbolic.FormExternal} {
				m := lowered(models.Decay())
				m.SetForm(form)

				s := solver.New()
				_, err := s.Solve(m, tEval, map[string]float64{"rate": 0.1})
				Expect(err).To(MatchError(solver.ErrNotLowered), "form %v", form)
				Expect(err.Error()).To(ContainSubstring("tape representation"))
			}
		})

		It("rejects a model that was never lowered", func() {
			m := models.Decay()
			m.SetForm(symbolic.FormTape) // tag without artifact
			_, err := solver.New().Solve(m, linspace(0, 1, 10), map[string]float64{"rate": 0.1})
			Expect(err).To(MatchError(solver.ErrNotLowered))
		})
	})

	Describe("termination events", func() {
		It("rejects the whole event list, not just one entry", func() {
			m := lowered(models.DecayWithCutoffs())
			_, err := solver.New().Solve(m, linspace(0, 10, 100), map[string]float64{"rate": 0.1})
			Expect(err).To(MatchError(solver.ErrEvents))
			Expect(err.Error()).To(ContainSubstring("2 events"))
			Expect(err.Error()).To(ContainSubstring("c=0.5"))
			Expect(err.Error()).To(ContainSubstring("c=-0.5"))
		})
	})

	Describe("input parameters", func() {
		It("resolves inputs at solve time without recompiling", func() {
			m := lowered(models.Decay())
			tEval := linspace(0, 5, 100)
			s := solver.New(solver.WithTolerances(1e-8, 1e-8))

			first, err := s.Solve(m, tEval, map[string]float64{"rate": 0.1})
			Expect(err).NotTo(HaveOccurred())
			second, err := s.Solve(m, tEval, map[string]float64{"rate": 0.2})
			Expect(err).NotTo(HaveOccurred())

			for i, tk := range tEval {
				Expect(math.Abs(first.Y[0][i] - math.Exp(-0.1*tk))).To(BeNumerically("<=", 1e-6+1e-6*math.Exp(-0.1*tk)))
				Expect(math.Abs(second.Y[0][i] - math.Exp(-0.2*tk))).To(BeNumerically("<=", 1e-6+1e-6*math.Exp(-0.2*tk)))
			}
		})

		It("fails when a declared input is missing", func() {
			m := lowered(models.Decay())
			_, err := solver.New().Solve(m, linspace(0, 1, 10), nil)
			Expect(err).To(MatchError(ContainSubstring("rate")))
		})
	})

	Describe("GetSolve", func() {
		It("requires a prior Solve for the same structure", func() {
			m := lowered(models.Decay())
			tEval := linspace(0, 5, 100)
			s := solver.New(solver.WithTolerances(1e-8, 1e-8))

			_, err := s.GetSolve(m, tEval)
			Expect(err).To(MatchError(solver.ErrNotSetUp))

			_, err = s.Solve(m, tEval, map[string]float64{"rate": 0.1})
			Expect(err).NotTo(HaveOccurred())

			run, err := s.GetSolve(m, tEval)
			Expect(err).NotTo(HaveOccurred())

			for _, rate := range []float64{0.1, 0.2} {
				y, _, err := run(map[string]float64{"rate": rate})
				Expect(err).NotTo(HaveOccurred())
				want := make([]float64, len(tEval))
				for i, tk := range tEval {
					want[i] = math.Exp(-rate * tk)
				}
				expectClose(y[0], want, 1e-6, 1e-6)
			}
		})

		It("still enforces the representation check", func() {
			m := lowered(models.Decay())
			m.SetForm(symbolic.FormInterp)
			_, err := solver.New().GetSolve(m, linspace(0, 1, 10))
			Expect(err).To(MatchError(solver.ErrNotLowered))
		})
	})

	Describe("grid validation", func() {
		It("rejects non-increasing grids", func() {
			m := lowered(models.Decay())
			s := solver.New()
			_, err := s.Solve(m, []float64{0, 1, 1}, map[string]float64{"rate": 0.1})
			Expect(err).To(MatchError(solver.ErrGrid))

			_, err = s.Solve(m, []float64{0}, map[string]float64{"rate": 0.1})
			Expect(err).To(MatchError(solver.ErrGrid))
		})
	})

	Describe("configuration", func() {
		It("rejects unknown stepping families at set-up", func() {
			m := lowered(models.Decay())
			s := solver.New(solver.WithMethod("leapfrog"))
			_, err := s.Solve(m, linspace(0, 1, 10), map[string]float64{"rate": 0.1})
			Expect(err).To(MatchError(solver.ErrUnknownMethod))
		})
	})
})
