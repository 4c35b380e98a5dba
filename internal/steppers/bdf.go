package steppers

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/voltlab/voltsim/internal/ode"
)

// BDF is an adaptive implicit backward-differentiation stepper: backward
// Euler for the opening step, variable-step BDF2 after that. The
// corrector is solved by Newton iteration with the exact tape Jacobian,
// one LU factorization per attempted step. The error estimate is the
// distance between predictor and corrector, which over-resolves smooth
// problems but never under-reports the local error.
type BDF struct {
	safety    float64
	minScale  float64
	maxScale  float64
	newtonMax int
	newtonTol float64
}

func NewBDF() *BDF {
	return &BDF{
		safety:    0.9,
		minScale:  0.2,
		maxScale:  4.0,
		newtonMax: 8,
		newtonTol: 1e-12,
	}
}

func (b *BDF) Name() string { return "bdf" }

func (b *BDF) Integrate(sys ode.System, y0 ode.State, grid []float64, inputs []float64, opts ode.Options) ([]ode.State, ode.Stats, error) {
	n := sys.Dim()
	if len(y0) != n {
		return nil, ode.Stats{}, fmt.Errorf("%w: state has %d entries, system has %d", ode.ErrDimensionMismatch, len(y0), n)
	}

	var stats ode.Stats
	traj := make([]ode.State, len(grid))
	traj[0] = y0.Clone()

	y := y0.Clone()         // current point
	yPrev := ode.State(nil) // previous point, nil until the first step lands
	hPrev := 0.0

	jac := make([]float64, n*n)
	rhs := make([]float64, n)
	pred := make([]float64, n)
	yNew := make([]float64, n)
	errEst := make([]float64, n)
	iter := mat.NewVecDense(n, nil)
	resid := mat.NewVecDense(n, nil)
	sysMat := mat.NewDense(n, n, nil)

	t := grid[0]
	h := (grid[len(grid)-1] - grid[0]) / (100 * float64(len(grid)))
	if h <= 0 {
		h = 1e-6
	}

	for seg := 1; seg < len(grid); seg++ {
		tNext := grid[seg]
		for t < tNext {
			if stats.Steps+stats.Rejected >= opts.MaxSteps {
				return nil, stats, &ode.StepError{Time: t, Step: stats.Steps, Wrapped: ode.ErrMaxSteps}
			}

			last := false
			if t+h >= tNext {
				h = tNext - t
				last = true
			}

			// Corrector: yNew = beta*h*f(t+h, yNew) + gamma, with the
			// predictor as Newton starting point.
			var beta float64
			if yPrev == nil {
				// Backward Euler, constant predictor.
				beta = 1
				copy(rhs, y)
				copy(pred, y)
			} else {
				// Variable-step BDF2.
				r := h / hPrev
				d := 1 + 2*r
				w0 := (1 + r) * (1 + r) / d
				w1 := -r * r / d
				beta = (1 + r) / d
				for i := 0; i < n; i++ {
					rhs[i] = w0*y[i] + w1*yPrev[i]
					pred[i] = y[i] + r*(y[i]-yPrev[i])
				}
			}

			ok := b.newton(sys, t+h, beta*h, rhs, pred, yNew, inputs, jac, sysMat, iter, resid, &stats)

			norm := math.Inf(1)
			if ok && ode.State(yNew).IsValid() {
				for i := 0; i < n; i++ {
					errEst[i] = yNew[i] - pred[i]
				}
				norm = ode.ErrorNorm(errEst, y, yNew, opts.RTol, opts.ATol)
			}

			if norm <= 1 {
				stats.Steps++
				stats.LastStep = h
				if yPrev == nil {
					yPrev = make(ode.State, n)
				}
				copy(yPrev, y)
				copy(y, yNew)
				hPrev = h
				if last {
					t = tNext
				} else {
					t += h
				}

				var scale float64
				if norm > 0 {
					// The estimate is second order, hence the -1/2.
					scale = math.Min(b.maxScale, b.safety*math.Pow(norm, -0.5))
				} else {
					scale = b.maxScale
				}
				h *= scale
			} else {
				stats.Rejected++
				scale := b.minScale
				if !math.IsInf(norm, 1) {
					scale = math.Max(b.minScale, b.safety*math.Pow(norm, -0.5))
				}
				h *= scale
				if h < opts.MinStep {
					cause := ode.ErrStepTooSmall
					if !ok {
						cause = ode.ErrNewtonDiverged
					}
					return nil, stats, &ode.StepError{Time: t, Step: stats.Steps, Wrapped: cause}
				}
			}
		}
		traj[seg] = y.Clone()
	}

	return traj, stats, nil
}

// newton solves y - c*f(t, y) - rhs = 0 starting from pred, writing the
// root into yNew. Reports false when the iteration did not converge, so
// the caller can retry with a smaller step.
func (b *BDF) newton(sys ode.System, t, c float64, rhs, pred, yNew, inputs, jac []float64, sysMat *mat.Dense, iter, resid *mat.VecDense, stats *ode.Stats) bool {
	n := sys.Dim()
	f := make([]float64, n)

	sys.Jac(t, pred, inputs, jac)
	stats.JacEvals++
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			v := -c * jac[i*n+j]
			if i == j {
				v += 1
			}
			sysMat.Set(i, j, v)
		}
	}
	var lu mat.LU
	lu.Factorize(sysMat)

	copy(yNew, pred)
	for it := 0; it < b.newtonMax; it++ {
		sys.Eval(t, yNew, inputs, f)
		stats.RHSEvals++

		maxResid := 0.0
		for i := 0; i < n; i++ {
			r := yNew[i] - c*f[i] - rhs[i]
			resid.SetVec(i, r)
			scale := 1 + math.Abs(yNew[i])
			if a := math.Abs(r) / scale; a > maxResid {
				maxResid = a
			}
		}
		if maxResid < b.newtonTol {
			return true
		}

		if err := lu.SolveVecTo(iter, false, resid); err != nil {
			return false
		}
		for i := 0; i < n; i++ {
			yNew[i] -= iter.AtVec(i)
		}
		if !ode.State(yNew).IsValid() {
			return false
		}
	}

	return false
}
