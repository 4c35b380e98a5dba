// Package steppers implements the two stepping families the solver
// adapter can select: an explicit adaptive Dormand-Prince pair ("rk45")
// and an implicit adaptive BDF method ("bdf"). Both control the local
// error against atol + rtol*|y| and land exactly on every requested
// output time.
package steppers

import (
	"fmt"
	"math"

	"github.com/voltlab/voltsim/internal/ode"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

func (r *RK45) Name() string { return "rk45" }

func (r *RK45) Integrate(sys ode.System, y0 ode.State, grid []float64, inputs []float64, opts ode.Options) ([]ode.State, ode.Stats, error) {
	n := sys.Dim()
	if len(y0) != n {
		return nil, ode.Stats{}, fmt.Errorf("%w: state has %d entries, system has %d", ode.ErrDimensionMismatch, len(y0), n)
	}

	var stats ode.Stats
	traj := make([]ode.State, len(grid))
	traj[0] = y0.Clone()

	y := y0.Clone()
	k1 := make([]float64, n)
	k2 := make([]float64, n)
	k3 := make([]float64, n)
	k4 := make([]float64, n)
	k5 := make([]float64, n)
	k6 := make([]float64, n)
	k7 := make([]float64, n)
	stage := make([]float64, n)
	yNew := make([]float64, n)
	errEst := make([]float64, n)

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

			sys.Eval(t, y, inputs, k1)
			for i := 0; i < n; i++ {
				stage[i] = y[i] + h*b21*k1[i]
			}
			sys.Eval(t+a2*h, stage, inputs, k2)
			for i := 0; i < n; i++ {
				stage[i] = y[i] + h*(b31*k1[i]+b32*k2[i])
			}
			sys.Eval(t+a3*h, stage, inputs, k3)
			for i := 0; i < n; i++ {
				stage[i] = y[i] + h*(b41*k1[i]+b42*k2[i]+b43*k3[i])
			}
			sys.Eval(t+a4*h, stage, inputs, k4)
			for i := 0; i < n; i++ {
				stage[i] = y[i] + h*(b51*k1[i]+b52*k2[i]+b53*k3[i]+b54*k4[i])
			}
			sys.Eval(t+a5*h, stage, inputs, k5)
			for i := 0; i < n; i++ {
				stage[i] = y[i] + h*(b61*k1[i]+b62*k2[i]+b63*k3[i]+b64*k4[i]+b65*k5[i])
			}
			sys.Eval(t+h, stage, inputs, k6)
			for i := 0; i < n; i++ {
				yNew[i] = y[i] + h*(c1*k1[i]+c3*k3[i]+c4*k4[i]+c5*k5[i]+c6*k6[i])
			}
			sys.Eval(t+h, yNew, inputs, k7)
			stats.RHSEvals += 7

			for i := 0; i < n; i++ {
				errEst[i] = h * (dc1*k1[i] + dc3*k3[i] + dc4*k4[i] + dc5*k5[i] + dc6*k6[i] + dc7*k7[i])
			}
			norm := ode.ErrorNorm(errEst, y, yNew, opts.RTol, opts.ATol)

			blewUp := !ode.State(yNew).IsValid()
			if blewUp {
				norm = math.Inf(1)
			}

			if norm <= 1 {
				stats.Steps++
				stats.LastStep = h
				if last {
					t = tNext
				} else {
					t += h
				}
				copy(y, yNew)

				var scale float64
				if norm > 0 {
					scale = math.Min(r.maxScale, r.safety*math.Pow(norm, -0.2))
				} else {
					scale = r.maxScale
				}
				h *= scale
			} else {
				stats.Rejected++
				scale := r.safety * math.Pow(norm, -0.25)
				if math.IsInf(norm, 1) {
					scale = r.minScale
				}
				h *= math.Max(r.minScale, scale)
				if h < opts.MinStep {
					cause := ode.ErrStepTooSmall
					if blewUp {
						cause = ode.ErrInvalidState
					}
					return nil, stats, &ode.StepError{Time: t, Step: stats.Steps, Wrapped: cause}
				}
			}
		}
		traj[seg] = y.Clone()
	}

	return traj, stats, nil
}
