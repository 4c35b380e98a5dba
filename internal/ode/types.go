package ode

import "math"

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// System is a model lowered to a directly evaluable numeric form.
// Inputs are resolved to a flat vector ordered as InputNames reports.
type System interface {
	// Dim returns the number of state variables.
	Dim() int

	// InputNames returns the declared input parameters, in order.
	InputNames() []string

	// Eval writes f(t, y, inputs) into dy.
	Eval(t float64, y, inputs, dy []float64)

	// Jac writes the Jacobian df/dy into jac in row-major order
	// (jac[i*n+j] = d f_i / d y_j, n = Dim()).
	Jac(t float64, y, inputs, jac []float64)
}

// Integrator advances a System across a strictly increasing output grid,
// returning one state per grid point. The first returned state is y0.
type Integrator interface {
	Name() string
	Integrate(sys System, y0 State, grid []float64, inputs []float64, opts Options) ([]State, Stats, error)
}

type Options struct {
	RTol     float64
	ATol     float64
	MaxSteps int
	MinStep  float64
}

func DefaultOptions() Options {
	return Options{
		RTol:     1e-6,
		ATol:     1e-6,
		MaxSteps: 5_000_000,
		MinStep:  1e-14,
	}
}

// Stats records the work an integrator performed over one trajectory.
type Stats struct {
	Steps    int
	Rejected int
	RHSEvals int
	JacEvals int
	LastStep float64
}

// ErrorNorm is the weighted rms norm used by the stepping families to
// accept or reject a step: a value <= 1 means the estimate is within
// atol + rtol*|y| componentwise.
func ErrorNorm(err, y0, y1 []float64, rtol, atol float64) float64 {
	if len(err) == 0 {
		return 0
	}
	sum := 0.0
	for i, e := range err {
		sc := atol + rtol*math.Max(math.Abs(y0[i]), math.Abs(y1[i]))
		w := e / sc
		sum += w * w
	}
	return math.Sqrt(sum / float64(len(err)))
}
