package solver

import (
	"fmt"
	"time"

	"github.com/voltlab/voltsim/internal/ode"
)

// Solution is the result of one Solve call.
//
// T is the requested grid, returned exactly (no resampling). Y holds
// one series per state variable, Y[i][k] being state i at T[k].
// TotalTime is stored as the sum of the two phases, so
// TotalTime == SetUpTime + SolveTime holds as an identity.
type Solution struct {
	T           []float64
	Y           [][]float64
	Termination string
	SetUpTime   time.Duration
	SolveTime   time.Duration
	TotalTime   time.Duration
	Stats       ode.Stats
}

// Final returns the state vector at the last grid point.
func (s *Solution) Final() ode.State {
	y := make(ode.State, len(s.Y))
	for i, series := range s.Y {
		y[i] = series[len(series)-1]
	}
	return y
}

// Summary renders a short human-readable report of the run.
func (s *Solution) Summary() string {
	return fmt.Sprintf(
		"points=%d states=%d termination=%q steps=%d rejected=%d rhs_evals=%d jac_evals=%d set_up=%v solve=%v total=%v",
		len(s.T), len(s.Y), s.Termination,
		s.Stats.Steps, s.Stats.Rejected, s.Stats.RHSEvals, s.Stats.JacEvals,
		s.SetUpTime, s.SolveTime, s.TotalTime,
	)
}
