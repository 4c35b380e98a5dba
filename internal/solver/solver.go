// Package solver runs models lowered to the differentiable tape
// representation and caches the compiled integration closure across
// calls, so repeated solves of the same structure with different input
// values pay the set-up cost only once.
package solver

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/voltlab/voltsim/internal/ode"
	"github.com/voltlab/voltsim/internal/steppers"
	"github.com/voltlab/voltsim/internal/symbolic"
	"github.com/voltlab/voltsim/internal/tape"
)

var (
	// ErrNotLowered rejects models whose right-hand side has not been
	// converted to the tape representation.
	ErrNotLowered = errors.New("solver: model must be converted to the tape representation (symbolic.FormTape)")

	// ErrEvents rejects models declaring termination events: this
	// adapter's integrators cannot interrupt mid-trajectory on a
	// zero-crossing.
	ErrEvents = errors.New("solver: termination events are not supported")

	// ErrNotSetUp is returned by GetSolve before any successful Solve
	// for the same model structure and grid.
	ErrNotSetUp = errors.New("solver: model is not set up for solving")

	// ErrGrid rejects time grids that are not strictly increasing or
	// have fewer than two points.
	ErrGrid = errors.New("solver: time grid must be strictly increasing with at least two points")

	// ErrUnknownMethod rejects unrecognized stepping-family names.
	ErrUnknownMethod = errors.New("solver: unknown method")
)

// TerminationFinalTime is the only termination reason this adapter can
// report, since events are unsupported.
const TerminationFinalTime = "final time"

// SolveFunc is a reusable integration closure: it maps input-parameter
// values to a per-state trajectory without rebuilding anything.
type SolveFunc func(inputs map[string]float64) ([][]float64, ode.Stats, error)

// Option configures a Solver.
type Option func(*Solver)

// WithMethod selects the stepping family: "rk45" (explicit
// Dormand-Prince, the default) or "bdf" (implicit).
func WithMethod(name string) Option {
	return func(s *Solver) { s.method = name }
}

// WithTolerances sets the relative and absolute error tolerances passed
// to the integrator.
func WithTolerances(rtol, atol float64) Option {
	return func(s *Solver) {
		s.rtol = rtol
		s.atol = atol
	}
}

// Solver integrates lowered models over a fixed output grid.
//
// A Solver owns a cache of compiled integration closures keyed by the
// structural fingerprint of (model, grid length). The cache is not safe
// for concurrent mutation; parallel solves need separate Solver
// instances.
type Solver struct {
	method string
	rtol   float64
	atol   float64
	cache  map[cacheKey]*compiled
}

type cacheKey struct {
	fingerprint string
	gridLen     int
}

// compiled is the cached artifact for one model structure: the
// optimized tape, the integrator instance and the frozen grid.
type compiled struct {
	prog  *tape.Program
	integ ode.Integrator
	y0    ode.State
	grid  []float64
	opts  ode.Options
}

func New(opts ...Option) *Solver {
	s := &Solver{
		method: "rk45",
		rtol:   1e-6,
		atol:   1e-6,
		cache:  make(map[cacheKey]*compiled),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Solver) Method() string { return s.method }

// Solve integrates the model over tEval with the given input values.
//
// The first call for a given (model structure, grid length) builds and
// caches the integration closure; that work is reported as
// Solution.SetUpTime. Later structurally identical calls reuse the
// cached closure and carry a near-zero set-up time.
func (s *Solver) Solve(m *symbolic.Model, tEval []float64, inputs map[string]float64) (*Solution, error) {
	if err := s.check(m); err != nil {
		return nil, err
	}
	if err := checkGrid(tEval); err != nil {
		return nil, err
	}

	setUpStart := time.Now()
	c, err := s.setUp(m, tEval)
	if err != nil {
		return nil, err
	}
	setUp := time.Since(setUpStart)

	solveStart := time.Now()
	y, stats, err := c.run(inputs)
	if err != nil {
		return nil, err
	}
	solve := time.Since(solveStart)

	t := make([]float64, len(tEval))
	copy(t, tEval)

	return &Solution{
		T:           t,
		Y:           y,
		Termination: TerminationFinalTime,
		SetUpTime:   setUp,
		SolveTime:   solve,
		TotalTime:   setUp + solve,
		Stats:       stats,
	}, nil
}

// GetSolve exposes the cached closure directly. It requires a prior
// successful Solve for the same model structure and grid.
func (s *Solver) GetSolve(m *symbolic.Model, tEval []float64) (SolveFunc, error) {
	if err := s.check(m); err != nil {
		return nil, err
	}
	c, ok := s.cache[cacheKey{m.Fingerprint(), len(tEval)}]
	if !ok {
		return nil, fmt.Errorf("%w: call Solve for model %q first", ErrNotSetUp, m.Name())
	}
	return c.run, nil
}

// check enforces the adapter's preconditions: tape form, lowered
// artifact attached and no termination events. The whole event list is
// inspected so that a model declaring several events reports them all.
func (s *Solver) check(m *symbolic.Model) error {
	if m.Form() != symbolic.FormTape {
		return fmt.Errorf("%w: model %q is in %s form", ErrNotLowered, m.Name(), m.Form())
	}
	if _, ok := m.Lowered().(*tape.Program); !ok {
		return fmt.Errorf("%w: model %q carries no tape program", ErrNotLowered, m.Name())
	}
	if events := m.Events(); len(events) > 0 {
		names := make([]string, len(events))
		for i, ev := range events {
			names[i] = ev.Name
		}
		return fmt.Errorf("%w: model %q declares %d events (%s)", ErrEvents, m.Name(), len(events), strings.Join(names, ", "))
	}
	return nil
}

func (s *Solver) setUp(m *symbolic.Model, tEval []float64) (*compiled, error) {
	k := cacheKey{m.Fingerprint(), len(tEval)}
	if c, ok := s.cache[k]; ok {
		return c, nil
	}

	integ, err := s.newIntegrator()
	if err != nil {
		return nil, err
	}

	prog := m.Lowered().(*tape.Program)
	opts := ode.DefaultOptions()
	opts.RTol = s.rtol
	opts.ATol = s.atol

	grid := make([]float64, len(tEval))
	copy(grid, tEval)

	c := &compiled{
		prog:  prog.Optimized(),
		integ: integ,
		y0:    m.InitialVector(),
		grid:  grid,
		opts:  opts,
	}
	s.cache[k] = c
	return c, nil
}

func (s *Solver) newIntegrator() (ode.Integrator, error) {
	switch s.method {
	case "rk45":
		return steppers.NewRK45(), nil
	case "bdf":
		return steppers.NewBDF(), nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: rk45, bdf)", ErrUnknownMethod, s.method)
	}
}

// run executes the cached closure for one set of input values,
// returning the trajectory transposed to one series per state.
func (c *compiled) run(inputs map[string]float64) ([][]float64, ode.Stats, error) {
	vals, err := c.prog.ResolveInputs(inputs)
	if err != nil {
		return nil, ode.Stats{}, err
	}

	rows, stats, err := c.integ.Integrate(c.prog, c.y0, c.grid, vals, c.opts)
	if err != nil {
		return nil, stats, err
	}

	y := make([][]float64, c.prog.Dim())
	for i := range y {
		y[i] = make([]float64, len(rows))
		for k, row := range rows {
			y[i][k] = row[i]
		}
	}
	return y, stats, nil
}

func checkGrid(tEval []float64) error {
	if len(tEval) < 2 {
		return fmt.Errorf("%w: got %d points", ErrGrid, len(tEval))
	}
	for i := 1; i < len(tEval); i++ {
		if tEval[i] <= tEval[i-1] {
			return fmt.Errorf("%w: t[%d]=%g does not increase past t[%d]=%g", ErrGrid, i, tEval[i], i-1, tEval[i-1])
		}
	}
	return nil
}
