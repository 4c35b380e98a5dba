package steppers

import (
	"errors"
	"math"
	"testing"

	"github.com/voltlab/voltsim/internal/models"
	"github.com/voltlab/voltsim/internal/ode"
	"github.com/voltlab/voltsim/internal/tape"
)

func grid(t0, t1 float64, n int) []float64 {
	g := make([]float64, n)
	dt := (t1 - t0) / float64(n-1)
	for i := range g {
		g[i] = t0 + float64(i)*dt
	}
	g[n-1] = t1
	return g
}

func lowerDecay(t *testing.T) ode.System {
	t.Helper()
	p, err := tape.Compile(models.Decay())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return p
}

func lowerOscillator(t *testing.T) ode.System {
	t.Helper()
	p, err := tape.Compile(models.Oscillator(1.0))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return p
}

func integrators() map[string]ode.Integrator {
	return map[string]ode.Integrator{
		"rk45": NewRK45(),
		"bdf":  NewBDF(),
	}
}

func TestDecayAccuracy(t *testing.T) {
	sys := lowerDecay(t)
	g := grid(0, 5, 100)
	opts := ode.DefaultOptions()
	opts.RTol = 1e-8
	opts.ATol = 1e-8
	rate := 0.3

	for name, integ := range integrators() {
		t.Run(name, func(t *testing.T) {
			traj, stats, err := integ.Integrate(sys, ode.State{1}, g, []float64{rate}, opts)
			if err != nil {
				t.Fatalf("integrate: %v", err)
			}
			if stats.Steps == 0 {
				t.Error("no steps recorded")
			}
			for k, tk := range g {
				want := math.Exp(-rate * tk)
				if diff := math.Abs(traj[k][0] - want); diff > 1e-7+1e-7*want {
					t.Fatalf("t=%.3f: got %.10f, want %.10f (diff %.2e)", tk, traj[k][0], want, diff)
				}
			}
		})
	}
}

func TestOscillatorAccuracy(t *testing.T) {
	sys := lowerOscillator(t)
	g := grid(0, 2, 50)
	opts := ode.DefaultOptions()
	opts.RTol = 1e-8
	opts.ATol = 1e-8

	for name, integ := range integrators() {
		t.Run(name, func(t *testing.T) {
			traj, _, err := integ.Integrate(sys, ode.State{1, 0}, g, nil, opts)
			if err != nil {
				t.Fatalf("integrate: %v", err)
			}
			last := len(g) - 1
			wantX := math.Cos(g[last])
			wantV := -math.Sin(g[last])
			if math.Abs(traj[last][0]-wantX) > 1e-6 {
				t.Errorf("x(%.2f) = %.9f, want %.9f", g[last], traj[last][0], wantX)
			}
			if math.Abs(traj[last][1]-wantV) > 1e-6 {
				t.Errorf("v(%.2f) = %.9f, want %.9f", g[last], traj[last][1], wantV)
			}
		})
	}
}

func TestTrajectoryStartsAtInitial(t *testing.T) {
	sys := lowerDecay(t)
	g := grid(0, 1, 10)
	for name, integ := range integrators() {
		t.Run(name, func(t *testing.T) {
			traj, _, err := integ.Integrate(sys, ode.State{1}, g, []float64{0.5}, ode.DefaultOptions())
			if err != nil {
				t.Fatalf("integrate: %v", err)
			}
			if traj[0][0] != 1 {
				t.Errorf("traj[0] = %f, want the initial condition", traj[0][0])
			}
			if len(traj) != len(g) {
				t.Errorf("trajectory has %d points, grid has %d", len(traj), len(g))
			}
		})
	}
}

func TestDimensionMismatch(t *testing.T) {
	sys := lowerDecay(t)
	g := grid(0, 1, 5)
	for name, integ := range integrators() {
		t.Run(name, func(t *testing.T) {
			_, _, err := integ.Integrate(sys, ode.State{1, 2}, g, []float64{0.5}, ode.DefaultOptions())
			if !errors.Is(err, ode.ErrDimensionMismatch) {
				t.Errorf("expected ErrDimensionMismatch, got %v", err)
			}
		})
	}
}

func TestBDFStiffDecay(t *testing.T) {
	// rate=200 makes the explicit method sweat; the implicit one should
	// stay stable and accurate.
	sys := lowerDecay(t)
	g := grid(0, 0.5, 20)
	opts := ode.DefaultOptions()
	opts.RTol = 1e-6
	opts.ATol = 1e-8

	traj, _, err := NewBDF().Integrate(sys, ode.State{1}, g, []float64{200}, opts)
	if err != nil {
		t.Fatalf("integrate: %v", err)
	}
	for k, tk := range g {
		want := math.Exp(-200 * tk)
		if math.Abs(traj[k][0]-want) > 1e-5 {
			t.Fatalf("t=%.3f: got %.10f, want %.10f", tk, traj[k][0], want)
		}
	}
}

func TestMaxStepsExceeded(t *testing.T) {
	sys := lowerDecay(t)
	g := grid(0, 100, 5)
	opts := ode.DefaultOptions()
	opts.MaxSteps = 3

	_, _, err := NewRK45().Integrate(sys, ode.State{1}, g, []float64{1}, opts)
	if !errors.Is(err, ode.ErrMaxSteps) {
		t.Errorf("expected ErrMaxSteps, got %v", err)
	}
}

func BenchmarkRK45Diffusion(b *testing.B) {
	p, err := tape.Compile(models.DiffusionChain(20))
	if err != nil {
		b.Fatal(err)
	}
	sys := p.Optimized()
	g := grid(0, 0.1, 20)
	integ := NewRK45()
	y0 := make(ode.State, sys.Dim())
	y0[0] = 1

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := integ.Integrate(sys, y0, g, []float64{0.01}, ode.DefaultOptions()); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBDFDiffusion(b *testing.B) {
	p, err := tape.Compile(models.DiffusionChain(20))
	if err != nil {
		b.Fatal(err)
	}
	sys := p.Optimized()
	g := grid(0, 0.1, 20)
	integ := NewBDF()
	y0 := make(ode.State, sys.Dim())
	y0[0] = 1

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := integ.Integrate(sys, y0, g, []float64{0.01}, ode.DefaultOptions()); err != nil {
			b.Fatal(err)
		}
	}
}
