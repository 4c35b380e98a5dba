package store

import (
	"testing"
	"time"

	"github.com/voltlab/voltsim/internal/ode"
	"github.com/voltlab/voltsim/internal/solver"
)

func sampleSolution() *solver.Solution {
	return &solver.Solution{
		T: []float64{0, 0.5, 1.0},
		Y: [][]float64{
			{1.0, 0.6, 0.36},
			{0.0, 0.1, 0.25},
		},
		Termination: solver.TerminationFinalTime,
		SetUpTime:   2 * time.Millisecond,
		SolveTime:   5 * time.Millisecond,
		TotalTime:   7 * time.Millisecond,
		Stats:       ode.Stats{Steps: 42, Rejected: 3, RHSEvals: 300, JacEvals: 10},
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	s := New(t.TempDir())
	if err := s.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}

	info := RunInfo{
		Model:  "oscillator",
		Method: "rk45",
		RTol:   1e-8,
		ATol:   1e-8,
		Inputs: map[string]float64{},
		States: []string{"x", "v"},
	}
	runID, err := s.Save(info, sampleSolution())
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	meta, err := s.Load(runID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if meta.Model != "oscillator" || meta.Method != "rk45" {
		t.Errorf("metadata mismatch: %+v", meta)
	}
	if meta.Termination != "final time" {
		t.Errorf("termination = %q, want final time", meta.Termination)
	}
	if meta.Steps != 42 || meta.Rejected != 3 {
		t.Errorf("stats not persisted: %+v", meta)
	}
	if got, want := meta.TotalTime, meta.SetUpTime+meta.SolveTime; got != want {
		t.Errorf("total time %f != setup %f + solve %f", got, meta.SetUpTime, meta.SolveTime)
	}
	if len(meta.States) != 2 || meta.States[0] != "x" {
		t.Errorf("states not persisted: %v", meta.States)
	}
}

func TestLoadTrajectory(t *testing.T) {
	s := New(t.TempDir())
	if err := s.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}

	sol := sampleSolution()
	runID, err := s.Save(RunInfo{Model: "oscillator", States: []string{"x", "v"}}, sol)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	times, y, err := s.LoadTrajectory(runID)
	if err != nil {
		t.Fatalf("load trajectory: %v", err)
	}
	if len(times) != len(sol.T) {
		t.Fatalf("got %d time points, want %d", len(times), len(sol.T))
	}
	if len(y) != len(sol.Y) {
		t.Fatalf("got %d series, want %d", len(y), len(sol.Y))
	}
	for i := range sol.Y {
		for k := range sol.T {
			if y[i][k] != sol.Y[i][k] {
				t.Errorf("y[%d][%d] = %v, want %v", i, k, y[i][k], sol.Y[i][k])
			}
		}
	}
}

func TestList(t *testing.T) {
	s := New(t.TempDir())
	if err := s.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}

	runs, err := s.List()
	if err != nil {
		t.Fatalf("list empty store: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("fresh store has %d runs", len(runs))
	}

	if _, err := s.Save(RunInfo{Model: "decay", States: []string{"c"}}, sampleSolution()); err != nil {
		t.Fatalf("save: %v", err)
	}
	runs, err = s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("got %d runs, want 1", len(runs))
	}
}

func TestListMissingBaseDir(t *testing.T) {
	s := New("/nonexistent/voltsim-test-store")
	runs, err := s.List()
	if err != nil {
		t.Fatalf("list on missing dir should not fail: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("got %d runs, want 0", len(runs))
	}
}

func TestLoadUnknownRun(t *testing.T) {
	s := New(t.TempDir())
	if _, err := s.Load("decay_0"); err == nil {
		t.Error("expected error for unknown run")
	}
}
