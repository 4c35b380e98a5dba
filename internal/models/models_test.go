package models

import (
	"testing"

	"github.com/voltlab/voltsim/internal/symbolic"
)

func TestBuildersValidate(t *testing.T) {
	builders := map[string]func() *symbolic.Model{
		"decay":      Decay,
		"growth":     func() *symbolic.Model { return Growth(0.1) },
		"oscillator": func() *symbolic.Model { return Oscillator(1.0) },
		"diffusion":  func() *symbolic.Model { return DiffusionChain(10) },
		"cutoffs":    DecayWithCutoffs,
	}
	for name, build := range builders {
		t.Run(name, func(t *testing.T) {
			if err := build().Validate(); err != nil {
				t.Errorf("builder produced invalid model: %v", err)
			}
		})
	}
}

func TestDecayShape(t *testing.T) {
	m := Decay()
	if got := m.States(); len(got) != 1 || got[0] != "c" {
		t.Errorf("states = %v, want [c]", got)
	}
	if got := m.Inputs(); len(got) != 1 || got[0] != "rate" {
		t.Errorf("inputs = %v, want [rate]", got)
	}
	if y0 := m.InitialVector(); y0[0] != 1.0 {
		t.Errorf("c(0) = %f, want 1", y0[0])
	}
}

func TestOscillatorShape(t *testing.T) {
	m := Oscillator(2.0)
	if got := m.States(); len(got) != 2 || got[0] != "x" || got[1] != "v" {
		t.Errorf("states = %v, want [x v]", got)
	}
	y0 := m.InitialVector()
	if y0[0] != 1.0 || y0[1] != 0.0 {
		t.Errorf("y0 = %v, want [1 0]", y0)
	}
}

func TestDiffusionChainShape(t *testing.T) {
	m := DiffusionChain(5)
	states := m.States()
	if len(states) != 5 {
		t.Fatalf("got %d states, want 5", len(states))
	}
	if states[0] != "c0" || states[4] != "c4" {
		t.Errorf("cell naming off: %v", states)
	}
	y0 := m.InitialVector()
	if y0[0] != 1.0 {
		t.Errorf("pulse cell = %f, want 1", y0[0])
	}
	for i := 1; i < len(y0); i++ {
		if y0[i] != 0 {
			t.Errorf("cell %d starts at %f, want 0", i, y0[i])
		}
	}
}

func TestDecayWithCutoffsEvents(t *testing.T) {
	m := DecayWithCutoffs()
	events := m.Events()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Name != "c=0.5" || events[1].Name != "c=-0.5" {
		t.Errorf("event names = %q, %q", events[0].Name, events[1].Name)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	want := []string{"decay", "diffusion", "growth", "oscillator"}
	got := r.List()
	if len(got) != len(want) {
		t.Fatalf("list = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("list[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	m, err := r.Get("decay")
	if err != nil {
		t.Fatalf("get decay: %v", err)
	}
	if m.Name() != "decay" {
		t.Errorf("model name = %q", m.Name())
	}

	if _, err := r.Get("pendulum"); err == nil {
		t.Error("expected error for unregistered model")
	}

	r.Register("pendulum", func() *symbolic.Model { return Oscillator(3.0) })
	if _, err := r.Get("pendulum"); err != nil {
		t.Errorf("registered builder not retrievable: %v", err)
	}
}
