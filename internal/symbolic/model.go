// Package symbolic represents dynamical-system models as expression
// trees: one right-hand-side expression and one initial value per state
// variable, plus named input parameters resolved at solve time and
// optional termination events.
//
// A model starts in FormSymbolic and must be lowered (see the tape
// package) before a solver can run it.
package symbolic

import (
	"errors"
	"fmt"
	"strings"

	"github.com/voltlab/voltsim/internal/ode"
)

// Form tags the internal representation a model's right-hand side has
// been lowered to. A closed enum rather than a free-form string, so a
// typo cannot masquerade as a supported representation.
type Form int

const (
	// FormSymbolic is the unlowered expression-tree form.
	FormSymbolic Form = iota

	// FormInterp marks lowering to the tree-walking interpreter.
	FormInterp

	// FormExternal marks lowering to an external code generator.
	FormExternal

	// FormTape marks lowering to the differentiable flat-tape form
	// accepted by the tape solver.
	FormTape
)

func (f Form) String() string {
	switch f {
	case FormSymbolic:
		return "symbolic"
	case FormInterp:
		return "interp"
	case FormExternal:
		return "external"
	case FormTape:
		return "tape"
	default:
		return "unknown"
	}
}

// Event is a named scalar expression whose crossing from positive to
// non-positive signals that integration should stop early.
type Event struct {
	Name string
	Expr Expr
}

var (
	ErrDuplicateState = errors.New("symbolic: state already declared")
	ErrUnknownSymbol  = errors.New("symbolic: expression references undeclared symbol")
	ErrIncomplete     = errors.New("symbolic: model is incomplete")
)

// Model is the intermediate representation of a dynamical system.
// State order is declaration order and is significant: it fixes the
// layout of the lowered state vector.
type Model struct {
	name    string
	states  []string
	rhs     map[string]Expr
	initial map[string]float64
	inputs  []string
	events  []Event
	form    Form
	lowered ode.System
}

func NewModel(name string) *Model {
	return &Model{
		name:    name,
		rhs:     make(map[string]Expr),
		initial: make(map[string]float64),
		form:    FormSymbolic,
	}
}

func (m *Model) Name() string { return m.name }

// AddState declares a state variable with its right-hand side and
// initial value.
func (m *Model) AddState(name string, rhs Expr, y0 float64) error {
	if _, ok := m.rhs[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateState, name)
	}
	m.states = append(m.states, name)
	m.rhs[name] = rhs
	m.initial[name] = y0
	return nil
}

// DeclareInput registers a named input parameter. Order of declaration
// fixes the layout of the resolved input vector.
func (m *Model) DeclareInput(name string) {
	for _, in := range m.inputs {
		if in == name {
			return
		}
	}
	m.inputs = append(m.inputs, name)
}

func (m *Model) AddEvent(name string, e Expr) {
	m.events = append(m.events, Event{Name: name, Expr: e})
}

func (m *Model) States() []string {
	return append([]string(nil), m.states...)
}

func (m *Model) RHS(state string) Expr { return m.rhs[state] }

func (m *Model) Inputs() []string {
	return append([]string(nil), m.inputs...)
}

func (m *Model) Events() []Event {
	return append([]Event(nil), m.events...)
}

// InitialVector returns the initial conditions in state order.
func (m *Model) InitialVector() ode.State {
	y0 := make(ode.State, len(m.states))
	for i, s := range m.states {
		y0[i] = m.initial[s]
	}
	return y0
}

func (m *Model) Form() Form { return m.form }

// SetForm overrides the representation tag. Lowering pipelines call this
// themselves; it is exposed so a model can be retagged when its lowered
// artifact is produced elsewhere.
func (m *Model) SetForm(f Form) { m.form = f }

// Lowered returns the numeric artifact attached by a lowering pipeline,
// or nil if the model has not been lowered.
func (m *Model) Lowered() ode.System { return m.lowered }

// SetLowered attaches a lowered artifact and tags the model with the
// given form.
func (m *Model) SetLowered(sys ode.System, f Form) {
	m.lowered = sys
	m.form = f
}

// Validate checks that the model is closed: every state has an RHS and
// initial value, and every symbol referenced by an RHS or event is a
// declared state or input.
func (m *Model) Validate() error {
	if len(m.states) == 0 {
		return fmt.Errorf("%w: model %q has no states", ErrIncomplete, m.name)
	}
	check := func(e Expr) error {
		var err error
		Visit(e, func(n Expr) {
			switch v := n.(type) {
			case StateRef:
				if _, ok := m.rhs[v.Name]; !ok {
					err = fmt.Errorf("%w: state %q", ErrUnknownSymbol, v.Name)
				}
			case InputRef:
				found := false
				for _, in := range m.inputs {
					if in == v.Name {
						found = true
					}
				}
				if !found {
					err = fmt.Errorf("%w: input %q", ErrUnknownSymbol, v.Name)
				}
			}
		})
		return err
	}
	for _, s := range m.states {
		if m.rhs[s] == nil {
			return fmt.Errorf("%w: state %q has no right-hand side", ErrIncomplete, s)
		}
		if err := check(m.rhs[s]); err != nil {
			return fmt.Errorf("rhs of %q: %w", s, err)
		}
	}
	for _, ev := range m.events {
		if err := check(ev.Expr); err != nil {
			return fmt.Errorf("event %q: %w", ev.Name, err)
		}
	}
	return nil
}

// Fingerprint identifies the model structure for closure caching: two
// models with the same fingerprint have the same state layout and input
// signature.
func (m *Model) Fingerprint() string {
	return m.name + "|" + strings.Join(m.states, ",") + "|" + strings.Join(m.inputs, ",")
}
