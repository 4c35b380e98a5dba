// Package models provides built-in symbolic systems. Every builder
// returns an unlowered model; callers run tape.Compile before handing
// it to the solver, mirroring the model -> lowering -> solve pipeline.
package models

import (
	"fmt"

	"github.com/voltlab/voltsim/internal/symbolic"
)

// Decay is dc/dt = -rate*c with c(0)=1 and "rate" resolved at solve
// time. Closed form: c(t) = exp(-rate*t).
func Decay() *symbolic.Model {
	m := symbolic.NewModel("decay")
	m.DeclareInput("rate")
	m.AddState("c", symbolic.Neg(symbolic.Mul(symbolic.Input("rate"), symbolic.Var("c"))), 1.0)
	return m
}

// Growth is dc/dt = k*c with c(0)=1. Closed form: c(t) = exp(k*t).
func Growth(k float64) *symbolic.Model {
	m := symbolic.NewModel("growth")
	m.AddState("c", symbolic.Scale(k, symbolic.Var("c")), 1.0)
	return m
}

// Oscillator is the harmonic oscillator x'' = -omega^2 x written in
// first-order form, x(0)=1, v(0)=0. Closed form: x(t) = cos(omega*t).
func Oscillator(omega float64) *symbolic.Model {
	m := symbolic.NewModel("oscillator")
	m.AddState("x", symbolic.Var("v"), 1.0)
	m.AddState("v", symbolic.Scale(-omega*omega, symbolic.Var("x")), 0.0)
	return m
}

// DiffusionChain is a method-of-lines discretization of dc/dt = d*c_xx
// on n cells of width 1/n with no-flux boundaries; the diffusivity "d"
// is an input parameter. Concentration starts as a unit pulse in the
// first cell and relaxes toward the uniform profile.
func DiffusionChain(n int) *symbolic.Model {
	m := symbolic.NewModel(fmt.Sprintf("diffusion-%d", n))
	m.DeclareInput("d")

	dx2 := 1.0 / float64(n*n)
	cell := func(i int) string { return fmt.Sprintf("c%d", i) }
	flux := func(hi, lo int) symbolic.Expr {
		// d*(c_hi - c_lo)/dx^2
		return symbolic.Mul(
			symbolic.Input("d"),
			symbolic.Div(
				symbolic.Sub(symbolic.Var(cell(hi)), symbolic.Var(cell(lo))),
				symbolic.Scalar(dx2),
			),
		)
	}

	for i := 0; i < n; i++ {
		var rhs symbolic.Expr
		switch {
		case i == 0:
			rhs = flux(1, 0)
		case i == n-1:
			rhs = flux(n-2, n-1)
		default:
			rhs = symbolic.Add(flux(i-1, i), flux(i+1, i))
		}
		y0 := 0.0
		if i == 0 {
			y0 = 1.0
		}
		m.AddState(cell(i), rhs, y0)
	}
	return m
}

// DecayWithCutoffs is the decay system plus two termination events, one
// on either side of zero. The tape solver rejects it; it exists for
// pipelines that do support events and to exercise rejection paths.
func DecayWithCutoffs() *symbolic.Model {
	m := Decay()
	m.AddEvent("c=0.5", symbolic.Sub(symbolic.Var("c"), symbolic.Scalar(0.5)))
	m.AddEvent("c=-0.5", symbolic.Add(symbolic.Var("c"), symbolic.Scalar(0.5)))
	return m
}
