// Package tape lowers symbolic models to a flat register program that
// evaluates the right-hand side as a pure function of (t, y, inputs) and
// differentiates it exactly with forward-mode dual numbers.
//
// The tape is the representation the solver adapter requires: compiling
// a model once yields a [Program] that can be re-run for any input
// values without touching the expression trees again.
package tape

import (
	"fmt"
	"math"
)

type opcode uint8

const (
	opConst opcode = iota
	opTime
	opState
	opInput
	opAdd
	opSub
	opMul
	opDiv
	opNeg
	opExp
	opSqrt
	opSin
	opCos
)

// instr writes one register; the destination is the instruction's own
// index, so the tape is in SSA form.
type instr struct {
	op  opcode
	a   int     // first operand register
	b   int     // second operand register
	idx int     // state/input slot for opState/opInput
	val float64 // literal for opConst
}

// Program is a lowered model: a flat instruction tape plus the register
// holding each state's derivative.
//
// A Program carries scratch buffers and is not safe for concurrent use.
type Program struct {
	model  string
	code   []instr
	out    []int // out[i] = register holding d(state i)/dt
	states []string
	inputs []string

	regs  []float64 // value scratch
	dregs []float64 // tangent scratch
}

func (p *Program) Dim() int             { return len(p.out) }
func (p *Program) InputNames() []string { return append([]string(nil), p.inputs...) }
func (p *Program) StateNames() []string { return append([]string(nil), p.states...) }

// Len reports the instruction count, mostly for tests and diagnostics.
func (p *Program) Len() int { return len(p.code) }

// ResolveInputs flattens a name->value map into the vector layout the
// program expects. Every declared input must be present.
func (p *Program) ResolveInputs(values map[string]float64) ([]float64, error) {
	resolved := make([]float64, len(p.inputs))
	for i, name := range p.inputs {
		v, ok := values[name]
		if !ok {
			return nil, fmt.Errorf("tape: missing value for input parameter %q", name)
		}
		resolved[i] = v
	}
	return resolved, nil
}

// Eval writes f(t, y, inputs) into dy.
func (p *Program) Eval(t float64, y, inputs, dy []float64) {
	if cap(p.regs) < len(p.code) {
		p.regs = make([]float64, len(p.code))
	}
	regs := p.regs[:len(p.code)]
	for i, in := range p.code {
		switch in.op {
		case opConst:
			regs[i] = in.val
		case opTime:
			regs[i] = t
		case opState:
			regs[i] = y[in.idx]
		case opInput:
			regs[i] = inputs[in.idx]
		case opAdd:
			regs[i] = regs[in.a] + regs[in.b]
		case opSub:
			regs[i] = regs[in.a] - regs[in.b]
		case opMul:
			regs[i] = regs[in.a] * regs[in.b]
		case opDiv:
			regs[i] = regs[in.a] / regs[in.b]
		case opNeg:
			regs[i] = -regs[in.a]
		case opExp:
			regs[i] = math.Exp(regs[in.a])
		case opSqrt:
			regs[i] = math.Sqrt(regs[in.a])
		case opSin:
			regs[i] = math.Sin(regs[in.a])
		case opCos:
			regs[i] = math.Cos(regs[in.a])
		}
	}
	for i, r := range p.out {
		dy[i] = regs[r]
	}
}

// Jac writes df/dy into jac in row-major order. One forward-mode dual
// sweep per state column; the tangent of column j is seeded on state j.
func (p *Program) Jac(t float64, y, inputs, jac []float64) {
	n := len(p.out)
	if cap(p.regs) < len(p.code) {
		p.regs = make([]float64, len(p.code))
	}
	if cap(p.dregs) < len(p.code) {
		p.dregs = make([]float64, len(p.code))
	}
	regs := p.regs[:len(p.code)]
	dregs := p.dregs[:len(p.code)]

	for j := 0; j < n; j++ {
		for i, in := range p.code {
			switch in.op {
			case opConst:
				regs[i], dregs[i] = in.val, 0
			case opTime:
				regs[i], dregs[i] = t, 0
			case opState:
				regs[i] = y[in.idx]
				if in.idx == j {
					dregs[i] = 1
				} else {
					dregs[i] = 0
				}
			case opInput:
				regs[i], dregs[i] = inputs[in.idx], 0
			case opAdd:
				regs[i] = regs[in.a] + regs[in.b]
				dregs[i] = dregs[in.a] + dregs[in.b]
			case opSub:
				regs[i] = regs[in.a] - regs[in.b]
				dregs[i] = dregs[in.a] - dregs[in.b]
			case opMul:
				regs[i] = regs[in.a] * regs[in.b]
				dregs[i] = dregs[in.a]*regs[in.b] + regs[in.a]*dregs[in.b]
			case opDiv:
				regs[i] = regs[in.a] / regs[in.b]
				dregs[i] = (dregs[in.a] - regs[i]*dregs[in.b]) / regs[in.b]
			case opNeg:
				regs[i] = -regs[in.a]
				dregs[i] = -dregs[in.a]
			case opExp:
				regs[i] = math.Exp(regs[in.a])
				dregs[i] = regs[i] * dregs[in.a]
			case opSqrt:
				regs[i] = math.Sqrt(regs[in.a])
				dregs[i] = 0.5 / regs[i] * dregs[in.a]
			case opSin:
				regs[i] = math.Sin(regs[in.a])
				dregs[i] = math.Cos(regs[in.a]) * dregs[in.a]
			case opCos:
				regs[i] = math.Cos(regs[in.a])
				dregs[i] = -math.Sin(regs[in.a]) * dregs[in.a]
			}
		}
		for i, r := range p.out {
			jac[i*n+j] = dregs[r]
		}
	}
}
