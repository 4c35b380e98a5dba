package tape

import (
	"fmt"

	"github.com/voltlab/voltsim/internal/symbolic"
)

// Compile lowers a symbolic model to a flat tape, attaches the program
// to the model and tags it with symbolic.FormTape. The tape produced
// here is unoptimized; the solver adapter runs the optimizer once per
// model structure at set-up time.
func Compile(m *symbolic.Model) (*Program, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("tape: cannot lower model %q: %w", m.Name(), err)
	}

	states := m.States()
	inputs := m.Inputs()
	stateIdx := make(map[string]int, len(states))
	for i, s := range states {
		stateIdx[s] = i
	}
	inputIdx := make(map[string]int, len(inputs))
	for i, in := range inputs {
		inputIdx[in] = i
	}

	p := &Program{
		model:  m.Name(),
		states: states,
		inputs: inputs,
	}

	var emit func(e symbolic.Expr) int
	emit = func(e symbolic.Expr) int {
		switch v := e.(type) {
		case symbolic.Const:
			p.code = append(p.code, instr{op: opConst, val: v.Value})
		case symbolic.Time:
			p.code = append(p.code, instr{op: opTime})
		case symbolic.StateRef:
			p.code = append(p.code, instr{op: opState, idx: stateIdx[v.Name]})
		case symbolic.InputRef:
			p.code = append(p.code, instr{op: opInput, idx: inputIdx[v.Name]})
		case symbolic.Unary:
			a := emit(v.X)
			p.code = append(p.code, instr{op: unaryOp(v.Op), a: a})
		case symbolic.Binary:
			a := emit(v.X)
			b := emit(v.Y)
			p.code = append(p.code, instr{op: binaryOp(v.Op), a: a, b: b})
		default:
			panic(fmt.Sprintf("tape: unhandled expression node %T", e))
		}
		return len(p.code) - 1
	}

	p.out = make([]int, len(states))
	for i, s := range states {
		p.out[i] = emit(m.RHS(s))
	}

	m.SetLowered(p, symbolic.FormTape)
	return p, nil
}

func unaryOp(op symbolic.Op) opcode {
	switch op {
	case symbolic.OpNeg:
		return opNeg
	case symbolic.OpExp:
		return opExp
	case symbolic.OpSqrt:
		return opSqrt
	case symbolic.OpSin:
		return opSin
	case symbolic.OpCos:
		return opCos
	default:
		panic(fmt.Sprintf("tape: %v is not a unary operation", op))
	}
}

func binaryOp(op symbolic.Op) opcode {
	switch op {
	case symbolic.OpAdd:
		return opAdd
	case symbolic.OpSub:
		return opSub
	case symbolic.OpMul:
		return opMul
	case symbolic.OpDiv:
		return opDiv
	default:
		panic(fmt.Sprintf("tape: %v is not a binary operation", op))
	}
}
