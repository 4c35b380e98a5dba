package tape

import "math"

// cseKey identifies an instruction up to value equality. Operand
// registers are canonical after remapping, so two structurally equal
// subexpressions collapse to one register.
type cseKey struct {
	op   opcode
	a, b int
	idx  int
	val  float64
}

// Optimized returns a semantically equivalent program with constants
// folded, common subexpressions eliminated and dead code removed. This
// is the one-time compilation work the solver performs (and caches) per
// model structure.
func (p *Program) Optimized() *Program {
	folded := make([]instr, 0, len(p.code))
	remap := make([]int, len(p.code))
	seen := make(map[cseKey]int, len(p.code))

	emit := func(in instr) int {
		k := cseKey{op: in.op, a: in.a, b: in.b, idx: in.idx, val: in.val}
		if r, ok := seen[k]; ok {
			return r
		}
		folded = append(folded, in)
		r := len(folded) - 1
		seen[k] = r
		return r
	}

	constVal := func(r int) (float64, bool) {
		if folded[r].op == opConst {
			return folded[r].val, true
		}
		return 0, false
	}

	for i, in := range p.code {
		mapped := in
		switch in.op {
		case opConst, opTime, opState, opInput:
		case opNeg, opExp, opSqrt, opSin, opCos:
			mapped.a = remap[in.a]
			if v, ok := constVal(mapped.a); ok {
				mapped = instr{op: opConst, val: applyUnary(in.op, v)}
			}
		default:
			mapped.a = remap[in.a]
			mapped.b = remap[in.b]
			va, oka := constVal(mapped.a)
			vb, okb := constVal(mapped.b)
			if oka && okb {
				mapped = instr{op: opConst, val: applyBinary(in.op, va, vb)}
			}
		}
		remap[i] = emit(mapped)
	}

	// Dead-code elimination: keep only registers reachable from outputs.
	live := make([]bool, len(folded))
	var mark func(r int)
	mark = func(r int) {
		if live[r] {
			return
		}
		live[r] = true
		switch folded[r].op {
		case opConst, opTime, opState, opInput:
		case opNeg, opExp, opSqrt, opSin, opCos:
			mark(folded[r].a)
		default:
			mark(folded[r].a)
			mark(folded[r].b)
		}
	}
	for _, o := range p.out {
		mark(remap[o])
	}

	compact := make([]int, len(folded))
	code := make([]instr, 0, len(folded))
	for i, in := range folded {
		if !live[i] {
			continue
		}
		switch in.op {
		case opConst, opTime, opState, opInput:
		case opNeg, opExp, opSqrt, opSin, opCos:
			in.a = compact[in.a]
		default:
			in.a = compact[in.a]
			in.b = compact[in.b]
		}
		code = append(code, in)
		compact[i] = len(code) - 1
	}

	out := make([]int, len(p.out))
	for i, o := range p.out {
		out[i] = compact[remap[o]]
	}

	return &Program{
		model:  p.model,
		code:   code,
		out:    out,
		states: append([]string(nil), p.states...),
		inputs: append([]string(nil), p.inputs...),
	}
}

func applyUnary(op opcode, v float64) float64 {
	switch op {
	case opNeg:
		return -v
	case opExp:
		return math.Exp(v)
	case opSqrt:
		return math.Sqrt(v)
	case opSin:
		return math.Sin(v)
	case opCos:
		return math.Cos(v)
	}
	return v
}

func applyBinary(op opcode, a, b float64) float64 {
	switch op {
	case opAdd:
		return a + b
	case opSub:
		return a - b
	case opMul:
		return a * b
	case opDiv:
		return a / b
	}
	return 0
}
