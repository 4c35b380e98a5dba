package symbolic

import (
	"fmt"
	"strconv"
)

// Op identifies an arithmetic operation in an expression tree.
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv
	OpNeg
	OpExp
	OpSqrt
	OpSin
	OpCos
)

func (o Op) String() string {
	switch o {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpNeg:
		return "neg"
	case OpExp:
		return "exp"
	case OpSqrt:
		return "sqrt"
	case OpSin:
		return "sin"
	case OpCos:
		return "cos"
	default:
		return "op?"
	}
}

// Expr is a scalar expression over time, state variables and named input
// parameters.
type Expr interface {
	fmt.Stringer
	node()
}

// Const is a literal scalar.
type Const struct {
	Value float64
}

// Time references the independent variable t.
type Time struct{}

// StateRef references a state variable by name.
type StateRef struct {
	Name string
}

// InputRef references a named input parameter, resolved at solve time.
type InputRef struct {
	Name string
}

// Unary applies a one-operand operation.
type Unary struct {
	Op Op
	X  Expr
}

// Binary applies a two-operand operation.
type Binary struct {
	Op   Op
	X, Y Expr
}

func (Const) node()    {}
func (Time) node()     {}
func (StateRef) node() {}
func (InputRef) node() {}
func (Unary) node()    {}
func (Binary) node()   {}

func (e Const) String() string    { return strconv.FormatFloat(e.Value, 'g', -1, 64) }
func (Time) String() string       { return "t" }
func (e StateRef) String() string { return e.Name }
func (e InputRef) String() string { return "input(" + e.Name + ")" }
func (e Unary) String() string    { return fmt.Sprintf("%s(%s)", e.Op, e.X) }
func (e Binary) String() string   { return fmt.Sprintf("(%s %s %s)", e.X, e.Op, e.Y) }

// Constructors. Expression trees are immutable once built.

func Scalar(v float64) Expr { return Const{Value: v} }
func T() Expr { return Time{} }
func Var(name string) Expr { return StateRef{Name: name} }
func Input(name string) Expr { return InputRef{Name: name} }
func Add(x, y Expr) Expr { return Binary{Op: OpAdd, X: x, Y: y} }
func Sub(x, y Expr) Expr { return Binary{Op: OpSub, X: x, Y: y} }
func Mul(x, y Expr) Expr { return Binary{Op: OpMul, X: x, Y: y} }
func Div(x, y Expr) Expr { return Binary{Op: OpDiv, X: x, Y: y} }
func Neg(x Expr) Expr { return Unary{Op: OpNeg, X: x} }
func Exp(x Expr) Expr { return Unary{Op: OpExp, X: x} }
func Sqrt(x Expr) Expr { return Unary{Op: OpSqrt, X: x} }
func Sin(x Expr) Expr { return Unary{Op: OpSin, X: x} }
func Cos(x Expr) Expr { return Unary{Op: OpCos, X: x} }
func Scale(k float64, x Expr) Expr { return Mul(Scalar(k), x) }

// Visit walks the expression tree depth-first, children before parents.
func Visit(e Expr, fn func(Expr)) {
	switch v := e.(type) {
	case Unary:
		Visit(v.X, fn)
	case Binary:
		Visit(v.X, fn)
		Visit(v.Y, fn)
	}
	fn(e)
}
