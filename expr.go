// Package symexpr provides an immutable symbolic expression engine for Go.
//
// Expressions are trees built from exact rational Term leaves, Variable
// leaves and the operators add, subtract, multiply, divide, power and
// natural logarithm. The engine offers:
//   - Arbitrary-precision decimal evaluation (Evaluate)
//   - Exact symbolic differentiation (Diff, DiffN, Gradient)
//   - Single-pass local simplification (Simplify, SimplifyFully)
//   - Substitution and structural equality (Substitute, Equal)
//   - A language-neutral JSON document form (ToJSON, FromJSON)
//
// Trees are never mutated after construction. Every transformation returns a
// new tree, so values may be shared freely between goroutines.
package symexpr

import (
	"fmt"
	"math/big"
)

// ============================================================
// Core Interface
// ============================================================

// Expr is a node of an expression tree. The set of implementations is closed:
// *Term, *Variable, *Add, *Subtract, *Multiply, *Divide, *Power and *Log.
type Expr interface {
	Op() Op
	String() string
	isExpr()
}

// Op tags the variant of an Expr.
type Op int

const (
	OpTerm Op = iota
	OpVariable
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpPower
	OpLog
)

var opNames = [...]string{
	OpTerm:     "TERM",
	OpVariable: "VARIABLE",
	OpAdd:      "ADD",
	OpSubtract: "SUBTRACT",
	OpMultiply: "MULTIPLY",
	OpDivide:   "DIVIDE",
	OpPower:    "POWER",
	OpLog:      "LOG",
}

func (o Op) String() string {
	if o < 0 || int(o) >= len(opNames) {
		return fmt.Sprintf("Op(%d)", int(o))
	}
	return opNames[o]
}

func parseOp(s string) (Op, bool) {
	for i, name := range opNames {
		if name == s {
			return Op(i), true
		}
	}
	return 0, false
}

// ============================================================
// Term — exact rational leaf
// ============================================================

// Term is the exact rational value coefficient * numerator / denominator.
// The three integers are kept as given; no reduction is performed, so
// Term(2,1,2) and Term(1,1,1) are different trees.
type Term struct {
	coeff, num, den *big.Int
}

// NewTerm builds a Term. It fails with ErrConstruction when den is zero.
// The arguments are copied.
func NewTerm(coeff, num, den *big.Int) (*Term, error) {
	if coeff == nil || num == nil || den == nil {
		return nil, fmt.Errorf("%w: nil component", ErrConstruction)
	}
	if den.Sign() == 0 {
		return nil, fmt.Errorf("%w: denominator is zero", ErrConstruction)
	}
	return &Term{
		coeff: new(big.Int).Set(coeff),
		num:   new(big.Int).Set(num),
		den:   new(big.Int).Set(den),
	}, nil
}

// T is the int64 form of NewTerm. It panics on a zero denominator.
func T(coeff, num, den int64) *Term {
	t, err := NewTerm(big.NewInt(coeff), big.NewInt(num), big.NewInt(den))
	if err != nil {
		panic(err)
	}
	return t
}

// N returns the integer Term (n,1,1).
func N(n int64) *Term { return T(n, 1, 1) }

// F returns the fraction Term (1,p,q). It panics when q is zero.
func F(p, q int64) *Term { return T(1, p, q) }

// Zero and One return the canonical Terms (0,1,1) and (1,1,1).
func Zero() *Term { return N(0) }
func One() *Term  { return N(1) }

func (t *Term) Op() Op { return OpTerm }
func (t *Term) isExpr() {}

func (t *Term) Coefficient() *big.Int { return new(big.Int).Set(t.coeff) }
func (t *Term) Numerator() *big.Int   { return new(big.Int).Set(t.num) }
func (t *Term) Denominator() *big.Int { return new(big.Int).Set(t.den) }

// Rat returns the exact value of t.
func (t *Term) Rat() *big.Rat {
	n := new(big.Int).Mul(t.coeff, t.num)
	return new(big.Rat).SetFrac(n, t.den)
}

// IsZero reports whether the value of t is zero.
func (t *Term) IsZero() bool { return t.coeff.Sign() == 0 || t.num.Sign() == 0 }

// IsOne reports whether t is exactly the canonical one Term (1,1,1).
func (t *Term) IsOne() bool {
	return t.coeff.IsInt64() && t.coeff.Int64() == 1 &&
		t.num.IsInt64() && t.num.Int64() == 1 &&
		t.den.IsInt64() && t.den.Int64() == 1
}

func (t *Term) String() string {
	unitNum := t.num.IsInt64() && t.num.Int64() == 1
	unitDen := t.den.IsInt64() && t.den.Int64() == 1
	unitCoeff := t.coeff.IsInt64() && t.coeff.Int64() == 1
	switch {
	case unitNum && unitDen:
		return t.coeff.String()
	case unitDen:
		return t.coeff.String() + "*" + t.num.String()
	case unitCoeff:
		return t.num.String() + "/" + t.den.String()
	}
	return t.coeff.String() + "*(" + t.num.String() + "/" + t.den.String() + ")"
}

// ============================================================
// Variable — unbound symbol
// ============================================================

type Variable struct{ name string }

// NewVariable fails with ErrConstruction on an empty name.
func NewVariable(name string) (*Variable, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty variable name", ErrConstruction)
	}
	return &Variable{name: name}, nil
}

// V is NewVariable that panics on an empty name.
func V(name string) *Variable {
	v, err := NewVariable(name)
	if err != nil {
		panic(err)
	}
	return v
}

func (v *Variable) Op() Op         { return OpVariable }
func (v *Variable) isExpr()        {}
func (v *Variable) Name() string   { return v.name }
func (v *Variable) String() string { return v.name }

// ============================================================
// Operators
// ============================================================

type binary struct{ left, right Expr }

func (b binary) Left() Expr  { return b.left }
func (b binary) Right() Expr { return b.right }

func (b binary) format(sym string) string {
	return "(" + b.left.String() + " " + sym + " " + b.right.String() + ")"
}

type Add struct{ binary }
type Subtract struct{ binary }
type Multiply struct{ binary }
type Divide struct{ binary }

// Power is base^exponent. The exponent is an arbitrary expression.
type Power struct{ binary }

// Log is the natural logarithm of its argument.
type Log struct{ arg Expr }

func AddOf(l, r Expr) *Add           { return &Add{binary{l, r}} }
func SubOf(l, r Expr) *Subtract      { return &Subtract{binary{l, r}} }
func MulOf(l, r Expr) *Multiply      { return &Multiply{binary{l, r}} }
func DivOf(l, r Expr) *Divide        { return &Divide{binary{l, r}} }
func PowOf(base, exp Expr) *Power    { return &Power{binary{base, exp}} }
func LogOf(arg Expr) *Log            { return &Log{arg: arg} }
func Neg(x Expr) *Multiply           { return MulOf(N(-1), x) }
func LogBase(base, arg Expr) *Divide { return DivOf(LogOf(arg), LogOf(base)) }

// LogBaseTerms is log_{bn/bd}(an/ad) over Term leaves. It fails with
// ErrConstruction when either denominator is zero.
func LogBaseTerms(bn, bd, an, ad *big.Int) (*Divide, error) {
	one := big.NewInt(1)
	base, err := NewTerm(one, bn, bd)
	if err != nil {
		return nil, fmt.Errorf("log base: %w", err)
	}
	arg, err := NewTerm(one, an, ad)
	if err != nil {
		return nil, fmt.Errorf("log argument: %w", err)
	}
	return LogBase(base, arg), nil
}

func (a *Add) Op() Op      { return OpAdd }
func (s *Subtract) Op() Op { return OpSubtract }
func (m *Multiply) Op() Op { return OpMultiply }
func (d *Divide) Op() Op   { return OpDivide }
func (p *Power) Op() Op    { return OpPower }
func (l *Log) Op() Op      { return OpLog }

func (a *Add) isExpr()      {}
func (s *Subtract) isExpr() {}
func (m *Multiply) isExpr() {}
func (d *Divide) isExpr()   {}
func (p *Power) isExpr()    {}
func (l *Log) isExpr()      {}

func (a *Add) String() string      { return a.format("+") }
func (s *Subtract) String() string { return s.format("-") }
func (m *Multiply) String() string { return m.format("*") }
func (d *Divide) String() string   { return d.format("/") }
func (p *Power) String() string    { return p.format("^") }
func (l *Log) String() string      { return "log(" + l.arg.String() + ")" }

func (p *Power) Base() Expr     { return p.left }
func (p *Power) Exponent() Expr { return p.right }
func (l *Log) Arg() Expr        { return l.arg }

// children returns the operands of e in order, or nil for leaves.
func children(e Expr) []Expr {
	switch v := e.(type) {
	case *Add:
		return []Expr{v.left, v.right}
	case *Subtract:
		return []Expr{v.left, v.right}
	case *Multiply:
		return []Expr{v.left, v.right}
	case *Divide:
		return []Expr{v.left, v.right}
	case *Power:
		return []Expr{v.left, v.right}
	case *Log:
		return []Expr{v.arg}
	}
	return nil
}

// rebuild returns a node of the same variant as e with new operands.
func rebuild(e Expr, args []Expr) (Expr, error) {
	switch e.(type) {
	case *Add:
		return AddOf(args[0], args[1]), nil
	case *Subtract:
		return SubOf(args[0], args[1]), nil
	case *Multiply:
		return MulOf(args[0], args[1]), nil
	case *Divide:
		return DivOf(args[0], args[1]), nil
	case *Power:
		return PowOf(args[0], args[1]), nil
	case *Log:
		return LogOf(args[0]), nil
	}
	return nil, fmt.Errorf("%w: rebuild %T", ErrUnsupportedOperation, e)
}

// withinSize reports whether e has at most limit nodes, counting shared
// subtrees once per occurrence. It stops counting once limit is passed.
func withinSize(e Expr, limit int) bool {
	n := 0
	var walk func(Expr) bool
	walk = func(x Expr) bool {
		n++
		if n > limit {
			return false
		}
		for _, c := range children(x) {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	return walk(e)
}

// Depth returns the height of the tree; a leaf has depth 1.
func Depth(e Expr) int {
	deepest := 0
	for _, c := range children(e) {
		if d := Depth(c); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}
