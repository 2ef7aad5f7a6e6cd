package symexpr

import (
	"fmt"
	"log/slog"
	"math"
	"math/big"

	"github.com/cockroachdb/apd/v3"
)

// ============================================================
// Evaluator — arbitrary-precision decimal evaluation
// ============================================================

const (
	// DefaultGuardDigits is the number of extra significant digits carried
	// by intermediate results before the final rounding step.
	DefaultGuardDigits = 5

	// DefaultMaxDepth bounds the tree height accepted by Evaluate and Diff.
	DefaultMaxDepth = 10000

	// refinements bounds the evaluation passes Evaluate makes when an
	// intermediate step was rounded.
	refinements = 4
)

// Bindings maps variable names to their decimal values.
type Bindings map[string]*apd.Decimal

// ParseBindings converts decimal strings such as "0.8" or "-3e2" into
// Bindings. NaN and infinite values fail with ErrDomain.
func ParseBindings(raw map[string]string) (Bindings, error) {
	out := make(Bindings, len(raw))
	for name, s := range raw {
		d, _, err := apd.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("binding %q: %w", name, err)
		}
		if err := checkFinite(name, d); err != nil {
			return nil, err
		}
		out[name] = d
	}
	return out, nil
}

func checkFinite(name string, d *apd.Decimal) error {
	if d.Form != apd.Finite {
		return fmt.Errorf("%w: binding %q is %s", ErrDomain, name, d.String())
	}
	return nil
}

// Evaluator evaluates closed expressions. The zero value is ready to use and
// behaves like DefaultGuardDigits and DefaultMaxDepth.
//
// Precision is counted in significant digits. Intermediate results carry
// GuardDigits extra digits and the final value is rounded half-up to the
// requested precision. When every intermediate step was exact the result is
// therefore rounded once. Otherwise the tree is evaluated again with twice
// the guard digits, up to a few times, until two passes round to the same
// value. Integer powers are computed by repeated squaring; non-integer powers
// and logarithms are approximations (exp(ln(b)*e) and ln) and are reported
// to Logger at debug level when one is set.
type Evaluator struct {
	GuardDigits uint32
	MaxDepth    int
	Logger      *slog.Logger
}

// Evaluate evaluates e with the default Evaluator.
func Evaluate(e Expr, precision uint32, bindings Bindings) (*apd.Decimal, error) {
	var ev Evaluator
	return ev.Evaluate(e, precision, bindings)
}

// Evaluate returns the value of e rounded half-up to precision significant
// digits. It fails with ErrUnboundVariable, ErrDivisionByZero, ErrDomain,
// ErrDepthExceeded or ErrInvalidPrecision. No partial result is returned.
func (ev *Evaluator) Evaluate(e Expr, precision uint32, bindings Bindings) (*apd.Decimal, error) {
	if precision == 0 {
		return nil, ErrInvalidPrecision
	}
	guard := ev.GuardDigits
	if guard == 0 {
		guard = DefaultGuardDigits
	}
	if uint64(precision)+uint64(guard) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d digits plus %d guard digits", ErrInvalidPrecision, precision, guard)
	}
	maxDepth := ev.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if t, ok := e.(*Term); ok {
		w := &walker{ctx: newContext(precision)}
		return w.term(t)
	}

	var prev *apd.Decimal
	for i := 0; i < refinements; i++ {
		w := &walker{
			ctx:      newContext(precision + guard),
			bindings: bindings,
			maxDepth: maxDepth,
			logger:   ev.Logger,
		}
		v, err := w.eval(e, 1)
		if err != nil {
			return nil, err
		}
		out := new(apd.Decimal)
		if _, err := newContext(precision).Round(out, v); err != nil {
			return nil, fmt.Errorf("round: %w", err)
		}
		if !w.inexact || (prev != nil && prev.Cmp(out) == 0) {
			return out, nil
		}
		prev = out
		if uint64(precision)+2*uint64(guard) > math.MaxUint32 {
			break
		}
		guard *= 2
		if ev.Logger != nil {
			ev.Logger.Debug("widening guard digits", "precision", precision, "guard", guard)
		}
	}
	return prev, nil
}

func newContext(precision uint32) *apd.Context {
	ctx := apd.BaseContext.WithPrecision(precision)
	ctx.Rounding = apd.RoundHalfUp
	return ctx
}

type walker struct {
	ctx      *apd.Context
	bindings Bindings
	maxDepth int
	logger   *slog.Logger

	// inexact is set once any step rounded its result.
	inexact bool
}

func (w *walker) eval(e Expr, depth int) (*apd.Decimal, error) {
	if depth > w.maxDepth {
		return nil, fmt.Errorf("%w: depth limit %d", ErrDepthExceeded, w.maxDepth)
	}
	switch v := e.(type) {
	case *Term:
		return w.term(v)
	case *Variable:
		d, ok := w.bindings[v.name]
		if !ok || d == nil {
			return nil, &UnboundVariableError{Name: v.name}
		}
		if err := checkFinite(v.name, d); err != nil {
			return nil, err
		}
		return new(apd.Decimal).Set(d), nil
	case *Add:
		return w.arith(v.left, v.right, depth, "add", w.ctx.Add)
	case *Subtract:
		return w.arith(v.left, v.right, depth, "subtract", w.ctx.Sub)
	case *Multiply:
		return w.arith(v.left, v.right, depth, "multiply", w.ctx.Mul)
	case *Divide:
		l, r, err := w.pair(v.left, v.right, depth)
		if err != nil {
			return nil, err
		}
		if r.IsZero() {
			return nil, fmt.Errorf("%w: %s", ErrDivisionByZero, v.right)
		}
		return w.apply("divide", w.ctx.Quo, l, r)
	case *Power:
		b, x, err := w.pair(v.left, v.right, depth)
		if err != nil {
			return nil, err
		}
		return w.power(b, x)
	case *Log:
		a, err := w.eval(v.arg, depth+1)
		if err != nil {
			return nil, err
		}
		if a.Sign() <= 0 {
			return nil, fmt.Errorf("%w: log of %s", ErrDomain, a.Text('f'))
		}
		if w.logger != nil {
			w.logger.Debug("approximate logarithm", "arg", a.String(), "precision", w.ctx.Precision)
		}
		return w.unary("log", w.ctx.Ln, a)
	}
	return nil, fmt.Errorf("%w: evaluate %T", ErrUnsupportedOperation, e)
}

func (w *walker) term(t *Term) (*apd.Decimal, error) {
	n := new(big.Int).Mul(t.coeff, t.num)
	num := apd.NewWithBigInt(new(apd.BigInt).SetMathBigInt(n), 0)
	den := apd.NewWithBigInt(new(apd.BigInt).SetMathBigInt(t.den), 0)
	return w.apply("term", w.ctx.Quo, num, den)
}

func (w *walker) pair(l, r Expr, depth int) (*apd.Decimal, *apd.Decimal, error) {
	a, err := w.eval(l, depth+1)
	if err != nil {
		return nil, nil, err
	}
	b, err := w.eval(r, depth+1)
	if err != nil {
		return nil, nil, err
	}
	return a, b, nil
}

type binaryOp func(d, x, y *apd.Decimal) (apd.Condition, error)

func (w *walker) arith(l, r Expr, depth int, name string, op binaryOp) (*apd.Decimal, error) {
	a, b, err := w.pair(l, r, depth)
	if err != nil {
		return nil, err
	}
	return w.apply(name, op, a, b)
}

func (w *walker) apply(name string, op binaryOp, a, b *apd.Decimal) (*apd.Decimal, error) {
	out := new(apd.Decimal)
	cond, err := op(out, a, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	w.note(cond)
	return out, nil
}

func (w *walker) unary(name string, op func(d, x *apd.Decimal) (apd.Condition, error), a *apd.Decimal) (*apd.Decimal, error) {
	out := new(apd.Decimal)
	cond, err := op(out, a)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	w.note(cond)
	return out, nil
}

func (w *walker) note(cond apd.Condition) {
	if cond.Inexact() {
		w.inexact = true
	}
}

func (w *walker) power(base, exp *apd.Decimal) (*apd.Decimal, error) {
	integ, frac := new(apd.Decimal), new(apd.Decimal)
	exp.Modf(integ, frac)
	if frac.IsZero() {
		n, err := integ.Int64()
		if err != nil || n == math.MinInt64 {
			return w.hugePower(base, integ)
		}
		return w.intPower(base, n)
	}

	switch base.Sign() {
	case -1:
		return nil, fmt.Errorf("%w: negative base %s with non-integer exponent", ErrDomain, base.Text('f'))
	case 0:
		if exp.Sign() < 0 {
			return nil, fmt.Errorf("%w: zero raised to %s", ErrDivisionByZero, exp.Text('f'))
		}
		return apd.New(0, 0), nil
	}

	if w.logger != nil {
		w.logger.Debug("approximate power", "base", base.String(), "exponent", exp.String())
	}
	ln, err := w.unary("power", w.ctx.Ln, base)
	if err != nil {
		return nil, err
	}
	prod, err := w.apply("power", w.ctx.Mul, ln, exp)
	if err != nil {
		return nil, err
	}
	return w.unary("power", w.ctx.Exp, prod)
}

// hugePower handles integer exponents outside int64. Only the bases 0, 1
// and -1 have a representable result.
func (w *walker) hugePower(base, n *apd.Decimal) (*apd.Decimal, error) {
	one := apd.New(1, 0)
	switch {
	case base.IsZero():
		if n.Sign() < 0 {
			return nil, fmt.Errorf("%w: zero raised to %s", ErrDivisionByZero, n.String())
		}
		return apd.New(0, 0), nil
	case base.Cmp(one) == 0:
		return one, nil
	case base.Cmp(apd.New(-1, 0)) == 0:
		if isOdd(n) {
			return apd.New(-1, 0), nil
		}
		return one, nil
	}
	return nil, fmt.Errorf("%w: integer exponent %s out of range", ErrDomain, n.String())
}

// isOdd reports whether the integral decimal n is odd.
func isOdd(n *apd.Decimal) bool {
	r := new(apd.Decimal)
	r.Reduce(n)
	if r.Exponent > 0 {
		return false
	}
	return r.Coeff.MathBigInt().Bit(0) == 1
}

// intPower computes base^n by repeated squaring. 0^0 is 1.
func (w *walker) intPower(base *apd.Decimal, n int64) (*apd.Decimal, error) {
	neg := n < 0
	if neg {
		if base.IsZero() {
			return nil, fmt.Errorf("%w: zero raised to %d", ErrDivisionByZero, n)
		}
		n = -n
	}

	result := apd.New(1, 0)
	sq := new(apd.Decimal).Set(base)
	var err error
	for n > 0 {
		if n&1 == 1 {
			if result, err = w.apply("power", w.ctx.Mul, result, sq); err != nil {
				return nil, err
			}
		}
		n >>= 1
		if n > 0 {
			if sq, err = w.apply("power", w.ctx.Mul, sq, sq); err != nil {
				return nil, err
			}
		}
	}
	if neg {
		return w.apply("power", w.ctx.Quo, apd.New(1, 0), result)
	}
	return result, nil
}
