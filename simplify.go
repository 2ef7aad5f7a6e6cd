package symexpr

// ============================================================
// Simplifier
// ============================================================

// DefaultSimplifyPasses caps SimplifyFully when no limit is given.
const DefaultSimplifyPasses = 64

// Simplify makes one bottom-up pass over e applying local identities:
//
//	0 + x = x + 0 = x       x - 0 = x
//	0 * x = x * 0 = 0       1 * x = x * 1 = x
//	0 / x = 0               x / 1 = x
//	x ^ 0 = 1               x ^ 1 = x
//
// Zero means any Term whose value is zero; one means exactly Term(1,1,1).
// No constants are folded: 1 + 1 stays as written. A node whose operands did
// not change is returned as-is. SimplifyFully repeats the pass until the tree
// stops changing.
func Simplify(e Expr) Expr {
	switch v := e.(type) {
	case *Add:
		l, r := Simplify(v.left), Simplify(v.right)
		if isZero(l) {
			return r
		}
		if isZero(r) {
			return l
		}
		return reuse2(v, l, r, AddOf)
	case *Subtract:
		l, r := Simplify(v.left), Simplify(v.right)
		if isZero(r) {
			return l
		}
		return reuse2(v, l, r, SubOf)
	case *Multiply:
		l, r := Simplify(v.left), Simplify(v.right)
		if isZero(l) || isZero(r) {
			return Zero()
		}
		if isOne(l) {
			return r
		}
		if isOne(r) {
			return l
		}
		return reuse2(v, l, r, MulOf)
	case *Divide:
		l, r := Simplify(v.left), Simplify(v.right)
		if isZero(l) {
			return Zero()
		}
		if isOne(r) {
			return l
		}
		return reuse2(v, l, r, DivOf)
	case *Power:
		b, x := Simplify(v.left), Simplify(v.right)
		if isZero(x) {
			return One()
		}
		if isOne(x) {
			return b
		}
		return reuse2(v, b, x, PowOf)
	case *Log:
		a := Simplify(v.arg)
		if a == v.arg {
			return v
		}
		return LogOf(a)
	}
	return e
}

// SimplifyFully re-runs Simplify until the result is structurally unchanged
// or maxPasses passes have run (DefaultSimplifyPasses when maxPasses <= 0).
func SimplifyFully(e Expr, maxPasses int) Expr {
	if maxPasses <= 0 {
		maxPasses = DefaultSimplifyPasses
	}
	for i := 0; i < maxPasses; i++ {
		next := Simplify(e)
		if Equal(next, e) {
			return next
		}
		e = next
	}
	return e
}

func isZero(e Expr) bool {
	t, ok := e.(*Term)
	return ok && t.IsZero()
}

func isOne(e Expr) bool {
	t, ok := e.(*Term)
	return ok && t.IsOne()
}

type operands interface {
	Left() Expr
	Right() Expr
}

// reuse2 keeps the original node when neither operand changed.
func reuse2[T Expr](orig operands, l, r Expr, build func(Expr, Expr) T) Expr {
	if orig.Left() == l && orig.Right() == r {
		return orig.(Expr)
	}
	return build(l, r)
}
