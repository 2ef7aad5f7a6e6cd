package symexpr

import "fmt"

// ============================================================
// Differentiator
// ============================================================

// Diff returns the partial derivative of e with respect to varName.
//
// The rules are applied structurally and the result is not simplified;
// compose with Simplify or SimplifyFully when a smaller tree is wanted.
// Powers always use the general rule
//
//	d(f^g) = f^g * (dg*ln(f) + g*(df/f))
//
// so a constant exponent or constant base yields an equivalent but larger
// tree. Whether ln(f) is defined is only checked when the result is
// evaluated.
func Diff(e Expr, varName string) (Expr, error) {
	return diff(e, varName, 1)
}

// DiffN applies Diff n times. n <= 0 returns e unchanged.
func DiffN(e Expr, varName string, n int) (Expr, error) {
	var err error
	for i := 0; i < n; i++ {
		if e, err = Diff(e, varName); err != nil {
			return nil, fmt.Errorf("derivative %d: %w", i+1, err)
		}
	}
	return e, nil
}

// DiffNWithin is DiffN that fails with ErrTooLarge as soon as a derivative
// has more than maxNodes nodes, counting shared subtrees at every use.
func DiffNWithin(e Expr, varName string, n, maxNodes int) (Expr, error) {
	var err error
	for i := 0; i < n; i++ {
		if e, err = Diff(e, varName); err != nil {
			return nil, fmt.Errorf("derivative %d: %w", i+1, err)
		}
		if !withinSize(e, maxNodes) {
			return nil, fmt.Errorf("%w: derivative %d exceeds %d nodes", ErrTooLarge, i+1, maxNodes)
		}
	}
	return e, nil
}

func diff(e Expr, x string, depth int) (Expr, error) {
	if depth > DefaultMaxDepth {
		return nil, fmt.Errorf("%w: depth limit %d", ErrDepthExceeded, DefaultMaxDepth)
	}
	switch v := e.(type) {
	case *Term:
		return Zero(), nil
	case *Variable:
		if v.name == x {
			return One(), nil
		}
		return Zero(), nil
	case *Add:
		df, dg, err := diffPair(v.left, v.right, x, depth)
		if err != nil {
			return nil, err
		}
		return AddOf(df, dg), nil
	case *Subtract:
		df, dg, err := diffPair(v.left, v.right, x, depth)
		if err != nil {
			return nil, err
		}
		return SubOf(df, dg), nil
	case *Multiply:
		df, dg, err := diffPair(v.left, v.right, x, depth)
		if err != nil {
			return nil, err
		}
		return AddOf(MulOf(df, v.right), MulOf(v.left, dg)), nil
	case *Divide:
		df, dg, err := diffPair(v.left, v.right, x, depth)
		if err != nil {
			return nil, err
		}
		return DivOf(
			SubOf(MulOf(df, v.right), MulOf(v.left, dg)),
			PowOf(v.right, N(2)),
		), nil
	case *Power:
		f, g := v.left, v.right
		df, dg, err := diffPair(f, g, x, depth)
		if err != nil {
			return nil, err
		}
		return MulOf(v, AddOf(MulOf(dg, LogOf(f)), MulOf(g, DivOf(df, f)))), nil
	case *Log:
		du, err := diff(v.arg, x, depth+1)
		if err != nil {
			return nil, err
		}
		return DivOf(du, v.arg), nil
	}
	return nil, fmt.Errorf("%w: differentiate %T", ErrUnsupportedOperation, e)
}

func diffPair(f, g Expr, x string, depth int) (Expr, Expr, error) {
	df, err := diff(f, x, depth+1)
	if err != nil {
		return nil, nil, err
	}
	dg, err := diff(g, x, depth+1)
	if err != nil {
		return nil, nil, err
	}
	return df, dg, nil
}
