package symexpr

import "math/big"

// ============================================================
// Activation builders
// ============================================================

// EulerTerm is e to 18 decimal places as an exact Term,
// 2718281828459045235 / 10^18.
func EulerTerm() *Term {
	num, _ := new(big.Int).SetString("2718281828459045235", 10)
	den := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	t, err := NewTerm(big.NewInt(1), num, den)
	if err != nil {
		panic(err)
	}
	return t
}

// Exp is EulerTerm()^x. Evaluation follows the power rules, so a
// non-integer x is an approximation and the base itself is truncated e.
func Exp(x Expr) *Power { return PowOf(EulerTerm(), x) }

// Sigmoid is 1 / (1 + e^(-x)).
func Sigmoid(x Expr) *Divide {
	return DivOf(One(), AddOf(One(), Exp(Neg(x))))
}

// Tanh is (e^x - e^(-x)) / (e^x + e^(-x)).
func Tanh(x Expr) *Divide {
	ex, enx := Exp(x), Exp(Neg(x))
	return DivOf(SubOf(ex, enx), AddOf(ex, enx))
}

// Softplus is log(1 + e^x).
func Softplus(x Expr) *Log { return LogOf(AddOf(One(), Exp(x))) }
