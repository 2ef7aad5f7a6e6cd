package symexpr

import "sort"

// ============================================================
// Substitution & Structural Equality
// ============================================================

// Substitute replaces every Variable named varName with replacement.
// Subtrees that contain no match are returned as-is.
func Substitute(e Expr, varName string, replacement Expr) Expr {
	return SubstituteAll(e, map[string]Expr{varName: replacement})
}

// SubstituteAll replaces several variables in one traversal. Replacements
// are not themselves rewritten, so {x: y, y: x} swaps x and y.
func SubstituteAll(e Expr, replacements map[string]Expr) Expr {
	switch v := e.(type) {
	case *Term:
		return v
	case *Variable:
		if r, ok := replacements[v.name]; ok {
			return r
		}
		return v
	}

	args := children(e)
	changed := false
	for i, c := range args {
		s := SubstituteAll(c, replacements)
		if s != c {
			args[i] = s
			changed = true
		}
	}
	if !changed {
		return e
	}
	out, err := rebuild(e, args)
	if err != nil {
		// Unknown variants have no children and never reach here.
		return e
	}
	return out
}

// Equal reports whether a and b are the same tree: same variants, same Term
// components and Variable names, and pairwise equal operands. It does not
// compare numeric values, so Add(1,1) is not equal to Term(2,1,1).
func Equal(a, b Expr) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Op() != b.Op() {
		return false
	}
	switch x := a.(type) {
	case *Term:
		y, ok := b.(*Term)
		return ok && x.coeff.Cmp(y.coeff) == 0 && x.num.Cmp(y.num) == 0 && x.den.Cmp(y.den) == 0
	case *Variable:
		y, ok := b.(*Variable)
		return ok && x.name == y.name
	}
	switch b.(type) {
	case *Term, *Variable:
		return false
	}
	ca, cb := children(a), children(b)
	if len(ca) != len(cb) {
		return false
	}
	for i := range ca {
		if !Equal(ca[i], cb[i]) {
			return false
		}
	}
	return true
}

// FreeVariables returns the sorted, de-duplicated names of all Variables in e.
func FreeVariables(e Expr) []string {
	seen := map[string]struct{}{}
	collectVariables(e, seen)
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func collectVariables(e Expr, out map[string]struct{}) {
	if v, ok := e.(*Variable); ok {
		out[v.name] = struct{}{}
		return
	}
	for _, c := range children(e) {
		collectVariables(c, out)
	}
}
