package symexpr

import (
	"context"
	"fmt"

	"github.com/cockroachdb/apd/v3"
	"golang.org/x/sync/errgroup"
)

// Gradient returns the partial derivative of e with respect to each name in
// vars, in order. The partials are not simplified.
func Gradient(e Expr, vars []string) ([]Expr, error) {
	out := make([]Expr, len(vars))
	for i, v := range vars {
		d, err := Diff(e, v)
		if err != nil {
			return nil, fmt.Errorf("partial %q: %w", v, err)
		}
		out[i] = d
	}
	return out, nil
}

// EvaluateGradient differentiates e with respect to each of vars and
// evaluates the partials concurrently. The trees are immutable, so the
// workers share them without locking. The first failure cancels partials
// that have not started yet and is returned; no partial results are
// returned on failure. A nil ev uses the default Evaluator.
func EvaluateGradient(ctx context.Context, ev *Evaluator, e Expr, vars []string, precision uint32, bindings Bindings) ([]*apd.Decimal, error) {
	if ev == nil {
		ev = &Evaluator{}
	}
	partials, err := Gradient(e, vars)
	if err != nil {
		return nil, err
	}

	values := make([]*apd.Decimal, len(partials))
	g, gCtx := errgroup.WithContext(ctx)
	for i, p := range partials {
		i, p := i, p
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			v, err := ev.Evaluate(p, precision, bindings)
			if err != nil {
				return fmt.Errorf("partial %q: %w", vars[i], err)
			}
			values[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return values, nil
}
