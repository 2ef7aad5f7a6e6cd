package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/symexpr"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &out)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func doc(t *testing.T, e symexpr.Expr) string {
	t.Helper()
	j, err := symexpr.ToJSON(e)
	require.NoError(t, err)
	return j
}

func TestEval_FromStdinWithBinding(t *testing.T) {
	x := symexpr.V("x")
	out, err := run(t, doc(t, symexpr.MulOf(x, x)), "eval", "--bind", "x=1.5", "--precision", "10")
	require.NoError(t, err)
	assert.Equal(t, "2.25\n", out)
}

func TestEval_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expr.json")
	require.NoError(t, os.WriteFile(path, []byte(doc(t, symexpr.F(1, 8))), 0o644))

	out, err := run(t, "", "eval", path)
	require.NoError(t, err)
	assert.Equal(t, "0.125\n", out)
}

func TestEval_UnboundVariableFails(t *testing.T) {
	_, err := run(t, doc(t, symexpr.V("y")), "eval")
	require.Error(t, err)
	assert.ErrorIs(t, err, symexpr.ErrUnboundVariable)
}

func TestDiff_SimplifiesVariable(t *testing.T) {
	out, err := run(t, doc(t, symexpr.V("x")), "diff", "--var", "x", "--simplify")
	require.NoError(t, err)

	got, err := symexpr.FromJSON([]byte(out))
	require.NoError(t, err)
	assert.True(t, symexpr.Equal(symexpr.One(), got), "got %s", got)
}

func TestSimplify_AddZero(t *testing.T) {
	in := symexpr.AddOf(symexpr.Zero(), symexpr.V("x"))
	out, err := run(t, doc(t, in), "simplify", "-")
	require.NoError(t, err)

	got, err := symexpr.FromJSON([]byte(out))
	require.NoError(t, err)
	assert.True(t, symexpr.Equal(symexpr.V("x"), got))
}

func TestSimplify_InvalidDocument(t *testing.T) {
	_, err := run(t, `{"op":"NOPE"}`, "simplify")
	assert.ErrorIs(t, err, symexpr.ErrInvalidDocument)
}

func TestEval_RejectsNonFiniteBinding(t *testing.T) {
	_, err := run(t, doc(t, symexpr.LogOf(symexpr.V("x"))), "eval", "--bind", "x=Infinity")
	assert.ErrorIs(t, err, symexpr.ErrDomain)
}

func TestDiff_OrderOutOfRange(t *testing.T) {
	x := symexpr.V("x")
	for _, order := range []string{"-1", "17"} {
		_, err := run(t, doc(t, symexpr.PowOf(x, x)), "diff", "--order="+order)
		require.Error(t, err, "order %s", order)
		assert.Contains(t, err.Error(), "--order")
	}
}
