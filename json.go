package symexpr

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// ============================================================
// JSON Serialization
// ============================================================

// Document is the language-neutral form of an expression:
//
//	{"op":"TERM","coefficient":"1","numerator":"4","denominator":"5"}
//	{"op":"VARIABLE","name":"x"}
//	{"op":"ADD","args":[<node>,<node>]}
//	{"op":"LOG","args":[<node>]}
//
// Integers travel as decimal strings so no precision is lost.
type Document struct {
	Op          string      `json:"op"`
	Coefficient string      `json:"coefficient,omitempty"`
	Numerator   string      `json:"numerator,omitempty"`
	Denominator string      `json:"denominator,omitempty"`
	Name        string      `json:"name,omitempty"`
	Args        []*Document `json:"args,omitempty"`
}

// ToDocument converts e to its Document form.
func ToDocument(e Expr) (*Document, error) {
	switch v := e.(type) {
	case *Term:
		return &Document{
			Op:          OpTerm.String(),
			Coefficient: v.coeff.String(),
			Numerator:   v.num.String(),
			Denominator: v.den.String(),
		}, nil
	case *Variable:
		return &Document{Op: OpVariable.String(), Name: v.name}, nil
	case *Add, *Subtract, *Multiply, *Divide, *Power, *Log:
		kids := children(e)
		doc := &Document{Op: e.Op().String(), Args: make([]*Document, len(kids))}
		for i, c := range kids {
			d, err := ToDocument(c)
			if err != nil {
				return nil, err
			}
			doc.Args[i] = d
		}
		return doc, nil
	}
	return nil, fmt.Errorf("%w: serialize %T", ErrUnsupportedOperation, e)
}

// ToJSON encodes e as a JSON document.
func ToJSON(e Expr) (string, error) {
	doc, err := ToDocument(e)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(doc)
	return string(b), err
}

// FromJSON decodes a JSON document into an expression.
func FromJSON(data []byte) (Expr, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return FromDocument(&doc)
}

// FromMap decodes an already-parsed JSON object, as found in tool requests.
func FromMap(m map[string]interface{}) (Expr, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: expression must be an object", ErrInvalidDocument)
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return FromJSON(b)
}

// FromDocument rebuilds an expression. Term components are validated exactly
// as NewTerm does, so a zero denominator fails with ErrConstruction.
func FromDocument(doc *Document) (Expr, error) {
	return fromDocument(doc, 1)
}

func fromDocument(doc *Document, depth int) (Expr, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: missing node", ErrInvalidDocument)
	}
	if depth > DefaultMaxDepth {
		return nil, fmt.Errorf("%w: depth limit %d", ErrDepthExceeded, DefaultMaxDepth)
	}
	op, ok := parseOp(doc.Op)
	if !ok {
		return nil, fmt.Errorf("%w: unknown op %q", ErrInvalidDocument, doc.Op)
	}

	switch op {
	case OpTerm:
		c, err := parseInt("coefficient", doc.Coefficient)
		if err != nil {
			return nil, err
		}
		n, err := parseInt("numerator", doc.Numerator)
		if err != nil {
			return nil, err
		}
		d, err := parseInt("denominator", doc.Denominator)
		if err != nil {
			return nil, err
		}
		return NewTerm(c, n, d)
	case OpVariable:
		if doc.Name == "" {
			return nil, fmt.Errorf("%w: VARIABLE: 'name' must be a non-empty string", ErrInvalidDocument)
		}
		return NewVariable(doc.Name)
	}

	want := 2
	if op == OpLog {
		want = 1
	}
	if len(doc.Args) != want {
		return nil, fmt.Errorf("%w: %s: want %d args, got %d", ErrInvalidDocument, op, want, len(doc.Args))
	}
	args := make([]Expr, want)
	for i, a := range doc.Args {
		e, err := fromDocument(a, depth+1)
		if err != nil {
			return nil, fmt.Errorf("%s: args[%d]: %w", op, i, err)
		}
		args[i] = e
	}
	switch op {
	case OpAdd:
		return AddOf(args[0], args[1]), nil
	case OpSubtract:
		return SubOf(args[0], args[1]), nil
	case OpMultiply:
		return MulOf(args[0], args[1]), nil
	case OpDivide:
		return DivOf(args[0], args[1]), nil
	case OpPower:
		return PowOf(args[0], args[1]), nil
	}
	return LogOf(args[0]), nil
}

func parseInt(field, s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: TERM: missing %q", ErrInvalidDocument, field)
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: TERM: %q is not an integer: %s", ErrInvalidDocument, field, s)
	}
	return n, nil
}
