package symexpr

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ============================================================
// MCP Tool Interface
// ============================================================

const (
	// DefaultPrecision is used by tool calls that give no precision.
	DefaultPrecision = 20

	// MaxToolPrecision caps the precision a tool call may request.
	MaxToolPrecision = 1000

	// DefaultMaxDiffOrder caps the diff tool's order parameter.
	DefaultMaxDiffOrder = 16

	// DefaultMaxNodes caps the size of a derivative built by a tool call.
	DefaultMaxNodes = 1 << 20
)

type ToolRequest struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params"`
}

type ToolResponse struct {
	Result interface{} `json:"result,omitempty"`
	String string      `json:"string,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// ToolHandler executes tool calls. The zero value uses package defaults.
type ToolHandler struct {
	Evaluator        Evaluator
	DefaultPrecision uint32
	SimplifyPasses   int
	MaxDiffOrder     int
	MaxNodes         int
}

// HandleToolCall runs req with a zero ToolHandler.
func HandleToolCall(req ToolRequest) ToolResponse {
	var h ToolHandler
	return h.Handle(context.Background(), req)
}

// Tools lists the tool names Handle accepts.
func Tools() []string {
	return []string{"evaluate", "diff", "simplify", "substitute", "gradient", "free_variables", "equal", "mcp_spec"}
}

// Handle dispatches req. Failures are reported in ToolResponse.Error.
func (h *ToolHandler) Handle(ctx context.Context, req ToolRequest) ToolResponse {
	p := toolParams(req.Params)
	fail := func(err error) ToolResponse { return ToolResponse{Error: err.Error()} }

	switch req.Tool {
	case "evaluate":
		e, err := p.expr("expr")
		if err != nil {
			return fail(err)
		}
		prec, err := h.precision(p)
		if err != nil {
			return fail(err)
		}
		b, err := p.bindings("bindings")
		if err != nil {
			return fail(err)
		}
		v, err := h.Evaluator.Evaluate(e, prec, b)
		if err != nil {
			return fail(err)
		}
		return ToolResponse{Result: v.String(), String: v.Text('f')}

	case "diff":
		e, err := p.expr("expr")
		if err != nil {
			return fail(err)
		}
		name, err := p.str("var")
		if err != nil {
			return fail(err)
		}
		order := 1
		if _, ok := req.Params["order"]; ok {
			if order, err = p.integer("order"); err != nil {
				return fail(err)
			}
		}
		d, err := h.derivative(e, name, order)
		if err != nil {
			return fail(err)
		}
		if p.flag("simplify") {
			d = SimplifyFully(d, h.SimplifyPasses)
		}
		return respond(d)

	case "simplify":
		e, err := p.expr("expr")
		if err != nil {
			return fail(err)
		}
		if p.flag("full") {
			return respond(SimplifyFully(e, h.SimplifyPasses))
		}
		return respond(Simplify(e))

	case "substitute":
		e, err := p.expr("expr")
		if err != nil {
			return fail(err)
		}
		name, err := p.str("var")
		if err != nil {
			return fail(err)
		}
		val, err := p.expr("value")
		if err != nil {
			return fail(err)
		}
		return respond(Substitute(e, name, val))

	case "gradient":
		e, err := p.expr("expr")
		if err != nil {
			return fail(err)
		}
		vars, err := p.strings("vars")
		if err != nil {
			return fail(err)
		}
		if _, ok := req.Params["bindings"]; !ok {
			parts, err := Gradient(e, vars)
			if err != nil {
				return fail(err)
			}
			docs := make([]*Document, len(parts))
			strs := make([]string, len(parts))
			for i, part := range parts {
				if docs[i], err = ToDocument(part); err != nil {
					return fail(err)
				}
				strs[i] = part.String()
			}
			return ToolResponse{Result: docs, String: strings.Join(strs, ", ")}
		}
		prec, err := h.precision(p)
		if err != nil {
			return fail(err)
		}
		b, err := p.bindings("bindings")
		if err != nil {
			return fail(err)
		}
		vals, err := EvaluateGradient(ctx, &h.Evaluator, e, vars, prec, b)
		if err != nil {
			return fail(err)
		}
		strs := make([]string, len(vals))
		for i, v := range vals {
			strs[i] = v.String()
		}
		return ToolResponse{Result: strs, String: strings.Join(strs, ", ")}

	case "free_variables":
		e, err := p.expr("expr")
		if err != nil {
			return fail(err)
		}
		names := FreeVariables(e)
		return ToolResponse{Result: names, String: strings.Join(names, ", ")}

	case "equal":
		a, err := p.expr("a")
		if err != nil {
			return fail(err)
		}
		b, err := p.expr("b")
		if err != nil {
			return fail(err)
		}
		eq := Equal(a, b)
		return ToolResponse{Result: eq, String: fmt.Sprint(eq)}

	case "mcp_spec":
		return ToolResponse{String: MCPToolSpec()}
	}
	return fail(fmt.Errorf("unknown tool: %q", req.Tool))
}

func (h *ToolHandler) precision(p toolParams) (uint32, error) {
	if _, ok := p["precision"]; !ok {
		if h.DefaultPrecision > 0 {
			return h.DefaultPrecision, nil
		}
		return DefaultPrecision, nil
	}
	n, err := p.integer("precision")
	if err != nil {
		return 0, err
	}
	if n <= 0 || n > MaxToolPrecision {
		return 0, fmt.Errorf("%w: got %d, limit %d", ErrInvalidPrecision, n, MaxToolPrecision)
	}
	return uint32(n), nil
}

func (h *ToolHandler) derivative(e Expr, name string, order int) (Expr, error) {
	maxOrder := h.MaxDiffOrder
	if maxOrder <= 0 {
		maxOrder = DefaultMaxDiffOrder
	}
	if order < 0 || order > maxOrder {
		return nil, fmt.Errorf("param order must be between 0 and %d, got %d", maxOrder, order)
	}
	maxNodes := h.MaxNodes
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}
	return DiffNWithin(e, name, order, maxNodes)
}

func respond(e Expr) ToolResponse {
	doc, err := ToDocument(e)
	if err != nil {
		return ToolResponse{Error: err.Error()}
	}
	return ToolResponse{Result: doc, String: e.String()}
}

type toolParams map[string]interface{}

func (p toolParams) expr(key string) (Expr, error) {
	v, ok := p[key]
	if !ok {
		return nil, fmt.Errorf("missing param: %s", key)
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("param %s must be an expression object", key)
	}
	e, err := FromMap(m)
	if err != nil {
		return nil, fmt.Errorf("param %s: %w", key, err)
	}
	return e, nil
}

func (p toolParams) str(key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", fmt.Errorf("missing param: %s", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("param %s must be a non-empty string", key)
	}
	return s, nil
}

func (p toolParams) strings(key string) ([]string, error) {
	v, ok := p[key]
	if !ok {
		return nil, fmt.Errorf("missing param: %s", key)
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("param %s must be array", key)
	}
	out := make([]string, len(raw))
	for i, r := range raw {
		s, ok := r.(string)
		if !ok {
			return nil, fmt.Errorf("param %s[%d] must be string", key, i)
		}
		out[i] = s
	}
	return out, nil
}

func (p toolParams) integer(key string) (int, error) {
	f, ok := p[key].(float64)
	if !ok || f != float64(int(f)) {
		return 0, fmt.Errorf("param %s must be an integer", key)
	}
	return int(f), nil
}

func (p toolParams) flag(key string) bool {
	b, _ := p[key].(bool)
	return b
}

// bindings reads {"x": "0.8", ...}. A missing key yields no bindings.
func (p toolParams) bindings(key string) (Bindings, error) {
	v, ok := p[key]
	if !ok {
		return nil, nil
	}
	raw, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("param %s must be an object of decimal strings", key)
	}
	strs := make(map[string]string, len(raw))
	for name, val := range raw {
		s, ok := val.(string)
		if !ok {
			return nil, fmt.Errorf("param %s.%s must be a decimal string", key, name)
		}
		strs[name] = s
	}
	b, err := ParseBindings(strs)
	if err != nil {
		return nil, fmt.Errorf("param %s: %w", key, err)
	}
	return b, nil
}

// MCPToolSpec returns the JSON schema of the tools for agent registration.
func MCPToolSpec() string {
	tools := []map[string]interface{}{
		ts("evaluate", "Evaluate to a decimal string. Optional: precision (significant digits), bindings {name: decimal string}", []string{"expr"}, map[string]string{"expr": "object", "precision": "integer", "bindings": "object"}),
		ts("diff", "Symbolic derivative d/dvar. Optional: order (int), simplify (bool)", []string{"expr", "var"}, map[string]string{"expr": "object", "var": "string", "order": "integer", "simplify": "boolean"}),
		ts("simplify", "One local simplification pass, or until stable with full=true", []string{"expr"}, map[string]string{"expr": "object", "full": "boolean"}),
		ts("substitute", "Replace var with value", []string{"expr", "var", "value"}, map[string]string{"expr": "object", "var": "string", "value": "object"}),
		ts("gradient", "Partial derivatives for vars; evaluated when bindings are given", []string{"expr", "vars"}, map[string]string{"expr": "object", "vars": "array", "precision": "integer", "bindings": "object"}),
		ts("free_variables", "Sorted variable names", []string{"expr"}, map[string]string{"expr": "object"}),
		ts("equal", "Structural equality of a and b", []string{"a", "b"}, map[string]string{"a": "object", "b": "object"}),
		ts("mcp_spec", "Return this tool schema", []string{}, map[string]string{}),
	}
	spec := map[string]interface{}{"tools": tools}
	b, _ := json.MarshalIndent(spec, "", "  ")
	return string(b)
}

func ts(name, description string, required []string, props map[string]string) map[string]interface{} {
	properties := map[string]interface{}{}
	for k, typ := range props {
		properties[k] = map[string]interface{}{"type": typ}
	}
	return map[string]interface{}{
		"name":        name,
		"description": description,
		"inputSchema": map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}
