package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/symexpr"
	"github.com/njchilds90/symexpr/internal/config"
	"github.com/njchilds90/symexpr/internal/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer() *Server {
	return New(config.Default(), logging.Discard())
}

func postTool(t *testing.T, s *Server, body string) (*httptest.ResponseRecorder, symexpr.ToolResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/tool", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var resp symexpr.ToolResponse
	if w.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func toolBody(t *testing.T, tool string, params map[string]interface{}) string {
	t.Helper()
	b, err := json.Marshal(symexpr.ToolRequest{Tool: tool, Params: params})
	require.NoError(t, err)
	return string(b)
}

func exprParam(t *testing.T, e symexpr.Expr) map[string]interface{} {
	t.Helper()
	j, err := symexpr.ToJSON(e)
	require.NoError(t, err)
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(j), &m))
	return m
}

func TestHealth(t *testing.T) {
	s := newTestServer()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestSchema(t *testing.T) {
	s := newTestServer()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/schema", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.Contains(t, w.Body.String(), "evaluate")
}

func TestTool_Evaluate(t *testing.T) {
	s := newTestServer()
	body := toolBody(t, "evaluate", map[string]interface{}{
		"expr":      exprParam(t, symexpr.DivOf(symexpr.N(1), symexpr.N(4))),
		"precision": 10,
	})
	w, resp := postTool(t, s, body)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, resp.Error)
	assert.Equal(t, "0.25", resp.String)
}

func TestTool_ErrorIsReportedInBody(t *testing.T) {
	s := newTestServer()
	body := toolBody(t, "evaluate", map[string]interface{}{
		"expr": exprParam(t, symexpr.DivOf(symexpr.N(1), symexpr.N(0))),
	})
	w, resp := postTool(t, s, body)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, resp.Error, "division by zero")
}

func TestTool_RejectsUnknownFields(t *testing.T) {
	s := newTestServer()
	w, _ := postTool(t, s, `{"tool":"simplify","params":{},"extra":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTool_RejectsTrailingData(t *testing.T) {
	s := newTestServer()
	w, _ := postTool(t, s, `{"tool":"simplify","params":{}} {}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTool_BodyTooLarge(t *testing.T) {
	cfg := config.Default()
	cfg.Server.MaxBodyBytes = 16
	s := New(cfg, logging.Discard())
	w, _ := postTool(t, s, toolBody(t, "free_variables", map[string]interface{}{
		"expr": exprParam(t, symexpr.V("a_very_long_variable_name")),
	}))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestTool_BodyReadErrorIsBadRequest(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodPost, "/tool", failingReader{})
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "connection reset")
}

func TestMetrics_CountToolCalls(t *testing.T) {
	s := newTestServer()
	postTool(t, s, toolBody(t, "free_variables", map[string]interface{}{
		"expr": exprParam(t, symexpr.V("x")),
	}))
	postTool(t, s, toolBody(t, "nonexistent", map[string]interface{}{}))
	postTool(t, s, toolBody(t, "made_up_1234", map[string]interface{}{}))

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", bytes.NewReader(nil)))
	require.Equal(t, http.StatusOK, w.Code)

	out := w.Body.String()
	assert.Contains(t, out, `symexpr_tool_calls_total{outcome="ok",tool="free_variables"} 1`)
	assert.Contains(t, out, `symexpr_tool_calls_total{outcome="error",tool="unknown"} 2`)
	assert.NotContains(t, out, "nonexistent")
	assert.NotContains(t, out, "made_up_1234")
	assert.Contains(t, out, "symexpr_tool_latency_seconds")
}
