// Package server exposes the symexpr tool interface over HTTP.
//
// Endpoints:
//
//	POST /tool    — execute a tool call
//	GET  /schema  — tool schema for agent registration
//	GET  /health  — liveness check
//	GET  /metrics — Prometheus metrics
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/njchilds90/symexpr"
	"github.com/njchilds90/symexpr/internal/config"
)

const requestIDHeader = "X-Request-ID"

type metrics struct {
	toolCalls   *prometheus.CounterVec
	toolLatency *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		toolCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "symexpr_tool_calls_total",
			Help: "Total tool calls by tool and outcome",
		}, []string{"tool", "outcome"}),
		toolLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "symexpr_tool_latency_seconds",
			Help:    "Tool call latency",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"tool"}),
	}
}

// Server serves tool calls. Create it with New.
type Server struct {
	cfg      config.Config
	logger   *slog.Logger
	tools    *symexpr.ToolHandler
	registry *prometheus.Registry
	metrics  *metrics
	router   *gin.Engine
}

// New builds a Server with its own metrics registry.
func New(cfg config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	reg := prometheus.NewRegistry()
	tools := cfg.ToolHandler()
	tools.Evaluator.Logger = logger

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		tools:    tools,
		registry: reg,
		metrics:  newMetrics(reg),
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler, e.g. for httptest.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID())

	r.POST("/tool", s.handleTool)
	r.GET("/schema", s.handleSchema)
	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
	return r
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func (s *Server) handleTool(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.Server.MaxBodyBytes)
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	var req symexpr.ToolRequest
	if err := dec.Decode(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if dec.More() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON: trailing data"})
		return
	}

	start := time.Now()
	resp := s.tools.Handle(c.Request.Context(), req)
	elapsed := time.Since(start)

	outcome := "ok"
	if resp.Error != "" {
		outcome = "error"
	}
	label := toolLabel(req.Tool)
	s.metrics.toolCalls.WithLabelValues(label, outcome).Inc()
	s.metrics.toolLatency.WithLabelValues(label).Observe(elapsed.Seconds())
	s.logger.Info("tool call",
		"request_id", c.GetString("request_id"),
		"tool", req.Tool,
		"outcome", outcome,
		"duration", elapsed,
	)

	c.JSON(http.StatusOK, resp)
}

// toolLabel bounds metric label values to the known tool names.
func toolLabel(name string) string {
	for _, t := range symexpr.Tools() {
		if t == name {
			return name
		}
	}
	return "unknown"
}

func (s *Server) handleSchema(c *gin.Context) {
	c.Data(http.StatusOK, "application/json", []byte(symexpr.MCPToolSpec()))
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Run serves on cfg.Server.Addr until ctx is cancelled, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("symexpr tool server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down symexpr tool server")
		return srv.Shutdown(shutdownCtx)
	}
}
