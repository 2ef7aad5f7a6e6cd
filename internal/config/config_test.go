package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/symexpr"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, uint32(symexpr.DefaultPrecision), cfg.Engine.Precision)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoad_EmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symexpr.yaml")
	data := []byte("engine:\n  precision: 40\nlog:\n  level: debug\n  format: json\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(40), cfg.Engine.Precision)
	assert.Equal(t, uint32(symexpr.DefaultGuardDigits), cfg.Engine.GuardDigits)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  max_depth: -1\n  max_diff_order: 0\n  max_nodes: -5\nlog:\n  format: xml\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_depth")
	assert.Contains(t, err.Error(), "max_diff_order")
	assert.Contains(t, err.Error(), "max_nodes")
	assert.Contains(t, err.Error(), "log.format")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestMarshal_RoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Engine.Precision = 33
	data, err := cfg.Marshal()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestToolHandler_UsesEngineSettings(t *testing.T) {
	cfg := Default()
	cfg.Engine.Precision = 7
	cfg.Engine.GuardDigits = 2
	h := cfg.ToolHandler()
	assert.Equal(t, uint32(7), h.DefaultPrecision)
	assert.Equal(t, uint32(2), h.Evaluator.GuardDigits)
	assert.Equal(t, cfg.Engine.SimplifyMaxPasses, h.SimplifyPasses)
	assert.Equal(t, symexpr.DefaultMaxDiffOrder, h.MaxDiffOrder)
	assert.Equal(t, symexpr.DefaultMaxNodes, h.MaxNodes)
}
