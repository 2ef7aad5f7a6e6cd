// Package config loads engine and server settings from YAML.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/njchilds90/symexpr"
)

// Config is the on-disk configuration. Zero fields are filled from Default
// by Load.
type Config struct {
	Engine EngineConfig `yaml:"engine"`
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
}

type EngineConfig struct {
	Precision         uint32 `yaml:"precision"`           // significant digits, e.g. 20
	GuardDigits       uint32 `yaml:"guard_digits"`        // extra digits on intermediates
	MaxDepth          int    `yaml:"max_depth"`           // deepest tree Evaluate accepts
	SimplifyMaxPasses int    `yaml:"simplify_max_passes"` // cap for SimplifyFully
	MaxDiffOrder      int    `yaml:"max_diff_order"`      // highest derivative order a tool call may ask for
	MaxNodes          int    `yaml:"max_nodes"`           // largest derivative tree a tool call may build
}

type ServerConfig struct {
	Addr         string `yaml:"addr"`           // e.g. ":8080"
	MaxBodyBytes int64  `yaml:"max_body_bytes"` // request body limit
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			Precision:         symexpr.DefaultPrecision,
			GuardDigits:       symexpr.DefaultGuardDigits,
			MaxDepth:          symexpr.DefaultMaxDepth,
			SimplifyMaxPasses: symexpr.DefaultSimplifyPasses,
			MaxDiffOrder:      symexpr.DefaultMaxDiffOrder,
			MaxNodes:          symexpr.DefaultMaxNodes,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			MaxBodyBytes: 1 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults. An empty path returns Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read the config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Engine.Precision == 0 {
		errs = append(errs, errors.New("engine.precision must be positive"))
	}
	if c.Engine.Precision > symexpr.MaxToolPrecision {
		errs = append(errs, fmt.Errorf("engine.precision must be at most %d", symexpr.MaxToolPrecision))
	}
	if c.Engine.MaxDepth <= 0 {
		errs = append(errs, errors.New("engine.max_depth must be positive"))
	}
	if c.Engine.SimplifyMaxPasses <= 0 {
		errs = append(errs, errors.New("engine.simplify_max_passes must be positive"))
	}
	if c.Engine.GuardDigits > symexpr.MaxToolPrecision {
		errs = append(errs, fmt.Errorf("engine.guard_digits must be at most %d", symexpr.MaxToolPrecision))
	}
	if c.Engine.MaxDiffOrder <= 0 {
		errs = append(errs, errors.New("engine.max_diff_order must be positive"))
	}
	if c.Engine.MaxNodes <= 0 {
		errs = append(errs, errors.New("engine.max_nodes must be positive"))
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("server.max_body_bytes must be positive"))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Evaluator builds the engine evaluator described by c.
func (c Config) Evaluator() symexpr.Evaluator {
	return symexpr.Evaluator{
		GuardDigits: c.Engine.GuardDigits,
		MaxDepth:    c.Engine.MaxDepth,
	}
}

// ToolHandler builds a tool handler described by c.
func (c Config) ToolHandler() *symexpr.ToolHandler {
	return &symexpr.ToolHandler{
		Evaluator:        c.Evaluator(),
		DefaultPrecision: c.Engine.Precision,
		SimplifyPasses:   c.Engine.SimplifyMaxPasses,
		MaxDiffOrder:     c.Engine.MaxDiffOrder,
		MaxNodes:         c.Engine.MaxNodes,
	}
}

// Marshal renders c as YAML, e.g. for writing a starter file.
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
