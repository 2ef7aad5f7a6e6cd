package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/njchilds90/symexpr"
	"github.com/njchilds90/symexpr/internal/config"
	"github.com/njchilds90/symexpr/internal/logging"
	"github.com/njchilds90/symexpr/internal/server"
)

type app struct {
	stdin  io.Reader
	stdout io.Writer

	configPath string
	logLevel   string
	logFormat  string

	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout}

	root := &cobra.Command{
		Use:           "symexpr",
		Short:         "Symbolic expression engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(stdout)
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format (text, json)")

	root.AddCommand(a.evalCmd(), a.diffCmd(), a.simplifyCmd(), a.serveCmd())
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Log.Format = a.logFormat
	}
	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Service: "symexpr"})
	if err != nil {
		return err
	}
	a.cfg, a.logger = cfg, logger
	return nil
}

func (a *app) evalCmd() *cobra.Command {
	var (
		precision uint32
		binds     map[string]string
	)
	cmd := &cobra.Command{
		Use:   "eval [file]",
		Short: "Evaluate an expression document to a decimal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.readExpr(args)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("precision") {
				precision = a.cfg.Engine.Precision
			}
			b, err := symexpr.ParseBindings(binds)
			if err != nil {
				return err
			}
			ev := a.cfg.Evaluator()
			ev.Logger = a.logger
			v, err := ev.Evaluate(e, precision, b)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.stdout, v.Text('f'))
			return err
		},
	}
	cmd.Flags().Uint32Var(&precision, "precision", symexpr.DefaultPrecision, "significant digits")
	cmd.Flags().StringToStringVar(&binds, "bind", nil, "variable bindings, e.g. --bind x=0.8,y=2")
	return cmd
}

func (a *app) diffCmd() *cobra.Command {
	var (
		varName  string
		order    int
		simplify bool
	)
	cmd := &cobra.Command{
		Use:   "diff [file]",
		Short: "Differentiate an expression document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.readExpr(args)
			if err != nil {
				return err
			}
			if order < 0 || order > a.cfg.Engine.MaxDiffOrder {
				return fmt.Errorf("--order must be between 0 and %d, got %d", a.cfg.Engine.MaxDiffOrder, order)
			}
			d, err := symexpr.DiffNWithin(e, varName, order, a.cfg.Engine.MaxNodes)
			if err != nil {
				return err
			}
			if simplify {
				d = symexpr.SimplifyFully(d, a.cfg.Engine.SimplifyMaxPasses)
			}
			return a.writeExpr(d)
		},
	}
	cmd.Flags().StringVar(&varName, "var", "x", "variable to differentiate by")
	cmd.Flags().IntVar(&order, "order", 1, "derivative order")
	cmd.Flags().BoolVar(&simplify, "simplify", false, "simplify the result until stable")
	return cmd
}

func (a *app) simplifyCmd() *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "simplify [file]",
		Short: "Simplify an expression document",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.readExpr(args)
			if err != nil {
				return err
			}
			if full {
				return a.writeExpr(symexpr.SimplifyFully(e, a.cfg.Engine.SimplifyMaxPasses))
			}
			return a.writeExpr(symexpr.Simplify(e))
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "repeat passes until the tree stops changing")
	return cmd
}

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tool interface over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("addr") {
				a.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.New(a.cfg, a.logger).Run(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

func (a *app) readExpr(args []string) (symexpr.Expr, error) {
	var (
		data []byte
		err  error
	)
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(a.stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return nil, fmt.Errorf("read expression: %w", err)
	}
	return symexpr.FromJSON(data)
}

func (a *app) writeExpr(e symexpr.Expr) error {
	doc, err := symexpr.ToDocument(e)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
