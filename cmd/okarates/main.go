package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"runtime/debug"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kevsynapthrive/oka-water-calculator/internal/calculation"
	"github.com/kevsynapthrive/oka-water-calculator/internal/config"
	"github.com/kevsynapthrive/oka-water-calculator/internal/domain"
	"github.com/kevsynapthrive/oka-water-calculator/internal/output"
	"github.com/kevsynapthrive/oka-water-calculator/internal/recommend"
	"github.com/kevsynapthrive/oka-water-calculator/internal/server"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// zapAdapter bridges a zap sugared logger onto calculation.Logger.
type zapAdapter struct {
	s *zap.SugaredLogger
}

func (z zapAdapter) Debugf(format string, args ...any) { z.s.Debugf(format, args...) }
func (z zapAdapter) Infof(format string, args ...any)  { z.s.Infof(format, args...) }
func (z zapAdapter) Warnf(format string, args ...any)  { z.s.Warnf(format, args...) }
func (z zapAdapter) Errorf(format string, args ...any) { z.s.Errorf(format, args...) }

var (
	formatFlag string
	quietFlag  bool
)

func newLogger() (*zap.Logger, error) {
	if quietFlag {
		return zap.NewNop(), nil
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	return cfg.Build()
}

func newEngine(logger *zap.Logger, withRecommender bool) *calculation.Engine {
	engine := calculation.NewEngine()
	engine.SetLogger(zapAdapter{s: logger.Sugar()})
	if withRecommender {
		solver := recommend.NewDefaultSolver()
		solver.SetLogger(zapAdapter{s: logger.Sugar()})
		engine.Recommender = solver
	}
	return engine
}

func loadConfiguration(path string) (*domain.Configuration, error) {
	parser := config.NewInputParser()
	cfg, err := parser.LoadFromFile(path)
	if err != nil {
		var incomplete *config.IncompleteInputError
		if errors.As(err, &incomplete) {
			// Skip-pass policy: report what is missing without a stack of
			// wrapping; the computation simply does not run.
			return nil, fmt.Errorf("configuration not ready: %w", incomplete)
		}
		return nil, err
	}
	return cfg, nil
}

func runAndReport(cmd *cobra.Command, path string, withRecommender bool) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := loadConfiguration(path)
	if err != nil {
		return err
	}

	engine := newEngine(logger, withRecommender)
	results, err := engine.RunAll(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	return output.NewReportGenerator(cmd.OutOrStdout()).Generate(results, formatFlag)
}

func calculateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "calculate [input-file]",
		Short: "Evaluate current and what-if rates against revenue need",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAndReport(cmd, args[0], false)
		},
	}
}

func projectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "project [input-file]",
		Short: "Run the multi-year financial projection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAndReport(cmd, args[0], false)
		},
	}
}

func recommendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recommend [input-file]",
		Short: "Solve for a sustainable rate path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAndReport(cmd, args[0], true)
		},
	}
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the calculator over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			engine := newEngine(logger, true)
			srv := &http.Server{
				Addr:              addr,
				Handler:           server.New(engine, logger).Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			logger.Info("listening", zap.String("addr", addr))
			return srv.ListenAndServe()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "okarates %s (commit %s, built %s)\n", version, commit, date)
			if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
				fmt.Fprintln(cmd.OutOrStdout(), bi.Main.Path)
			}
		},
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "okarates",
		Short: "Water utility rate planning calculator",
		Long:  "Financial planning calculator for small water utilities: tiered billing, debt consolidation, multi-year projections, and rate recommendations",
	}
	root.PersistentFlags().StringVar(&formatFlag, "format", "console", "output format: console, csv, or json")
	root.PersistentFlags().BoolVar(&quietFlag, "quiet", false, "suppress log output")
	root.AddCommand(calculateCmd(), projectCmd(), recommendCmd(), serveCmd(), versionCmd())
	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
