// Package main provides the praxis binary entry point.
// Praxis builds and validates a knowledge base of markdown rule
// documents: it assembles per-skill documents, runs structural and
// registry-driven checks, probes outbound links, and watches release
// pages for version drift.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/praxisdev/praxis/config"
	"github.com/praxisdev/praxis/report"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "praxis"
)

// errFindings signals that the run completed but produced findings.
// The report is already on stderr when this surfaces.
var errFindings = errors.New("findings reported")

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		if !errors.Is(err, errFindings) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Knowledge base build and validation pipeline",
		Long: `Praxis builds and validates a knowledge base of markdown rule
documents grouped into skills.

It provides:
- Per-skill document assembly from atomic rule files
- Structural and registry-driven content validation
- Concurrent link health checking with bounded retries
- Release page watching for version drift`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	newApp := func() (*App, error) {
		logger := newLogger(logLevel)
		cfg, err := loadConfig(configPath, logger)
		if err != nil {
			return nil, err
		}
		return NewApp(cfg, logger), nil
	}

	// runPipeline handles the shared shape of every checking command:
	// resolve skills, run the stage, print the report, map findings to
	// the exit contract.
	runPipeline := func(args []string, stage func(ctx context.Context, app *App, skills []string, rep *report.Report) error) error {
		app, err := newApp()
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		skills, err := app.resolveSkills(args)
		if err != nil {
			return err
		}

		rep := report.New()
		if err := stage(ctx, app, skills, rep); err != nil {
			return err
		}

		rep.Write(os.Stderr)
		if rep.Failed() {
			return errFindings
		}
		return nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "build [skill...]",
		Short: "Parse, validate, and assemble skill documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(args, func(ctx context.Context, app *App, skills []string, rep *report.Report) error {
				return app.Build(ctx, skills, rep)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check [skill...]",
		Short: "Run structural and registry-driven validations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(args, func(ctx context.Context, app *App, skills []string, rep *report.Report) error {
				return app.Check(ctx, skills, rep)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "links [skill...]",
		Short: "Probe every outbound reference for reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(args, func(ctx context.Context, app *App, skills []string, rep *report.Report) error {
				return app.Links(ctx, skills, rep)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "releases",
		Short: "Compare release pages against the recorded baselines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			rep := report.New()
			if err := app.Releases(ctx, rep); err != nil {
				return err
			}

			rep.Write(os.Stderr)
			if rep.Failed() {
				return errFindings
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "extract [skill...]",
		Short: "Extract example code blocks into snippet files",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(args, func(ctx context.Context, app *App, skills []string, rep *report.Report) error {
				return app.Extract(ctx, skills, rep)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Rebuild and re-check on every file change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := app.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Seed the user config file with defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.NewLoader(newLogger(logLevel)).EnsureUserConfig()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func newLogger(logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func loadConfig(configPath string, logger *slog.Logger) (*config.Config, error) {
	if configPath != "" {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
		return cfg, nil
	}
	return config.NewLoader(logger).Load()
}
