package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ctxpack/internal/config"
	"github.com/fyrsmithlabs/ctxpack/internal/logging"
	"github.com/fyrsmithlabs/ctxpack/internal/telemetry"
)

// app holds what every subcommand shares once configuration is loaded.
type app struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *logging.Logger
	tel    *telemetry.Telemetry
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "ctxpack",
		Short: "Assemble redacted, token-bounded context bundles",
		Long: `ctxpack gathers the files that matter for a change (explicit paths, files
touched in the editing session, uncommitted git changes, their imports,
importers, tests and type definitions), keeps sensitive files out, redacts
secrets, and fits the result into a token budget.

Configuration is read from ~/.config/ctxpack/config.yaml and CTXPACK_*
environment variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			a.close(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.config/ctxpack/config.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override logging.level (trace, debug, info, warn, error)")

	root.AddCommand(
		newBundleCmd(a),
		newRedactCmd(a),
		newDepsCmd(a),
		newServeCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) init(ctx context.Context) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		level, err := logging.LevelFromString(a.logLevel)
		if err != nil {
			return fmt.Errorf("invalid --log-level: %w", err)
		}
		cfg.Logging.Level = level
	}
	if cfg.Telemetry.ServiceVersion == "dev" {
		cfg.Telemetry.ServiceVersion = version
	}

	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	tel, err := telemetry.New(ctx, &cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	if h := tel.Health(); h.Degraded {
		logger.Warn(ctx, "telemetry degraded, traces disabled", zap.String("error", h.Error))
	}

	a.cfg, a.logger, a.tel = cfg, logger, tel
	return nil
}

func (a *app) close(ctx context.Context) {
	if a.tel != nil {
		if err := a.tel.Shutdown(ctx); err != nil && a.logger != nil {
			a.logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
