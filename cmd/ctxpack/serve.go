package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpserver "github.com/fyrsmithlabs/ctxpack/internal/http"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		host string
		port int
		root string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve redaction and bundling over HTTP",
		Long: `Serve the HTTP API for a single project:

  GET  /health          liveness and telemetry health
  POST /api/v1/redact   redact secrets from a string
  POST /api/v1/bundle   assemble a bundle for the served project
  GET  /metrics         Prometheus metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc := a.cfg.Server
			if cmd.Flags().Changed("host") {
				sc.Host = host
			}
			if cmd.Flags().Changed("port") {
				sc.Port = port
			}
			if cmd.Flags().Changed("root") {
				sc.ProjectRoot = root
			}
			dir, err := absRoot(sc.ProjectRoot)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			redactor, err := a.newRedactor(dir)
			if err != nil {
				return err
			}
			bundler, err := a.newBundler(dir, "", reg)
			if err != nil {
				return err
			}

			srv, err := httpserver.NewServer(redactor, bundler, a.logger.Underlying().Named("http"), &httpserver.Config{
				Host:          sc.Host,
				Port:          sc.Port,
				ProjectRoot:   dir,
				AllowExternal: a.cfg.Sandbox.AllowExternal,
				Defaults: httpserver.BundleDefaults{
					IncludeConversation: a.cfg.Bundle.IncludeConversation,
					IncludeDependencies: a.cfg.Bundle.Dependencies,
					IncludeDependents:   a.cfg.Bundle.Dependents,
					IncludeTests:        a.cfg.Bundle.Tests,
					IncludeTypes:        a.cfg.Bundle.Types,
				},
				Version: version,
			},
				httpserver.WithRegistry(reg),
				httpserver.WithTelemetry(a.tel),
			)
			if err != nil {
				return fmt.Errorf("failed to create http server: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("http server: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			a.logger.Info(ctx, "shutdown signal received")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(sc.ShutdownTimeout))
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.logger.Error(shutdownCtx, "http shutdown failed", zap.Error(err))
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (default server.host)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default server.port)")
	cmd.Flags().StringVar(&root, "root", "", "project root to serve (default server.project_root)")
	return cmd
}
