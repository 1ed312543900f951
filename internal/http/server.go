// Package http serves redaction and bundling over HTTP.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ctxpack/internal/bundle"
	"github.com/fyrsmithlabs/ctxpack/internal/logging"
	"github.com/fyrsmithlabs/ctxpack/internal/secrets"
	"github.com/fyrsmithlabs/ctxpack/internal/telemetry"
)

// maxBodySize bounds request bodies.
const maxBodySize = "10M"

// Builder builds context bundles.
type Builder interface {
	Build(ctx context.Context, req bundle.Request) (*bundle.ContextBundle, error)
}

// Server provides HTTP endpoints for ctxpack.
type Server struct {
	echo      *echo.Echo
	redactor  secrets.Redactor
	builder   Builder
	logger    *zap.Logger
	config    *Config
	gatherer  prometheus.Gatherer
	telemetry *telemetry.Telemetry
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int

	// ProjectRoot is the absolute root every bundle request is built for.
	ProjectRoot string

	// AllowExternal is the most a request may ask for; a request can only
	// narrow it.
	AllowExternal bool

	Defaults BundleDefaults
	Version  string
}

// Option configures a Server.
type Option func(*Server)

// WithRegistry serves reg on /metrics and records request metrics on it.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.gatherer = reg
		s.echo.Use(NewHTTPMetrics(reg).MetricsMiddleware())
	}
}

// WithTelemetry reports exporter health on /health.
func WithTelemetry(tel *telemetry.Telemetry) Option {
	return func(s *Server) { s.telemetry = tel }
}

// NewServer creates a new HTTP server.
func NewServer(redactor secrets.Redactor, builder Builder, logger *zap.Logger, cfg *Config, opts ...Option) (*Server, error) {
	if redactor == nil {
		return nil, fmt.Errorf("redactor cannot be nil")
	}
	if builder == nil {
		return nil, fmt.Errorf("builder cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "127.0.0.1", Port: 9090}
	}
	if !filepath.IsAbs(cfg.ProjectRoot) {
		return nil, fmt.Errorf("project root must be absolute, got %q", cfg.ProjectRoot)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit(maxBodySize))
	e.Use(requestLogger(logger))

	s := &Server{
		echo:     e,
		redactor: redactor,
		builder:  builder,
		logger:   logger,
		config:   cfg,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerRoutes()
	return s, nil
}

// requestLogger logs every request and carries its request id into the
// handler's context so downstream logs can be correlated.
func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			if requestID != "" {
				req := c.Request()
				c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), requestID)))
			}

			err := next(c)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", requestID),
			)
			return err
		}
	}
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	if s.gatherer != nil {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	v1 := s.echo.Group("/api/v1")
	v1.POST("/redact", s.handleRedact)
	v1.POST("/bundle", s.handleBundle)
}

func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{Status: "ok", Version: s.config.Version}
	if s.telemetry != nil {
		h := s.telemetry.Health()
		resp.Telemetry = &h
		if h.Degraded {
			resp.Status = "degraded"
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleRedact(c echo.Context) error {
	var req RedactRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid redact request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content field is required")
	}

	res := s.redactor.Redact(req.Content)
	s.logger.Debug("redacted content", zap.Int("redactions", res.RedactionCount))

	types := res.RedactedTypes
	if types == nil {
		types = []string{}
	}
	return c.JSON(http.StatusOK, RedactResponse{
		Content:        res.Content,
		RedactionCount: res.RedactionCount,
		RedactedTypes:  types,
		ByType:         res.ByType,
	})
}

func (s *Server) handleBundle(c echo.Context) error {
	var req BundleRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid bundle request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.TokenCeiling < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "token_ceiling must be >= 0")
	}

	d := s.config.Defaults
	out, err := s.builder.Build(c.Request().Context(), bundle.Request{
		ProjectRoot:         s.config.ProjectRoot,
		IncludePaths:        req.IncludePaths,
		AllowExternal:       req.AllowExternal && s.config.AllowExternal,
		TokenCeiling:        req.TokenCeiling,
		IncludeConversation: flag(req.IncludeConversation, d.IncludeConversation),
		IncludeDependencies: flag(req.IncludeDependencies, d.IncludeDependencies),
		IncludeDependents:   flag(req.IncludeDependents, d.IncludeDependents),
		IncludeTests:        flag(req.IncludeTests, d.IncludeTests),
		IncludeTypes:        flag(req.IncludeTypes, d.IncludeTypes),
	})
	if err != nil {
		if errors.Is(err, bundle.ErrProjectRootNotFound) || errors.Is(err, bundle.ErrProjectRootNotAbsolute) {
			s.logger.Error("project root unavailable", zap.String("project_root", s.config.ProjectRoot), zap.Error(err))
			return echo.NewHTTPError(http.StatusServiceUnavailable, "project root unavailable")
		}
		s.logger.Error("bundle failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "bundle failed")
	}
	return c.JSON(http.StatusOK, out)
}

func flag(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server. It returns http.ErrServerClosed after
// Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server",
		zap.String("addr", addr),
		zap.String("project_root", s.config.ProjectRoot))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
