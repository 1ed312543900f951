package main

import (
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/ctxpack/internal/bundle"
	"github.com/fyrsmithlabs/ctxpack/internal/finders"
	"github.com/fyrsmithlabs/ctxpack/internal/gitchanges"
	"github.com/fyrsmithlabs/ctxpack/internal/imports"
	"github.com/fyrsmithlabs/ctxpack/internal/secrets"
	"github.com/fyrsmithlabs/ctxpack/internal/session"
)

const tracerName = "github.com/fyrsmithlabs/ctxpack"

// absRoot resolves a --root flag to an absolute path.
func absRoot(root string) (string, error) {
	if root == "" {
		root = "."
	}
	return filepath.Abs(root)
}

// newRedactor builds a redactor from the secrets section, merged with the
// project's .gitleaks.toml and the user allowlist.
func (a *app) newRedactor(root string) (secrets.Redactor, error) {
	cfg := a.cfg.Secrets
	allow, err := secrets.LoadAllowlists(root, cfg.UserAllowlist)
	if err != nil {
		return nil, err
	}
	cfg.Merge(allow)
	return secrets.New(&cfg)
}

// importOptions translates the imports section into indexer options.
func (a *app) importOptions() []imports.Option {
	opts := []imports.Option{
		imports.WithAliases(a.cfg.Imports.Aliases),
		imports.WithLogger(a.logger.Underlying().Named("imports")),
	}
	if a.cfg.Imports.Workers > 0 {
		opts = append(opts, imports.WithWorkers(a.cfg.Imports.Workers))
	}
	if rps := a.cfg.Imports.ReadsPerSecond; rps > 0 {
		opts = append(opts, imports.WithLimiter(rate.NewLimiter(rate.Limit(rps), 1)))
	}
	return opts
}

// newBundler wires every collaborator the configuration enables. A non-empty
// sessionPath overrides the session section.
func (a *app) newBundler(root, sessionPath string, reg prometheus.Registerer) (*bundle.Bundler, error) {
	redactor, err := a.newRedactor(root)
	if err != nil {
		return nil, err
	}
	zl := a.logger.Underlying()
	importOpts := a.importOptions()

	opts := []bundle.Option{
		bundle.WithRedactor(redactor),
		bundle.WithChangeSource(gitchanges.New(zl.Named("git"))),
		bundle.WithTestFinder(finders.NewTests(nil)),
		bundle.WithTypeFinder(finders.NewTypes(nil,
			finders.WithImportOptions(importOpts...),
			finders.WithLogger(zl.Named("types")),
		)),
		bundle.WithWeights(a.cfg.Budget.Weights),
		bundle.WithWarningMargin(a.cfg.Budget.WarningMargin),
		bundle.WithDefaultCeiling(a.cfg.Budget.TokenCeiling),
		bundle.WithMaxFileBytes(a.cfg.Bundle.MaxFileBytes),
		bundle.WithMaxDepth(a.cfg.Sandbox.MaxDepth),
		bundle.WithSensitivePatterns(a.cfg.Sandbox.ExtraSensitivePatterns),
		bundle.WithImportOptions(importOpts...),
		bundle.WithLogger(a.logger.Named("bundle")),
		bundle.WithTracer(a.tel.Tracer(tracerName)),
		bundle.WithMetrics(bundle.NewMetrics(reg)),
	}
	if home, err := os.UserHomeDir(); err == nil {
		opts = append(opts, bundle.WithHomeDir(home))
	}

	switch {
	case sessionPath != "":
		opts = append(opts, bundle.WithSessionSource(session.NewJSONL(
			session.WithPath(sessionPath),
			session.WithLogger(zl.Named("session")),
		)))
	case a.cfg.Session.Enabled():
		opts = append(opts, bundle.WithSessionSource(session.NewJSONL(
			session.WithPath(a.cfg.Session.Path),
			session.WithProjectsDir(a.cfg.Session.ProjectsDir),
			session.WithLogger(zl.Named("session")),
		)))
	}

	return bundle.New(opts...)
}
