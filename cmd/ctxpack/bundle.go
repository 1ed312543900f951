package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ctxpack/internal/bundle"
	"github.com/fyrsmithlabs/ctxpack/internal/gitchanges"
	"github.com/fyrsmithlabs/ctxpack/internal/logging"
)

type bundleFlags struct {
	root          string
	ceiling       int
	allowExternal bool
	conversation  bool
	deps          bool
	dependents    bool
	tests         bool
	types         bool
	session       string
	format        string
	out           string
	metricsFile   string
	quiet         bool
}

func newBundleCmd(a *app) *cobra.Command {
	f := &bundleFlags{}

	cmd := &cobra.Command{
		Use:   "bundle [paths...]",
		Short: "Assemble a context bundle for a project",
		Long: `Assemble a context bundle. Paths are explicitly requested files or
directories, relative to --root or absolute. Session, git, dependency,
dependent, test and type files are discovered automatically.

The bundle is written to stdout (or --out) as JSON or YAML; a summary is
printed to stderr unless --quiet is set.`,
		Example: `  ctxpack bundle src/api/handler.ts
  ctxpack bundle --ceiling 50000 --format yaml --out bundle.yaml
  ctxpack bundle --session ~/.claude/projects/-srv-app/log.jsonl --conversation`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBundle(cmd, a, f, args)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.root, "root", ".", "project root")
	fl.IntVar(&f.ceiling, "ceiling", 0, "token ceiling (default budget.token_ceiling)")
	fl.BoolVar(&f.allowExternal, "allow-external", false, "let explicit paths resolve outside the project")
	fl.BoolVar(&f.conversation, "conversation", false, "include the session transcript")
	fl.BoolVar(&f.deps, "deps", false, "include imports of modified files")
	fl.BoolVar(&f.dependents, "dependents", false, "include files importing modified files")
	fl.BoolVar(&f.tests, "tests", false, "include tests of modified files")
	fl.BoolVar(&f.types, "types", false, "include type definitions of modified files")
	fl.StringVar(&f.session, "session", "", "session JSONL log (default from the session section)")
	fl.StringVarP(&f.format, "format", "f", formatJSON, "output format: json or yaml")
	fl.StringVarP(&f.out, "out", "o", "", "write the bundle to a file instead of stdout")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "write bundle metrics in Prometheus text format")
	fl.BoolVarP(&f.quiet, "quiet", "q", false, "suppress the summary")

	return cmd
}

func runBundle(cmd *cobra.Command, a *app, f *bundleFlags, args []string) error {
	if err := checkFormat(f.format, formatJSON, formatYAML); err != nil {
		return err
	}
	root, err := absRoot(f.root)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	b, err := a.newBundler(root, f.session, reg)
	if err != nil {
		return err
	}

	// Include flags fall back to the bundle section unless given.
	defaults := a.cfg.Bundle
	flag := func(name string, v, def bool) bool {
		if cmd.Flags().Changed(name) {
			return v
		}
		return def
	}
	req := bundle.Request{
		ProjectRoot:         root,
		IncludePaths:        args,
		AllowExternal:       f.allowExternal || a.cfg.Sandbox.AllowExternal,
		TokenCeiling:        f.ceiling,
		IncludeConversation: flag("conversation", f.conversation, defaults.IncludeConversation),
		IncludeDependencies: flag("deps", f.deps, defaults.Dependencies),
		IncludeDependents:   flag("dependents", f.dependents, defaults.Dependents),
		IncludeTests:        flag("tests", f.tests, defaults.Tests),
		IncludeTypes:        flag("types", f.types, defaults.Types),
	}
	if cmd.Flags().Changed("allow-external") {
		req.AllowExternal = f.allowExternal
	}

	ctx := cmd.Context()
	out, err := b.Build(ctx, req)
	if err != nil {
		return err
	}
	ctx = logging.WithBundleID(ctx, out.ID)

	if err := writeOutput(cmd.OutOrStdout(), f.out, f.format, out); err != nil {
		return err
	}
	if f.metricsFile != "" {
		if err := prometheus.WriteToTextfile(f.metricsFile, reg); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	if !f.quiet {
		printSummary(cmd.ErrOrStderr(), out, gitchanges.Branch(root))
	}
	a.logger.Info(ctx, "bundle written",
		zap.Int("files", len(out.Files)),
		zap.Int("omitted", len(out.OmittedFiles)),
		zap.Int("tokens", out.TotalTokens),
	)
	return nil
}
