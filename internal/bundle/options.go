package bundle

import (
	"github.com/fyrsmithlabs/ctxpack/internal/budget"
	"github.com/fyrsmithlabs/ctxpack/internal/fsys"
	"github.com/fyrsmithlabs/ctxpack/internal/imports"
	"github.com/fyrsmithlabs/ctxpack/internal/logging"
	"github.com/fyrsmithlabs/ctxpack/internal/secrets"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTokenCeiling applies when a request names no ceiling.
const DefaultTokenCeiling = 100000

// DefaultMaxFileBytes is the largest file read into a bundle.
const DefaultMaxFileBytes = 1 << 20

// Option configures a Bundler.
type Option func(*Bundler)

// WithFS sets the filesystem. The default is the host filesystem.
func WithFS(filesystem fsys.FS) Option {
	return func(b *Bundler) { b.fs = filesystem }
}

// WithRedactor sets the secret redactor. The default uses the built-in rules.
func WithRedactor(r secrets.Redactor) Option {
	return func(b *Bundler) { b.redactor = r }
}

// WithSessionSource sets where editing sessions come from.
func WithSessionSource(s SessionSource) Option {
	return func(b *Bundler) { b.sessions = s }
}

// WithChangeSource sets where uncommitted changes come from.
func WithChangeSource(c ChangeSource) Option {
	return func(b *Bundler) { b.changes = c }
}

// WithTestFinder sets the finder for test files of modified sources.
func WithTestFinder(f FileFinder) Option {
	return func(b *Bundler) { b.tests = f }
}

// WithTypeFinder sets the finder for type definition files.
func WithTypeFinder(f FileFinder) Option {
	return func(b *Bundler) { b.types = f }
}

// WithWeights sets the category weights.
func WithWeights(w budget.Weights) Option {
	return func(b *Bundler) { b.weights = w }
}

// WithWarningMargin sets the margin added to suggested budgets.
func WithWarningMargin(margin int) Option {
	return func(b *Bundler) { b.warningMargin = margin }
}

// WithDefaultCeiling sets the ceiling for requests that name none.
func WithDefaultCeiling(ceiling int) Option {
	return func(b *Bundler) {
		if ceiling > 0 {
			b.defaultCeiling = ceiling
		}
	}
}

// WithMaxFileBytes skips files larger than n bytes.
func WithMaxFileBytes(n int64) Option {
	return func(b *Bundler) {
		if n > 0 {
			b.maxFileBytes = n
		}
	}
}

// WithHomeDir sets the directory a leading "~" expands to.
func WithHomeDir(dir string) Option {
	return func(b *Bundler) { b.homeDir = dir }
}

// WithMaxDepth caps directory expansion of explicit paths.
func WithMaxDepth(depth int) Option {
	return func(b *Bundler) { b.maxDepth = depth }
}

// WithSensitivePatterns adds sensitive path regexes to the built-in set.
func WithSensitivePatterns(patterns []string) Option {
	return func(b *Bundler) { b.extraPatterns = patterns }
}

// WithImportOptions configures the import indexer created for each run.
func WithImportOptions(opts ...imports.Option) Option {
	return func(b *Bundler) { b.importOpts = append(b.importOpts, opts...) }
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(b *Bundler) { b.logger = logger }
}

// WithTracer sets the tracer for bundle spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(b *Bundler) { b.tracer = tracer }
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(b *Bundler) { b.metrics = m }
}
