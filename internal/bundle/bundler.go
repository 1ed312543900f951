package bundle

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ctxpack/internal/budget"
	"github.com/fyrsmithlabs/ctxpack/internal/fsys"
	"github.com/fyrsmithlabs/ctxpack/internal/imports"
	"github.com/fyrsmithlabs/ctxpack/internal/logging"
	"github.com/fyrsmithlabs/ctxpack/internal/sandbox"
	"github.com/fyrsmithlabs/ctxpack/internal/secrets"
)

// Bundler assembles context bundles.
//
// A Bundler holds only configuration and collaborators. Every Build call
// creates its own sandbox, allocator and import index, so one Bundler may
// serve concurrent requests.
type Bundler struct {
	fs       fsys.FS
	redactor secrets.Redactor
	sessions SessionSource
	changes  ChangeSource
	tests    FileFinder
	types    FileFinder

	weights        budget.Weights
	warningMargin  int
	defaultCeiling int
	maxFileBytes   int64

	homeDir       string
	maxDepth      int
	extraPatterns []string
	importOpts    []imports.Option

	logger  *logging.Logger
	tracer  trace.Tracer
	metrics *Metrics
}

// New creates a Bundler. Collaborators that are not configured contribute
// nothing: without a SessionSource there is no session category, and so on.
func New(opts ...Option) (*Bundler, error) {
	b := &Bundler{
		fs:             fsys.OS{},
		warningMargin:  budget.DefaultWarningMargin,
		defaultCeiling: DefaultTokenCeiling,
		maxFileBytes:   DefaultMaxFileBytes,
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.weights == nil {
		b.weights = budget.DefaultWeights()
	}
	if err := b.weights.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}
	if err := sandbox.ValidatePatterns(b.extraPatterns); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}
	if b.redactor == nil {
		r, err := secrets.New(secrets.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidOption, err)
		}
		b.redactor = r
	}
	if b.logger == nil {
		b.logger = logging.Nop()
	}
	if b.tracer == nil {
		b.tracer = noop.NewTracerProvider().Tracer("ctxpack/bundle")
	}
	return b, nil
}

// Build runs the bundling pipeline for req.
//
// Categories are filled in priority order: explicit, session, git,
// dependency, dependent, test, type. A file is admitted at most once, under
// the first category that offers it. The only errors are an invalid project
// root; every per-file problem becomes an OmittedFile or is skipped.
func (b *Bundler) Build(ctx context.Context, req Request) (*ContextBundle, error) {
	start := time.Now()

	root, err := b.checkRoot(req.ProjectRoot)
	if err != nil {
		return nil, err
	}

	sb, err := sandbox.New(b.fs, root, sandbox.Options{
		HomeDir:       b.homeDir,
		AllowExternal: req.AllowExternal,
		MaxDepth:      b.maxDepth,
		ExtraPatterns: b.extraPatterns,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrProjectRootNotFound, root, err)
	}

	id := uuid.NewString()
	ctx = logging.WithBundleID(ctx, id)
	ctx, span := b.tracer.Start(ctx, "ctxpack.bundle", trace.WithAttributes(
		attribute.String("bundle.id", id),
		attribute.String("project.root", root),
	))
	defer span.End()

	ceiling := req.TokenCeiling
	if ceiling <= 0 {
		ceiling = b.defaultCeiling
	}

	r := &run{
		b:        b,
		sb:       sb,
		root:     root,
		cache:    make(map[string]string),
		claimed:  make(map[string]bool),
		modified: make(map[string]bool),
		types:    make(map[string]bool),
		out: &ContextBundle{
			ID:             id,
			ProjectRoot:    root,
			TokenCeiling:   ceiling,
			Files:          []FileEntry{},
			OmittedFiles:   []OmittedFile{},
			Categories:     make(map[budget.Category]int, len(budget.Categories)),
			BudgetWarnings: []budget.Warning{},
		},
	}

	// 1. session
	sess := r.loadSession(ctx)

	// 2. conversation
	conversationTokens := 0
	if req.IncludeConversation && sess != nil && sess.Transcript != "" {
		res := b.redactor.Redact(sess.Transcript)
		r.out.ConversationContext = res.Content
		r.recordRedaction(res, false)
		conversationTokens = budget.EstimateTokens(res.Content)
	}

	// 3. base budgets; weights were validated by New and ceiling is positive
	alloc, err := budget.NewAllocator(ceiling, conversationTokens, b.weights, budget.WithWarningMargin(b.warningMargin))
	if err != nil {
		return nil, fmt.Errorf("allocating budget: %w", err)
	}
	r.alloc = alloc

	// 4. explicit
	r.explicit(ctx, req.IncludePaths)

	// 5. session files
	if sess != nil {
		for _, p := range sess.Written {
			r.addModified(p)
		}
		for _, p := range sess.Edited {
			r.addModified(p)
		}
		paths := make([]string, 0, len(sess.Written)+len(sess.Edited)+len(sess.Read))
		paths = append(paths, sess.Written...)
		paths = append(paths, sess.Edited...)
		paths = append(paths, sess.Read...)
		r.admit(ctx, budget.Session, paths, policy{checkBoundary: true})
	} else {
		r.skip(ctx, budget.Session)
	}

	// 6. git changes
	changed := r.changedFiles(ctx)
	for _, p := range changed {
		r.addModified(p)
	}
	r.admit(ctx, budget.Git, changed, policy{checkBoundary: true})

	modified := r.modifiedFiles()
	var indexer *imports.Indexer
	if (req.IncludeDependencies || req.IncludeDependents) && len(modified) > 0 {
		indexer = r.newIndexer(ctx)
	}

	// 7. dependencies
	if req.IncludeDependencies && indexer != nil {
		r.admit(ctx, budget.Dependency, r.dependencies(indexer, modified), policy{
			checkBoundary: true,
			dropExternal:  true,
			smallestFirst: true,
		})
	} else {
		r.skip(ctx, budget.Dependency)
	}

	// 8. dependents
	if req.IncludeDependents && indexer != nil {
		r.admit(ctx, budget.Dependent, r.dependents(ctx, indexer, modified), policy{
			checkBoundary: true,
			dropExternal:  true,
			smallestFirst: true,
		})
	} else {
		r.skip(ctx, budget.Dependent)
	}

	// 9. tests
	if req.IncludeTests {
		r.admit(ctx, budget.Test, r.find(ctx, b.tests, "tests", modified), policy{checkBoundary: true})
	} else {
		r.skip(ctx, budget.Test)
	}

	// 10. types, which absorb whatever spillover is left
	if req.IncludeTypes {
		r.admit(ctx, budget.Type, r.find(ctx, b.types, "types", modified), policy{
			checkBoundary: true,
			smallestFirst: true,
		})
	} else {
		r.skip(ctx, budget.Type)
	}

	// 11. emit
	out := r.finish(conversationTokens)

	elapsed := time.Since(start)
	b.metrics.observeDuration(elapsed)
	span.SetAttributes(
		attribute.Int("bundle.files", len(out.Files)),
		attribute.Int("bundle.omitted", len(out.OmittedFiles)),
		attribute.Int("bundle.tokens", out.TotalTokens),
		attribute.Int("bundle.redactions", out.RedactionStats.TotalRedactions),
	)
	b.logger.Info(ctx, "bundle built",
		zap.String("project_root", root),
		zap.Int("files", len(out.Files)),
		zap.Int("omitted", len(out.OmittedFiles)),
		zap.Int("total_tokens", out.TotalTokens),
		zap.Int("token_ceiling", ceiling),
		zap.Int("redactions", out.RedactionStats.TotalRedactions),
		zap.Duration("duration", elapsed),
	)
	return out, nil
}

func (b *Bundler) checkRoot(root string) (string, error) {
	if !filepath.IsAbs(root) {
		return "", fmt.Errorf("%w: %q", ErrProjectRootNotAbsolute, root)
	}
	root = filepath.Clean(root)
	info, err := b.fs.Stat(root)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrProjectRootNotFound, root, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrProjectRootNotFound, root)
	}
	return root, nil
}

// loadSession asks the session collaborator for the project's session. A
// failure is logged and treated as no session.
func (r *run) loadSession(ctx context.Context) *Session {
	if r.b.sessions == nil {
		return nil
	}
	ctx, span := r.b.tracer.Start(ctx, "ctxpack.bundle.load_session")
	defer span.End()

	sess, err := r.b.sessions.Load(ctx, r.root)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "session unavailable")
		r.b.logger.Warn(ctx, "session unavailable, continuing without it", zap.Error(err))
		return nil
	}
	if sess == nil {
		return nil
	}
	for p, content := range sess.Cache {
		r.cache[r.sb.Normalize(p)] = content
	}
	span.SetAttributes(
		attribute.Int("session.read", len(sess.Read)),
		attribute.Int("session.written", len(sess.Written)),
		attribute.Int("session.edited", len(sess.Edited)),
	)
	return sess
}

// changedFiles asks the change collaborator for uncommitted files. A
// failure is logged and treated as no changes.
func (r *run) changedFiles(ctx context.Context) []string {
	if r.b.changes == nil {
		return nil
	}
	changed, err := r.b.changes.Changed(ctx, r.root)
	if err != nil {
		r.b.logger.Warn(ctx, "git changes unavailable", zap.Error(err))
		return nil
	}
	return changed
}

func (r *run) newIndexer(ctx context.Context) *imports.Indexer {
	opts := append([]imports.Option{imports.WithLogger(r.b.logger.Underlying())}, r.b.importOpts...)
	indexer, err := imports.New(r.b.fs, r.root, opts...)
	if err != nil {
		r.b.logger.Warn(ctx, "import indexer unavailable", zap.Error(err))
		return nil
	}
	return indexer
}

// dependencies returns the first-order imports of every modified file.
func (r *run) dependencies(indexer *imports.Indexer, modified []string) []string {
	seen := make(map[string]bool)
	var deps []string
	for _, f := range modified {
		for _, d := range indexer.GetDependencies(f) {
			if !seen[d] {
				seen[d] = true
				deps = append(deps, d)
			}
		}
	}
	return deps
}

// dependents builds the reverse import index once and returns the files
// importing any modified file.
func (r *run) dependents(ctx context.Context, indexer *imports.Indexer, modified []string) []string {
	ctx, span := r.b.tracer.Start(ctx, "ctxpack.bundle.index")
	defer span.End()

	idx, err := indexer.BuildIndex(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "index scan failed")
		r.b.logger.Warn(ctx, "import index unavailable", zap.Error(err))
		return nil
	}
	span.SetAttributes(
		attribute.Int("index.scanned", idx.Scanned()),
		attribute.Int("index.edges", idx.Edges()),
	)
	return idx.DependentsOf(modified)
}

func (r *run) find(ctx context.Context, finder FileFinder, name string, modified []string) []string {
	if finder == nil || len(modified) == 0 {
		return nil
	}
	// modified holds canonical paths, so finders get the canonical root.
	found, err := finder.Find(ctx, modified, r.sb.RealRoot())
	if err != nil {
		r.b.logger.Warn(ctx, "file finder failed", zap.String("finder", name), zap.Error(err))
		return nil
	}
	return found
}

// finish assembles the bundle totals from the allocator ledger.
func (r *run) finish(conversationTokens int) *ContextBundle {
	out := r.out
	out.Budgets = r.alloc.Ledger()
	for _, e := range out.Budgets {
		out.Categories[e.Category] = e.Used
	}

	total := conversationTokens
	for _, f := range out.Files {
		total += f.TokenEstimate
	}
	out.TotalTokens = total

	types := make([]string, 0, len(r.types))
	for t := range r.types {
		types = append(types, t)
	}
	sort.Strings(types)
	out.RedactionStats.RedactedTypes = types
	return out
}
