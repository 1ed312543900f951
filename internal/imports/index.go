package imports

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/ctxpack/internal/fsys"
	"github.com/fyrsmithlabs/ctxpack/internal/ignore"
)

// skipDirs are never descended into during the index scan. They hold
// dependencies, build output or version control data.
var skipDirs = map[string]bool{
	"node_modules":     true,
	"vendor":           true,
	"venv":             true,
	"__pycache__":      true,
	"dist":             true,
	"build":            true,
	"out":              true,
	"target":           true,
	"coverage":         true,
	"bower_components": true,
}

// sourceExtensions selects the files read during the index scan.
var sourceExtensions = map[string]bool{
	".ts": true, ".tsx": true, ".mts": true, ".cts": true,
	".js": true, ".jsx": true, ".mjs": true, ".cjs": true,
	".vue": true, ".svelte": true,
	".py": true,
	".css": true, ".scss": true, ".sass": true, ".less": true,
	".c": true, ".cc": true, ".cpp": true, ".h": true, ".hpp": true,
}

// IsSource reports whether path has an extension the index scan reads.
func IsSource(path string) bool {
	return sourceExtensions[strings.ToLower(filepath.Ext(path))]
}

// Indexer extracts and resolves imports for files in one project.
//
// An Indexer is safe for concurrent use. It holds no per-scan state; each
// BuildIndex call produces a fresh Index.
type Indexer struct {
	fs         fsys.FS
	root       string
	realRoot   string
	aliases    []Alias
	extensions []string
	indexFiles []string
	workers    int
	limiter    *rate.Limiter
	ignore     *ignore.Matcher
	logger     *zap.Logger
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithAliases replaces the default specifier aliases.
func WithAliases(aliases []Alias) Option {
	return func(x *Indexer) {
		x.aliases = aliases
	}
}

// WithWorkers sets the number of concurrent file readers in BuildIndex.
// Values below one use GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(x *Indexer) {
		x.workers = n
	}
}

// WithLimiter throttles file reads during BuildIndex. The limiter is owned
// by the caller and may be shared between indexers.
func WithLimiter(l *rate.Limiter) Option {
	return func(x *Indexer) {
		x.limiter = l
	}
}

// WithIgnore sets the matcher for paths excluded from the index scan. When
// unset, the project's .gitignore and .ignore files are loaded on first scan.
func WithIgnore(m *ignore.Matcher) Option {
	return func(x *Indexer) {
		x.ignore = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(x *Indexer) {
		x.logger = logger
	}
}

// New creates an Indexer rooted at projectRoot.
func New(filesystem fsys.FS, projectRoot string, opts ...Option) (*Indexer, error) {
	if !filepath.IsAbs(projectRoot) {
		return nil, fmt.Errorf("%w: %s", ErrRootNotAbsolute, projectRoot)
	}
	root := filepath.Clean(projectRoot)
	realRoot, err := filesystem.RealPath(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRootNotFound, root, err)
	}

	x := &Indexer{
		fs:         filesystem,
		root:       root,
		realRoot:   realRoot,
		aliases:    DefaultAliases(),
		extensions: DefaultExtensions,
		indexFiles: DefaultIndexFiles,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(x)
	}
	if x.workers < 1 {
		x.workers = runtime.GOMAXPROCS(0)
	}
	if x.logger == nil {
		x.logger = zap.NewNop()
	}
	return x, nil
}

// Index is a reverse dependency map: for each file, the files importing it.
type Index struct {
	importedBy map[string]map[string]struct{}
	scanned    int
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{importedBy: make(map[string]map[string]struct{})}
}

// Add records that from imports to. Self edges are ignored.
func (ix *Index) Add(from, to string) {
	if from == to {
		return
	}
	set, ok := ix.importedBy[to]
	if !ok {
		set = make(map[string]struct{})
		ix.importedBy[to] = set
	}
	set[from] = struct{}{}
}

// ImportedBy returns the sorted files that import file.
func (ix *Index) ImportedBy(file string) []string {
	set := ix.importedBy[file]
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// DependentsOf returns the sorted union of importers of files, excluding
// files themselves. Only direct importers are returned.
func (ix *Index) DependentsOf(files []string) []string {
	exclude := make(map[string]bool, len(files))
	for _, f := range files {
		exclude[f] = true
	}

	union := make(map[string]bool)
	for _, f := range files {
		for importer := range ix.importedBy[f] {
			if !exclude[importer] {
				union[importer] = true
			}
		}
	}

	out := make([]string, 0, len(union))
	for f := range union {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Scanned returns the number of source files read to build the index.
func (ix *Index) Scanned() int {
	return ix.scanned
}

// Edges returns the number of import edges in the index.
func (ix *Index) Edges() int {
	n := 0
	for _, set := range ix.importedBy {
		n += len(set)
	}
	return n
}

// BuildIndex scans every source file in the project once and builds the
// reverse dependency map.
//
// Files are enumerated with a worklist walk that skips dot-directories,
// dependency caches, build output and ignored paths. Reads and import
// extraction run on a bounded worker pool. Unreadable files are skipped;
// only context cancellation and ignore file failures are returned.
func (x *Indexer) BuildIndex(ctx context.Context) (*Index, error) {
	matcher := x.ignore
	if matcher == nil {
		m, err := ignore.NewParser(ignore.DefaultIgnoreFiles, nil).ParseProject(x.fs, x.realRoot)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIgnoreFile, err)
		}
		matcher = m
	}

	files, err := x.enumerate(ctx, matcher)
	if err != nil {
		return nil, err
	}

	index := NewIndex()
	index.scanned = len(files)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(x.workers)

	for _, file := range files {
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if x.limiter != nil {
				if err := x.limiter.Wait(gctx); err != nil {
					return err
				}
			}
			content, err := x.fs.ReadFile(file)
			if err != nil {
				x.logger.Debug("skipping unreadable file", zap.String("path", file), zap.Error(err))
				return nil
			}
			deps := x.dependencies(file, string(content))

			mu.Lock()
			for _, dep := range deps {
				index.Add(file, dep)
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	x.logger.Debug("import index built",
		zap.String("root", x.realRoot),
		zap.Int("files", index.scanned),
		zap.Int("edges", index.Edges()))
	return index, nil
}

// enumerate lists source files under the real project root, breadth-first.
// Symlinked directories are not followed; symlinked files are kept if they
// resolve inside the project.
func (x *Indexer) enumerate(ctx context.Context, matcher *ignore.Matcher) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	queue := []string{x.realRoot}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dir := queue[0]
		queue = queue[1:]

		entries, err := x.fs.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			name := entry.Name()
			if strings.HasPrefix(name, ".") {
				continue
			}
			p := filepath.Join(dir, name)
			rel, err := filepath.Rel(x.realRoot, p)
			if err != nil {
				continue
			}

			if entry.IsDir() {
				if skipDirs[name] || matcher.Match(rel, true) {
					continue
				}
				queue = append(queue, p)
				continue
			}
			if !IsSource(name) || matcher.Match(rel, false) {
				continue
			}
			real, ok := x.accept(p)
			if !ok || seen[real] {
				continue
			}
			seen[real] = true
			files = append(files, real)
		}
	}
	return files, nil
}
