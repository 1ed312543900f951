package finders

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ctxpack/internal/bundle"
	"github.com/fyrsmithlabs/ctxpack/internal/fsys"
	"github.com/fyrsmithlabs/ctxpack/internal/imports"
)

// Tests finds test files for source files.
//
// For each source it probes conventional sibling names (name.test.ext,
// name_test.ext, test_name.ext and the like), the same names inside
// __tests__, tests and test subdirectories, and the source's relative
// directory under the project's top-level tests and test directories.
// Sources that are themselves tests are skipped.
type Tests struct {
	fs fsys.FS
}

// NewTests creates a test finder. A nil filesystem uses the OS.
func NewTests(filesystem fsys.FS) *Tests {
	if filesystem == nil {
		filesystem = fsys.OS{}
	}
	return &Tests{fs: filesystem}
}

var _ bundle.FileFinder = (*Tests)(nil)

// Find implements bundle.FileFinder.
func (t *Tests) Find(ctx context.Context, sources []string, projectRoot string) ([]string, error) {
	projectRoot = resolveRoot(t.fs, projectRoot)
	found := newResults(t.fs, sources)
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if IsTestFile(projectRelative(src, projectRoot)) {
			continue
		}
		dir, base := filepath.Split(src)
		names := testNames(base)

		dirs := []string{
			dir,
			filepath.Join(dir, "__tests__"),
			filepath.Join(dir, "tests"),
			filepath.Join(dir, "test"),
		}
		if rel, err := filepath.Rel(projectRoot, filepath.Clean(dir)); err == nil && fsys.Within(dir, projectRoot) {
			dirs = append(dirs,
				filepath.Join(projectRoot, "tests", rel),
				filepath.Join(projectRoot, "test", rel),
			)
		}

		for _, d := range dirs {
			for _, n := range names {
				found.probe(filepath.Join(d, n))
			}
		}
		// Inside a test directory the test may share the source's name.
		for _, d := range dirs[1:] {
			found.probe(filepath.Join(d, base))
		}
	}
	return found.list, nil
}

// Types finds type-definition files for source files.
//
// For each source it probes a name.d.ts sibling, types.ts, types.d.ts and
// types/index.ts in the same directory, and the source's resolved imports
// that look like type modules.
type Types struct {
	fs         fsys.FS
	importOpts []imports.Option
	logger     *zap.Logger
}

// TypesOption configures a Types finder.
type TypesOption func(*Types)

// WithImportOptions passes options to the indexer used to resolve imports.
func WithImportOptions(opts ...imports.Option) TypesOption {
	return func(t *Types) { t.importOpts = append(t.importOpts, opts...) }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) TypesOption {
	return func(t *Types) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// NewTypes creates a type finder. A nil filesystem uses the OS.
func NewTypes(filesystem fsys.FS, opts ...TypesOption) *Types {
	if filesystem == nil {
		filesystem = fsys.OS{}
	}
	t := &Types{fs: filesystem, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

var _ bundle.FileFinder = (*Types)(nil)

// Find implements bundle.FileFinder.
func (t *Types) Find(ctx context.Context, sources []string, projectRoot string) ([]string, error) {
	projectRoot = resolveRoot(t.fs, projectRoot)
	indexer, err := imports.New(t.fs, projectRoot, t.importOpts...)
	if err != nil {
		t.logger.Debug("type import resolution disabled", zap.Error(err))
		indexer = nil
	}

	found := newResults(t.fs, sources)
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dir, base := filepath.Split(src)
		s, ext := splitName(base)

		if jsLike(ext) && !IsTypeFile(src) {
			found.probe(filepath.Join(dir, s+".d.ts"))
		}
		for _, name := range []string{"types.ts", "types.d.ts", filepath.Join("types", "index.ts")} {
			found.probe(filepath.Join(dir, name))
		}
		if ext == ".go" || ext == ".py" {
			found.probe(filepath.Join(dir, "types"+ext))
		}

		if indexer == nil {
			continue
		}
		for _, dep := range indexer.GetDependencies(src) {
			if IsTypeFile(dep) {
				found.probe(dep)
			}
		}
	}
	return found.list, nil
}

// resolveRoot returns the symlink-free project root, which is what source
// paths are expressed under. An unresolvable root is used as given.
func resolveRoot(filesystem fsys.FS, projectRoot string) string {
	if resolved, err := filesystem.RealPath(projectRoot); err == nil {
		return resolved
	}
	return filepath.Clean(projectRoot)
}

// projectRelative keeps directories above the project out of test
// detection.
func projectRelative(path, projectRoot string) string {
	if !fsys.Within(path, projectRoot) {
		return path
	}
	rel, err := filepath.Rel(projectRoot, path)
	if err != nil {
		return path
	}
	return rel
}

// results collects existing regular files in discovery order, once each.
type results struct {
	fs   fsys.FS
	seen map[string]bool
	list []string
}

// newResults never reports the sources themselves.
func newResults(filesystem fsys.FS, sources []string) *results {
	r := &results{fs: filesystem, seen: make(map[string]bool), list: []string{}}
	for _, s := range sources {
		r.seen[filepath.Clean(s)] = true
	}
	return r
}

func (r *results) probe(path string) {
	path = filepath.Clean(path)
	if r.seen[path] {
		return
	}
	r.seen[path] = true
	if fsys.IsRegular(r.fs, path) {
		r.list = append(r.list, path)
	}
}
