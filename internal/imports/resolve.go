package imports

import (
	"path/filepath"
	"strings"

	"github.com/fyrsmithlabs/ctxpack/internal/fsys"
)

// Alias maps a specifier prefix to directories relative to the project root.
// Targets are tried in order.
type Alias struct {
	Prefix  string   `koanf:"prefix"`
	Targets []string `koanf:"targets"`
}

// DefaultAliases are the conventional root aliases used by bundlers and
// TypeScript path mappings.
func DefaultAliases() []Alias {
	return []Alias{
		{Prefix: "@/", Targets: []string{"src", "."}},
		{Prefix: "~/", Targets: []string{"."}},
	}
}

// DefaultExtensions are appended to a specifier, in order, when probing for
// a file. The empty extension tries the specifier as written.
var DefaultExtensions = []string{
	"",
	".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs",
	".vue", ".svelte",
	".py",
	".css", ".scss", ".sass", ".less",
	".h", ".hpp",
}

// DefaultIndexFiles are probed inside a directory specifier.
var DefaultIndexFiles = []string{
	"index.ts", "index.tsx", "index.js", "index.jsx", "index.mjs",
	"__init__.py",
}

// ResolveImportPath resolves specifier as imported from fromFile and returns
// the canonical path of the first candidate that is a regular file inside
// the project. Bare package specifiers and anything resolving outside the
// project are reported as unresolved.
func (x *Indexer) ResolveImportPath(specifier, fromFile string) (string, bool) {
	for _, base := range x.bases(specifier, fromFile) {
		if p, ok := x.probe(base); ok {
			return p, true
		}
	}
	return "", false
}

// bases returns the unprobed locations a specifier may refer to.
func (x *Indexer) bases(specifier, fromFile string) []string {
	switch {
	case hasPathMarker(specifier) && !filepath.IsAbs(specifier):
		return []string{filepath.Join(filepath.Dir(fromFile), specifier)}
	case filepath.IsAbs(specifier):
		return []string{filepath.Clean(specifier)}
	}

	for _, alias := range x.aliases {
		if !strings.HasPrefix(specifier, alias.Prefix) {
			continue
		}
		rest := strings.TrimPrefix(specifier, alias.Prefix)
		bases := make([]string, 0, len(alias.Targets))
		for _, target := range alias.Targets {
			bases = append(bases, filepath.Join(x.root, target, rest))
		}
		return bases
	}
	return nil
}

// probe tries base with each extension, then each index file beneath it.
func (x *Indexer) probe(base string) (string, bool) {
	for _, ext := range x.extensions {
		if p, ok := x.accept(base + ext); ok {
			return p, true
		}
	}
	for _, index := range x.indexFiles {
		if p, ok := x.accept(filepath.Join(base, index)); ok {
			return p, true
		}
	}
	return "", false
}

// accept returns the canonical path of candidate if it is a regular file
// whose real path lies inside the project.
func (x *Indexer) accept(candidate string) (string, bool) {
	if !fsys.IsRegular(x.fs, candidate) {
		return "", false
	}
	real, err := x.fs.RealPath(candidate)
	if err != nil || !fsys.Within(real, x.realRoot) {
		return "", false
	}
	return real, true
}

// GetDependencies returns the canonical paths file imports directly.
// Unreadable files yield nil, and a file never depends on itself.
func (x *Indexer) GetDependencies(file string) []string {
	content, err := x.fs.ReadFile(file)
	if err != nil {
		return nil
	}
	self, err := x.fs.RealPath(file)
	if err != nil {
		self = file
	}
	return x.dependencies(self, string(content))
}

func (x *Indexer) dependencies(self, content string) []string {
	var deps []string
	seen := make(map[string]bool)
	for _, spec := range ExtractImports(content) {
		p, ok := x.ResolveImportPath(spec, self)
		if !ok || p == self || seen[p] {
			continue
		}
		seen[p] = true
		deps = append(deps, p)
	}
	return deps
}
