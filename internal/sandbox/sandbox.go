// Package sandbox decides which filesystem paths may be read into a context
// bundle.
//
// Every path is checked twice: once in its normalized requested form, before
// the filesystem is touched, and once after symlink resolution. A link inside
// the project that points at a credential file is therefore rejected exactly
// as if the credential file had been requested directly.
package sandbox

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/ctxpack/internal/fsys"
)

// DefaultMaxDepth bounds directory expansion.
const DefaultMaxDepth = 10

// dependencyCacheDir is skipped during directory expansion.
const dependencyCacheDir = "node_modules"

// Reason explains why a path was blocked.
type Reason string

const (
	// ReasonSensitivePath marks credentials, keys and other secret-bearing paths.
	ReasonSensitivePath Reason = "sensitive_path"

	// ReasonOutsideProject marks auto-discovered files outside the project root.
	ReasonOutsideProject Reason = "outside_project"

	// ReasonOutsideProjectRequiresAllow marks explicitly requested paths outside
	// the project root when external access was not allowed.
	ReasonOutsideProjectRequiresAllow Reason = "outside_project_requires_allow"
)

// Blocked is a rejected path.
type Blocked struct {
	Path     string `json:"path"`
	RealPath string `json:"real_path,omitempty"`
	Reason   Reason `json:"reason"`
}

// Classification is the outcome of classifying one input path.
type Classification struct {
	// Included holds canonical paths of readable regular files, in discovery order.
	Included []string
	Blocked  []Blocked
}

// Options configures a Sandbox.
type Options struct {
	// HomeDir expands a leading "~". Empty disables expansion.
	HomeDir string

	// AllowExternal permits paths resolving outside the project root.
	AllowExternal bool

	// MaxDepth caps directory recursion. Zero means DefaultMaxDepth.
	MaxDepth int

	// ExtraPatterns are additional sensitive path regexes.
	ExtraPatterns []string
}

// Sandbox classifies paths relative to one project root.
type Sandbox struct {
	fs            fsys.FS
	root          string
	realRoot      string
	home          string
	allowExternal bool
	maxDepth      int
	patterns      []*regexp.Regexp
}

// New creates a Sandbox for projectRoot. The root must be an absolute path
// to an existing directory.
func New(filesystem fsys.FS, projectRoot string, opts Options) (*Sandbox, error) {
	if !filepath.IsAbs(projectRoot) {
		return nil, fmt.Errorf("%w: %s", ErrRootNotAbsolute, projectRoot)
	}
	root := filepath.Clean(projectRoot)

	info, err := filesystem.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRootNotFound, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotDirectory, root)
	}
	realRoot, err := filesystem.RealPath(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRootNotFound, root, err)
	}

	patterns, err := compilePatterns(opts.ExtraPatterns)
	if err != nil {
		return nil, err
	}

	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	return &Sandbox{
		fs:            filesystem,
		root:          root,
		realRoot:      realRoot,
		home:          opts.HomeDir,
		allowExternal: opts.AllowExternal,
		maxDepth:      maxDepth,
		patterns:      patterns,
	}, nil
}

// Root returns the project root as given.
func (s *Sandbox) Root() string { return s.root }

// RealRoot returns the symlink-free project root.
func (s *Sandbox) RealRoot() string { return s.realRoot }

// IsSensitive reports whether path matches a sensitive path pattern.
func (s *Sandbox) IsSensitive(path string) bool {
	slashed := filepath.ToSlash(path)
	for _, re := range s.patterns {
		if re.MatchString(slashed) {
			return true
		}
	}
	return false
}

// Within reports whether a canonical path lies inside the real project root.
func (s *Sandbox) Within(path string) bool {
	return fsys.Within(path, s.realRoot)
}

// Normalize expands "~", anchors relative paths at the project root and
// cleans the result. It never touches the filesystem.
func (s *Sandbox) Normalize(input string) string {
	p := input
	if s.home != "" {
		if p == "~" {
			p = s.home
		} else if strings.HasPrefix(p, "~/") {
			p = filepath.Join(s.home, p[2:])
		}
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(s.root, p)
	}
	return filepath.Clean(p)
}

// Classify resolves input and returns the readable files it names.
// Paths that do not exist or cannot be stat'ed are dropped without a
// Blocked record.
func (s *Sandbox) Classify(input string) Classification {
	var c Classification
	seen := make(map[string]bool)

	p := s.Normalize(input)
	if s.IsSensitive(p) {
		c.Blocked = append(c.Blocked, Blocked{Path: p, Reason: ReasonSensitivePath})
		return c
	}

	info, real, ok := s.resolve(p)
	if !ok {
		return c
	}
	if reason, blocked := s.check(real); blocked {
		c.Blocked = append(c.Blocked, Blocked{Path: p, RealPath: real, Reason: reason})
		return c
	}

	switch {
	case info.Mode().IsRegular():
		c.Included = append(c.Included, real)
	case info.IsDir():
		s.expand(real, &c, seen)
	}
	return c
}

// resolve stats p and returns its canonical path. Missing paths, dangling
// links and permission failures report ok=false.
func (s *Sandbox) resolve(p string) (fs.FileInfo, string, bool) {
	info, err := s.fs.Stat(p)
	if err != nil {
		return nil, "", false
	}
	real, err := s.fs.RealPath(p)
	if err != nil {
		return nil, "", false
	}
	return info, real, true
}

// check applies the post-resolution rules to a canonical path.
func (s *Sandbox) check(real string) (Reason, bool) {
	if s.IsSensitive(real) {
		return ReasonSensitivePath, true
	}
	if !s.allowExternal && !s.Within(real) {
		return ReasonOutsideProjectRequiresAllow, true
	}
	return "", false
}

type dirFrame struct {
	depth   int
	dir     string
	entries []fs.DirEntry
	next    int
}

// expand walks dir depth-first with an explicit stack, visiting entries in
// the same order a recursive walk would.
func (s *Sandbox) expand(dir string, c *Classification, seen map[string]bool) {
	entries, err := s.fs.ReadDir(dir)
	if err != nil {
		return
	}
	stack := []*dirFrame{{depth: 0, dir: dir, entries: entries}}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next >= len(top.entries) {
			stack = stack[:len(stack)-1]
			continue
		}
		entry := top.entries[top.next]
		top.next++

		name := entry.Name()
		if strings.HasPrefix(name, ".") || name == dependencyCacheDir {
			continue
		}

		p := filepath.Join(top.dir, name)
		if s.IsSensitive(p) {
			c.Blocked = append(c.Blocked, Blocked{Path: p, Reason: ReasonSensitivePath})
			continue
		}
		info, real, ok := s.resolve(p)
		if !ok {
			continue
		}
		if reason, blocked := s.check(real); blocked {
			c.Blocked = append(c.Blocked, Blocked{Path: p, RealPath: real, Reason: reason})
			continue
		}

		switch {
		case info.Mode().IsRegular():
			if !seen[real] {
				seen[real] = true
				c.Included = append(c.Included, real)
			}
		case info.IsDir():
			depth := top.depth + 1
			if depth > s.maxDepth {
				continue
			}
			children, err := s.fs.ReadDir(p)
			if err != nil {
				continue
			}
			stack = append(stack, &dirFrame{depth: depth, dir: p, entries: children})
		}
	}
}
