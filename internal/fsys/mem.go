package fsys

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// maxLinkHops bounds symlink resolution, matching the Linux ELOOP limit.
const maxLinkHops = 40

// ErrTooManyLinks is returned when symlink resolution exceeds maxLinkHops.
var ErrTooManyLinks = errors.New("too many levels of symbolic links")

type nodeKind int

const (
	kindDir nodeKind = iota
	kindFile
	kindSymlink
)

type memNode struct {
	kind   nodeKind
	data   []byte
	target string
	denied bool
}

// Mem is an in-memory FS with symlink support. Paths are absolute and
// slash-separated. The zero value is not usable; call NewMem.
type Mem struct {
	mu    sync.RWMutex
	nodes map[string]*memNode
	now   time.Time
}

var _ FS = (*Mem)(nil)

// NewMem returns an empty filesystem containing only "/".
func NewMem() *Mem {
	return &Mem{
		nodes: map[string]*memNode{"/": {kind: kindDir}},
		now:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// AddFile creates a regular file, creating parent directories as needed.
func (m *Mem) AddFile(name, content string) *Mem {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = filepath.Clean(name)
	m.mkdirAll(filepath.Dir(name))
	m.nodes[name] = &memNode{kind: kindFile, data: []byte(content)}
	return m
}

// AddDir creates a directory and its parents.
func (m *Mem) AddDir(name string) *Mem {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mkdirAll(filepath.Clean(name))
	return m
}

// AddSymlink creates a symlink at name pointing to target. Relative targets
// are interpreted from the link's directory, as on a real filesystem.
func (m *Mem) AddSymlink(name, target string) *Mem {
	m.mu.Lock()
	defer m.mu.Unlock()
	name = filepath.Clean(name)
	m.mkdirAll(filepath.Dir(name))
	m.nodes[name] = &memNode{kind: kindSymlink, target: target}
	return m
}

// Deny makes reads and listings of name fail with fs.ErrPermission.
func (m *Mem) Deny(name string) *Mem {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n, ok := m.nodes[filepath.Clean(name)]; ok {
		n.denied = true
	}
	return m
}

func (m *Mem) mkdirAll(dir string) {
	for d := dir; ; d = filepath.Dir(d) {
		if _, ok := m.nodes[d]; !ok {
			m.nodes[d] = &memNode{kind: kindDir}
		}
		if d == "/" || d == "." {
			return
		}
	}
}

// ReadFile implements FS.
func (m *Mem) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, n, err := m.resolve(name)
	if err != nil {
		return nil, pathErr("open", name, err)
	}
	if n.kind == kindDir {
		return nil, pathErr("read", name, errors.New("is a directory"))
	}
	if n.denied {
		return nil, pathErr("open", name, fs.ErrPermission)
	}
	out := make([]byte, len(n.data))
	copy(out, n.data)
	return out, nil
}

// Stat implements FS.
func (m *Mem) Stat(name string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, n, err := m.resolve(name)
	if err != nil {
		return nil, pathErr("stat", name, err)
	}
	return m.info(filepath.Base(filepath.Clean(name)), n), nil
}

// ReadDir implements FS.
func (m *Mem) ReadDir(name string) ([]fs.DirEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	real, n, err := m.resolve(name)
	if err != nil {
		return nil, pathErr("open", name, err)
	}
	if n.kind != kindDir {
		return nil, pathErr("readdir", name, errors.New("not a directory"))
	}
	if n.denied {
		return nil, pathErr("open", name, fs.ErrPermission)
	}

	var entries []fs.DirEntry
	for p, child := range m.nodes {
		if p == real || filepath.Dir(p) != real {
			continue
		}
		entries = append(entries, fs.FileInfoToDirEntry(m.info(filepath.Base(p), child)))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

// RealPath implements FS.
func (m *Mem) RealPath(name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	real, _, err := m.resolve(name)
	if err != nil {
		return "", pathErr("realpath", name, err)
	}
	return real, nil
}

// resolve walks name component by component, substituting symlink targets.
// Every symlink, including the final component, is followed.
func (m *Mem) resolve(name string) (string, *memNode, error) {
	if !filepath.IsAbs(name) {
		return "", nil, fs.ErrInvalid
	}
	parts := splitPath(filepath.Clean(name))
	cur := "/"
	hops := 0

	for i := 0; i < len(parts); i++ {
		next := filepath.Join(cur, parts[i])
		n, ok := m.nodes[next]
		if !ok {
			return "", nil, fs.ErrNotExist
		}
		last := i == len(parts)-1
		if n.kind == kindSymlink {
			hops++
			if hops > maxLinkHops {
				return "", nil, ErrTooManyLinks
			}
			target := n.target
			if !filepath.IsAbs(target) {
				target = filepath.Join(cur, target)
			}
			parts = append(splitPath(filepath.Clean(target)), parts[i+1:]...)
			cur = "/"
			i = -1
			continue
		}
		if !last && n.kind != kindDir {
			return "", nil, fs.ErrNotExist
		}
		cur = next
	}
	return cur, m.nodes[cur], nil
}

func (m *Mem) info(name string, n *memNode) fs.FileInfo {
	mi := memInfo{name: name, modTime: m.now}
	switch n.kind {
	case kindDir:
		mi.mode = fs.ModeDir | 0o755
	case kindSymlink:
		mi.mode = fs.ModeSymlink | 0o777
	default:
		mi.mode = 0o644
		mi.size = int64(len(n.data))
	}
	return mi
}

func splitPath(p string) []string {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func pathErr(op, name string, err error) error {
	return &fs.PathError{Op: op, Path: name, Err: err}
}

type memInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
}

func (i memInfo) Name() string       { return i.name }
func (i memInfo) Size() int64        { return i.size }
func (i memInfo) Mode() fs.FileMode  { return i.mode }
func (i memInfo) ModTime() time.Time { return i.modTime }
func (i memInfo) IsDir() bool        { return i.mode.IsDir() }
func (i memInfo) Sys() any           { return nil }
