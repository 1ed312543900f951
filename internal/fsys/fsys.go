// Package fsys provides the narrow filesystem capability used by the context
// assembly engine.
//
// Every engine component reads the disk through FS so that sandbox, indexer
// and bundler logic can be exercised against the in-memory Mem implementation.
package fsys

import (
	"io/fs"
	"os"
	"path/filepath"
)

// FS is the read-only filesystem surface the engine depends on.
type FS interface {
	// ReadFile returns the full contents of the named file.
	ReadFile(name string) ([]byte, error)

	// Stat returns file info, following symlinks.
	Stat(name string) (fs.FileInfo, error)

	// ReadDir lists a directory, sorted by name.
	ReadDir(name string) ([]fs.DirEntry, error)

	// RealPath returns the absolute, symlink-free form of name.
	RealPath(name string) (string, error)
}

// OS is the FS backed by the host operating system.
type OS struct{}

var _ FS = OS{}

// ReadFile implements FS.
func (OS) ReadFile(name string) ([]byte, error) {
	return os.ReadFile(name)
}

// Stat implements FS.
func (OS) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

// ReadDir implements FS.
func (OS) ReadDir(name string) ([]fs.DirEntry, error) {
	return os.ReadDir(name)
}

// RealPath implements FS.
func (OS) RealPath(name string) (string, error) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

// IsRegular reports whether name exists and is a regular file.
func IsRegular(fsys FS, name string) bool {
	info, err := fsys.Stat(name)
	return err == nil && info.Mode().IsRegular()
}

// IsDir reports whether name exists and is a directory.
func IsDir(fsys FS, name string) bool {
	info, err := fsys.Stat(name)
	return err == nil && info.IsDir()
}

// Within reports whether path equals root or is a descendant of it.
// Both arguments must already be cleaned absolute paths.
func Within(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !startsWithParent(rel) && !filepath.IsAbs(rel)
}

func startsWithParent(rel string) bool {
	return len(rel) >= 3 && rel[:2] == ".." && rel[2] == filepath.Separator
}
