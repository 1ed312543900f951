package imports

import "errors"

var (
	// ErrRootNotAbsolute indicates the project root is a relative path.
	ErrRootNotAbsolute = errors.New("project root must be absolute")

	// ErrRootNotFound indicates the project root could not be resolved.
	ErrRootNotFound = errors.New("project root not found")

	// ErrIgnoreFile indicates a project ignore file exists but could not be read.
	ErrIgnoreFile = errors.New("reading ignore file")
)
