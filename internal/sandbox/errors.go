package sandbox

import "errors"

var (
	// ErrRootNotAbsolute indicates the project root is a relative path.
	ErrRootNotAbsolute = errors.New("project root must be absolute")

	// ErrRootNotFound indicates the project root does not exist or cannot be resolved.
	ErrRootNotFound = errors.New("project root not found")

	// ErrRootNotDirectory indicates the project root is not a directory.
	ErrRootNotDirectory = errors.New("project root is not a directory")

	// ErrInvalidPattern indicates a sensitive path pattern failed to compile.
	ErrInvalidPattern = errors.New("invalid sensitive path pattern")
)
