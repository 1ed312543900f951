package bundle

import "errors"

// Fatal request errors. Everything else that goes wrong while bundling is
// recorded as an omission or skipped.
var (
	// ErrProjectRootNotAbsolute indicates the request's project root is relative.
	ErrProjectRootNotAbsolute = errors.New("project root must be absolute")

	// ErrProjectRootNotFound indicates the project root does not exist or is not a directory.
	ErrProjectRootNotFound = errors.New("project root not found")
)

// ErrInvalidOption is returned by New for unusable configuration.
var ErrInvalidOption = errors.New("invalid bundler option")
