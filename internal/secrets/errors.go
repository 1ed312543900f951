package secrets

import "errors"

var (
	// ErrInvalidRule indicates a rule is missing required fields.
	ErrInvalidRule = errors.New("invalid redaction rule")

	// ErrInvalidRegex indicates a regex pattern failed to compile.
	ErrInvalidRegex = errors.New("invalid regex pattern")

	// ErrInvalidTOML indicates an allowlist file could not be parsed.
	ErrInvalidTOML = errors.New("invalid TOML format")

	// ErrDetectorInit indicates the gitleaks detector could not be created.
	ErrDetectorInit = errors.New("secret detector initialization failed")
)
