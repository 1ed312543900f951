package config

import "errors"

// File errors.
var (
	// ErrConfigNotFound is returned when an explicitly named config file is missing.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrInsecurePermissions is returned when the config file is readable by others.
	ErrInsecurePermissions = errors.New("insecure config file permissions")

	// ErrConfigTooLarge is returned when the config file exceeds maxConfigFileSize.
	ErrConfigTooLarge = errors.New("config file too large")
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")
