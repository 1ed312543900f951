// Package config loads ctxpack configuration.
//
// Every section has defaults, so an empty or missing file is a valid
// configuration. Sections owned by other packages (secrets, logging,
// telemetry) reuse those packages' Config types.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fyrsmithlabs/ctxpack/internal/budget"
	"github.com/fyrsmithlabs/ctxpack/internal/imports"
	"github.com/fyrsmithlabs/ctxpack/internal/logging"
	"github.com/fyrsmithlabs/ctxpack/internal/sandbox"
	"github.com/fyrsmithlabs/ctxpack/internal/secrets"
	"github.com/fyrsmithlabs/ctxpack/internal/telemetry"
)

// DefaultTokenCeiling is the token ceiling when none is configured.
const DefaultTokenCeiling = 100000

// DefaultMaxFileBytes skips files larger than 1 MiB.
const DefaultMaxFileBytes = 1 << 20

// Config holds the complete ctxpack configuration.
type Config struct {
	Budget    BudgetConfig     `koanf:"budget"`
	Bundle    BundleConfig     `koanf:"bundle"`
	Sandbox   SandboxConfig    `koanf:"sandbox"`
	Imports   ImportsConfig    `koanf:"imports"`
	Session   SessionConfig    `koanf:"session"`
	Secrets   secrets.Config   `koanf:"secrets"`
	Logging   logging.Config   `koanf:"logging"`
	Telemetry telemetry.Config `koanf:"telemetry"`
	Server    ServerConfig     `koanf:"server"`
}

// BudgetConfig configures token allocation.
type BudgetConfig struct {
	TokenCeiling int `koanf:"token_ceiling"`

	// Weights replaces the default category weights when set. Categories
	// left out get no base budget.
	Weights budget.Weights `koanf:"weights"`

	WarningMargin int `koanf:"warning_margin"`
}

// BundleConfig holds default bundle request options.
type BundleConfig struct {
	MaxFileBytes        int64 `koanf:"max_file_bytes"`
	IncludeConversation bool  `koanf:"include_conversation"`
	Dependencies        bool  `koanf:"dependencies"`
	Dependents          bool  `koanf:"dependents"`
	Tests               bool  `koanf:"tests"`
	Types               bool  `koanf:"types"`
}

// SandboxConfig configures path classification.
type SandboxConfig struct {
	AllowExternal          bool     `koanf:"allow_external"`
	MaxDepth               int      `koanf:"max_depth"`
	ExtraSensitivePatterns []string `koanf:"extra_sensitive_patterns"`
}

// ImportsConfig configures the import graph scan.
type ImportsConfig struct {
	// Workers bounds concurrent reads. Zero means GOMAXPROCS.
	Workers int `koanf:"workers"`

	// ReadsPerSecond throttles index reads. Zero means unthrottled.
	ReadsPerSecond float64 `koanf:"reads_per_second"`

	// Aliases replaces the default specifier aliases when set.
	Aliases []imports.Alias `koanf:"aliases"`
}

// SessionConfig locates editing-session logs. With both fields empty there
// is no session category.
type SessionConfig struct {
	// Path is a specific JSONL log.
	Path string `koanf:"path"`

	// ProjectsDir holds one log directory per project; the newest log in
	// the project's directory is used.
	ProjectsDir string `koanf:"projects_dir"`
}

// Enabled reports whether a session source is configured.
func (s SessionConfig) Enabled() bool {
	return s.Path != "" || s.ProjectsDir != ""
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`

	// ProjectRoot is the only project the server bundles. Requests cannot
	// change it.
	ProjectRoot string `koanf:"project_root"`
}

// Default returns the configuration used when nothing is configured.
func Default() *Config {
	cfg := &Config{
		Budget: BudgetConfig{
			TokenCeiling:  DefaultTokenCeiling,
			WarningMargin: budget.DefaultWarningMargin,
		},
		Bundle: BundleConfig{
			MaxFileBytes: DefaultMaxFileBytes,
			Dependencies: true,
			Dependents:   true,
			Tests:        true,
			Types:        true,
		},
		Sandbox: SandboxConfig{
			MaxDepth: sandbox.DefaultMaxDepth,
		},
		Secrets:   *secrets.DefaultConfig(),
		Logging:   *logging.NewDefaultConfig(),
		Telemetry: *telemetry.NewDefaultConfig(),
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            9090,
			ShutdownTimeout: Duration(10 * time.Second),
			ProjectRoot:     ".",
		},
	}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults replaces zero values that a file or the environment may
// have introduced.
func applyDefaults(cfg *Config) {
	if cfg.Budget.TokenCeiling == 0 {
		cfg.Budget.TokenCeiling = DefaultTokenCeiling
	}
	if len(cfg.Budget.Weights) == 0 {
		cfg.Budget.Weights = budget.DefaultWeights()
	}
	if cfg.Bundle.MaxFileBytes == 0 {
		cfg.Bundle.MaxFileBytes = DefaultMaxFileBytes
	}
	if cfg.Sandbox.MaxDepth == 0 {
		cfg.Sandbox.MaxDepth = sandbox.DefaultMaxDepth
	}
	if len(cfg.Imports.Aliases) == 0 {
		cfg.Imports.Aliases = imports.DefaultAliases()
	}
	if len(cfg.Secrets.Rules) == 0 {
		cfg.Secrets.Rules = secrets.DefaultRules()
	}
	if cfg.Secrets.UserAllowlist == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Secrets.UserAllowlist = filepath.Join(home, ".config", "ctxpack", "allowlist.toml")
		}
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if c.Budget.TokenCeiling < 0 {
		return fmt.Errorf("%w: budget.token_ceiling must be >= 0, got %d", ErrInvalidConfig, c.Budget.TokenCeiling)
	}
	if err := c.Budget.Weights.Validate(); err != nil {
		return fmt.Errorf("%w: budget.weights: %w", ErrInvalidConfig, err)
	}
	if c.Budget.WarningMargin < 0 {
		return fmt.Errorf("%w: budget.warning_margin must be >= 0", ErrInvalidConfig)
	}
	if c.Bundle.MaxFileBytes < 0 {
		return fmt.Errorf("%w: bundle.max_file_bytes must be >= 0", ErrInvalidConfig)
	}
	if c.Sandbox.MaxDepth < 0 {
		return fmt.Errorf("%w: sandbox.max_depth must be >= 0", ErrInvalidConfig)
	}
	if err := sandbox.ValidatePatterns(c.Sandbox.ExtraSensitivePatterns); err != nil {
		return fmt.Errorf("%w: sandbox.extra_sensitive_patterns: %w", ErrInvalidConfig, err)
	}
	if c.Imports.Workers < 0 {
		return fmt.Errorf("%w: imports.workers must be >= 0", ErrInvalidConfig)
	}
	if c.Imports.ReadsPerSecond < 0 {
		return fmt.Errorf("%w: imports.reads_per_second must be >= 0", ErrInvalidConfig)
	}
	for i, a := range c.Imports.Aliases {
		if a.Prefix == "" || len(a.Targets) == 0 {
			return fmt.Errorf("%w: imports.aliases[%d] needs a prefix and at least one target", ErrInvalidConfig, i)
		}
	}
	if err := c.Secrets.Validate(); err != nil {
		return fmt.Errorf("%w: secrets: %w", ErrInvalidConfig, err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("%w: logging: %w", ErrInvalidConfig, err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("%w: telemetry: %w", ErrInvalidConfig, err)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port must be 1-65535, got %d", ErrInvalidConfig, c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return fmt.Errorf("%w: server.shutdown_timeout must be positive", ErrInvalidConfig)
	}
	return nil
}
