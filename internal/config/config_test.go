package config

import (
	"testing"
	"time"

	"github.com/fyrsmithlabs/ctxpack/internal/budget"
	"github.com/fyrsmithlabs/ctxpack/internal/imports"
	"github.com/fyrsmithlabs/ctxpack/internal/secrets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	t.Setenv("HOME", "/home/dev")
	cfg := Default()

	assert.Equal(t, 100000, cfg.Budget.TokenCeiling)
	assert.Equal(t, budget.DefaultWeights(), cfg.Budget.Weights)
	assert.Equal(t, 5000, cfg.Budget.WarningMargin)
	assert.Equal(t, int64(1<<20), cfg.Bundle.MaxFileBytes)
	assert.False(t, cfg.Bundle.IncludeConversation)
	assert.True(t, cfg.Bundle.Dependencies)
	assert.True(t, cfg.Bundle.Types)
	assert.False(t, cfg.Sandbox.AllowExternal)
	assert.Equal(t, 10, cfg.Sandbox.MaxDepth)
	assert.Equal(t, imports.DefaultAliases(), cfg.Imports.Aliases)
	assert.True(t, cfg.Secrets.Enabled)
	assert.False(t, cfg.Secrets.DeepScan)
	assert.NotEmpty(t, cfg.Secrets.Rules)
	assert.Equal(t, "/home/dev/.config/ctxpack/allowlist.toml", cfg.Secrets.UserAllowlist)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.False(t, cfg.Session.Enabled())
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout.Duration())

	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"defaults", func(*Config) {}, ""},
		{"zero ceiling", func(c *Config) { c.Budget.TokenCeiling = 0 }, ""},
		{"negative ceiling", func(c *Config) { c.Budget.TokenCeiling = -1 }, "budget.token_ceiling"},
		{"weights over one", func(c *Config) { c.Budget.Weights = budget.Weights{budget.Explicit: 0.7, budget.Session: 0.7} }, "budget.weights"},
		{"unknown weight category", func(c *Config) { c.Budget.Weights = budget.Weights{"docs": 0.1} }, "budget.weights"},
		{"negative margin", func(c *Config) { c.Budget.WarningMargin = -5 }, "warning_margin"},
		{"negative max file bytes", func(c *Config) { c.Bundle.MaxFileBytes = -1 }, "max_file_bytes"},
		{"negative depth", func(c *Config) { c.Sandbox.MaxDepth = -1 }, "max_depth"},
		{"bad sensitive pattern", func(c *Config) { c.Sandbox.ExtraSensitivePatterns = []string{"("} }, "extra_sensitive_patterns"},
		{"negative workers", func(c *Config) { c.Imports.Workers = -2 }, "imports.workers"},
		{"negative rate", func(c *Config) { c.Imports.ReadsPerSecond = -1 }, "reads_per_second"},
		{"alias without targets", func(c *Config) { c.Imports.Aliases = []imports.Alias{{Prefix: "#/"}} }, "imports.aliases[0]"},
		{"bad secret rule", func(c *Config) { c.Secrets.Rules = []secrets.Rule{{ID: "x", Pattern: "("}} }, "secrets"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging"},
		{"telemetry without endpoint", func(c *Config) {
			c.Telemetry.Enabled = true
			c.Telemetry.Endpoint = ""
		}, "telemetry"},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"zero shutdown", func(c *Config) { c.Server.ShutdownTimeout = 0 }, "shutdown_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConfig_ValidateWrapsWeightErrors(t *testing.T) {
	cfg := Default()
	cfg.Budget.Weights = budget.Weights{budget.Explicit: 2}
	assert.ErrorIs(t, cfg.Validate(), budget.ErrInvalidWeights)
}
