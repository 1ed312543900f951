package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/fyrsmithlabs/ctxpack/internal/budget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// setupTestHome points HOME at a temp dir and returns the ctxpack config dir.
func setupTestHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".config", "ctxpack")
	require.NoError(t, os.MkdirAll(dir, 0700))
	return dir
}

func writeConfig(t *testing.T, dir, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), perm))
	require.NoError(t, os.Chmod(path, perm))
	return path
}

func TestLoad_NoFile(t *testing.T) {
	setupTestHome(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenCeiling, cfg.Budget.TokenCeiling)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	dir := setupTestHome(t)

	_, err := Load(filepath.Join(dir, "nope.yaml"))
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestLoad_YAML(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, `
budget:
  token_ceiling: 50000
  weights:
    explicit: 0.5
    session: 0.5
bundle:
  include_conversation: true
  tests: false
sandbox:
  extra_sensitive_patterns:
    - '(^|/)internal-secrets/'
imports:
  workers: 4
  reads_per_second: 200
  aliases:
    - prefix: "#/"
      targets: ["lib"]
secrets:
  deep_scan: true
  allow_list:
    - 'EXAMPLE[0-9]+'
logging:
  level: debug
  format: console
session:
  projects_dir: /var/sessions
server:
  port: 8088
  shutdown_timeout: 3s
`, 0600)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 50000, cfg.Budget.TokenCeiling)
	assert.Equal(t, budget.Weights{budget.Explicit: 0.5, budget.Session: 0.5}, cfg.Budget.Weights)
	assert.True(t, cfg.Bundle.IncludeConversation)
	assert.False(t, cfg.Bundle.Tests)
	assert.True(t, cfg.Bundle.Dependencies, "unset keys keep defaults")
	assert.Equal(t, []string{"(^|/)internal-secrets/"}, cfg.Sandbox.ExtraSensitivePatterns)
	assert.Equal(t, 4, cfg.Imports.Workers)
	assert.Equal(t, 200.0, cfg.Imports.ReadsPerSecond)
	require.Len(t, cfg.Imports.Aliases, 1)
	assert.Equal(t, "#/", cfg.Imports.Aliases[0].Prefix)
	assert.Equal(t, []string{"lib"}, cfg.Imports.Aliases[0].Targets)
	assert.True(t, cfg.Secrets.DeepScan)
	assert.True(t, cfg.Secrets.Enabled)
	assert.NotEmpty(t, cfg.Secrets.Rules, "default rules survive")
	assert.Equal(t, []string{"EXAMPLE[0-9]+"}, cfg.Secrets.AllowList)
	assert.Equal(t, zapcore.DebugLevel, cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Equal(t, "ctxpack", cfg.Logging.Fields["service"])
	assert.Equal(t, "/var/sessions", cfg.Session.ProjectsDir)
	assert.True(t, cfg.Session.Enabled())
	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout.Duration())
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, `
budget:
  token_ceiling: 50000
server:
  port: 8088
`, 0600)

	t.Setenv("CTXPACK_BUDGET_TOKEN_CEILING", "20000")
	t.Setenv("CTXPACK_SECRETS_DEEP_SCAN", "true")
	t.Setenv("CTXPACK_SANDBOX_ALLOW_EXTERNAL", "true")
	t.Setenv("CTXPACK_TELEMETRY_SERVICE_NAME", "ctxpack-ci")
	t.Setenv("CTXPACK_SESSION_PATH", "/tmp/s.jsonl")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 20000, cfg.Budget.TokenCeiling)
	assert.True(t, cfg.Secrets.DeepScan)
	assert.True(t, cfg.Sandbox.AllowExternal)
	assert.Equal(t, "ctxpack-ci", cfg.Telemetry.ServiceName)
	assert.Equal(t, "/tmp/s.jsonl", cfg.Session.Path)
	assert.Equal(t, 8088, cfg.Server.Port, "yaml value without env override")
}

func TestLoad_InvalidValues(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "server:\n  port: 99999\n", 0600)

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "budget: [unterminated\n", 0600)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config file")
}

func TestLoad_Permissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission model differs on windows")
	}

	tests := []struct {
		perm    os.FileMode
		wantErr bool
	}{
		{0600, false},
		{0400, false},
		{0644, true},
		{0640, true},
		{0666, true},
	}

	for _, tt := range tests {
		t.Run(tt.perm.String(), func(t *testing.T) {
			dir := setupTestHome(t)
			path := writeConfig(t, dir, "budget:\n  token_ceiling: 1000\n", tt.perm)

			_, err := Load(path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInsecurePermissions)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoad_TooLarge(t *testing.T) {
	dir := setupTestHome(t)
	content := "# " + strings.Repeat("x", maxConfigFileSize) + "\n"
	path := writeConfig(t, dir, content, 0600)

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrConfigTooLarge)
}

func TestLoadBytes(t *testing.T) {
	t.Setenv("CTXPACK_BUDGET_TOKEN_CEILING", "1")

	cfg, err := LoadBytes([]byte("budget:\n  token_ceiling: 7000\n"))
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Budget.TokenCeiling, "environment is not consulted")
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"CTXPACK_BUDGET_TOKEN_CEILING": "budget.token_ceiling",
		"CTXPACK_SECRETS_DEEP_SCAN":    "secrets.deep_scan",
		"CTXPACK_LOGGING_LEVEL":        "logging.level",
		"CTXPACK_DEBUG":                "debug",
	}
	for in, want := range tests {
		assert.Equal(t, want, envKey(in), in)
	}
}

func TestEnsureConfigDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.NoError(t, EnsureConfigDir())

	info, err := os.Stat(filepath.Join(home, ".config", "ctxpack"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
	}
}
