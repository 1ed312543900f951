package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.Equal(t, ProtocolGRPC, cfg.Protocol)
	assert.Equal(t, "ctxpack", cfg.ServiceName)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.Sampling.Rate)
	assert.Equal(t, 5*time.Second, cfg.Shutdown.Timeout)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	enabled := func(mutate func(*Config)) *Config {
		cfg := NewDefaultConfig()
		cfg.Enabled = true
		mutate(cfg)
		return cfg
	}

	tests := []struct {
		name   string
		config *Config
		errMsg string
	}{
		{"enabled defaults", enabled(func(*Config) {}), ""},
		{"disabled skips validation", &Config{Enabled: false}, ""},
		{"missing endpoint", enabled(func(c *Config) { c.Endpoint = "" }), "endpoint is required"},
		{"missing service name", enabled(func(c *Config) { c.ServiceName = "" }), "service_name is required"},
		{"http protocol", enabled(func(c *Config) { c.Protocol = ProtocolHTTP }), ""},
		{"unknown protocol", enabled(func(c *Config) { c.Protocol = "thrift" }), "protocol must be"},
		{"insecure remote", enabled(func(c *Config) { c.Endpoint = "otel.example.com:4317" }), "insecure connections"},
		{"tls remote", enabled(func(c *Config) {
			c.Endpoint = "otel.example.com:4317"
			c.Insecure = false
		}), ""},
		{"insecure loopback ip", enabled(func(c *Config) { c.Endpoint = "127.0.0.1:4317" }), ""},
		{"insecure ipv6 loopback", enabled(func(c *Config) { c.Endpoint = "[::1]:4317" }), ""},
		{"insecure local url", enabled(func(c *Config) { c.Endpoint = "http://localhost:4318" }), ""},
		{"rate too high", enabled(func(c *Config) { c.Sampling.Rate = 1.5 }), "sampling.rate"},
		{"rate negative", enabled(func(c *Config) { c.Sampling.Rate = -0.1 }), "sampling.rate"},
		{"zero shutdown timeout", enabled(func(c *Config) { c.Shutdown.Timeout = 0 }), "shutdown.timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "collector:4318", stripScheme("https://collector:4318"))
	assert.Equal(t, "collector:4318", stripScheme("http://collector:4318"))
	assert.Equal(t, "collector:4317", stripScheme("collector:4317"))
}
