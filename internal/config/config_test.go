package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	assert.Equal(t, 8440, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Probe.Timeout.Duration())
	assert.Equal(t, "info", cfg.Observability.Logging.Level)
	assert.Equal(t, "json", cfg.Observability.Logging.Format)
	assert.True(t, cfg.Observability.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Observability.Metrics.Path)
	assert.False(t, cfg.Observability.Tracing.Enabled)
	assert.Equal(t, "veritls", cfg.Observability.Tracing.ServiceName)

	assert.True(t, cfg.Verification.LegacyCommonNameEnabled())
	assert.False(t, cfg.Verification.IDNA)

	require.NoError(t, cfg.Validate())
}

func TestLegacyCommonNameEnabled(t *testing.T) {
	t.Parallel()

	var c VerificationConfig
	assert.True(t, c.LegacyCommonNameEnabled())

	enabled := true
	c.LegacyCommonNameFallback = &enabled
	assert.True(t, c.LegacyCommonNameEnabled())

	disabled := false
	c.LegacyCommonNameFallback = &disabled
	assert.False(t, c.LegacyCommonNameEnabled())
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name: "negative port",
			mutate: func(c *Config) {
				c.Server.Port = -1
			},
			wantErr: "invalid port",
		},
		{
			name: "port out of range",
			mutate: func(c *Config) {
				c.Server.Port = 70000
			},
			wantErr: "invalid port",
		},
		{
			name: "rate limit without rate",
			mutate: func(c *Config) {
				c.Server.RateLimit = &RateLimitConfig{Enabled: true, Burst: 10}
			},
			wantErr: "requestsPerSecond must be positive",
		},
		{
			name: "rate limit without burst",
			mutate: func(c *Config) {
				c.Server.RateLimit = &RateLimitConfig{Enabled: true, RequestsPerSecond: 10}
			},
			wantErr: "burst must be positive",
		},
		{
			name: "disabled rate limit skips checks",
			mutate: func(c *Config) {
				c.Server.RateLimit = &RateLimitConfig{Enabled: false}
			},
		},
		{
			name: "negative probe timeout",
			mutate: func(c *Config) {
				c.Probe.Timeout = Duration(-time.Second)
			},
			wantErr: "timeout must not be negative",
		},
		{
			name: "bad log level",
			mutate: func(c *Config) {
				c.Observability.Logging.Level = "verbose"
			},
			wantErr: "invalid log level",
		},
		{
			name: "bad log format",
			mutate: func(c *Config) {
				c.Observability.Logging.Format = "xml"
			},
			wantErr: "invalid log format",
		},
		{
			name: "sampling rate above one",
			mutate: func(c *Config) {
				c.Observability.Tracing.SamplingRate = 1.5
			},
			wantErr: "invalid sampling rate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigValidate_Nil(t *testing.T) {
	t.Parallel()

	var cfg *Config
	require.Error(t, cfg.Validate())
}
