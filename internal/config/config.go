package config

import (
	"errors"
	"fmt"
	"time"
)

// Config is the top-level veritls configuration.
type Config struct {
	// Verification configures the hostname verification policy.
	Verification VerificationConfig `yaml:"verification"`

	// Probe configures the live TLS prober.
	Probe ProbeConfig `yaml:"probe"`

	// Server configures the diagnostic HTTP server.
	Server ServerConfig `yaml:"server"`

	// Observability configures logging, metrics, and tracing.
	Observability ObservabilityConfig `yaml:"observability"`
}

// VerificationConfig configures the verification policy.
type VerificationConfig struct {
	// LegacyCommonNameFallback controls whether the subject common
	// name is consulted when a certificate carries no SAN DNS entries.
	// Defaults to true, matching the behavior of contemporary TLS
	// stacks. It never overrides SAN precedence: certificates with SAN
	// entries ignore the common name regardless of this setting.
	LegacyCommonNameFallback *bool `yaml:"legacyCommonNameFallback,omitempty"`

	// IDNA enables punycode (IDNA) mapping of target hostnames before
	// matching. Off by default: hostnames are compared as given.
	IDNA bool `yaml:"idna,omitempty"`
}

// LegacyCommonNameEnabled reports the effective CN fallback setting.
func (c *VerificationConfig) LegacyCommonNameEnabled() bool {
	if c.LegacyCommonNameFallback == nil {
		return true
	}
	return *c.LegacyCommonNameFallback
}

// ProbeConfig configures the live TLS prober.
type ProbeConfig struct {
	// Timeout bounds the dial plus handshake of a single probe.
	Timeout Duration `yaml:"timeout,omitempty"`
}

// ServerConfig configures the diagnostic HTTP server.
type ServerConfig struct {
	// Address is the listen address (host part).
	Address string `yaml:"address,omitempty"`

	// Port is the listen port.
	Port int `yaml:"port,omitempty"`

	// ReadTimeout is the maximum duration for reading a request.
	ReadTimeout Duration `yaml:"readTimeout,omitempty"`

	// WriteTimeout is the maximum duration before timing out writes.
	WriteTimeout Duration `yaml:"writeTimeout,omitempty"`

	// IdleTimeout is the maximum time to wait for the next request.
	IdleTimeout Duration `yaml:"idleTimeout,omitempty"`

	// RateLimit configures request rate limiting.
	RateLimit *RateLimitConfig `yaml:"rateLimit,omitempty"`
}

// RateLimitConfig configures token-bucket rate limiting.
type RateLimitConfig struct {
	// Enabled enables rate limiting.
	Enabled bool `yaml:"enabled"`

	// RequestsPerSecond is the sustained request rate.
	RequestsPerSecond int `yaml:"requestsPerSecond,omitempty"`

	// Burst is the maximum burst size.
	Burst int `yaml:"burst,omitempty"`
}

// ObservabilityConfig configures logging, metrics, and tracing.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level,omitempty"`

	// Format is the log encoding (json, console).
	Format string `yaml:"format,omitempty"`

	// Output is the log destination (stdout, stderr).
	Output string `yaml:"output,omitempty"`
}

// MetricsConfig configures Prometheus exposition.
type MetricsConfig struct {
	// Enabled enables the /metrics endpoint.
	Enabled bool `yaml:"enabled"`

	// Path is the exposition path. Defaults to /metrics.
	Path string `yaml:"path,omitempty"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	// Enabled enables tracing.
	Enabled bool `yaml:"enabled"`

	// OTLPEndpoint is the OTLP/gRPC collector endpoint.
	OTLPEndpoint string `yaml:"otlpEndpoint,omitempty"`

	// SamplingRate is the trace sampling ratio in [0, 1].
	SamplingRate float64 `yaml:"samplingRate,omitempty"`

	// ServiceName overrides the reported service name.
	ServiceName string `yaml:"serviceName,omitempty"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Probe: ProbeConfig{
			Timeout: Duration(10 * time.Second),
		},
		Server: ServerConfig{
			Port:         8440,
			ReadTimeout:  Duration(30 * time.Second),
			WriteTimeout: Duration(30 * time.Second),
			IdleTimeout:  Duration(120 * time.Second),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  "info",
				Format: "json",
				Output: "stdout",
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
			Tracing: TracingConfig{
				Enabled:      false,
				SamplingRate: 1.0,
				ServiceName:  "veritls",
			},
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	if err := c.Probe.Validate(); err != nil {
		return fmt.Errorf("probe: %w", err)
	}

	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("observability: %w", err)
	}

	return nil
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	if c.RateLimit != nil && c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSecond <= 0 {
			return errors.New("rateLimit: requestsPerSecond must be positive")
		}
		if c.RateLimit.Burst <= 0 {
			return errors.New("rateLimit: burst must be positive")
		}
	}

	return nil
}

// Validate validates the probe configuration.
func (c *ProbeConfig) Validate() error {
	if c.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	return nil
}

// Validate validates the observability configuration.
func (c *ObservabilityConfig) Validate() error {
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return fmt.Errorf("invalid sampling rate: %f", c.Tracing.SamplingRate)
	}

	return nil
}
