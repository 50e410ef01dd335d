package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "veritls.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	t.Run("values override defaults", func(t *testing.T) {
		t.Parallel()

		path := writeConfigFile(t, `
verification:
  legacyCommonNameFallback: false
  idna: true
probe:
  timeout: 3s
server:
  port: 9440
observability:
  logging:
    level: debug
`)

		cfg, err := LoadConfig(path)
		require.NoError(t, err)

		assert.False(t, cfg.Verification.LegacyCommonNameEnabled())
		assert.True(t, cfg.Verification.IDNA)
		assert.Equal(t, 3*time.Second, cfg.Probe.Timeout.Duration())
		assert.Equal(t, 9440, cfg.Server.Port)
		assert.Equal(t, "debug", cfg.Observability.Logging.Level)

		// Untouched sections keep their defaults.
		assert.Equal(t, "json", cfg.Observability.Logging.Format)
		assert.Equal(t, "/metrics", cfg.Observability.Metrics.Path)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		t.Parallel()

		path := writeConfigFile(t, "server: [not a mapping")

		_, err := LoadConfig(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse YAML")
	})
}

func TestLoadConfigFromReader(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfigFromReader(strings.NewReader("server:\n  port: 9001\n"))
	require.NoError(t, err)
	assert.Equal(t, 9001, cfg.Server.Port)
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("VERITLS_TEST_PORT", "9555")
	t.Setenv("VERITLS_TEST_LEVEL", "warn")

	t.Run("set variables are substituted", func(t *testing.T) {
		cfg, err := LoadConfigFromReader(strings.NewReader(`
server:
  port: ${VERITLS_TEST_PORT}
observability:
  logging:
    level: ${VERITLS_TEST_LEVEL}
`))
		require.NoError(t, err)
		assert.Equal(t, 9555, cfg.Server.Port)
		assert.Equal(t, "warn", cfg.Observability.Logging.Level)
	})

	t.Run("default applies when variable is unset", func(t *testing.T) {
		cfg, err := LoadConfigFromReader(strings.NewReader(
			"server:\n  port: ${VERITLS_TEST_UNSET:-9777}\n",
		))
		require.NoError(t, err)
		assert.Equal(t, 9777, cfg.Server.Port)
	})

	t.Run("set variable beats the default", func(t *testing.T) {
		cfg, err := LoadConfigFromReader(strings.NewReader(
			"server:\n  port: ${VERITLS_TEST_PORT:-1234}\n",
		))
		require.NoError(t, err)
		assert.Equal(t, 9555, cfg.Server.Port)
	})

	t.Run("unset variable without default becomes empty", func(t *testing.T) {
		got := substituteEnvVars("value: ${VERITLS_TEST_UNSET}")
		assert.Equal(t, "value: ", got)
	})

	t.Run("double dollar escapes", func(t *testing.T) {
		got := substituteEnvVars("value: $${NOT_A_VAR}")
		assert.Equal(t, "value: ${NOT_A_VAR}", got)
	})
}
