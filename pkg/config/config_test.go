package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes a YAML config into a temp dir and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// TestLoadDefaults verifies a minimal config is filled with defaults.
func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
adapters:
  fuse:
    enabled: true
    mountpoint: /tmp/attrfs-test
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.Equal(t, DefaultShutdownTimeout, cfg.Server.ShutdownTimeout)
	assert.Equal(t, DefaultMetricsPort, cfg.Server.Metrics.Port)
	assert.Equal(t, "/tmp/attrfs-test", cfg.Adapters.FUSE.Mountpoint)
	assert.Equal(t, "attrfs", cfg.Adapters.FUSE.FSName)
}

// TestLoadNormalizesLogLevel verifies lowercase levels are accepted and
// normalized.
func TestLoadNormalizesLogLevel(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
adapters:
  fuse:
    enabled: true
    mountpoint: /tmp/attrfs-test
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
}

// TestLoadEnvOverride verifies ATTRFS_* environment variables take
// precedence over the file.
func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ATTRFS_LOGGING_LEVEL", "ERROR")

	path := writeConfig(t, `
logging:
  level: INFO
adapters:
  fuse:
    enabled: true
    mountpoint: /tmp/attrfs-test
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ERROR", cfg.Logging.Level)
}

// TestLoadValidationFailures covers the rejection cases.
func TestLoadValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "invalid log level",
			content: `
logging:
  level: VERBOSE
adapters:
  fuse:
    enabled: true
    mountpoint: /tmp/x
`,
		},
		{
			name: "no adapter enabled",
			content: `
adapters:
  fuse:
    enabled: false
`,
		},
		{
			name: "seed child before parent",
			content: `
adapters:
  fuse:
    enabled: true
    mountpoint: /tmp/x
seed:
  objects:
    - path: devices/cpu0
`,
		},
		{
			name: "duplicate seed path",
			content: `
adapters:
  fuse:
    enabled: true
    mountpoint: /tmp/x
seed:
  objects:
    - path: devices
    - path: devices
`,
		},
		{
			name: "link to undeclared object",
			content: `
adapters:
  fuse:
    enabled: true
    mountpoint: /tmp/x
seed:
  objects:
    - path: class
      links:
        eth0: devices/eth0
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
		})
	}
}

// TestLoadMissingFileUsesDefaults verifies a missing config file at the
// default location is not an error by itself.
func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("ATTRFS_ADAPTERS_FUSE_ENABLED", "true")
	t.Setenv("ATTRFS_ADAPTERS_FUSE_MOUNTPOINT", "/tmp/attrfs-env")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/attrfs-env", cfg.Adapters.FUSE.Mountpoint)
}
