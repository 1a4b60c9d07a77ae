package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// defaultConfigTemplate is the commented starter configuration written by
// InitConfig.
const defaultConfigTemplate = `# attrfs Configuration File
#
# Settings may be overridden with ATTRFS_* environment variables, e.g.
# ATTRFS_LOGGING_LEVEL=DEBUG.

logging:
  # Minimum log level: DEBUG, INFO, WARN, ERROR
  level: INFO
  # Output format: text or json
  format: text
  # Destination: stdout, stderr, or a file path
  output: stdout

server:
  # Maximum time to wait for graceful shutdown
  shutdown_timeout: 30s
  metrics:
    # Expose Prometheus metrics at http://localhost:<port>/metrics
    enabled: false
    port: 9090

adapters:
  fuse:
    enabled: true
    # Directory where the attribute tree is mounted. Must exist.
    mountpoint: /run/attrfs
    # Allow access by users other than the mounting user
    # (requires user_allow_other in /etc/fuse.conf).
    allow_other: false

# Objects published at startup. Parents must be declared before children.
seed:
  objects:
    - path: system
      attributes:
        version: "1\n"
    - path: system/status
      attributes:
        state:
          value: "ready\n"
          # Permission bits in YAML octal notation
          mode: 0o644
`

// InitConfig writes the starter configuration file to the default
// location. Returns the path written. Refuses to overwrite an existing
// file unless force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()

	if !force {
		if _, err := os.Stat(path); err == nil {
			return path, fmt.Errorf("config file already exists at %s (use force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return path, nil
}
