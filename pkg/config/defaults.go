package config

import (
	"strings"
	"time"
)

// Default configuration values applied when the corresponding setting is
// absent from file and environment.
const (
	DefaultLogLevel  = "INFO"
	DefaultLogFormat = "text"
	DefaultLogOutput = "stdout"

	DefaultShutdownTimeout = 30 * time.Second

	DefaultMetricsPort = 9090

	DefaultMountpoint = "/run/attrfs"
)

// ApplyDefaults fills missing configuration values with production
// defaults. Called after unmarshalling and before validation, so a
// config file only needs to state what differs.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	// Level comparison downstream is case-sensitive; normalize here so
	// validation and the logger agree.
	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)

	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = DefaultLogOutput
	}

	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.Metrics.Port == 0 {
		cfg.Server.Metrics.Port = DefaultMetricsPort
	}

	if cfg.Adapters.FUSE.Mountpoint == "" {
		cfg.Adapters.FUSE.Mountpoint = DefaultMountpoint
	}
	cfg.Adapters.FUSE.ApplyDefaults()

	applySeedDefaults(&cfg.Seed)
}
