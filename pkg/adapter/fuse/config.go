package fuse

import "time"

// Config holds configuration parameters for the FUSE adapter.
//
// Default values (applied by ApplyDefaults if zero):
//   - FSName: "attrfs"
//   - Subtype: "attrfs"
//   - ShutdownTimeout: 10s
type Config struct {
	// Enabled controls whether the FUSE adapter is active.
	// When false, the adapter will not be started.
	Enabled bool `mapstructure:"enabled"`

	// Mountpoint is the directory where the attribute tree is mounted.
	// Must exist and be empty. Required when Enabled is true.
	Mountpoint string `mapstructure:"mountpoint" validate:"required_if=Enabled true"`

	// FSName is the filesystem name reported to the kernel and shown in
	// mount listings.
	FSName string `mapstructure:"fs_name"`

	// Subtype is the filesystem subtype reported to the kernel.
	Subtype string `mapstructure:"subtype"`

	// AllowOther permits access by users other than the mounting user.
	// Requires user_allow_other in /etc/fuse.conf.
	AllowOther bool `mapstructure:"allow_other"`

	// ShutdownTimeout is the maximum duration to wait for the kernel to
	// release the mount during graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`
}

// ApplyDefaults fills zero-valued fields with production defaults.
func (c *Config) ApplyDefaults() {
	if c.FSName == "" {
		c.FSName = "attrfs"
	}
	if c.Subtype == "" {
		c.Subtype = "attrfs"
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}
