// Package metrics provides Prometheus metrics collection for attrfs
// components.
//
// All metrics are optional. If the global registry is never initialized,
// components receive no-op implementations with zero overhead, so the
// filesystem core can run with or without metrics collection enabled.
//
// Usage:
//
//	// Initialize the global registry (typically in main.go)
//	metrics.InitRegistry()
//
//	// Create metrics instances for components
//	fsMetrics := prometheus.NewFSMetrics()
//
//	// Or use the no-op implementation directly
//	filesystem.SetMetrics(metrics.NewNoopFSMetrics())
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// registry is the global Prometheus registry for all attrfs metrics.
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry.
//
// Must be called before creating any metrics instances. Safe to call
// multiple times; subsequent calls are ignored. If never called,
// GetRegistry returns nil and metrics constructors return no-op
// implementations.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the global Prometheus registry, or nil when metrics
// are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether metrics collection is enabled.
func IsEnabled() bool {
	return GetRegistry() != nil
}
