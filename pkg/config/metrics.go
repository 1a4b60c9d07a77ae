package config

import (
	"github.com/attrfs/attrfs/pkg/metrics"
	promMetrics "github.com/attrfs/attrfs/pkg/metrics/prometheus"
)

// MetricsResult contains all metrics components created from
// configuration.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if
	// disabled)
	Server *metrics.Server

	// FSMetrics is the collector for the filesystem core (never nil,
	// no-op when disabled)
	FSMetrics metrics.FSMetrics
}

// InitializeMetrics creates all metrics components based on
// configuration.
//
// When metrics are enabled the global Prometheus registry is
// initialized, the HTTP server created, and Prometheus-backed collectors
// returned. When disabled the server is nil and collectors are no-ops
// with zero overhead.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Server.Metrics.Enabled {
		return &MetricsResult{
			Server:    nil,
			FSMetrics: metrics.NewNoopFSMetrics(),
		}
	}

	metrics.InitRegistry()

	server := metrics.NewServer(metrics.ServerConfig{
		Port: cfg.Server.Metrics.Port,
	})

	return &MetricsResult{
		Server:    server,
		FSMetrics: promMetrics.NewFSMetrics(),
	}
}
