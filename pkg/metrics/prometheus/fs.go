// Package prometheus provides Prometheus-backed implementations of the
// attrfs metrics interfaces.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/attrfs/attrfs/pkg/metrics"
)

// fsMetrics is the Prometheus implementation of metrics.FSMetrics.
type fsMetrics struct {
	lookupsTotal  *prometheus.CounterVec
	opensTotal    prometheus.Counter
	openBuffers   prometheus.Gauge
	bytesTotal    *prometheus.CounterVec
	fillsTotal    *prometheus.CounterVec
	fillDuration  prometheus.Histogram
	notifiesTotal prometheus.Counter
	entriesTotal  *prometheus.CounterVec
	liveEntries   prometheus.Gauge
}

// NewFSMetrics creates a new Prometheus-backed FSMetrics instance.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry
// not called).
func NewFSMetrics() metrics.FSMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopFSMetrics()
	}

	reg := metrics.GetRegistry()

	return &fsMetrics{
		lookupsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "attrfs_lookups_total",
				Help: "Total number of name resolutions by result",
			},
			[]string{"result"},
		),
		opensTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "attrfs_opens_total",
				Help: "Total number of attribute file opens",
			},
		),
		openBuffers: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "attrfs_open_buffers",
				Help: "Current number of open attribute buffers",
			},
		),
		bytesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "attrfs_bytes_total",
				Help: "Total bytes moved through attribute buffers",
			},
			[]string{"direction"},
		),
		fillsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "attrfs_fills_total",
				Help: "Total number of show-operation invocations by status",
			},
			[]string{"status"},
		),
		fillDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "attrfs_fill_duration_milliseconds",
				Help: "Duration of show-operation invocations in milliseconds",
				Buckets: []float64{
					0.01, // 10us
					0.1,  // 100us
					1,    // 1ms
					10,   // 10ms
					100,  // 100ms
					1000, // 1s
				},
			},
		),
		notifiesTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "attrfs_notifications_total",
				Help: "Total number of delivered change notifications",
			},
		),
		entriesTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "attrfs_entries_total",
				Help: "Total directory entries created and removed by kind",
			},
			[]string{"op", "kind"},
		),
		liveEntries: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "attrfs_live_entries",
				Help: "Current number of entries linked in the tree",
			},
		),
	}
}

func (m *fsMetrics) RecordLookup(found bool) {
	result := "hit"
	if !found {
		result = "miss"
	}
	m.lookupsTotal.WithLabelValues(result).Inc()
}

func (m *fsMetrics) RecordOpen() {
	m.opensTotal.Inc()
	m.openBuffers.Inc()
}

func (m *fsMetrics) RecordRelease() {
	m.openBuffers.Dec()
}

func (m *fsMetrics) RecordRead(bytes int) {
	m.bytesTotal.WithLabelValues("read").Add(float64(bytes))
}

func (m *fsMetrics) RecordWrite(bytes int) {
	m.bytesTotal.WithLabelValues("write").Add(float64(bytes))
}

func (m *fsMetrics) RecordFill(duration time.Duration, failed bool) {
	status := "ok"
	if failed {
		status = "error"
	}
	m.fillsTotal.WithLabelValues(status).Inc()
	m.fillDuration.Observe(float64(duration.Microseconds()) / 1000.0)
}

func (m *fsMetrics) RecordNotify() {
	m.notifiesTotal.Inc()
}

func (m *fsMetrics) RecordEntryCreated(kind string) {
	m.entriesTotal.WithLabelValues("create", kind).Inc()
	m.liveEntries.Inc()
}

func (m *fsMetrics) RecordEntryRemoved(kind string) {
	m.entriesTotal.WithLabelValues("remove", kind).Inc()
	m.liveEntries.Dec()
}
