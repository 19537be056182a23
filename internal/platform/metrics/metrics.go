package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the host's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	DiscoveryAttempts *prometheus.CounterVec
	PluginFaults      *prometheus.CounterVec
	TickDuration      prometheus.Histogram
	TrackerUpdates    *prometheus.CounterVec
	EnablementReverts *prometheus.CounterVec
}

// New creates the collectors and registers them on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		DiscoveryAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trackhost_discovery_attempts_total",
				Help: "Plugin load attempts by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		PluginFaults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trackhost_plugin_faults_total",
				Help: "Failed or panicking plugin calls caught at the facade boundary",
			},
			[]string{"plugin", "op"},
		),
		TickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "trackhost_tick_duration_seconds",
				Help:    "Duration of one driver tick (device updates, heartbeat, pose push)",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
			},
		),
		TrackerUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trackhost_tracker_updates_total",
				Help: "Per-tracker results reported by the tracking service",
			},
			[]string{"op", "result"},
		),
		EnablementReverts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trackhost_enablement_reverts_total",
				Help: "Disable requests refused to keep a provider kind enabled",
			},
			[]string{"kind"},
		),
	}
	m.registry.MustRegister(
		m.DiscoveryAttempts,
		m.PluginFaults,
		m.TickDuration,
		m.TrackerUpdates,
		m.EnablementReverts,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
