package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the monitor's own telemetry.
type Metrics struct {
	ChecksTotal      *prometheus.CounterVec
	CheckDuration    prometheus.Histogram
	NodesByStatus    *prometheus.GaugeVec
	AlertsSent       *prometheus.CounterVec
	AlertsSuppressed prometheus.Counter
	NotifierFailures *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates metrics registered on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		ChecksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nhm_checks_total",
			Help: "Total number of cluster check passes by outcome status.",
		}, []string{"status"}),
		CheckDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "nhm_check_duration_seconds",
			Help:    "Duration of a full cluster check pass.",
			Buckets: prometheus.DefBuckets,
		}),
		NodesByStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nhm_nodes",
			Help: "Number of nodes in the last check pass by health status.",
		}, []string{"status"}),
		AlertsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nhm_alerts_sent_total",
			Help: "Alerts delivered to notifiers, by notifier name.",
		}, []string{"notifier"}),
		AlertsSuppressed: factory.NewCounter(prometheus.CounterOpts{
			Name: "nhm_alerts_suppressed_total",
			Help: "Alerts suppressed by the cooldown window.",
		}),
		NotifierFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nhm_notifier_failures_total",
			Help: "Notifier delivery failures, by notifier name.",
		}, []string{"notifier"}),
		registry: registry,
	}
}

// Registry returns the underlying registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCluster updates the per-status node gauges after a check pass.
func (m *Metrics) ObserveCluster(healthy, warning, critical int) {
	m.NodesByStatus.WithLabelValues("healthy").Set(float64(healthy))
	m.NodesByStatus.WithLabelValues("warning").Set(float64(warning))
	m.NodesByStatus.WithLabelValues("critical").Set(float64(critical))
}
