package pivot

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects build and export telemetry on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	builds        *prometheus.CounterVec
	buildLatency  *prometheus.HistogramVec
	recordsIn     prometheus.Counter
	recordsOut    prometheus.Counter
	nodes         prometheus.Gauge
	coercions     prometheus.Counter
	invalidRules  prometheus.Counter
	exportedRows  prometheus.Counter
	exportsFailed prometheus.Counter
}

// NewMetrics registers the pivot collectors under namespace.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pivot"
	}
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.builds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "build",
			Name:      "total",
			Help:      "Tree builds by result",
		},
		[]string{"result"},
	)
	m.buildLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "build",
			Name:      "duration_seconds",
			Help:      "Time taken to filter, derive and build a tree",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		},
		[]string{"result"},
	)
	m.recordsIn = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "build",
		Name:      "records_in_total",
		Help:      "Records offered to builds before filtering",
	})
	m.recordsOut = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "build",
		Name:      "records_grouped_total",
		Help:      "Records grouped after filtering",
	})
	m.nodes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "build",
		Name:      "last_nodes",
		Help:      "Group nodes in the most recent tree",
	})
	m.coercions = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "build",
		Name:      "coercions_total",
		Help:      "Non-numeric aggregation inputs folded as zero",
	})
	m.invalidRules = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "filter",
		Name:      "invalid_rules_total",
		Help:      "Malformed filter rules ignored in lenient mode",
	})
	m.exportedRows = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "export",
		Name:      "rows_total",
		Help:      "CSV body rows written",
	})
	m.exportsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "export",
		Name:      "failures_total",
		Help:      "CSV exports that failed",
	})

	m.registry.MustRegister(
		m.builds, m.buildLatency, m.recordsIn, m.recordsOut, m.nodes,
		m.coercions, m.invalidRules, m.exportedRows, m.exportsFailed,
	)
	return m
}

// Registry exposes the private registry for a /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordBuild records one rebuild.
func (m *Metrics) RecordBuild(in, out, nodes, coercions int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.builds.WithLabelValues(result).Inc()
	m.buildLatency.WithLabelValues(result).Observe(duration.Seconds())
	if err != nil {
		return
	}
	m.recordsIn.Add(float64(in))
	m.recordsOut.Add(float64(out))
	m.nodes.Set(float64(nodes))
	m.coercions.Add(float64(coercions))
}

// RecordInvalidRules counts ignored filter rules.
func (m *Metrics) RecordInvalidRules(n int) {
	if m == nil || n == 0 {
		return
	}
	m.invalidRules.Add(float64(n))
}

// RecordExport records one CSV export.
func (m *Metrics) RecordExport(rows int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.exportsFailed.Inc()
		return
	}
	m.exportedRows.Add(float64(rows))
}
