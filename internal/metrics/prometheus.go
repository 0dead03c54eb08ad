// Package metrics provides Prometheus metrics for cluster probing and failover.
package metrics

import (
	"github.com/devrev/aerolink/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the client
type Metrics struct {
	ProbesTotal     *prometheus.CounterVec
	ProbeDuration   *prometheus.HistogramVec
	ResponseBytes   *prometheus.HistogramVec
	FailoversTotal  prometheus.Counter
	OperationsTotal *prometheus.CounterVec
}

// NewMetrics creates the client metrics and registers them with reg.
// With a nil reg the metrics are kept on a private registry, so repeated
// calls never collide; pass prometheus.DefaultRegisterer to expose them
// globally, once per process.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		ProbesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aerolink",
			Subsystem: "client",
			Name:      "probes_total",
			Help:      "Total number of host status probes by cluster role and outcome",
		}, []string{"role", "outcome"}),
		ProbeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aerolink",
			Subsystem: "client",
			Name:      "probe_duration_seconds",
			Help:      "Host status probe duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"role"}),
		ResponseBytes: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "aerolink",
			Subsystem: "client",
			Name:      "probe_response_bytes",
			Help:      "Size of non-empty status probe responses in bytes",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 7),
		}, []string{"role"}),
		FailoversTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "aerolink",
			Subsystem: "client",
			Name:      "failovers_total",
			Help:      "Total number of failovers from the active to the passive cluster",
		}),
		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aerolink",
			Subsystem: "client",
			Name:      "operations_total",
			Help:      "Total number of connect and ping operations by result",
		}, []string{"operation", "result"}),
	}
}

// RecordProbe records one host probe
func (m *Metrics) RecordProbe(r model.ProbeResult) {
	if m == nil {
		return
	}
	m.ProbesTotal.WithLabelValues(string(r.Role), string(r.Outcome)).Inc()
	m.ProbeDuration.WithLabelValues(string(r.Role)).Observe(r.Duration.Seconds())
	if r.Bytes > 0 {
		m.ResponseBytes.WithLabelValues(string(r.Role)).Observe(float64(r.Bytes))
	}
}

// RecordFailover records a switch to the passive cluster
func (m *Metrics) RecordFailover() {
	if m == nil {
		return
	}
	m.FailoversTotal.Inc()
}

// RecordOperation records the result of a connect or ping operation
func (m *Metrics) RecordOperation(operation string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.OperationsTotal.WithLabelValues(operation, result).Inc()
}
