package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors exported by the occupancy engine. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	retries    *prometheus.CounterVec
	sweeps     *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dorm",
			Subsystem: "occupancy",
			Name:      "operations_total",
			Help:      "Occupancy operations by action and result kind.",
		}, []string{"action", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dorm",
			Subsystem: "occupancy",
			Name:      "operation_duration_seconds",
			Help:      "Latency of occupancy operations including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dorm",
			Subsystem: "occupancy",
			Name:      "conflict_retries_total",
			Help:      "Transactions retried after losing a concurrent commit.",
		}, []string{"action"}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dorm",
			Subsystem: "sweeper",
			Name:      "no_show_total",
			Help:      "Reservations processed by the no-show sweeper.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.operations, m.duration, m.retries, m.sweeps)
	return m
}

// ObserveOperation records one finished operation.
func (m *Metrics) ObserveOperation(action, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(action, result).Inc()
	m.duration.WithLabelValues(action).Observe(d.Seconds())
}

// ObserveRetry records one retried transaction.
func (m *Metrics) ObserveRetry(action string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(action).Inc()
}

// ObserveSweep records the outcome of one no-show attempt.
func (m *Metrics) ObserveSweep(result string) {
	if m == nil {
		return
	}
	m.sweeps.WithLabelValues(result).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
