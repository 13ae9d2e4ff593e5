// Package metrics exposes Prometheus collectors for query execution.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every metric name.
const Namespace = "bintheory"

// Modes label the delivery style of an execution.
const (
	ModeForEach = "foreach"
	ModeStream  = "stream"
)

// Outcomes label how an execution ended.
const (
	OutcomeOK          = "ok"
	OutcomeInitError   = "init_error"
	OutcomeInvalid     = "invalid"
	OutcomeDispatchErr = "dispatch_error"
	OutcomeSwallowed   = "dispatch_error_swallowed"
)

// Metrics groups the executor's collectors. A nil *Metrics records nothing.
type Metrics struct {
	queries   *prometheus.CounterVec
	delivered *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// New builds unregistered collectors.
func New() *Metrics {
	return &Metrics{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "query",
			Name:      "executions_total",
			Help:      "Query executions by delivery mode and outcome",
		}, []string{"mode", "outcome"}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "query",
			Name:      "records_delivered_total",
			Help:      "Records handed to callbacks and sinks",
		}, []string{"mode"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Query execution latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"mode"}),
	}
}

// Register adds the collectors to reg. Collectors already registered with
// reg are reused.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	if m == nil || reg == nil {
		return nil
	}
	var are prometheus.AlreadyRegisteredError

	if err := reg.Register(m.queries); err != nil {
		if !errors.As(err, &are) {
			return err
		}
		m.queries = are.ExistingCollector.(*prometheus.CounterVec)
	}
	if err := reg.Register(m.delivered); err != nil {
		if !errors.As(err, &are) {
			return err
		}
		m.delivered = are.ExistingCollector.(*prometheus.CounterVec)
	}
	if err := reg.Register(m.duration); err != nil {
		if !errors.As(err, &are) {
			return err
		}
		m.duration = are.ExistingCollector.(*prometheus.HistogramVec)
	}
	return nil
}

// ObserveQuery records one finished execution.
func (m *Metrics) ObserveQuery(mode, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(mode, outcome).Inc()
	m.duration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// AddDelivered counts records handed to the caller.
func (m *Metrics) AddDelivered(mode string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.delivered.WithLabelValues(mode).Add(float64(n))
}
