package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the audit pipeline.
type Metrics struct {
	EventsRecorded prometheus.Counter
	AppendFailures prometheus.Counter
	EventsDropped  prometheus.Counter
}

// New creates and registers audit metrics on the default registerer.
func New() *Metrics {
	return &Metrics{
		EventsRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clinicore_audit_events_recorded_total",
			Help: "Total number of audit events recorded",
		}),
		AppendFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clinicore_audit_append_failures_total",
			Help: "Total number of audit events that failed to persist",
		}),
		EventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clinicore_audit_events_dropped_total",
			Help: "Total number of audit events dropped by a full pipeline buffer",
		}),
	}
}
