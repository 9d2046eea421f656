// Package metrics registers the service-level Prometheus collectors. Module
// specific collectors live next to their module.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	AuthzRejections   *prometheus.CounterVec
	SequencesIssued   *prometheus.CounterVec
	ScopedQueryDenied prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clinicore_http_requests_total",
			Help: "HTTP requests by method, route and status class",
		}, []string{"method", "route", "status"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clinicore_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		AuthzRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clinicore_authz_rejections_total",
			Help: "Authorization rejections by layer (role or branch)",
		}, []string{"layer"}),
		SequencesIssued: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "clinicore_sequences_issued_total",
			Help: "Sequence numbers issued by type",
		}, []string{"seq_type"}),
		ScopedQueryDenied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "clinicore_scope_denied_total",
			Help: "Cross-branch access denials from the scoping layer",
		}),
	}
}

// Handler exposes the default registry for the /metrics route.
func Handler() http.Handler {
	return promhttp.Handler()
}
