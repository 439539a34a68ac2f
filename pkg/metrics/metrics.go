// Package metrics exposes Prometheus instrumentation for the gateway.
//
// Metrics registered here:
//
//	moviegate_admission_decisions_total  counter: admission results by bucket
//	moviegate_upstream_requests_total    counter: provider calls by operation/status
//	moviegate_upstream_request_seconds   histogram: provider latency by operation
//	moviegate_trailer_fallbacks_total    counter: detail responses served without trailers
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Admission results.
const (
	ResultAllowed  = "allowed"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// StatusTransportError labels provider calls that never produced a response.
const StatusTransportError = "transport_error"

var AdmissionDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moviegate_admission_decisions_total",
	Help: "Admission control decisions by bucket and result.",
}, []string{"bucket", "result"})

var UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "moviegate_upstream_requests_total",
	Help: "Calls to the metadata provider by operation and status.",
}, []string{"operation", "status"})

var UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "moviegate_upstream_request_seconds",
	Help:    "Metadata provider latency by operation.",
	Buckets: prometheus.DefBuckets,
}, []string{"operation"})

var TrailerFallbacks = promauto.NewCounter(prometheus.CounterOpts{
	Name: "moviegate_trailer_fallbacks_total",
	Help: "Detail responses served with an empty trailer list after a failed videos lookup.",
})

// ObserveUpstream records one provider call. status is 0 for transport failures.
func ObserveUpstream(operation string, status int, started time.Time) {
	label := StatusTransportError
	if status > 0 {
		label = strconv.Itoa(status)
	}
	UpstreamRequests.WithLabelValues(operation, label).Inc()
	UpstreamDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
