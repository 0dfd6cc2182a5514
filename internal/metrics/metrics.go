// Package metrics defines the Prometheus metrics exported by the HTTP
// transport. Metrics register on the default registry via promauto.
//
// Exported series:
//   - stacq_requests_total{method, status} (Counter): requests by method and HTTP status
//   - stacq_request_duration_seconds{method} (Histogram): request duration by method
//   - stacq_retries_total{reason} (Counter): retry attempts by reason (network, status)
//   - stacq_retry_exhausted_total (Counter): requests that exhausted the retry budget
//   - stacq_pages_fetched_total (Counter): result pages fetched across all searches
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stacq_requests_total",
		Help: "Total number of requests by method and HTTP status",
	}, []string{"method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stacq_request_duration_seconds",
		Help:    "Request duration by method",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"method"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stacq_retries_total",
		Help: "Total number of retry attempts by reason",
	}, []string{"reason"})

	retryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stacq_retry_exhausted_total",
		Help: "Total number of requests that exhausted the retry budget",
	})

	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stacq_pages_fetched_total",
		Help: "Total number of result pages fetched",
	})
)

// ObserveRequest records one completed request attempt.
func ObserveRequest(method string, status int, duration time.Duration) {
	requestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	requestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// ObserveRetry records one retry attempt.
func ObserveRetry(reason string) {
	retriesTotal.WithLabelValues(reason).Inc()
}

// ObserveRetryExhausted records a request that ran out of retries.
func ObserveRetryExhausted() {
	retryExhaustedTotal.Inc()
}

// ObservePageFetched records one result page fetch.
func ObservePageFetched() {
	pagesFetchedTotal.Inc()
}
