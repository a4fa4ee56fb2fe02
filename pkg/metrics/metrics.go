// Package metrics provides the Prometheus registry and HTTP endpoint for the
// VPP client. All metrics are defined in their respective packages (client,
// pagination, cache, cursor) to maintain modularity and avoid circular
// dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the VPP client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler returns the HTTP handler serving all registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// NewServer returns an HTTP server exposing /metrics and /health on addr.
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - vpp_requests_total{operation, status} (Counter): Requests by operation and HTTP status
//   - vpp_request_duration_seconds{operation} (Histogram): Request duration by operation
//   - vpp_errors_total{kind} (Counter): Errors by kind (transport, api, protocol)
//
// Batch Metrics (pkg/pagination):
//   - vpp_batches_total{operation} (Counter): Batch requests issued, probe included
//   - vpp_inflight_requests (Gauge): Batch requests currently in flight (never above 5 per fetch)
//   - vpp_fetch_duration_seconds{operation} (Histogram): Duration of a complete batched fetch
//   - vpp_fetch_failures_total{operation, kind} (Counter): Failed batched fetches by error kind
//
// Service Configuration Cache Metrics (pkg/cache):
//   - vpp_service_config_cache_hits_total (Counter): Discovery served from Redis
//   - vpp_service_config_cache_misses_total (Counter): Discovery fetched from the service
//   - vpp_service_config_invalidations_total (Counter): Entries dropped after error 9617
//   - vpp_service_config_cache_errors_total{operation} (Counter): Cache operation errors
//
// Cursor Metrics (pkg/cursor):
//   - vpp_cursor_writes_total{operation} (Counter): sinceModifiedToken cursors stored
//
// Retry Metrics (pkg/client):
//   - vpp_retries_total{kind} (Counter): Caller-side retry attempts by error kind
//   - vpp_retry_backoff_seconds (Histogram): Backoff before a retry
//   - vpp_retry_exhausted_total{kind} (Counter): Fetches that exhausted their retries
//
// Example Prometheus Queries:
//
//   # Service configuration cache hit rate
//   sum(rate(vpp_service_config_cache_hits_total[1h])) /
//   (sum(rate(vpp_service_config_cache_hits_total[1h])) + sum(rate(vpp_service_config_cache_misses_total[1h])))
//
//   # Failed fetches by kind
//   sum by (kind) (rate(vpp_fetch_failures_total[5m]))
//
//   # P95 request latency per operation
//   histogram_quantile(0.95, sum by (operation, le) (rate(vpp_request_duration_seconds_bucket[5m])))
