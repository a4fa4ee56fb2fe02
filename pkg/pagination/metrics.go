package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BatchesTotal tracks batch requests issued, probe included.
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpp_batches_total",
			Help: "Total number of VPP batch requests issued by operation",
		},
		[]string{"operation"},
	)

	// InflightRequests tracks batch requests currently outstanding.
	InflightRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vpp_inflight_requests",
			Help: "Number of VPP batch requests currently in flight",
		},
	)

	// FetchDuration tracks end-to-end batched fetch duration.
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vpp_fetch_duration_seconds",
			Help:    "Batched VPP fetch duration in seconds by operation",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"operation"},
	)

	// FetchFailures tracks failed fetches by operation and error kind.
	FetchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpp_fetch_failures_total",
			Help: "Total number of failed batched VPP fetches",
		},
		[]string{"operation", "kind"}, // "transport", "api", "protocol"
	)
)
