package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks service configuration cache hits
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vpp_service_config_cache_hits_total",
			Help: "Total number of VPP service configuration cache hits",
		},
	)

	// CacheMisses tracks service configuration cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vpp_service_config_cache_misses_total",
			Help: "Total number of VPP service configuration cache misses",
		},
	)

	// CacheInvalidations tracks entries dropped after a URL-moved error
	CacheInvalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vpp_service_config_invalidations_total",
			Help: "Total number of service configuration entries invalidated",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vpp_service_config_cache_errors_total",
			Help: "Total number of service configuration cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
