package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PermissionChecks counts permission evaluations and their outcome (allowed|denied|error).
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_permission_checks_total",
			Help: "Total number of permission checks",
		},
		[]string{"permission", "result"},
	)

	// PermissionCache records effective-permission-set cache outcomes (hit|miss|error|bypass).
	PermissionCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_permission_cache_total",
			Help: "Effective permission set cache lookups by outcome",
		},
		[]string{"result"},
	)

	// CacheInvalidations counts cache invalidations triggered by role or permission mutations.
	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_cache_invalidations_total",
			Help: "Cache invalidations by trigger (role_assignment|role_permissions|refresh)",
		},
		[]string{"trigger"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warden_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
