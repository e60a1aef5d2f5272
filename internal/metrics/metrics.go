// Package metrics holds the Prometheus collectors for the spotfinder API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NearbyQueries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spotfinder_nearby_queries_total",
		Help: "Total nearby spot searches served.",
	})

	AntimeridianSplits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spotfinder_antimeridian_splits_total",
		Help: "Bounding-box queries that had to be split at the 180th meridian.",
	})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spotfinder_cache_hits_total",
		Help: "Total Redis cache hits for spot lookups.",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spotfinder_cache_misses_total",
		Help: "Total Redis cache misses for spot lookups.",
	})

	BackfillRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spotfinder_backfill_runs_total",
		Help: "Backfill job executions, by job name.",
	}, []string{"job"})

	BackfillDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spotfinder_backfill_duration_seconds",
		Help:    "Duration of backfill job executions, by job name.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
)
