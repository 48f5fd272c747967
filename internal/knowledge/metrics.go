package knowledge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// indexBuildDuration tracks how long the one-time index build takes.
	indexBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "registrybot",
			Subsystem: "knowledge",
			Name:      "index_build_duration_seconds",
			Help:      "Duration of the knowledge index build in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// indexChunks reports the number of chunks in the built index.
	indexChunks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "registrybot",
			Subsystem: "knowledge",
			Name:      "index_chunks",
			Help:      "Number of chunks in the knowledge index",
		},
	)

	// queryDuration tracks retrieval latency.
	queryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "registrybot",
			Subsystem: "knowledge",
			Name:      "query_duration_seconds",
			Help:      "Duration of similarity queries in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// queryTotal counts retrieval operations by result.
	queryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "registrybot",
			Subsystem: "knowledge",
			Name:      "queries_total",
			Help:      "Total number of similarity queries",
		},
		[]string{"result"},
	)
)
