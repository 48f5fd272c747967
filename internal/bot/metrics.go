package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// messagesTotal counts processed inbound messages per channel.
	messagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "registrybot",
			Subsystem: "bot",
			Name:      "messages_total",
			Help:      "Total number of inbound messages processed per channel",
		},
		[]string{"channel"},
	)

	// pipelineFallbacks counts replies served by the helpline fallback.
	pipelineFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "registrybot",
			Subsystem: "bot",
			Name:      "pipeline_fallbacks_total",
			Help:      "Total number of replies served by the helpline fallback",
		},
		[]string{"channel"},
	)
)
