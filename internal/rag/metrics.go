package rag

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// answersTotal counts pipeline runs by outcome.
	answersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "registrybot",
			Subsystem: "rag",
			Name:      "answers_total",
			Help:      "Total number of answer pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	// contextualizerRewrites counts accepted standalone-question rewrites.
	contextualizerRewrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "registrybot",
			Subsystem: "rag",
			Name:      "contextualizer_rewrites_total",
			Help:      "Total number of follow-up questions rewritten for retrieval",
		},
	)
)
