package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// pendingTasks tracks the queue depth.
	pendingTasks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "registrybot",
			Subsystem: "dispatch",
			Name:      "pending_tasks",
			Help:      "Number of queued background tasks not yet started",
		},
	)

	// tasksTotal counts completed tasks by result.
	tasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "registrybot",
			Subsystem: "dispatch",
			Name:      "tasks_total",
			Help:      "Total number of background tasks processed by result",
		},
		[]string{"result"},
	)

	// tasksDropped counts tasks enqueued after shutdown.
	tasksDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "registrybot",
			Subsystem: "dispatch",
			Name:      "tasks_dropped_total",
			Help:      "Total number of tasks dropped because the dispatcher was closed",
		},
	)
)
