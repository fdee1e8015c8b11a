package tracker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsStartedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_runs_started_total",
			Help: "Total number of script runs triggered",
		},
	)

	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_transitions_total",
			Help: "Total number of execution phase transitions by target phase",
		},
		[]string{"phase"},
	)

	pollErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracker_poll_errors_total",
			Help: "Total number of failed execution status polls",
		},
	)

	activePolls = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tracker_active_polls",
			Help: "Number of executions currently being polled",
		},
	)
)
