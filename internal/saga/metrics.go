package saga

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sagaExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saga_executions_total",
			Help: "Total number of finished saga executions by outcome",
		},
		[]string{"outcome"},
	)

	sagaStepFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saga_step_failures_total",
			Help: "Total number of failed forward steps by step and failure kind",
		},
		[]string{"step", "kind"},
	)

	sagaCompensationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saga_compensations_total",
			Help: "Total number of step compensations by step and result",
		},
		[]string{"step", "result"},
	)

	sagaStepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "saga_step_duration_seconds",
			Help:    "Duration of forward saga steps in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"step"},
	)

	sagaInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "saga_in_flight",
			Help: "Number of saga executions currently running",
		},
	)
)
