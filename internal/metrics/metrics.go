package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values for Operations.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	Operations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticketer_operations_total",
		Help: "Total number of service operations, labelled by record kind, operation and outcome.",
	}, []string{"kind", "op", "outcome"})

	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ticketer_operation_duration_seconds",
		Help:    "Service operation latency in seconds.",
		Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"kind", "op"})

	AssociationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticketer_association_failures_total",
		Help: "Total number of unit-of-work steps that failed, labelled by step.",
	}, []string{"step"})

	Compensations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticketer_compensations_total",
		Help: "Total number of compensation runs, labelled by whether every undo succeeded.",
	}, []string{"outcome"})

	DanglingReferences = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticketer_dangling_references_total",
		Help: "Total number of records found still referencing a removed owner.",
	}, []string{"owner", "target"})
)
