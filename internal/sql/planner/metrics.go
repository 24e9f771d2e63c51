package planner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	plansFinalized = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "corvus",
		Subsystem: "planner",
		Name:      "plans_finalized_total",
		Help:      "Plans successfully finalized.",
	})
	planningFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "corvus",
		Subsystem: "planner",
		Name:      "planning_failures_total",
		Help:      "Planning attempts aborted by an analysis failure.",
	})
	planNodesSerialized = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "corvus",
		Subsystem: "planner",
		Name:      "plan_nodes_serialized",
		Help:      "Plan nodes per serialized fragment stream.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})
)
