package librules

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	feedQueryCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vulnrules",
			Subsystem: "librules",
			Name:      "feed_queries_total",
			Help:      "Total number of feed queries issued during resolution passes.",
		},
		[]string{"ecosystem"},
	)
	ruleCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "vulnrules",
			Subsystem: "librules",
			Name:      "rules_emitted_total",
			Help:      "Total number of update rules emitted.",
		},
	)
	skipCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vulnrules",
			Subsystem: "librules",
			Name:      "dependencies_skipped_total",
			Help:      "Total number of dependencies skipped, by reason.",
		},
		[]string{"reason"},
	)
)
