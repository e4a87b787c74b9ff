package valuation

import "github.com/prometheus/client_golang/prometheus"

var (
	sectionResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "provenance",
			Name:      "section_results_total",
			Help:      "Resolved response sections by section and status.",
		},
		[]string{"section", "status"},
	)
	resolveSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "provenance",
			Name:      "resolve_duration_seconds",
			Help:      "Time spent building a provenance and market response.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"field"},
	)
	edits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "provenance",
			Name:      "edits_total",
			Help:      "Edit attempts by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(sectionResults, resolveSeconds, edits)
}
