package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics are registered once on the default registry; every orchestrator
// instance shares them.
type metrics struct {
	runsStarted   prometheus.Counter
	runsCompleted prometheus.Counter
	runsFailed    *prometheus.CounterVec
	staleDiscards prometheus.Counter
	resultsMerged prometheus.Counter
	roundSeconds  *prometheus.HistogramVec
}

var sharedMetrics = &metrics{
	runsStarted: promauto.NewCounter(prometheus.CounterOpts{
		Name: "lifebank_extraction_runs_started_total",
		Help: "Extraction runs started.",
	}),
	runsCompleted: promauto.NewCounter(prometheus.CounterOpts{
		Name: "lifebank_extraction_runs_completed_total",
		Help: "Extraction runs that reached Completed.",
	}),
	runsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lifebank_extraction_runs_failed_total",
		Help: "Extraction runs that reached Failed, by failure code.",
	}, []string{"code"}),
	staleDiscards: promauto.NewCounter(prometheus.CounterOpts{
		Name: "lifebank_extraction_stale_responses_total",
		Help: "Collaborator responses discarded because their run was superseded.",
	}),
	resultsMerged: promauto.NewCounter(prometheus.CounterOpts{
		Name: "lifebank_extraction_results_merged_total",
		Help: "Extraction results merged into the knowledge base.",
	}),
	roundSeconds: promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lifebank_extraction_round_seconds",
		Help:    "Collaborator exchange latency by round.",
		Buckets: prometheus.DefBuckets,
	}, []string{"round"}),
}

func newMetrics() *metrics {
	return sharedMetrics
}
