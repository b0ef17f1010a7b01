package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingest, search and index store metrics.
var (
	IngestStageTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsearch",
			Name:      "ingest_stage_total",
			Help:      "Ingest stage outcomes",
		},
		[]string{"stage", "status"}, // status: "ok" / "degraded" / "failed"
	)

	IngestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsearch",
			Name:      "ingest_duration_seconds",
			Help:      "End-to-end ingest duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"status"},
	)

	SearchPathTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docsearch",
			Name:      "search_path_total",
			Help:      "Hybrid search sub-path outcomes",
		},
		[]string{"path", "status"}, // path: "semantic" / "lexical"
	)

	SearchResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "docsearch",
			Name:      "search_results",
			Help:      "Number of results returned per search",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 10},
		},
	)

	StoreRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docsearch",
			Name:      "store_request_duration_seconds",
			Help:      "Index store call duration in seconds, retries included",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"op", "status"},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers ingest, search and store metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(IngestStageTotal)
	prometheus.MustRegister(IngestDuration)
	prometheus.MustRegister(SearchPathTotal)
	prometheus.MustRegister(SearchResults)
	prometheus.MustRegister(StoreRequestDuration)
	pipelineMetricsRegistered = true
}
