package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragpipe",
			Name:      "embedding_requests_total",
			Help:      "Total number of embedding requests",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragpipe",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragpipe",
			Name:      "embedding_tokens_total",
			Help:      "Total embedding tokens consumed",
		},
		[]string{"provider", "model", "type"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragpipe",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	PoolAcquisitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragpipe",
			Name:      "pool_acquisitions_total",
			Help:      "Vector store connection pool acquisitions",
		},
		[]string{"result"}, // "ok" / "exhausted" / "redial"
	)

	RetrievalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragpipe",
			Name:      "retrievals_total",
			Help:      "Total retrieval requests",
		},
		[]string{"method", "outcome"},
	)

	RetrievalDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragpipe",
			Name:      "retrieval_duration_seconds",
			Help:      "Retrieval duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method"},
	)

	GenerationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragpipe",
			Name:      "generations_total",
			Help:      "Total generation requests",
		},
		[]string{"model", "status"},
	)

	GenerationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragpipe",
			Name:      "generation_duration_seconds",
			Help:      "Generation model call duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"model"},
	)

	IngestedChunksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ragpipe",
			Name:      "ingested_chunks_total",
			Help:      "Total chunks written to the vector store",
		},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers Prometheus pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(EmbeddingRequestsTotal)
	prometheus.MustRegister(EmbeddingRequestDuration)
	prometheus.MustRegister(EmbeddingTokensTotal)
	prometheus.MustRegister(EmbeddingCacheTotal)
	prometheus.MustRegister(PoolAcquisitionsTotal)
	prometheus.MustRegister(RetrievalsTotal)
	prometheus.MustRegister(RetrievalDuration)
	prometheus.MustRegister(GenerationsTotal)
	prometheus.MustRegister(GenerationDuration)
	prometheus.MustRegister(IngestedChunksTotal)
	pipelineMetricsRegistered = true
}
