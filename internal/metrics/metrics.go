// Package metrics exposes the Prometheus collectors shared across the
// ingestion and chat paths. All collectors are registered with the default
// registry so the /metrics endpoint picks them up without extra wiring.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DocumentsIngested counts documents that completed ingestion.
	DocumentsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docchat_documents_ingested_total",
		Help: "Number of documents ingested into the vector index.",
	})

	// ChunksIngested counts chunks written to the vector index.
	ChunksIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docchat_chunks_ingested_total",
		Help: "Number of chunks upserted into the vector index.",
	})

	// IngestDuration observes end-to-end ingestion latency per document.
	IngestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "docchat_ingest_duration_seconds",
		Help:    "Time spent ingesting a single document.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	// EmbeddingRequests counts embedding API calls by outcome.
	EmbeddingRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docchat_embedding_requests_total",
		Help: "Embedding provider calls partitioned by status.",
	}, []string{"status"})

	// ChatCompletions counts language model calls by outcome.
	ChatCompletions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docchat_chat_completions_total",
		Help: "Language model calls partitioned by status.",
	}, []string{"status"})

	// RetrievalQueries counts similarity searches served by the retrieve tool.
	RetrievalQueries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docchat_retrieval_queries_total",
		Help: "Number of similarity searches executed.",
	})

	// ToolRounds observes how many tool rounds each agent run used.
	ToolRounds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "docchat_agent_tool_rounds",
		Help:    "Tool invocation rounds per agent run.",
		Buckets: prometheus.LinearBuckets(0, 1, 8),
	})
)

// StatusLabel maps an error to the status label used by the request counters.
func StatusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
