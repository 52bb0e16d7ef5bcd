package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/docchat-ai/docchat/internal/domain"
	"github.com/docchat-ai/docchat/internal/metrics"
	"github.com/docchat-ai/docchat/internal/telemetry"
)

// DefaultTopK is the number of records returned when the caller does not
// ask for a specific k.
const DefaultTopK = 2

// RetrievalService answers similarity queries against the vector index
// and renders the matches as a single evidence string for the agent.
type RetrievalService struct {
	embedder  EmbeddingClient
	index     VectorIndex
	indexName string
	topK      int
}

// NewRetrievalService creates a RetrievalService. A non-positive topK
// falls back to DefaultTopK.
func NewRetrievalService(embedder EmbeddingClient, index VectorIndex, indexName string, topK int) *RetrievalService {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &RetrievalService{
		embedder:  embedder,
		index:     index,
		indexName: indexName,
		topK:      topK,
	}
}

// Retrieve embeds the query, runs a top-k similarity search and returns
// both the structured matches and their rendered evidence text. A k of
// zero or less uses the service default. An index with no matching
// records yields an empty result, not an error.
func (s *RetrievalService) Retrieve(ctx context.Context, query string, k int) (*domain.RetrievalResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "retrieval.retrieve", telemetry.SpanAttributes{
		Index:     s.indexName,
		Operation: "retrieve",
	})
	defer span.End()

	if k <= 0 {
		k = s.topK
	}

	vector, err := s.embedder.GenerateEmbedding(ctx, query)
	metrics.EmbeddingRequests.WithLabelValues(metrics.StatusLabel(err)).Inc()
	if err != nil {
		err = domain.WrapExternal(err, domain.NewEmbeddingProviderError)
		span.SetError(err)
		return nil, err
	}

	records, err := s.index.Query(ctx, s.indexName, vector, k)
	if err != nil {
		err = domain.WrapExternal(err, func(e error) *domain.DomainError {
			return domain.NewIndexUnavailableError(s.indexName, e)
		})
		span.SetError(err)
		return nil, err
	}

	metrics.RetrievalQueries.Inc()
	return &domain.RetrievalResult{
		Evidence: renderEvidence(records),
		Records:  records,
	}, nil
}

// renderEvidence formats matches the way the agent hands them to the
// language model: one "Source:"/"Content:" block per record, separated
// by blank lines.
func renderEvidence(records []domain.RetrievedRecord) string {
	blocks := make([]string, len(records))
	for i, rec := range records {
		blocks[i] = fmt.Sprintf("Source: %s\nContent: %s", rec.Source, rec.Content)
	}
	return strings.Join(blocks, "\n\n")
}
