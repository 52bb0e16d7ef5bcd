package service

import (
	"context"
	"log"
	"time"

	"github.com/docchat-ai/docchat/internal/domain"
	"github.com/docchat-ai/docchat/internal/metrics"
	"github.com/docchat-ai/docchat/internal/telemetry"
)

// DocumentSource loads a document from an identifier such as a file path
// or a staging object key.
type DocumentSource interface {
	Load(ctx context.Context, identifier string) (*domain.Document, error)
}

// EmbeddingClient produces dense vectors for text.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// VectorIndex is the similarity store the pipeline writes to and the
// retrieve tool reads from.
type VectorIndex interface {
	Exists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, name string, dimension int) error
	Dimension(ctx context.Context, name string) (int, error)
	Upsert(ctx context.Context, name string, records []domain.IndexedRecord) error
	Query(ctx context.Context, name string, vector []float32, k int) ([]domain.RetrievedRecord, error)
}

// IngestionService runs the load, chunk, embed, upsert pipeline for a
// single document.
type IngestionService struct {
	source    DocumentSource
	embedder  EmbeddingClient
	index     VectorIndex
	indexName string
	chunkCfg  ChunkConfig
}

// NewIngestionService creates an IngestionService. The chunk config is
// validated on first use, not here, so construction never fails.
func NewIngestionService(source DocumentSource, embedder EmbeddingClient, index VectorIndex, indexName string, chunkCfg ChunkConfig) *IngestionService {
	return &IngestionService{
		source:    source,
		embedder:  embedder,
		index:     index,
		indexName: indexName,
		chunkCfg:  chunkCfg,
	}
}

// Ingest loads the document behind identifier, splits it into chunks,
// embeds the chunks in a single batch and upserts them into the vector
// index as one write. The index is created on first use. A document that
// produces no chunks completes successfully without touching the index.
func (s *IngestionService) Ingest(ctx context.Context, identifier string) (*domain.IngestionReport, error) {
	return s.IngestAs(ctx, identifier, "")
}

// IngestAs ingests the document behind identifier but records source as
// the document source instead of the identifier itself. Workers use
// this to index staged scratch files under their original filename.
func (s *IngestionService) IngestAs(ctx context.Context, identifier, source string) (*domain.IngestionReport, error) {
	ctx, span := telemetry.StartSpan(ctx, "ingestion.ingest", telemetry.SpanAttributes{
		Source:    identifier,
		Index:     s.indexName,
		Operation: "ingest",
	})
	defer span.End()

	start := time.Now()

	report, err := s.ingest(ctx, identifier, source)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	metrics.DocumentsIngested.Inc()
	metrics.ChunksIngested.Add(float64(report.ChunkCount))
	metrics.IngestDuration.Observe(time.Since(start).Seconds())
	log.Printf("ingestion: ingested %s (%d chunks in %s)", report.Source, report.ChunkCount, time.Since(start).Round(time.Millisecond))
	return report, nil
}

func (s *IngestionService) ingest(ctx context.Context, identifier, source string) (*domain.IngestionReport, error) {
	if err := s.chunkCfg.Validate(); err != nil {
		return nil, err
	}

	doc, err := s.source.Load(ctx, identifier)
	if err != nil {
		return nil, domain.WrapExternal(err, func(e error) *domain.DomainError {
			return domain.NewDocumentLoadError(identifier, e)
		})
	}
	if source != "" {
		doc.Source = source
	}

	chunks, err := SplitDocument(doc, s.chunkCfg)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return &domain.IngestionReport{Source: doc.Source, ChunkCount: 0}, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	embeddings, err := s.embedder.GenerateEmbeddings(ctx, texts)
	metrics.EmbeddingRequests.WithLabelValues(metrics.StatusLabel(err)).Inc()
	if err != nil {
		return nil, domain.WrapExternal(err, domain.NewEmbeddingProviderError)
	}
	if len(embeddings) != len(chunks) {
		return nil, domain.NewEmbeddingProviderError(domain.ErrInvalidDimension)
	}

	if err := s.ensureIndex(ctx); err != nil {
		return nil, err
	}

	records := make([]domain.IndexedRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = domain.IndexedRecord{
			Source:    chunk.Source,
			Content:   chunk.Content,
			Embedding: embeddings[i],
		}
	}

	if err := s.index.Upsert(ctx, s.indexName, records); err != nil {
		return nil, domain.WrapExternal(err, func(e error) *domain.DomainError {
			return domain.NewIndexUnavailableError(s.indexName, e)
		})
	}

	return &domain.IngestionReport{Source: doc.Source, ChunkCount: len(chunks)}, nil
}

// ensureIndex creates the index when missing and verifies the stored
// dimension matches the embedding provider when it already exists.
// Creation is idempotent so concurrent ingestions racing on a fresh
// index all succeed.
func (s *IngestionService) ensureIndex(ctx context.Context) error {
	exists, err := s.index.Exists(ctx, s.indexName)
	if err != nil {
		return domain.WrapExternal(err, func(e error) *domain.DomainError {
			return domain.NewIndexUnavailableError(s.indexName, e)
		})
	}

	if !exists {
		log.Printf("ingestion: creating index %s (dimension %d)", s.indexName, s.embedder.Dimensions())
		if err := s.index.Create(ctx, s.indexName, s.embedder.Dimensions()); err != nil {
			return domain.WrapExternal(err, func(e error) *domain.DomainError {
				return domain.NewIndexUnavailableError(s.indexName, e)
			})
		}
		return nil
	}

	dim, err := s.index.Dimension(ctx, s.indexName)
	if err != nil {
		return domain.WrapExternal(err, func(e error) *domain.DomainError {
			return domain.NewIndexUnavailableError(s.indexName, e)
		})
	}
	if dim != s.embedder.Dimensions() {
		return domain.NewDomainErrorWithCause(domain.ErrCodeInvalidConfig,
			"index dimension does not match embedding provider", domain.ErrInvalidDimension)
	}
	return nil
}
