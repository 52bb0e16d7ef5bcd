package jobs

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/docchat-ai/docchat/internal/domain"
	"github.com/docchat-ai/docchat/internal/storage"
)

const (
	// MaxRetries is the maximum number of attempts for a failed job
	MaxRetries = 3

	// claimBatchSize caps how many jobs one poll picks up
	claimBatchSize = 10
)

// IngestJobRepository defines the interface for ingest job persistence
type IngestJobRepository interface {
	// ClaimPending atomically claims up to limit pending jobs
	ClaimPending(ctx context.Context, limit int) ([]*domain.IngestJob, error)

	// MarkCompleted records a successful ingestion
	MarkCompleted(ctx context.Context, id string, chunkCount int) error

	// MarkFailed marks a job as permanently failed
	MarkFailed(ctx context.Context, id string, errMsg string) error

	// Requeue returns a job to pending and bumps its retry count
	Requeue(ctx context.Context, id string, errMsg string) error
}

// Ingestor runs the ingestion pipeline for a staged document
type Ingestor interface {
	IngestAs(ctx context.Context, identifier, source string) (*domain.IngestionReport, error)
}

// IngestWorker processes queued document uploads: it downloads the
// staged PDF to a scratch file, runs the ingestion pipeline over it and
// records the outcome on the job row.
type IngestWorker struct {
	repo       IngestJobRepository
	store      storage.BlobStore
	ingestor   Ingestor
	scratchDir string
}

// NewIngestWorker creates a new IngestWorker instance
func NewIngestWorker(repo IngestJobRepository, store storage.BlobStore, ingestor Ingestor, scratchDir string) *IngestWorker {
	if scratchDir == "" {
		scratchDir = os.TempDir()
	}
	return &IngestWorker{
		repo:       repo,
		store:      store,
		ingestor:   ingestor,
		scratchDir: scratchDir,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *IngestWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.ClaimPending(ctx, claimBatchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Printf("Processing %d pending ingest jobs", len(jobs))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("Error processing job %s: %v", job.ID, err)
		}
	}

	return nil
}

func (w *IngestWorker) processJob(ctx context.Context, job *domain.IngestJob) error {
	log.Printf("Processing job %s for document %s", job.ID, job.Filename)

	report, err := w.ingestStaged(ctx, job)
	if err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.repo.MarkCompleted(ctx, job.ID, report.ChunkCount); err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}
	if err := w.store.Delete(ctx, job.ObjectKey); err != nil {
		log.Printf("Job %s: failed to delete staged object %s: %v", job.ID, job.ObjectKey, err)
	}

	log.Printf("Job %s completed (%d chunks)", job.ID, report.ChunkCount)
	return nil
}

// ingestStaged copies the staged object to a local scratch file so the
// PDF extractor can run over a real path, then ingests it.
func (w *IngestWorker) ingestStaged(ctx context.Context, job *domain.IngestJob) (*domain.IngestionReport, error) {
	body, err := w.store.Get(ctx, job.ObjectKey)
	if err != nil {
		return nil, domain.NewDocumentLoadError(job.ObjectKey, err)
	}
	defer body.Close()

	scratch, err := os.CreateTemp(w.scratchDir, "ingest-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch file: %w", err)
	}
	defer os.Remove(scratch.Name())

	if _, err := io.Copy(scratch, body); err != nil {
		scratch.Close()
		return nil, domain.NewDocumentLoadError(job.ObjectKey, err)
	}
	if err := scratch.Close(); err != nil {
		return nil, fmt.Errorf("failed to close scratch file: %w", err)
	}

	// index under the original filename, not the scratch path
	return w.ingestor.IngestAs(ctx, scratch.Name(), filepath.Base(job.Filename))
}

// handleJobFailure requeues a failed job until it runs out of attempts
func (w *IngestWorker) handleJobFailure(ctx context.Context, job *domain.IngestJob, jobErr error) error {
	log.Printf("Job %s failed: %v", job.ID, jobErr)

	if job.Retries+1 >= MaxRetries {
		log.Printf("Job %s exceeded max retries (%d), marking as failed", job.ID, MaxRetries)
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.repo.MarkFailed(ctx, job.ID, errMsg); err != nil {
			return fmt.Errorf("failed to mark job failed: %w", err)
		}
		return nil
	}

	log.Printf("Job %s will be retried (attempt %d/%d)", job.ID, job.Retries+1, MaxRetries)
	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.Requeue(ctx, job.ID, errMsg); err != nil {
		return fmt.Errorf("failed to requeue job: %w", err)
	}

	return nil
}
