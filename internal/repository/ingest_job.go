package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docchat-ai/docchat/internal/domain"
)

// IngestJobRepository handles persistence of queued document ingestions.
type IngestJobRepository struct {
	db dbtx
}

func NewIngestJobRepository(pool *pgxpool.Pool) *IngestJobRepository {
	return &IngestJobRepository{db: pool}
}

func NewIngestJobRepositoryWithTx(tx pgx.Tx) *IngestJobRepository {
	return &IngestJobRepository{db: tx}
}

func (r *IngestJobRepository) Create(ctx context.Context, job *domain.IngestJob) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO ingest_jobs (id, filename, object_key, status, chunk_count, retries, last_error, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		job.ID, job.Filename, job.ObjectKey, job.Status, job.ChunkCount, job.Retries, nullableText(job.LastError), job.CreatedAt, job.UpdatedAt,
	)
	return err
}

func (r *IngestJobRepository) GetByID(ctx context.Context, id string) (*domain.IngestJob, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, filename, object_key, status, chunk_count, retries, last_error, created_at, updated_at
		 FROM ingest_jobs WHERE id = $1`, id)

	job, err := scanIngestJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrIngestJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// ClaimPending atomically claims up to limit pending jobs, marking them
// processing so concurrent workers never pick up the same job.
func (r *IngestJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.IngestJob, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM ingest_jobs
			 WHERE status = $1
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 UPDATE ingest_jobs
		 SET status = $3, updated_at = now()
		 FROM cte
		 WHERE ingest_jobs.id = cte.id
		 RETURNING ingest_jobs.id, ingest_jobs.filename, ingest_jobs.object_key, ingest_jobs.status,
		           ingest_jobs.chunk_count, ingest_jobs.retries, ingest_jobs.last_error,
		           ingest_jobs.created_at, ingest_jobs.updated_at`,
		domain.IngestJobStatusPending, limit, domain.IngestJobStatusProcessing,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.IngestJob
	for rows.Next() {
		job, err := scanIngestJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// MarkCompleted records a successful ingestion with its chunk count.
func (r *IngestJobRepository) MarkCompleted(ctx context.Context, id string, chunkCount int) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE ingest_jobs SET status = $1, chunk_count = $2, last_error = NULL, updated_at = now() WHERE id = $3`,
		domain.IngestJobStatusCompleted, chunkCount, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrIngestJobNotFound
	}
	return nil
}

// MarkFailed records a terminal failure.
func (r *IngestJobRepository) MarkFailed(ctx context.Context, id string, errMsg string) error {
	return r.setFailure(ctx, id, domain.IngestJobStatusFailed, errMsg)
}

// Requeue resets a job to pending after a transient failure, incrementing
// its retry count.
func (r *IngestJobRepository) Requeue(ctx context.Context, id string, errMsg string) error {
	return r.setFailure(ctx, id, domain.IngestJobStatusPending, errMsg)
}

func (r *IngestJobRepository) setFailure(ctx context.Context, id string, status domain.IngestJobStatus, errMsg string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE ingest_jobs SET status = $1, retries = retries + 1, last_error = $2, updated_at = now() WHERE id = $3`,
		status, nullableText(errMsg), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrIngestJobNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIngestJob(row rowScanner) (*domain.IngestJob, error) {
	var job domain.IngestJob
	var lastError pgtype.Text
	var createdAt, updatedAt time.Time
	if err := row.Scan(&job.ID, &job.Filename, &job.ObjectKey, &job.Status, &job.ChunkCount, &job.Retries, &lastError, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if lastError.Valid {
		job.LastError = lastError.String
	}
	job.CreatedAt = createdAt
	job.UpdatedAt = updatedAt
	return &job, nil
}

func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
