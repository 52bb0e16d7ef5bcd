//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docchat-ai/docchat/internal/domain"
	"github.com/docchat-ai/docchat/internal/testutil"
)

func newTestJob(filename string) *domain.IngestJob {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.IngestJob{
		ID:        uuid.NewString(),
		Filename:  filename,
		ObjectKey: "pdfs/" + filename,
		Status:    domain.IngestJobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestIngestJobRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewIngestJobRepository(pool)

	job := newTestJob("report.pdf")
	require.NoError(t, repo.Create(ctx, job))

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.Filename, got.Filename)
	assert.Equal(t, job.ObjectKey, got.ObjectKey)
	assert.Equal(t, domain.IngestJobStatusPending, got.Status)
	assert.Zero(t, got.ChunkCount)
	assert.Empty(t, got.LastError)
}

func TestIngestJobRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewIngestJobRepository(pool)

	_, err := repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrIngestJobNotFound)
}

func TestIngestJobRepository_ClaimPending(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewIngestJobRepository(pool)

	first := newTestJob("first.pdf")
	second := newTestJob("second.pdf")
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	second.UpdatedAt = second.CreatedAt
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	claimed, err := repo.ClaimPending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, first.ID, claimed[0].ID, "oldest job claimed first")
	assert.Equal(t, domain.IngestJobStatusProcessing, claimed[0].Status)

	// Claimed jobs are no longer pending.
	remaining, err := repo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, second.ID, remaining[0].ID)
}

func TestIngestJobRepository_MarkCompleted(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewIngestJobRepository(pool)

	job := newTestJob("done.pdf")
	require.NoError(t, repo.Create(ctx, job))
	require.NoError(t, repo.MarkCompleted(ctx, job.ID, 12))

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IngestJobStatusCompleted, got.Status)
	assert.Equal(t, 12, got.ChunkCount)
}

func TestIngestJobRepository_RequeueAndFail(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewIngestJobRepository(pool)

	job := newTestJob("flaky.pdf")
	require.NoError(t, repo.Create(ctx, job))

	require.NoError(t, repo.Requeue(ctx, job.ID, "embedding provider timeout"))
	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IngestJobStatusPending, got.Status)
	assert.Equal(t, 1, got.Retries)
	assert.Equal(t, "embedding provider timeout", got.LastError)

	require.NoError(t, repo.MarkFailed(ctx, job.ID, "max retries exceeded"))
	got, err = repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IngestJobStatusFailed, got.Status)
	assert.Equal(t, 2, got.Retries)
}

func TestIngestJobRepository_UpdateMissingJob(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewIngestJobRepository(pool)

	assert.ErrorIs(t, repo.MarkCompleted(ctx, uuid.NewString(), 1), domain.ErrIngestJobNotFound)
	assert.ErrorIs(t, repo.MarkFailed(ctx, uuid.NewString(), "x"), domain.ErrIngestJobNotFound)
}
