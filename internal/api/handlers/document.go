package handlers

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/docchat-ai/docchat/internal/api"
	"github.com/docchat-ai/docchat/internal/domain"
	"github.com/docchat-ai/docchat/internal/storage"
)

// maxUploadMemory caps how much of a multipart upload is buffered in
// memory before spilling to disk.
const maxUploadMemory = 8 << 20

// IngestJobStore persists upload jobs for the background worker.
type IngestJobStore interface {
	Create(ctx context.Context, job *domain.IngestJob) error
	GetByID(ctx context.Context, id string) (*domain.IngestJob, error)
}

// DocumentHandler accepts PDF uploads, stages them and queues an ingest
// job for the worker.
type DocumentHandler struct {
	jobs  IngestJobStore
	store storage.BlobStore
}

func NewDocumentHandler(jobs IngestJobStore, store storage.BlobStore) *DocumentHandler {
	return &DocumentHandler{jobs: jobs, store: store}
}

type IngestJobResponse struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	LastError  string `json:"last_error,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func jobToResponse(job *domain.IngestJob) *IngestJobResponse {
	return &IngestJobResponse{
		ID:         job.ID,
		Filename:   job.Filename,
		Status:     string(job.Status),
		ChunkCount: job.ChunkCount,
		LastError:  job.LastError,
		CreatedAt:  job.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  job.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// Upload handles POST /documents: a multipart form with a "file" part
// holding a PDF. The upload is staged and a pending job is queued; the
// response is 202 with the job so the client can poll for completion.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if filename == "" || filename == "." {
		api.Error(w, http.StatusBadRequest, "filename is required")
		return
	}
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		api.Error(w, http.StatusBadRequest, "only PDF uploads are supported")
		return
	}

	jobID := uuid.NewString()
	objectKey := fmt.Sprintf("uploads/%s/%s", jobID, filename)

	if err := h.store.Put(r.Context(), objectKey, file, "application/pdf"); err != nil {
		api.Error(w, http.StatusInternalServerError, "failed to stage upload")
		return
	}

	now := time.Now().UTC()
	job := &domain.IngestJob{
		ID:        jobID,
		Filename:  filename,
		ObjectKey: objectKey,
		Status:    domain.IngestJobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.jobs.Create(r.Context(), job); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, jobToResponse(job))
}

// Get handles GET /documents/{id}: the current state of an ingest job.
func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := h.jobs.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, jobToResponse(job))
}
