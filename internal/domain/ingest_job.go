package domain

import "time"

// IngestJobStatus tracks the lifecycle of a queued ingestion.
type IngestJobStatus string

const (
	IngestJobStatusPending    IngestJobStatus = "pending"
	IngestJobStatusProcessing IngestJobStatus = "processing"
	IngestJobStatusCompleted  IngestJobStatus = "completed"
	IngestJobStatusFailed     IngestJobStatus = "failed"
)

// IsValid reports whether the status is one of the known values.
func (s IngestJobStatus) IsValid() bool {
	switch s {
	case IngestJobStatusPending, IngestJobStatusProcessing, IngestJobStatusCompleted, IngestJobStatusFailed:
		return true
	}
	return false
}

// IngestJob is a queued ingestion of one uploaded document. The staged object
// key points at the uploaded PDF in blob storage.
type IngestJob struct {
	ID         string
	Filename   string
	ObjectKey  string
	Status     IngestJobStatus
	ChunkCount int
	Retries    int
	LastError  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
