package domain

import (
	"fmt"
	"time"
)

// IndexingJobStatus represents the status of an indexing job
type IndexingJobStatus string

const (
	IndexingJobStatusPending    IndexingJobStatus = "pending"
	IndexingJobStatusProcessing IndexingJobStatus = "processing"
	IndexingJobStatusCompleted  IndexingJobStatus = "completed"
	IndexingJobStatusFailed     IndexingJobStatus = "failed"
)

// IndexingJob is an async request to extract, chunk and embed one document
type IndexingJob struct {
	ID          string
	DocumentID  string
	StorageKey  string
	Status      IndexingJobStatus
	Retries     int32
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// NewIndexingJob creates a pending IndexingJob
func NewIndexingJob(id, documentID, storageKey string, createdAt time.Time) *IndexingJob {
	return &IndexingJob{
		ID:         id,
		DocumentID: documentID,
		StorageKey: storageKey,
		Status:     IndexingJobStatusPending,
		CreatedAt:  createdAt,
	}
}

// ValidateIndexingJob validates an IndexingJob instance
func ValidateIndexingJob(j *IndexingJob) error {
	if j == nil {
		return fmt.Errorf("indexing job cannot be nil")
	}

	if j.ID == "" {
		return fmt.Errorf("indexing job ID is required")
	}

	if j.DocumentID == "" {
		return fmt.Errorf("indexing job DocumentID is required")
	}

	if j.StorageKey == "" {
		return fmt.Errorf("indexing job StorageKey is required")
	}

	if !IsValidIndexingJobStatus(j.Status) {
		return fmt.Errorf("indexing job Status is invalid: %s", j.Status)
	}

	if j.Retries < 0 {
		return fmt.Errorf("indexing job Retries cannot be negative")
	}

	return nil
}

// IsValidIndexingJobStatus checks if an IndexingJobStatus is valid
func IsValidIndexingJobStatus(s IndexingJobStatus) bool {
	switch s {
	case IndexingJobStatusPending, IndexingJobStatusProcessing,
		IndexingJobStatusCompleted, IndexingJobStatusFailed:
		return true
	}
	return false
}
