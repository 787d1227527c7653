package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/cloo-solutions/docinsight/internal/domain"
	"github.com/cloo-solutions/docinsight/internal/telemetry"
)

const (
	// MaxRetries is the number of attempts a job gets before it is failed.
	MaxRetries = 3

	claimBatchSize = 5
)

// IndexingJobRepository claims and updates indexing jobs.
type IndexingJobRepository interface {
	ClaimPending(ctx context.Context, limit int) ([]*domain.IndexingJob, error)
	UpdateStatus(ctx context.Context, id string, status domain.IndexingJobStatus, errMsg string) error
	IncrementRetries(ctx context.Context, id string) error
}

// DocumentProcessor indexes one stored document.
type DocumentProcessor interface {
	Process(ctx context.Context, documentID, storageKey string) (int, error)
}

// IndexingWorker processes claimed indexing jobs.
type IndexingWorker struct {
	repo      IndexingJobRepository
	processor DocumentProcessor
}

func NewIndexingWorker(repo IndexingJobRepository, processor DocumentProcessor) *IndexingWorker {
	return &IndexingWorker{repo: repo, processor: processor}
}

// ProcessJobs implements JobProcessor.
func (w *IndexingWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.ClaimPending(ctx, claimBatchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil
	}

	log.Printf("indexing: processing %d jobs", len(jobs))
	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("indexing: job %s: %v", job.ID, err)
		}
	}
	return nil
}

func (w *IndexingWorker) processJob(ctx context.Context, job *domain.IndexingJob) error {
	ctx, span := telemetry.StartTransaction(ctx, "IndexingWorker.processJob", "queue.process")
	defer span.End()

	log.Printf("indexing: job %s doc=%s key=%s", job.ID, job.DocumentID, job.StorageKey)

	n, err := w.processor.Process(ctx, job.DocumentID, job.StorageKey)
	if err != nil {
		span.SetError(err)
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.repo.UpdateStatus(ctx, job.ID, domain.IndexingJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}
	log.Printf("indexing: job %s completed with %d chunks", job.ID, n)
	return nil
}

// handleJobFailure requeues the job until it has used MaxRetries attempts.
// Documents that can never be processed fail on the first attempt.
func (w *IndexingWorker) handleJobFailure(ctx context.Context, job *domain.IndexingJob, jobErr error) error {
	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	attempt := job.Retries + 1
	if permanent(jobErr) || attempt >= MaxRetries {
		log.Printf("indexing: job %s failed after %d attempts: %v", job.ID, attempt, jobErr)
		if err := w.repo.UpdateStatus(ctx, job.ID, domain.IndexingJobStatusFailed, jobErr.Error()); err != nil {
			return fmt.Errorf("failed to mark job failed: %w", err)
		}
		return nil
	}

	log.Printf("indexing: job %s will be retried (attempt %d/%d): %v", job.ID, attempt, MaxRetries, jobErr)
	msg := fmt.Sprintf("retry %d: %v", attempt, jobErr)
	if err := w.repo.UpdateStatus(ctx, job.ID, domain.IndexingJobStatusPending, msg); err != nil {
		return fmt.Errorf("failed to requeue job: %w", err)
	}
	return nil
}

func permanent(err error) bool {
	return errors.Is(err, domain.ErrUnsupportedDocument) ||
		errors.Is(err, domain.ErrEmptyDocument) ||
		errors.Is(err, domain.ErrDocumentNotFound)
}
