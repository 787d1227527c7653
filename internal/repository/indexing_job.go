package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/docinsight/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const indexingJobColumns = `id, document_id, storage_key, status, retries, error, created_at, processed_at`

type IndexingJobRepository struct {
	db dbtx
}

func NewIndexingJobRepository(pool *pgxpool.Pool) *IndexingJobRepository {
	return &IndexingJobRepository{db: pool}
}

func NewIndexingJobRepositoryWithTx(tx pgx.Tx) *IndexingJobRepository {
	return &IndexingJobRepository{db: tx}
}

func (r *IndexingJobRepository) Create(ctx context.Context, job *domain.IndexingJob) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO indexing_jobs (`+indexingJobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		job.ID, job.DocumentID, job.StorageKey, job.Status, job.Retries,
		nullableString(job.Error), job.CreatedAt, job.ProcessedAt,
	)
	return err
}

func (r *IndexingJobRepository) GetByID(ctx context.Context, id string) (*domain.IndexingJob, error) {
	job, err := scanIndexingJob(r.db.QueryRow(ctx,
		`SELECT `+indexingJobColumns+` FROM indexing_jobs WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrIndexingJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// ClaimPending moves up to limit pending jobs to processing and returns them.
// Rows locked by another replica are skipped.
func (r *IndexingJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.IndexingJob, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM indexing_jobs
			 WHERE status = $1
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 UPDATE indexing_jobs j
		 SET status = $3,
		     error = NULL,
		     processed_at = NULL
		 FROM cte
		 WHERE j.id = cte.id
		 RETURNING j.id, j.document_id, j.storage_key, j.status, j.retries, j.error, j.created_at, j.processed_at`,
		domain.IndexingJobStatusPending, limit, domain.IndexingJobStatusProcessing,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.IndexingJob
	for rows.Next() {
		job, err := scanIndexingJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *IndexingJobRepository) UpdateStatus(ctx context.Context, id string, status domain.IndexingJobStatus, errMsg string) error {
	if !domain.IsValidIndexingJobStatus(status) {
		return domain.ErrInvalidIndexingJobStatus
	}

	var processedAt *time.Time
	if status == domain.IndexingJobStatusCompleted || status == domain.IndexingJobStatusFailed {
		now := time.Now().UTC()
		processedAt = &now
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE indexing_jobs SET status = $1, error = $2, processed_at = $3 WHERE id = $4`,
		status, nullableString(errMsg), processedAt, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrIndexingJobNotFound
	}
	return nil
}

func (r *IndexingJobRepository) IncrementRetries(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `UPDATE indexing_jobs SET retries = retries + 1 WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrIndexingJobNotFound
	}
	return nil
}

func scanIndexingJob(row pgx.Row) (*domain.IndexingJob, error) {
	var job domain.IndexingJob
	var errMsg pgtype.Text
	if err := row.Scan(
		&job.ID, &job.DocumentID, &job.StorageKey, &job.Status, &job.Retries,
		&errMsg, &job.CreatedAt, &job.ProcessedAt,
	); err != nil {
		return nil, err
	}
	if errMsg.Valid {
		job.Error = errMsg.String
	}
	return &job, nil
}
