package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/cloo-solutions/docinsight/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkRepository stores document chunks with their embeddings.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// ReplaceChunks swaps the whole chunk set of a document in one transaction.
func (r *ChunkRepository) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.IndexedChunk) error {
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID); err != nil {
			return fmt.Errorf("delete chunks: %w", err)
		}
		if len(chunks) == 0 {
			return nil
		}

		now := time.Now().UTC()
		batch := &pgx.Batch{}
		for _, c := range chunks {
			createdAt := c.CreatedAt
			if createdAt.IsZero() {
				createdAt = now
			}
			batch.Queue(
				`INSERT INTO document_chunks (document_id, page_range, chunk_index, content, embedding, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				documentID, c.Metadata.PageRange, c.Metadata.ChunkIndex, c.Text, pgvector.NewVector(c.Embedding), createdAt,
			)
		}

		br := tx.SendBatch(ctx, batch)
		for i := range chunks {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("insert chunk %d: %w", i, err)
			}
		}
		return br.Close()
	})
}

// SearchSimilar returns the chunks of a document closest to embedding by
// cosine distance. Score is 1 - distance.
func (r *ChunkRepository) SearchSimilar(ctx context.Context, documentID string, embedding []float32, limit int) ([]domain.IndexedChunk, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := r.db.Query(ctx,
		`SELECT document_id, page_range, chunk_index, content, created_at,
		        1 - (embedding <=> $2) AS score
		 FROM document_chunks
		 WHERE document_id = $1
		 ORDER BY embedding <=> $2
		 LIMIT $3`,
		documentID, pgvector.NewVector(embedding), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.IndexedChunk
	for rows.Next() {
		var c domain.IndexedChunk
		if err := rows.Scan(
			&c.Metadata.DocumentID, &c.Metadata.PageRange, &c.Metadata.ChunkIndex,
			&c.Text, &c.CreatedAt, &c.Score,
		); err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// CountByDocument returns how many chunks are indexed for a document.
func (r *ChunkRepository) CountByDocument(ctx context.Context, documentID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM document_chunks WHERE document_id = $1`,
		documentID,
	).Scan(&n)
	return n, err
}
