//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/cloo-solutions/docinsight/internal/domain"
	"github.com/cloo-solutions/docinsight/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitVector(hot int) []float32 {
	v := make([]float32, 1536)
	v[hot] = 1
	return v
}

func indexed(docID, pageRange string, idx int, text string, hot int) domain.IndexedChunk {
	return domain.IndexedChunk{
		Chunk: domain.Chunk{
			Text:     text,
			Metadata: domain.ChunkMetadata{DocumentID: docID, PageRange: pageRange, ChunkIndex: idx},
		},
		Embedding: unitVector(hot),
	}
}

func TestChunkRepository_ReplaceAndSearch(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkRepository(pool)

	err := repo.ReplaceChunks(ctx, "doc-1", []domain.IndexedChunk{
		indexed("doc-1", "1-10", 0, "invoice header", 0),
		indexed("doc-1", "1-10", 1, "line items", 1),
		indexed("doc-1", "11-12", 0, "payment terms", 2),
	})
	require.NoError(t, err)
	require.NoError(t, repo.ReplaceChunks(ctx, "doc-2", []domain.IndexedChunk{
		indexed("doc-2", "1-1", 0, "other document", 2),
	}))

	n, err := repo.CountByDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	results, err := repo.SearchSimilar(ctx, "doc-1", unitVector(2), 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "payment terms", results[0].Text)
	assert.Equal(t, "11-12", results[0].Metadata.PageRange)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, "doc-1", results[1].Metadata.DocumentID)
}

func TestChunkRepository_ReplaceDropsOldChunks(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkRepository(pool)

	require.NoError(t, repo.ReplaceChunks(ctx, "doc-1", []domain.IndexedChunk{
		indexed("doc-1", "1-10", 0, "a", 0),
		indexed("doc-1", "1-10", 1, "b", 1),
	}))
	require.NoError(t, repo.ReplaceChunks(ctx, "doc-1", []domain.IndexedChunk{
		indexed("doc-1", "1-10", 0, "c", 3),
	}))

	n, err := repo.CountByDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, repo.ReplaceChunks(ctx, "doc-1", nil))
	n, err = repo.CountByDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestChunkRepository_DuplicateKeyRollsBack(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkRepository(pool)
	require.NoError(t, repo.ReplaceChunks(ctx, "doc-1", []domain.IndexedChunk{indexed("doc-1", "1-1", 0, "keep", 0)}))

	err := repo.ReplaceChunks(ctx, "doc-1", []domain.IndexedChunk{
		indexed("doc-1", "1-1", 0, "x", 0),
		indexed("doc-1", "1-1", 0, "y", 1),
	})
	require.Error(t, err)

	results, err := repo.SearchSimilar(ctx, "doc-1", unitVector(0), 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "keep", results[0].Text)
}
