package commands

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/docinsight/internal/domain"
	"github.com/cloo-solutions/docinsight/internal/storage"
)

// The noop types stand in for subsystems that have no configuration so the
// server can still start. Every call fails with domain.ErrNotConfigured,
// which the API reports as 503.

func notConfigured(what string) error {
	return domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, domain.ErrNotConfigured.Message,
		fmt.Errorf("%s is not configured", what))
}

type NoOpDocumentStorage struct{}

func (NoOpDocumentStorage) GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error) {
	return "", notConfigured("document storage (DOCINSIGHT_S3_ENDPOINT)")
}

func (NoOpDocumentStorage) HeadObject(ctx context.Context, key string) (*storage.ObjectMetadata, error) {
	return nil, notConfigured("document storage (DOCINSIGHT_S3_ENDPOINT)")
}

func (NoOpDocumentStorage) Download(ctx context.Context, key string) ([]byte, error) {
	return nil, notConfigured("document storage (DOCINSIGHT_S3_ENDPOINT)")
}

func (NoOpDocumentStorage) PutManifest(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	return notConfigured("document storage (DOCINSIGHT_S3_ENDPOINT)")
}

type NoOpIndexingJobs struct{}

func (NoOpIndexingJobs) Create(ctx context.Context, job *domain.IndexingJob) error {
	return notConfigured("database (DOCINSIGHT_DATABASE_URL)")
}

func (NoOpIndexingJobs) GetByID(ctx context.Context, id string) (*domain.IndexingJob, error) {
	return nil, notConfigured("database (DOCINSIGHT_DATABASE_URL)")
}

type NoOpChunkIndex struct{}

func (NoOpChunkIndex) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.IndexedChunk) error {
	return notConfigured("database (DOCINSIGHT_DATABASE_URL)")
}

func (NoOpChunkIndex) SearchSimilar(ctx context.Context, documentID string, embedding []float32, limit int) ([]domain.IndexedChunk, error) {
	return nil, notConfigured("database (DOCINSIGHT_DATABASE_URL)")
}

type NoOpModel struct{}

func (NoOpModel) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, notConfigured("OpenAI (DOCINSIGHT_OPENAI_API_KEY)")
}

func (NoOpModel) Generate(ctx context.Context, query string, chunks []string) (domain.Insights, error) {
	return domain.Insights{}, notConfigured("OpenAI (DOCINSIGHT_OPENAI_API_KEY)")
}

func (NoOpModel) ModelID() string {
	return "unconfigured"
}
