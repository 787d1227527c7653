package service

import (
	"context"
	"fmt"
	"log"
	"path"
	"strings"
	"time"

	"github.com/cloo-solutions/docinsight/internal/chunking"
	"github.com/cloo-solutions/docinsight/internal/domain"
	"github.com/cloo-solutions/docinsight/internal/extract"
	"github.com/cloo-solutions/docinsight/internal/storage"
	"github.com/cloo-solutions/docinsight/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

// embedConcurrency bounds parallel embedding calls within one document.
const embedConcurrency = 4

// DocumentStorage holds uploaded documents and chunk manifests.
type DocumentStorage interface {
	GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error)
	HeadObject(ctx context.Context, key string) (*storage.ObjectMetadata, error)
	Download(ctx context.Context, key string) ([]byte, error)
	PutManifest(ctx context.Context, documentID string, chunks []domain.Chunk) error
}

type IndexingJobRepository interface {
	Create(ctx context.Context, job *domain.IndexingJob) error
	GetByID(ctx context.Context, id string) (*domain.IndexingJob, error)
}

type ChunkWriter interface {
	ReplaceChunks(ctx context.Context, documentID string, chunks []domain.IndexedChunk) error
}

// CacheInvalidator drops cached insights that a reindex makes stale.
type CacheInvalidator interface {
	InvalidateCache(ctx context.Context, documentID string) int
}

type DocumentServiceConfig struct {
	Chunking      chunking.Config
	PagesPerBatch int
}

type DocumentService struct {
	storage       DocumentStorage
	jobs          IndexingJobRepository
	chunks        ChunkWriter
	embedder      EmbeddingClient
	cache         CacheInvalidator
	chunker       *chunking.Chunker
	pagesPerBatch int
	uuidGen       UUIDGenerator
	now           func() time.Time
	onEnqueue     func()
}

func NewDocumentService(
	storage DocumentStorage,
	jobs IndexingJobRepository,
	chunks ChunkWriter,
	embedder EmbeddingClient,
	cache CacheInvalidator,
	cfg DocumentServiceConfig,
) *DocumentService {
	return NewDocumentServiceWithUUIDGen(storage, jobs, chunks, embedder, cache, cfg, &DefaultUUIDGenerator{})
}

func NewDocumentServiceWithUUIDGen(
	storage DocumentStorage,
	jobs IndexingJobRepository,
	chunks ChunkWriter,
	embedder EmbeddingClient,
	cache CacheInvalidator,
	cfg DocumentServiceConfig,
	uuidGen UUIDGenerator,
) *DocumentService {
	pagesPerBatch := cfg.PagesPerBatch
	if pagesPerBatch <= 0 {
		pagesPerBatch = extract.DefaultPagesPerBatch
	}
	return &DocumentService{
		storage:       storage,
		jobs:          jobs,
		chunks:        chunks,
		embedder:      embedder,
		cache:         cache,
		chunker:       chunking.New(cfg.Chunking),
		pagesPerBatch: pagesPerBatch,
		uuidGen:       uuidGen,
		now:           time.Now,
	}
}

type InitUploadInput struct {
	Filename    string
	ContentType string
}

type InitUploadResult struct {
	DocumentID string
	StorageKey string
	UploadURL  string
}

// InitUpload allocates a document id and a presigned URL to upload it to.
func (s *DocumentService) InitUpload(ctx context.Context, input InitUploadInput) (*InitUploadResult, error) {
	filename := path.Base(strings.TrimSpace(input.Filename))
	if filename == "" || filename == "." || filename == "/" {
		return nil, domain.ErrMissingRequiredField
	}
	contentType := input.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	documentID := s.uuidGen.NewString()
	key := storage.DocumentKey(documentID, filename)

	url, err := s.storage.GenerateUploadURL(ctx, key, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to generate upload URL: %w", err)
	}

	return &InitUploadResult{DocumentID: documentID, StorageKey: key, UploadURL: url}, nil
}

// Enqueue schedules an uploaded document for indexing.
func (s *DocumentService) Enqueue(ctx context.Context, documentID, storageKey string) (*domain.IndexingJob, error) {
	if strings.TrimSpace(documentID) == "" || strings.TrimSpace(storageKey) == "" {
		return nil, domain.ErrMissingRequiredField
	}

	if _, err := s.storage.HeadObject(ctx, storageKey); err != nil {
		return nil, fmt.Errorf("failed to verify uploaded document: %w", err)
	}

	job := domain.NewIndexingJob(s.uuidGen.NewString(), documentID, storageKey, s.now().UTC())
	if err := domain.ValidateIndexingJob(job); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid indexing job", err)
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create indexing job: %w", err)
	}

	log.Printf("documents: queued job=%s doc=%s", job.ID, documentID)
	if s.onEnqueue != nil {
		s.onEnqueue()
	}
	return job, nil
}

// OnEnqueue registers fn to run after each job is queued.
func (s *DocumentService) OnEnqueue(fn func()) {
	s.onEnqueue = fn
}

func (s *DocumentService) GetJob(ctx context.Context, jobID string) (*domain.IndexingJob, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, domain.ErrMissingRequiredField
	}
	return s.jobs.GetByID(ctx, jobID)
}

// ChunkText splits text without touching storage. A nil cfg uses the
// service's configured chunker.
func (s *DocumentService) ChunkText(text, pageRange, documentID string, cfg *chunking.Config) []domain.Chunk {
	c := s.chunker
	if cfg != nil {
		c = chunking.New(*cfg)
	}
	return c.Chunk(text, pageRange, documentID)
}

// ChunkPages chunks extracted pages batch by batch. Chunk indexes restart
// in every batch.
func (s *DocumentService) ChunkPages(documentID string, pages []extract.Page) []domain.Chunk {
	var chunks []domain.Chunk
	for _, b := range extract.Batch(pages, s.pagesPerBatch) {
		chunks = append(chunks, s.chunker.Chunk(b.Text, b.PageRange, documentID)...)
	}
	return chunks
}

// Process indexes one stored document: extract, chunk, embed, replace the
// stored chunks, write the manifest and drop cached insights.
func (s *DocumentService) Process(ctx context.Context, documentID, storageKey string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Process", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "process",
	})
	defer span.End()

	data, err := s.storage.Download(ctx, storageKey)
	if err != nil {
		span.SetError(err)
		return 0, fmt.Errorf("failed to download document: %w", err)
	}

	pages, err := extract.Pages(data, storageKey)
	if err != nil {
		return 0, err
	}

	chunks := s.ChunkPages(documentID, pages)
	if len(chunks) == 0 {
		return 0, domain.ErrEmptyDocument
	}

	indexed, err := s.embed(ctx, chunks)
	if err != nil {
		span.SetError(err)
		return 0, err
	}

	if err := s.chunks.ReplaceChunks(ctx, documentID, indexed); err != nil {
		span.SetError(err)
		return 0, fmt.Errorf("failed to store chunks: %w", err)
	}

	if err := s.storage.PutManifest(ctx, documentID, chunks); err != nil {
		log.Printf("documents: manifest upload failed for doc=%s: %v", documentID, err)
		telemetry.CaptureError(ctx, err)
	}

	dropped := s.cache.InvalidateCache(ctx, documentID)
	log.Printf("documents: indexed doc=%s pages=%d chunks=%d invalidated=%d", documentID, len(pages), len(chunks), dropped)
	return len(chunks), nil
}

func (s *DocumentService) embed(ctx context.Context, chunks []domain.Chunk) ([]domain.IndexedChunk, error) {
	indexed := make([]domain.IndexedChunk, len(chunks))
	now := s.now().UTC()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for i, c := range chunks {
		i, c := i, c
		g.Go(func() error {
			embedding, err := s.embedder.GenerateEmbedding(gctx, c.Text)
			if err != nil {
				return fmt.Errorf("failed to embed chunk %s/%d: %w", c.Metadata.PageRange, c.Metadata.ChunkIndex, err)
			}
			indexed[i] = domain.IndexedChunk{Chunk: c, Embedding: embedding, CreatedAt: now}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return indexed, nil
}
