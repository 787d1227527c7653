package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloo-solutions/docinsight/internal/domain"
	"github.com/cloo-solutions/docinsight/internal/telemetry"
)

const DefaultRetrievalTopK = 5

// InsightCache is the cache contract the insight flow relies on. It never
// fails; misses and write failures are reported through return values.
type InsightCache interface {
	CheckCache(ctx context.Context, documentID, prompt string) (*domain.CacheEntry, bool)
	StoreInCache(ctx context.Context, documentID, prompt string, insights domain.Insights, modelID string, chunkCount int) bool
	GetAllInsights(ctx context.Context, documentID string) []domain.CacheEntry
	InvalidateCache(ctx context.Context, documentID string) int
}

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// ChunkSearcher finds the chunks of a document closest to a query vector.
type ChunkSearcher interface {
	SearchSimilar(ctx context.Context, documentID string, embedding []float32, limit int) ([]domain.IndexedChunk, error)
}

// Generator turns a query and context chunks into insights.
type Generator interface {
	Generate(ctx context.Context, query string, chunks []string) (domain.Insights, error)
	ModelID() string
}

// InsightResult is an extraction answer, either fresh or served from cache.
type InsightResult struct {
	DocumentID  string
	Prompt      string
	Insights    domain.Insights
	ModelID     string
	ChunkCount  int
	ExtractedAt time.Time
	Cached      bool
}

func resultFromEntry(e *domain.CacheEntry, cached bool) *InsightResult {
	return &InsightResult{
		DocumentID:  e.DocumentID,
		Prompt:      e.Prompt,
		Insights:    e.Insights,
		ModelID:     e.ModelID,
		ChunkCount:  e.ChunkCount,
		ExtractedAt: e.ExtractedAt(),
		Cached:      cached,
	}
}

type InsightService struct {
	cache     InsightCache
	embedder  EmbeddingClient
	chunks    ChunkSearcher
	generator Generator
	topK      int
	now       func() time.Time
}

func NewInsightService(cache InsightCache, embedder EmbeddingClient, chunks ChunkSearcher, generator Generator, topK int) *InsightService {
	if topK <= 0 {
		topK = DefaultRetrievalTopK
	}
	return &InsightService{
		cache:     cache,
		embedder:  embedder,
		chunks:    chunks,
		generator: generator,
		topK:      topK,
		now:       time.Now,
	}
}

// Extract answers prompt over a document, serving a cached result when one
// exists for the exact prompt.
func (s *InsightService) Extract(ctx context.Context, documentID, prompt string) (*InsightResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "InsightService.Extract", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "extract",
	})
	defer span.End()

	if strings.TrimSpace(documentID) == "" || strings.TrimSpace(prompt) == "" {
		return nil, domain.ErrMissingRequiredField
	}

	if entry, ok := s.cache.CheckCache(ctx, documentID, prompt); ok {
		return resultFromEntry(entry, true), nil
	}

	embedding, err := s.embedder.GenerateEmbedding(ctx, prompt)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to embed prompt: %w", err)
	}

	found, err := s.chunks.SearchSimilar(ctx, documentID, embedding, s.topK)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	if len(found) == 0 {
		return nil, domain.ErrNoIndexedChunks
	}

	texts := make([]string, len(found))
	for i, c := range found {
		texts[i] = c.Text
	}

	insights, err := s.generator.Generate(ctx, prompt, texts)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	modelID := s.generator.ModelID()
	if !s.cache.StoreInCache(ctx, documentID, prompt, insights, modelID, len(found)) {
		log.Printf("insights: result for doc=%s was not cached", documentID)
	}

	return &InsightResult{
		DocumentID:  documentID,
		Prompt:      prompt,
		Insights:    insights,
		ModelID:     modelID,
		ChunkCount:  len(found),
		ExtractedAt: s.now().UTC(),
		Cached:      false,
	}, nil
}

// List returns the live cached results of a document, newest first.
func (s *InsightService) List(ctx context.Context, documentID string) ([]*InsightResult, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, domain.ErrMissingRequiredField
	}

	entries := s.cache.GetAllInsights(ctx, documentID)
	out := make([]*InsightResult, len(entries))
	for i := range entries {
		out[i] = resultFromEntry(&entries[i], true)
	}
	return out, nil
}

// Invalidate drops every cached result of a document.
func (s *InsightService) Invalidate(ctx context.Context, documentID string) (int, error) {
	if strings.TrimSpace(documentID) == "" {
		return 0, domain.ErrMissingRequiredField
	}
	return s.cache.InvalidateCache(ctx, documentID), nil
}
