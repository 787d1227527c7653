package domain

import (
	"fmt"
	"time"
)

// ChunkMetadata locates a chunk within its source document.
type ChunkMetadata struct {
	DocumentID string `json:"docId"`
	PageRange  string `json:"pageRange"`
	ChunkIndex int    `json:"chunkIndex"`
}

// Chunk is a contiguous, size-bounded slice of document text.
type Chunk struct {
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// IndexedChunk is a chunk together with its embedding, as stored in the
// vector index.
type IndexedChunk struct {
	Chunk
	Embedding []float32
	Score     float64
	CreatedAt time.Time
}

// ValidateChunk validates a Chunk instance
func ValidateChunk(c *Chunk) error {
	if c == nil {
		return fmt.Errorf("chunk cannot be nil")
	}

	if c.Text == "" {
		return fmt.Errorf("chunk Text is required")
	}

	if c.Metadata.DocumentID == "" {
		return fmt.Errorf("chunk DocumentID is required")
	}

	if c.Metadata.ChunkIndex < 0 {
		return fmt.Errorf("chunk ChunkIndex cannot be negative")
	}

	return nil
}
