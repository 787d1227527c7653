package domain

import (
	"fmt"
	"time"
)

// CacheEntry is one cached extraction result, keyed by
// (DocumentID, ExtractionTimestamp).
type CacheEntry struct {
	DocumentID          string
	ExtractionTimestamp int64
	Prompt              string
	Insights            Insights
	ModelID             string
	ChunkCount          int
	ExpiresAt           int64
}

// NewCacheEntry creates an entry stamped at createdAt that expires after ttl.
func NewCacheEntry(
	documentID, prompt string,
	insights Insights,
	modelID string,
	chunkCount int,
	createdAt time.Time,
	ttl time.Duration,
) *CacheEntry {
	ts := createdAt.Unix()
	return &CacheEntry{
		DocumentID:          documentID,
		ExtractionTimestamp: ts,
		Prompt:              prompt,
		Insights:            insights,
		ModelID:             modelID,
		ChunkCount:          chunkCount,
		ExpiresAt:           ts + int64(ttl/time.Second),
	}
}

// IsExpired reports whether the entry is no longer visible at now.
func (e *CacheEntry) IsExpired(now time.Time) bool {
	return now.Unix() >= e.ExpiresAt
}

// ExtractedAt returns the extraction timestamp as a time.
func (e *CacheEntry) ExtractedAt() time.Time {
	return time.Unix(e.ExtractionTimestamp, 0).UTC()
}

// ValidateCacheEntry validates a CacheEntry instance
func ValidateCacheEntry(e *CacheEntry) error {
	if e == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	if e.DocumentID == "" {
		return fmt.Errorf("cache entry DocumentID is required")
	}

	if e.ExtractionTimestamp <= 0 {
		return fmt.Errorf("cache entry ExtractionTimestamp must be positive")
	}

	if e.ExpiresAt <= e.ExtractionTimestamp {
		return fmt.Errorf("cache entry ExpiresAt must be after ExtractionTimestamp")
	}

	return nil
}
