package cache

import (
	"context"
	"sort"
	"sync"

	"github.com/cloo-solutions/docinsight/internal/domain"
)

// MemoryStore is an in-process Store. It keeps expired entries until they
// are deleted, like a table whose TTL sweeper has not run yet.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]map[int64]domain.CacheEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]map[int64]domain.CacheEntry)}
}

func (s *MemoryStore) QueryByDocument(_ context.Context, documentID string) ([]domain.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byTS := s.entries[documentID]
	out := make([]domain.CacheEntry, 0, len(byTS))
	for _, e := range byTS {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExtractionTimestamp > out[j].ExtractionTimestamp
	})
	return out, nil
}

func (s *MemoryStore) Put(_ context.Context, entry *domain.CacheEntry) error {
	if err := domain.ValidateCacheEntry(entry); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cache entry", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byTS, ok := s.entries[entry.DocumentID]
	if !ok {
		byTS = make(map[int64]domain.CacheEntry)
		s.entries[entry.DocumentID] = byTS
	}
	if _, exists := byTS[entry.ExtractionTimestamp]; exists {
		return domain.ErrCacheEntryExists
	}
	byTS[entry.ExtractionTimestamp] = *entry
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, documentID string, extractionTimestamp int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byTS := s.entries[documentID]
	delete(byTS, extractionTimestamp)
	if len(byTS) == 0 {
		delete(s.entries, documentID)
	}
	return nil
}
