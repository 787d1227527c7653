package cache

import (
	"context"
	"sync"
	"testing"

	"github.com/cloo-solutions/docinsight/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_PutRejectsDuplicateKey(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	entry := &domain.CacheEntry{DocumentID: "d1", ExtractionTimestamp: 100, ExpiresAt: 200}

	require.NoError(t, s.Put(ctx, entry))
	err := s.Put(ctx, entry)
	assert.ErrorIs(t, err, domain.ErrCacheEntryExists)
}

func TestMemoryStore_PutValidates(t *testing.T) {
	s := NewMemoryStore()

	err := s.Put(context.Background(), &domain.CacheEntry{ExtractionTimestamp: 1, ExpiresAt: 2})
	assert.Error(t, err)
}

func TestMemoryStore_DeleteMissingIsNoop(t *testing.T) {
	s := NewMemoryStore()
	assert.NoError(t, s.Delete(context.Background(), "nope", 1))
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(ts int64) {
			defer wg.Done()
			_ = s.Put(ctx, &domain.CacheEntry{DocumentID: "d1", ExtractionTimestamp: ts, ExpiresAt: ts + 10})
			_, _ = s.QueryByDocument(ctx, "d1")
		}(int64(i))
	}
	wg.Wait()

	entries, err := s.QueryByDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Len(t, entries, 50)
	assert.Equal(t, int64(50), entries[0].ExtractionTimestamp)
}
