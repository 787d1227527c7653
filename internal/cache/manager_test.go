package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloo-solutions/docinsight/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockStore is a mock implementation of Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) QueryByDocument(ctx context.Context, documentID string) ([]domain.CacheEntry, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CacheEntry), args.Error(1)
}

func (m *MockStore) Put(ctx context.Context, entry *domain.CacheEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockStore) Delete(ctx context.Context, documentID string, extractionTimestamp int64) error {
	args := m.Called(ctx, documentID, extractionTimestamp)
	return args.Error(0)
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager(ttl time.Duration) (*Manager, *MemoryStore, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	store := NewMemoryStore()
	return NewManagerWithClock(store, Config{TTL: ttl}, clock.Now), store, clock
}

func sampleInsights(summary string) domain.Insights {
	return domain.Insights{
		Summary:    summary,
		KeyPoints:  []string{"total due 120 EUR"},
		Entities:   []domain.Entity{{Name: "ACME", Type: "organization", Context: "issuer"}},
		Answer:     "120 EUR",
		Confidence: 0.9,
		Metadata:   map[string]any{"chunksAnalyzed": 3, "relevance": "high"},
	}
}

func TestManager_StoreThenCheckHits(t *testing.T) {
	m, _, _ := newTestManager(time.Hour)
	ctx := context.Background()

	ok := m.StoreInCache(ctx, "d1", "p", sampleInsights("s1"), "gpt-4o-mini", 3)
	require.True(t, ok)

	entry, hit := m.CheckCache(ctx, "d1", "p")
	require.True(t, hit)
	assert.Equal(t, "d1", entry.DocumentID)
	assert.Equal(t, "p", entry.Prompt)
	assert.Equal(t, "s1", entry.Insights.Summary)
	assert.Equal(t, "gpt-4o-mini", entry.ModelID)
	assert.Equal(t, 3, entry.ChunkCount)
	assert.Equal(t, entry.ExtractionTimestamp+3600, entry.ExpiresAt)
}

func TestManager_CheckCacheMatchesPromptExactly(t *testing.T) {
	m, _, _ := newTestManager(time.Hour)
	ctx := context.Background()

	require.True(t, m.StoreInCache(ctx, "d1", "What is the total?", sampleInsights("s"), "m", 1))

	_, hit := m.CheckCache(ctx, "d1", "what is the total?")
	assert.False(t, hit)
	_, hit = m.CheckCache(ctx, "d2", "What is the total?")
	assert.False(t, hit)
}

func TestManager_ExpiredEntryMisses(t *testing.T) {
	m, store, clock := newTestManager(time.Hour)
	ctx := context.Background()

	require.True(t, m.StoreInCache(ctx, "d1", "p", sampleInsights("s"), "m", 1))
	clock.Advance(time.Hour + time.Second)

	_, hit := m.CheckCache(ctx, "d1", "p")
	assert.False(t, hit)
	assert.Empty(t, m.GetAllInsights(ctx, "d1"))

	// still physically present until invalidated
	raw, err := store.QueryByDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Len(t, raw, 1)
}

func TestManager_NewestEntryWins(t *testing.T) {
	m, _, clock := newTestManager(24 * time.Hour)
	ctx := context.Background()

	require.True(t, m.StoreInCache(ctx, "d1", "p", sampleInsights("s1"), "m", 1))
	clock.Advance(10 * time.Second)
	require.True(t, m.StoreInCache(ctx, "d1", "p", sampleInsights("s2"), "m", 1))

	entry, hit := m.CheckCache(ctx, "d1", "p")
	require.True(t, hit)
	assert.Equal(t, "s2", entry.Insights.Summary)
}

func TestManager_SameSecondWritesDoNotOverwrite(t *testing.T) {
	m, store, clock := newTestManager(24 * time.Hour)
	ctx := context.Background()

	require.True(t, m.StoreInCache(ctx, "d1", "p", sampleInsights("s1"), "m", 1))
	require.True(t, m.StoreInCache(ctx, "d1", "p", sampleInsights("s2"), "m", 1))

	raw, err := store.QueryByDocument(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, raw, 2)
	assert.Equal(t, clock.Now().Unix()+1, raw[0].ExtractionTimestamp)

	entry, hit := m.CheckCache(ctx, "d1", "p")
	require.True(t, hit)
	assert.Equal(t, "s2", entry.Insights.Summary)
}

func TestManager_GetAllInsightsNewestFirst(t *testing.T) {
	m, _, clock := newTestManager(24 * time.Hour)
	ctx := context.Background()

	for _, prompt := range []string{"p1", "p2", "p3"} {
		require.True(t, m.StoreInCache(ctx, "d1", prompt, sampleInsights(prompt), "m", 1))
		clock.Advance(time.Minute)
	}

	entries := m.GetAllInsights(ctx, "d1")
	require.Len(t, entries, 3)
	assert.Equal(t, "p3", entries[0].Prompt)
	assert.Equal(t, "p2", entries[1].Prompt)
	assert.Equal(t, "p1", entries[2].Prompt)
}

func TestManager_InvalidateRemovesEverything(t *testing.T) {
	m, _, clock := newTestManager(time.Hour)
	ctx := context.Background()

	require.True(t, m.StoreInCache(ctx, "d1", "p1", sampleInsights("s"), "m", 1))
	clock.Advance(2 * time.Hour)
	require.True(t, m.StoreInCache(ctx, "d1", "p2", sampleInsights("s"), "m", 1))
	require.True(t, m.StoreInCache(ctx, "d2", "p1", sampleInsights("s"), "m", 1))

	assert.Equal(t, 2, m.InvalidateCache(ctx, "d1"))
	assert.Equal(t, 0, m.InvalidateCache(ctx, "d1"))
	assert.Empty(t, m.GetAllInsights(ctx, "d1"))
	assert.Len(t, m.GetAllInsights(ctx, "d2"), 1)
}

func TestManager_DefaultTTL(t *testing.T) {
	m := NewManager(NewMemoryStore(), Config{})
	assert.Equal(t, DefaultTTL, m.TTL())
}

func TestManager_QueryFailureDegrades(t *testing.T) {
	store := new(MockStore)
	m := NewManager(store, Config{})
	ctx := context.Background()

	store.On("QueryByDocument", mock.Anything, "d1").Return(nil, errors.New("throttled"))

	entry, hit := m.CheckCache(ctx, "d1", "p")
	assert.Nil(t, entry)
	assert.False(t, hit)
	assert.Empty(t, m.GetAllInsights(ctx, "d1"))
	assert.Equal(t, 0, m.InvalidateCache(ctx, "d1"))
	store.AssertExpectations(t)
}

func TestManager_PutFailureReturnsFalse(t *testing.T) {
	store := new(MockStore)
	m := NewManager(store, Config{})

	store.On("Put", mock.Anything, mock.AnythingOfType("*domain.CacheEntry")).Return(errors.New("unavailable")).Once()

	assert.False(t, m.StoreInCache(context.Background(), "d1", "p", sampleInsights("s"), "m", 1))
	store.AssertExpectations(t)
}

func TestManager_CollisionRetriesAreBounded(t *testing.T) {
	store := new(MockStore)
	m := NewManager(store, Config{})

	store.On("Put", mock.Anything, mock.Anything).Return(domain.ErrCacheEntryExists)

	assert.False(t, m.StoreInCache(context.Background(), "d1", "p", sampleInsights("s"), "m", 1))
	store.AssertNumberOfCalls(t, "Put", maxCollisionRetries+1)
}

func TestManager_InvalidateStopsOnDeleteFailure(t *testing.T) {
	store := new(MockStore)
	m := NewManager(store, Config{})

	entries := []domain.CacheEntry{
		{DocumentID: "d1", ExtractionTimestamp: 30},
		{DocumentID: "d1", ExtractionTimestamp: 20},
		{DocumentID: "d1", ExtractionTimestamp: 10},
	}
	store.On("QueryByDocument", mock.Anything, "d1").Return(entries, nil)
	store.On("Delete", mock.Anything, "d1", int64(30)).Return(nil)
	store.On("Delete", mock.Anything, "d1", int64(20)).Return(errors.New("boom"))

	assert.Equal(t, 1, m.InvalidateCache(context.Background(), "d1"))
	store.AssertNotCalled(t, "Delete", mock.Anything, "d1", int64(10))
}
