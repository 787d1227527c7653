// Package cache stores and retrieves extraction results per document and
// prompt with time-based expiry.
//
// The Manager never returns errors to its callers. A failing backing store
// is logged, reported to Sentry and surfaces as a miss, an unsuccessful
// write, an empty listing or a zero deletion count.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/cloo-solutions/docinsight/internal/domain"
	"github.com/cloo-solutions/docinsight/internal/telemetry"
)

// DefaultTTL is how long a stored extraction stays visible.
const DefaultTTL = 24 * time.Hour

// maxCollisionRetries bounds how far a write may be pushed forward when
// another entry already holds the same (document, second) key.
const maxCollisionRetries = 5

// Store is the key-value backend of the cache. Entries are keyed by
// (DocumentID, ExtractionTimestamp).
type Store interface {
	// QueryByDocument returns every entry for the document, newest first,
	// expired ones included.
	QueryByDocument(ctx context.Context, documentID string) ([]domain.CacheEntry, error)
	// Put writes a new entry and must not overwrite an existing key; a
	// collision is reported as domain.ErrCacheEntryExists.
	Put(ctx context.Context, entry *domain.CacheEntry) error
	Delete(ctx context.Context, documentID string, extractionTimestamp int64) error
}

type Config struct {
	TTL time.Duration
}

type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

func NewManager(store Store, cfg Config) *Manager {
	return NewManagerWithClock(store, cfg, time.Now)
}

// NewManagerWithClock is NewManager with an injectable clock.
func NewManagerWithClock(store Store, cfg Config, now func() time.Time) *Manager {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Manager{store: store, ttl: ttl, now: now}
}

// TTL returns the expiry applied to new entries.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// CheckCache returns the newest non-expired entry whose prompt equals prompt
// exactly.
func (m *Manager) CheckCache(ctx context.Context, documentID, prompt string) (*domain.CacheEntry, bool) {
	ctx, span := telemetry.StartSpan(ctx, "CacheManager.CheckCache", telemetry.SpanAttributes{DocumentID: documentID, Operation: "check"})
	defer span.End()

	entries, err := m.store.QueryByDocument(ctx, documentID)
	if err != nil {
		m.report(ctx, fmt.Errorf("cache: check %s: %w", documentID, err))
		return nil, false
	}

	now := m.now()
	var best *domain.CacheEntry
	for i := range entries {
		e := &entries[i]
		if e.Prompt != prompt || e.IsExpired(now) {
			continue
		}
		if best == nil || e.ExtractionTimestamp > best.ExtractionTimestamp {
			best = e
		}
	}
	if best == nil {
		log.Printf("cache: miss doc=%s prompt=%q", documentID, truncate(prompt, 50))
		return nil, false
	}

	log.Printf("cache: hit doc=%s prompt=%q extracted_at=%d", documentID, truncate(prompt, 50), best.ExtractionTimestamp)
	entry := *best
	return &entry, true
}

// StoreInCache records a new extraction result and reports whether it was
// written.
func (m *Manager) StoreInCache(
	ctx context.Context,
	documentID, prompt string,
	insights domain.Insights,
	modelID string,
	chunkCount int,
) bool {
	ctx, span := telemetry.StartSpan(ctx, "CacheManager.StoreInCache", telemetry.SpanAttributes{DocumentID: documentID, Operation: "store"})
	defer span.End()

	entry := domain.NewCacheEntry(documentID, prompt, insights, modelID, chunkCount, m.now(), m.ttl)

	for attempt := 0; ; attempt++ {
		err := m.store.Put(ctx, entry)
		if err == nil {
			log.Printf("cache: stored doc=%s prompt=%q extracted_at=%d", documentID, truncate(prompt, 50), entry.ExtractionTimestamp)
			return true
		}
		if !errors.Is(err, domain.ErrCacheEntryExists) || attempt >= maxCollisionRetries {
			m.report(ctx, fmt.Errorf("cache: store %s: %w", documentID, err))
			return false
		}
		entry.ExtractionTimestamp++
		entry.ExpiresAt++
	}
}

// GetAllInsights lists the non-expired entries for a document, newest first.
func (m *Manager) GetAllInsights(ctx context.Context, documentID string) []domain.CacheEntry {
	ctx, span := telemetry.StartSpan(ctx, "CacheManager.GetAllInsights", telemetry.SpanAttributes{DocumentID: documentID, Operation: "list"})
	defer span.End()

	entries, err := m.store.QueryByDocument(ctx, documentID)
	if err != nil {
		m.report(ctx, fmt.Errorf("cache: list %s: %w", documentID, err))
		return []domain.CacheEntry{}
	}

	now := m.now()
	live := make([]domain.CacheEntry, 0, len(entries))
	for _, e := range entries {
		if !e.IsExpired(now) {
			live = append(live, e)
		}
	}
	sort.SliceStable(live, func(i, j int) bool {
		return live[i].ExtractionTimestamp > live[j].ExtractionTimestamp
	})
	return live
}

// InvalidateCache deletes every entry for a document, expired ones included,
// and returns how many were removed. Deletion stops at the first failure.
func (m *Manager) InvalidateCache(ctx context.Context, documentID string) int {
	ctx, span := telemetry.StartSpan(ctx, "CacheManager.InvalidateCache", telemetry.SpanAttributes{DocumentID: documentID, Operation: "invalidate"})
	defer span.End()

	entries, err := m.store.QueryByDocument(ctx, documentID)
	if err != nil {
		m.report(ctx, fmt.Errorf("cache: invalidate %s: %w", documentID, err))
		return 0
	}

	deleted := 0
	for _, e := range entries {
		if err := m.store.Delete(ctx, e.DocumentID, e.ExtractionTimestamp); err != nil {
			m.report(ctx, fmt.Errorf("cache: invalidate %s at %d: %w", documentID, e.ExtractionTimestamp, err))
			return deleted
		}
		deleted++
	}

	log.Printf("cache: invalidated %d entries for doc=%s", deleted, documentID)
	return deleted
}

func (m *Manager) report(ctx context.Context, err error) {
	log.Printf("%v", err)
	telemetry.CaptureError(ctx, err)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
