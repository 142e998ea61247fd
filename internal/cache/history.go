package cache

import (
	"context"
	"slices"
	"sync"
	"time"

	"savetrack/internal/core"
	"savetrack/internal/ports"
)

// HistoryStore caches ListEntries per session in front of another store.
// Every write drops the session's cached history.
type HistoryStore struct {
	next  ports.HistoryStore
	cache *LRUCache[[]core.Entry]

	// writes counts finished writes. A read that overlapped one does not
	// fill the cache, since it may have loaded the history from before it.
	mu     sync.Mutex
	writes uint64
}

var _ ports.HistoryStore = (*HistoryStore)(nil)

func NewHistoryStore(next ports.HistoryStore, maxSessions int, ttl time.Duration) *HistoryStore {
	return &HistoryStore{next: next, cache: NewLRUCache[[]core.Entry](maxSessions, ttl)}
}

// Cache exposes the underlying LRU for cleanup registration and stats.
func (h *HistoryStore) Cache() *LRUCache[[]core.Entry] { return h.cache }

func (h *HistoryStore) ListEntries(ctx context.Context, sessionID string) ([]core.Entry, error) {
	if entries, ok := h.cache.Get(sessionID); ok {
		return slices.Clone(entries), nil
	}
	h.mu.Lock()
	seen := h.writes
	h.mu.Unlock()

	entries, err := h.next.ListEntries(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	if h.writes == seen {
		h.cache.Set(sessionID, slices.Clone(entries))
	}
	h.mu.Unlock()
	return entries, nil
}

func (h *HistoryStore) invalidate(sessionID string) {
	h.mu.Lock()
	h.writes++
	h.cache.Delete(sessionID)
	h.mu.Unlock()
}

func (h *HistoryStore) Append(ctx context.Context, e core.Entry) (core.Entry, error) {
	defer h.invalidate(e.SessionID)
	return h.next.Append(ctx, e)
}

func (h *HistoryStore) UpdateEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	defer h.invalidate(e.SessionID)
	return h.next.UpdateEntry(ctx, e)
}

func (h *HistoryStore) DeleteEntry(ctx context.Context, sessionID string, id int64) error {
	defer h.invalidate(sessionID)
	return h.next.DeleteEntry(ctx, sessionID, id)
}

func (h *HistoryStore) ReplaceHistory(ctx context.Context, sessionID string, entries []core.Entry) ([]core.Entry, error) {
	defer h.invalidate(sessionID)
	return h.next.ReplaceHistory(ctx, sessionID, entries)
}
