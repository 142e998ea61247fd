package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"savetrack/internal/core"
	"savetrack/internal/memory"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a = %v, %v", v, ok)
	}
	st := c.Stats()
	if st.Evictions != 1 || st.Hits != 2 || st.Misses != 1 || st.Size != 2 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestLRUExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Second)
	c.now = func() time.Time { return now }
	c.Set("a", "x")
	c.Set("b", "y")

	now = now.Add(2 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatal("a should be expired")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired = %d, want 1", n)
	}
	if c.Size() != 0 {
		t.Fatalf("Size = %d", c.Size())
	}
}

func TestManagerStopIsIdempotent(t *testing.T) {
	m := NewManager()
	m.Register(NewLRUCache[int](1, time.Millisecond))
	m.StartCleanup(context.Background(), time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	m.Stop()
	m.Stop()
}

func TestHistoryStoreInvalidatesOnWrite(t *testing.T) {
	ctx := context.Background()
	store := NewHistoryStore(memory.New(), 8, time.Minute)

	e, err := core.NewEntry("s1", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), core.SavingsState{
		Goal: core.Units(6000), Current: core.Units(1000),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.ListEntries(ctx, "s1"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Append(ctx, e); err != nil {
		t.Fatal(err)
	}
	got, err := store.ListEntries(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected the appended entry after invalidation, got %d", len(got))
	}

	got[0].Goal = core.Units(1)
	again, _ := store.ListEntries(ctx, "s1")
	if again[0].Goal != core.Units(6000) {
		t.Fatal("cached slice must not alias caller data")
	}
	if st := store.Cache().Stats(); st.Hits != 1 {
		t.Fatalf("expected one cache hit, got %+v", st)
	}
}

// pausingStore holds the first ListEntries after it has read the history.
type pausingStore struct {
	*memory.Store
	fetched chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *pausingStore) ListEntries(ctx context.Context, sessionID string) ([]core.Entry, error) {
	entries, err := p.Store.ListEntries(ctx, sessionID)
	p.once.Do(func() {
		close(p.fetched)
		<-p.release
	})
	return entries, err
}

func TestHistoryStoreSkipsReadsThatOverlapWrites(t *testing.T) {
	ctx := context.Background()
	next := &pausingStore{Store: memory.New(), fetched: make(chan struct{}), release: make(chan struct{})}
	store := NewHistoryStore(next, 8, time.Minute)

	done := make(chan []core.Entry)
	go func() {
		entries, _ := store.ListEntries(ctx, "s1")
		done <- entries
	}()
	<-next.fetched

	e, err := core.NewEntry("s1", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), core.SavingsState{
		Goal: core.Units(6000), Current: core.Units(1000),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Append(ctx, e); err != nil {
		t.Fatal(err)
	}
	close(next.release)
	if stale := <-done; len(stale) != 0 {
		t.Fatalf("read started before the write, got %d entries", len(stale))
	}

	got, err := store.ListEntries(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("stale history was cached, got %d entries", len(got))
	}
}
