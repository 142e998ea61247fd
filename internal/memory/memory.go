// Package memory is a process-local history store keyed by session.
package memory

import (
	"context"
	"sync"

	"savetrack/internal/core"
	"savetrack/internal/history"
	"savetrack/internal/ports"
)

type Store struct {
	mu       sync.Mutex
	nextID   int64
	sessions map[string][]core.Entry
}

func New() *Store {
	return &Store{sessions: make(map[string][]core.Entry)}
}

// Append stores the entry and assigns it the next ID.
func (s *Store) Append(_ context.Context, e core.Entry) (core.Entry, error) {
	if err := core.ValidateSessionID(e.SessionID); err != nil {
		return core.Entry{}, err
	}
	if err := e.Recompute(); err != nil {
		return core.Entry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	e.ID = s.nextID
	e.Version = 1
	s.sessions[e.SessionID] = append(s.sessions[e.SessionID], e)
	return e, nil
}

func (s *Store) ListEntries(_ context.Context, sessionID string) ([]core.Entry, error) {
	s.mu.Lock()
	out := append([]core.Entry(nil), s.sessions[sessionID]...)
	s.mu.Unlock()
	history.SortByTimestamp(out)
	return out, nil
}

func (s *Store) UpdateEntry(_ context.Context, e core.Entry) (core.Entry, error) {
	if err := e.Recompute(); err != nil {
		return core.Entry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.sessions[e.SessionID]
	for i := range entries {
		if entries[i].ID == e.ID {
			e.Version = entries[i].Version + 1
			entries[i] = e
			return e, nil
		}
	}
	return core.Entry{}, ports.ErrNotFound
}

func (s *Store) DeleteEntry(_ context.Context, sessionID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.sessions[sessionID]
	for i := range entries {
		if entries[i].ID == id {
			s.sessions[sessionID] = append(entries[:i:i], entries[i+1:]...)
			return nil
		}
	}
	return ports.ErrNotFound
}

// ReplaceHistory makes entries the session's history. Rows matching a stored
// row by key and inputs keep their ID and version; changed rows get a new
// version.
func (s *Store) ReplaceHistory(_ context.Context, sessionID string, entries []core.Entry) ([]core.Entry, error) {
	if err := core.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	merged := make([]core.Entry, len(entries))
	for i, e := range entries {
		e.SessionID = sessionID
		if err := e.Recompute(); err != nil {
			return nil, err
		}
		merged[i] = e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	plan := history.Reconcile(s.sessions[sessionID], merged)
	out := make([]core.Entry, 0, len(merged))
	out = append(out, plan.Keep...)
	for _, e := range plan.Update {
		e.Version++
		out = append(out, e)
	}
	for _, e := range plan.Insert {
		s.nextID++
		e.ID = s.nextID
		e.Version = 1
		out = append(out, e)
	}
	history.SortByTimestamp(out)
	s.sessions[sessionID] = out
	return append([]core.Entry(nil), out...), nil
}
