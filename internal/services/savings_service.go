// Package services orchestrates savings evaluation, history storage and sync
// publishing.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"savetrack/internal/core"
	"savetrack/internal/history"
	"savetrack/internal/ports"
)

// EntryPublisher announces saved entries to the sync worker.
type EntryPublisher interface {
	PublishEntrySync(ctx context.Context, sessionID string, id, version int64) error
}

// TrackerDefaults are the form values used before a session has history.
type TrackerDefaults struct {
	Currency      string
	Goal          core.Money
	MonthlyTarget core.Money
	Step          core.Money
}

func DefaultTrackerDefaults() TrackerDefaults {
	return TrackerDefaults{
		Currency:      core.DefaultCurrency,
		Goal:          core.Units(6000),
		MonthlyTarget: core.Units(3000),
		Step:          core.Units(500),
	}
}

// MergeResult summarizes a history upload.
type MergeResult struct {
	Existing int
	Uploaded int
	Kept     int
	// Added rows were not stored before; Updated rows changed inputs.
	Added   int
	Updated int
	Entries []core.Entry
}

// SavingsService evaluates savings inputs and manages per-session history.
type SavingsService struct {
	store     ports.HistoryStore
	publisher EntryPublisher
	scale     core.HappinessScale
	defaults  TrackerDefaults
	now       func() time.Time
}

type Option func(*SavingsService)

func WithScale(sc core.HappinessScale) Option {
	return func(s *SavingsService) { s.scale = sc }
}

func WithDefaults(d TrackerDefaults) Option {
	return func(s *SavingsService) { s.defaults = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *SavingsService) { s.now = now }
}

// NewSavingsService wires a store and an optional publisher.
func NewSavingsService(store ports.HistoryStore, publisher EntryPublisher, opts ...Option) *SavingsService {
	s := &SavingsService{
		store:     store,
		publisher: publisher,
		scale:     core.DefaultHappinessScale(),
		defaults:  DefaultTrackerDefaults(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *SavingsService) Scale() core.HappinessScale { return s.scale }

func (s *SavingsService) Currency() string { return s.defaults.Currency }

// Evaluate computes the snapshot for state. When the previous month is not
// given it is taken from the session's history: the happiness score is the
// trend over months before the current one, and the latest of those months is
// the comparison base.
func (s *SavingsService) Evaluate(ctx context.Context, sessionID string, state core.SavingsState) (core.Snapshot, error) {
	base := s.scale.Start
	if sessionID != "" {
		entries, err := s.store.ListEntries(ctx, sessionID)
		if err != nil {
			return core.Snapshot{}, fmt.Errorf("load history: %w", err)
		}
		trend := s.scale.Trend(beforeMonth(entries, s.now()))
		base = trend.Score
		if last, ok := trend.Last(); ok && state.PreviousMonthCurrent == nil {
			prev := last.Saved
			state.PreviousMonthCurrent = &prev
		}
	}
	return core.Evaluate(state, s.scale, base)
}

// SaveEntry appends the state to the session's history stamped with the current time.
func (s *SavingsService) SaveEntry(ctx context.Context, sessionID string, state core.SavingsState) (core.Entry, error) {
	if err := core.ValidateSessionID(sessionID); err != nil {
		return core.Entry{}, err
	}
	e, err := core.NewEntry(sessionID, s.now().UTC(), state)
	if err != nil {
		return core.Entry{}, err
	}
	saved, err := s.store.Append(ctx, e)
	if err != nil {
		return core.Entry{}, fmt.Errorf("save entry: %w", err)
	}

	slog.InfoContext(ctx, "Entry saved",
		"session_id", sessionID,
		"entry_id", saved.ID,
		"goal_cents", saved.Goal.Cents,
		"current_cents", saved.CurrentSaved.Cents)

	s.publish(ctx, saved)
	return saved, nil
}

func (s *SavingsService) History(ctx context.Context, sessionID string) ([]core.Entry, error) {
	if err := core.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	entries, err := s.store.ListEntries(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

// UpdateEntry replaces the inputs and timestamp of one row.
func (s *SavingsService) UpdateEntry(ctx context.Context, sessionID string, id int64, state core.SavingsState, ts time.Time) (core.Entry, error) {
	if err := core.ValidateSessionID(sessionID); err != nil {
		return core.Entry{}, err
	}
	e, err := core.NewEntry(sessionID, ts, state)
	if err != nil {
		return core.Entry{}, err
	}
	e.ID = id
	updated, err := s.store.UpdateEntry(ctx, e)
	if err != nil {
		return core.Entry{}, fmt.Errorf("update entry %d: %w", id, err)
	}
	slog.InfoContext(ctx, "Entry updated", "session_id", sessionID, "entry_id", id)
	s.publish(ctx, updated)
	return updated, nil
}

func (s *SavingsService) DeleteEntry(ctx context.Context, sessionID string, id int64) error {
	if err := core.ValidateSessionID(sessionID); err != nil {
		return err
	}
	if err := s.store.DeleteEntry(ctx, sessionID, id); err != nil {
		return fmt.Errorf("delete entry %d: %w", id, err)
	}
	slog.InfoContext(ctx, "Entry deleted", "session_id", sessionID, "entry_id", id)
	return nil
}

// MergeHistory merges uploaded rows into the session's history and replaces
// it. Only rows that are new or whose inputs changed are published for sync.
func (s *SavingsService) MergeHistory(ctx context.Context, sessionID string, uploaded []core.Entry) (MergeResult, error) {
	if err := core.ValidateSessionID(sessionID); err != nil {
		return MergeResult{}, err
	}
	existing, err := s.store.ListEntries(ctx, sessionID)
	if err != nil {
		return MergeResult{}, fmt.Errorf("load history: %w", err)
	}

	merged := history.Merge(existing, uploaded)
	stored, err := s.store.ReplaceHistory(ctx, sessionID, merged)
	if err != nil {
		return MergeResult{}, fmt.Errorf("replace history: %w", err)
	}

	versions := make(map[int64]int64, len(existing))
	for _, e := range existing {
		versions[e.ID] = e.Version
	}
	var changed []core.Entry
	added := 0
	for _, e := range stored {
		v, ok := versions[e.ID]
		if !ok {
			added++
		}
		if !ok || v != e.Version {
			changed = append(changed, e)
		}
	}
	s.publishAll(ctx, changed)

	slog.InfoContext(ctx, "History merged",
		"session_id", sessionID,
		"existing", len(existing),
		"uploaded", len(uploaded),
		"kept", len(stored),
		"added", added,
		"updated", len(changed)-added)

	return MergeResult{
		Existing: len(existing),
		Uploaded: len(uploaded),
		Kept:     len(stored),
		Added:    added,
		Updated:  len(changed) - added,
		Entries:  stored,
	}, nil
}

// Defaults returns the form values for a session: goal and monthly target of
// the latest entry, otherwise the configured defaults. Current savings are the
// latest recorded balance, so an untouched form never reads as a drop.
func (s *SavingsService) Defaults(ctx context.Context, sessionID string) (core.SavingsState, error) {
	state := core.SavingsState{Goal: s.defaults.Goal, MonthlyTarget: s.defaults.MonthlyTarget}
	if sessionID == "" {
		return state, nil
	}
	entries, err := s.store.ListEntries(ctx, sessionID)
	if err != nil {
		return state, fmt.Errorf("list entries: %w", err)
	}
	if n := len(entries); n > 0 {
		latest := entries[n-1]
		state.Goal = latest.Goal
		state.MonthlyTarget = latest.MonthlyTarget
		state.Current = latest.CurrentSaved
	}
	return state, nil
}

func (s *SavingsService) InputStep() core.Money { return s.defaults.Step }

// Trend folds the happiness evaluator over the whole session history.
func (s *SavingsService) Trend(ctx context.Context, sessionID string) (core.HappinessTrend, error) {
	entries, err := s.History(ctx, sessionID)
	if err != nil {
		return core.HappinessTrend{}, err
	}
	return s.scale.Trend(entries), nil
}

func (s *SavingsService) publish(ctx context.Context, e core.Entry) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEntrySync(ctx, e.SessionID, e.ID, e.Version); err != nil {
		// The entry is stored; the worker's pending scan picks it up later.
		slog.ErrorContext(ctx, "Failed to publish sync message", "entry_id", e.ID, "error", err)
	}
}

func (s *SavingsService) publishAll(ctx context.Context, entries []core.Entry) {
	if s.publisher == nil || len(entries) == 0 {
		return
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, e := range entries {
		g.Go(func() error {
			s.publish(gctx, e)
			return nil
		})
	}
	_ = g.Wait()
}

// beforeMonth returns entries recorded before the calendar month of now.
func beforeMonth(entries []core.Entry, now time.Time) []core.Entry {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	out := make([]core.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Timestamp.Before(start) {
			out = append(out, e)
		}
	}
	return out
}
