package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"savetrack/internal/core"
	"savetrack/internal/history"
	"savetrack/internal/ports"

	_ "modernc.org/sqlite"
)

// Sync states of a stored entry.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between the web server goroutines.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Append implements ports.HistoryWriter.
func (r *SQLiteRepository) Append(ctx context.Context, e core.Entry) (core.Entry, error) {
	if err := core.ValidateSessionID(e.SessionID); err != nil {
		return core.Entry{}, err
	}
	if err := e.Recompute(); err != nil {
		return core.Entry{}, err
	}
	row, err := r.queries.CreateEntry(ctx, createParams(e.SessionID, e))
	if err != nil {
		return core.Entry{}, fmt.Errorf("create entry: %w", err)
	}

	slog.InfoContext(ctx, "Entry saved to SQLite",
		"id", row.ID,
		"session_id", row.SessionID,
		"goal_cents", row.GoalCents,
		"current_cents", row.CurrentCents)

	return toCore(row), nil
}

// ListEntries implements ports.HistoryReader.
func (r *SQLiteRepository) ListEntries(ctx context.Context, sessionID string) ([]core.Entry, error) {
	rows, err := r.queries.ListEntriesBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	out := make([]core.Entry, len(rows))
	for i, row := range rows {
		out[i] = toCore(row)
	}
	return out, nil
}

// UpdateEntry implements ports.HistoryEditor. The entry goes back to pending
// sync with a bumped version.
func (r *SQLiteRepository) UpdateEntry(ctx context.Context, e core.Entry) (core.Entry, error) {
	if err := e.Recompute(); err != nil {
		return core.Entry{}, err
	}
	row, err := r.queries.UpdateEntry(ctx, updateParams(e.SessionID, e))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, ports.ErrNotFound
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("update entry %d: %w", e.ID, err)
	}
	return toCore(row), nil
}

// DeleteEntry implements ports.HistoryEditor.
func (r *SQLiteRepository) DeleteEntry(ctx context.Context, sessionID string, id int64) error {
	n, err := r.queries.DeleteEntry(ctx, DeleteEntryParams{ID: id, SessionID: sessionID})
	if err != nil {
		return fmt.Errorf("delete entry %d: %w", id, err)
	}
	if n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// ReplaceHistory implements ports.HistoryReplacer inside one transaction.
// Rows whose (timestamp, current_saved) key and inputs are unchanged keep
// their ID, version and sync status; changed rows are updated and go back to
// pending; new rows are inserted and rows missing from entries are deleted.
func (r *SQLiteRepository) ReplaceHistory(ctx context.Context, sessionID string, entries []core.Entry) ([]core.Entry, error) {
	if err := core.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	entries = append([]core.Entry(nil), entries...)
	for i := range entries {
		if err := entries[i].Recompute(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	rows, err := q.ListEntriesBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	stored := make([]core.Entry, len(rows))
	for i, row := range rows {
		stored[i] = toCore(row)
	}

	plan := history.Reconcile(stored, entries)
	for _, id := range plan.Remove {
		if _, err := q.DeleteEntry(ctx, DeleteEntryParams{ID: id, SessionID: sessionID}); err != nil {
			return nil, fmt.Errorf("delete entry %d: %w", id, err)
		}
	}
	for _, e := range plan.Update {
		if _, err := q.UpdateEntry(ctx, updateParams(sessionID, e)); err != nil {
			return nil, fmt.Errorf("update entry %d: %w", e.ID, err)
		}
	}
	for _, e := range plan.Insert {
		if _, err := q.CreateEntry(ctx, createParams(sessionID, e)); err != nil {
			return nil, fmt.Errorf("insert entry: %w", err)
		}
	}

	rows, err = q.ListEntriesBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("reload history: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit history: %w", err)
	}

	out := make([]core.Entry, len(rows))
	for i, row := range rows {
		out[i] = toCore(row)
	}
	slog.InfoContext(ctx, "History replaced",
		"session_id", sessionID,
		"kept", len(plan.Keep),
		"updated", len(plan.Update),
		"inserted", len(plan.Insert),
		"removed", len(plan.Remove))
	return out, nil
}

// GetEntry retrieves a single entry by ID regardless of session.
func (r *SQLiteRepository) GetEntry(ctx context.Context, id int64) (core.Entry, error) {
	row, err := r.queries.GetEntry(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, ports.ErrNotFound
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("get entry by id: %w", err)
	}
	return toCore(row), nil
}

// PendingSyncEntry is the minimal data needed to requeue a sync message.
type PendingSyncEntry struct {
	ID        int64
	SessionID string
	Version   int64
	CreatedAt time.Time
}

// GetPendingSyncEntries returns entries not yet mirrored, oldest first.
func (r *SQLiteRepository) GetPendingSyncEntries(ctx context.Context, limit int) ([]PendingSyncEntry, error) {
	rows, err := r.queries.GetPendingSyncEntries(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync entries: %w", err)
	}
	out := make([]PendingSyncEntry, len(rows))
	for i, row := range rows {
		out[i] = PendingSyncEntry{
			ID:        row.ID,
			SessionID: row.SessionID,
			Version:   row.Version,
			CreatedAt: time.Unix(row.CreatedAt, 0).UTC(),
		}
	}
	return out, nil
}

// MarkSynced marks an entry as mirrored.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if err := r.queries.MarkEntrySynced(ctx, id); err != nil {
		return fmt.Errorf("mark entry synced: %w", err)
	}
	slog.InfoContext(ctx, "Entry marked as synced", "id", id)
	return nil
}

// MarkSyncError marks an entry as failed to mirror.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if err := r.queries.MarkEntrySyncError(ctx, id); err != nil {
		return fmt.Errorf("mark entry sync error: %w", err)
	}
	slog.WarnContext(ctx, "Entry marked with sync error", "id", id)
	return nil
}

// CountEntries returns the number of stored entries across sessions.
func (r *SQLiteRepository) CountEntries(ctx context.Context) (int64, error) {
	n, err := r.queries.CountEntries(ctx)
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

func createParams(sessionID string, e core.Entry) CreateEntryParams {
	return CreateEntryParams{
		SessionID:          sessionID,
		RecordedAt:         e.Timestamp.UTC().UnixNano(),
		GoalCents:          e.Goal.Cents,
		MonthlyTargetCents: e.MonthlyTarget.Cents,
		CurrentCents:       e.CurrentSaved.Cents,
		RemainingCents:     e.Remaining.Cents,
		ProgressFraction:   e.ProgressFraction,
		HappinessFraction:  e.HappinessFraction,
	}
}

func updateParams(sessionID string, e core.Entry) UpdateEntryParams {
	return UpdateEntryParams{
		RecordedAt:         e.Timestamp.UTC().UnixNano(),
		GoalCents:          e.Goal.Cents,
		MonthlyTargetCents: e.MonthlyTarget.Cents,
		CurrentCents:       e.CurrentSaved.Cents,
		RemainingCents:     e.Remaining.Cents,
		ProgressFraction:   e.ProgressFraction,
		HappinessFraction:  e.HappinessFraction,
		ID:                 e.ID,
		SessionID:          sessionID,
	}
}

func toCore(row Entry) core.Entry {
	return core.Entry{
		ID:                row.ID,
		SessionID:         row.SessionID,
		Timestamp:         time.Unix(0, row.RecordedAt).UTC(),
		Goal:              core.Money{Cents: row.GoalCents},
		MonthlyTarget:     core.Money{Cents: row.MonthlyTargetCents},
		CurrentSaved:      core.Money{Cents: row.CurrentCents},
		Remaining:         core.Money{Cents: row.RemainingCents},
		ProgressFraction:  row.ProgressFraction,
		HappinessFraction: row.HappinessFraction,
		Version:           row.Version,
	}
}
