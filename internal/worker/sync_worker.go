// Package worker mirrors saved entries to an external spreadsheet.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"savetrack/internal/amqp"
	"savetrack/internal/core"
	"savetrack/internal/ports"
	"savetrack/internal/storage"
)

type (
	// EntrySource is the subset of the SQLite repository the worker needs.
	EntrySource interface {
		GetEntry(ctx context.Context, id int64) (core.Entry, error)
		GetPendingSyncEntries(ctx context.Context, limit int) ([]storage.PendingSyncEntry, error)
		MarkSynced(ctx context.Context, id int64) error
		MarkSyncError(ctx context.Context, id int64) error
	}

	// EntryMirror receives copies of saved entries.
	EntryMirror interface {
		AppendEntry(ctx context.Context, e core.Entry) (ref string, err error)
	}
)

// SyncWorker handles synchronization of entries from SQLite to the mirror.
type SyncWorker struct {
	store     EntrySource
	mirror    EntryMirror
	batchSize int
}

func NewSyncWorker(store EntrySource, mirror EntryMirror, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &SyncWorker{store: store, mirror: mirror, batchSize: batchSize}
}

// HandleSyncMessage processes a single entry sync message from AMQP. Entries
// deleted since the message was published are acknowledged and skipped.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.EntrySyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"session_id", msg.SessionID,
		"id", msg.ID,
		"version", msg.Version)

	e, err := w.store.GetEntry(ctx, msg.ID)
	if errors.Is(err, ports.ErrNotFound) {
		slog.WarnContext(ctx, "Entry no longer exists, skipping sync", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get entry from storage: %w", err)
	}

	if err := w.syncEntry(ctx, e); err != nil {
		return fmt.Errorf("sync entry: %w", err)
	}
	return nil
}

// ProcessPending mirrors entries still pending. It backs up lost AMQP messages
// and returns how many entries were synced.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	return w.processPending(ctx, w.batchSize)
}

// StartupSyncCheck runs a larger pending batch when the worker starts.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, err := w.processPending(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync: %w", err)
	}
	slog.InfoContext(ctx, "Startup sync completed", "synced", synced)
	return nil
}

func (w *SyncWorker) processPending(ctx context.Context, limit int) (int, error) {
	pending, err := w.store.GetPendingSyncEntries(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("get pending entries: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	slog.InfoContext(ctx, "Processing pending entries", "count", len(pending))

	synced := 0
	for _, p := range pending {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}
		e, err := w.store.GetEntry(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get entry", "id", p.ID, "error", err)
			if err := w.store.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			continue
		}
		if err := w.syncEntry(ctx, e); err != nil {
			slog.ErrorContext(ctx, "Failed to sync entry", "id", p.ID, "error", err)
			continue
		}
		synced++
	}
	return synced, nil
}

func (w *SyncWorker) syncEntry(ctx context.Context, e core.Entry) error {
	start := time.Now()
	ref, err := w.mirror.AppendEntry(ctx, e)
	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, e.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", e.ID, "error", markErr)
		}
		return fmt.Errorf("append to mirror: %w", err)
	}

	// The append succeeded even if the status update fails.
	if err := w.store.MarkSynced(ctx, e.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", e.ID, "error", err)
	}

	slog.InfoContext(ctx, "Successfully synced entry",
		"id", e.ID,
		"session_id", e.SessionID,
		"ref", ref,
		"current_cents", e.CurrentSaved.Cents,
		"duration", time.Since(start))
	return nil
}
