// Package ports declares the storage interfaces the savings service depends on.
package ports

import (
	"context"
	"errors"

	"savetrack/internal/core"
)

// ErrNotFound is returned when an entry does not exist in the caller's session.
var ErrNotFound = errors.New("entry not found")

// Ports for outbound adapters.
type (
	HistoryWriter interface {
		// Append stores e and returns it with its assigned ID.
		Append(ctx context.Context, e core.Entry) (core.Entry, error)
	}

	HistoryReader interface {
		// ListEntries returns the session's entries ordered by timestamp.
		ListEntries(ctx context.Context, sessionID string) ([]core.Entry, error)
	}

	HistoryEditor interface {
		UpdateEntry(ctx context.Context, e core.Entry) (core.Entry, error)
		DeleteEntry(ctx context.Context, sessionID string, id int64) error
	}

	// HistoryReplacer swaps a session's whole history in one step. Returned
	// entries carry their new IDs.
	HistoryReplacer interface {
		ReplaceHistory(ctx context.Context, sessionID string, entries []core.Entry) ([]core.Entry, error)
	}

	HistoryStore interface {
		HistoryWriter
		HistoryReader
		HistoryEditor
		HistoryReplacer
	}
)
