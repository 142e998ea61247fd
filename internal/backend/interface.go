// Package backend builds the history store selected by DATA_BACKEND together
// with its optional sync publisher.
package backend

import (
	"context"

	"savetrack/internal/cache"
	"savetrack/internal/ports"
	"savetrack/internal/services"
)

type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
)

func (t BackendType) IsValid() bool {
	return t == MemoryBackend || t == SQLiteBackend
}

func (t BackendType) String() string { return string(t) }

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// Result is everything the HTTP server needs from a backend.
type Result struct {
	Store ports.HistoryStore
	// Publisher is nil when AMQP is not configured.
	Publisher services.EntryPublisher
	// Cache is the per-session history cache in front of Store.
	Cache   *cache.HistoryStore
	Ready   func(ctx context.Context) error
	Cleanup CleanupFunc
}

// Factory creates backends from configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}
