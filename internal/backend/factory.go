package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"savetrack/internal/amqp"
	"savetrack/internal/cache"
	"savetrack/internal/memory"
	"savetrack/internal/ports"
	"savetrack/internal/storage"
)

type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		res *Result
		err error
	)
	switch config.Type {
	case SQLiteBackend:
		res, err = f.createSQLiteBackend(config)
	case MemoryBackend:
		res = f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	sessions := config.CacheSessions
	if sessions <= 0 {
		sessions = 256
	}
	ttl := config.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	res.Cache = cache.NewHistoryStore(res.Store, sessions, ttl)
	res.Store = res.Cache
	return res, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	res := &Result{
		Store:   repo,
		Ready:   repo.Ping,
		Cleanup: repo.Close,
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			// Entries stay pending; the worker's periodic scan syncs them.
			f.logger.Warn("Failed to initialize AMQP client, continuing without sync", "error", err)
		} else {
			res.Publisher = client
			res.Cleanup = func() error {
				return errors.Join(client.Close(), repo.Close())
			}
			f.logger.Info("Initialized AMQP client", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)
		}
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath, "amqp_enabled", res.Publisher != nil)
	return res, nil
}

func (f *DefaultFactory) createMemoryBackend() *Result {
	var store ports.HistoryStore = memory.New()
	f.logger.Info("Initialized memory backend")
	return &Result{
		Store:   store,
		Ready:   func(context.Context) error { return nil },
		Cleanup: func() error { return nil },
	}
}
