package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// PendingProcessor is satisfied by SyncWorker.
type PendingProcessor interface {
	ProcessPending(ctx context.Context) (int, error)
}

type PollerConfig struct {
	// PollInterval is how often pending entries are checked (default: 30s).
	PollInterval time.Duration
}

func DefaultPollerConfig() PollerConfig {
	return PollerConfig{PollInterval: 30 * time.Second}
}

// Poller periodically re-syncs pending entries.
type Poller struct {
	processor PendingProcessor
	config    PollerConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewPoller(processor PendingProcessor, config PollerConfig) *Poller {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollerConfig().PollInterval
	}
	return &Poller{processor: processor, config: config}
}

// Start begins the polling loop. Returns an error if already running.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("poller is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	go p.runLoop(ctx, stopCh, doneCh)

	slog.InfoContext(ctx, "Pending sync poller started", "poll_interval", p.config.PollInterval)
	return nil
}

// Stop signals the loop and waits for it to finish or for ctx to expire.
func (p *Poller) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.running = false
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Pending sync poller stopped")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Pending sync poller stop timed out")
		return ctx.Err()
	}
}

func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Poller) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.processor.ProcessPending(ctx)
			if err != nil {
				slog.ErrorContext(ctx, "Pending sync failed", "error", err)
				continue
			}
			if n > 0 {
				slog.InfoContext(ctx, "Pending entries synced", "count", n)
			}
		}
	}
}
