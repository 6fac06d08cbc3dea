package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ChangeSource reports the newest modification timestamp of one
// catalog.
type ChangeSource interface {
	LastModified() (time.Time, error)
}

// Poller is the fallback change feed for deployments without a
// push-capable frontend: it periodically compares the newest
// modification timestamp across catalogs with the last value it saw
// and broadcasts a synthetic sync event when it advances. Read
// failures are logged and the loop keeps going.
type Poller struct {
	mu       sync.RWMutex
	hub      *Hub
	sources  []ChangeSource
	interval time.Duration
	lastSeen time.Time
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewPoller(hub *Hub, interval time.Duration, logger *slog.Logger, sources ...ChangeSource) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{
		hub:      hub,
		sources:  sources,
		interval: interval,
		logger:   logger,
	}
}

// Start begins the poll loop. Rows that already existed are not a
// change, so the high-water mark starts at the current newest
// timestamp rather than zero.
func (p *Poller) Start(ctx context.Context) {
	seed := p.newest()

	p.mu.Lock()
	p.lastSeen = seed
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	p.mu.Unlock()

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.tick()
			}
		}
	}()
}

// Stop gracefully stops the poll loop.
func (p *Poller) Stop() {
	p.mu.RLock()
	cancel := p.cancel
	done := p.done
	p.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (p *Poller) tick() {
	newest := p.newest()
	if newest.IsZero() {
		return
	}

	p.mu.Lock()
	advanced := newest.After(p.lastSeen)
	if advanced {
		p.lastSeen = newest
	}
	p.mu.Unlock()

	if advanced {
		p.hub.Broadcast(Message{Type: "sync", Action: "sync"})
	}
}

func (p *Poller) newest() time.Time {
	var newest time.Time
	for _, src := range p.sources {
		ts, err := src.LastModified()
		if err != nil {
			// Transient read failure; try again next tick.
			p.logger.Warn("poll last modified", "error", err)
			continue
		}
		if ts.After(newest) {
			newest = ts
		}
	}
	return newest
}
