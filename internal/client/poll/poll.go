// Package poll is the pull-based resilience backstop for the realtime
// channel: a fixed-interval re-fetch of the authoritative REST resource
// that self-heals any missed push events.
package poll

import (
	"context"
	"io"
	"log"
	"time"
)

const DefaultInterval = 30 * time.Second

// Poller re-runs fetch on a fixed interval for the lifetime of a context.
// Wake triggers an immediate out-of-cycle fetch, the equivalent of the
// document becoming visible again after the tab was hidden.
type Poller struct {
	interval time.Duration
	fetch    func(context.Context) error
	logger   *log.Logger
	wake     chan struct{}
}

type Option func(*Poller)

func WithLogger(l *log.Logger) Option { return func(p *Poller) { p.logger = l } }

func New(interval time.Duration, fetch func(context.Context) error, opts ...Option) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	p := &Poller{
		interval: interval,
		fetch:    fetch,
		logger:   log.New(io.Discard, "", 0),
		wake:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Wake requests an immediate fetch. Safe to call from any goroutine;
// coalesces when a wake is already pending.
func (p *Poller) Wake() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Run fetches once immediately, then on every tick or wake until ctx is
// cancelled. Fetch errors are logged and do not stop the loop; the next
// cycle retries naturally.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.runFetch(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.runFetch(ctx)
		case <-p.wake:
			p.runFetch(ctx)
		}
	}
}

func (p *Poller) runFetch(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := p.fetch(ctx); err != nil {
		p.logger.Printf("poll fetch: %v", err)
	}
}
