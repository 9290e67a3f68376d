// Package monitor proactively ends sessions that are stale, independent
// of any particular request failing: it refreshes tokens approaching
// expiry and forces a logout after prolonged inactivity.
package monitor

import (
	"context"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Defaults mirror the web client: check once a minute, refresh inside a
// five minute expiry horizon, log out after thirty idle minutes.
const (
	DefaultCheckInterval  = time.Minute
	DefaultIdleTimeout    = 30 * time.Minute
	DefaultRefreshHorizon = 5 * time.Minute
)

// SessionSource exposes the token expiry the monitor schedules around.
// A forced logout clears the store through it; leaving credentials on
// disk after an idle logout would defeat the timeout entirely.
type SessionSource interface {
	ExpiresAt() (time.Time, bool)
	AccessToken() (string, bool)
	Clear() error
}

// Refresher performs a proactive token refresh.
type Refresher interface {
	Refresh(ctx context.Context) error
}

type Config struct {
	CheckInterval  time.Duration
	IdleTimeout    time.Duration
	RefreshHorizon time.Duration
	Logger         *log.Logger
}

func (c *Config) fill() {
	if c.CheckInterval <= 0 {
		c.CheckInterval = DefaultCheckInterval
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.RefreshHorizon <= 0 {
		c.RefreshHorizon = DefaultRefreshHorizon
	}
	if c.Logger == nil {
		c.Logger = log.New(io.Discard, "", 0)
	}
}

// Monitor runs the recurring expiry/idle check. Once it forces a logout
// it stops for good; a new login builds a new monitor.
type Monitor struct {
	cfg      Config
	sessions SessionSource
	refresh  Refresher
	onLogout func()

	mu           sync.Mutex
	lastActivity time.Time

	logoutOnce sync.Once
	stopOnce   sync.Once
	started    atomic.Bool
	stop       chan struct{}
	done       chan struct{}
}

func New(sessions SessionSource, refresh Refresher, onLogout func(), cfg Config) *Monitor {
	cfg.fill()
	return &Monitor{
		cfg:          cfg,
		sessions:     sessions,
		refresh:      refresh,
		onLogout:     onLogout,
		lastActivity: time.Now(),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Touch records user activity and resets the idle clock.
func (m *Monitor) Touch() {
	m.mu.Lock()
	m.lastActivity = time.Now()
	m.mu.Unlock()
}

// Start launches the background check loop. Calling it twice is a no-op.
func (m *Monitor) Start() {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	go m.run()
}

func (m *Monitor) run() {
	defer close(m.done)
	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			if m.check() {
				return
			}
		}
	}
}

// check returns true when the monitor reached its terminal state.
func (m *Monitor) check() bool {
	m.mu.Lock()
	idle := time.Since(m.lastActivity)
	m.mu.Unlock()

	if idle >= m.cfg.IdleTimeout {
		m.cfg.Logger.Printf("session idle for %s, logging out", idle.Round(time.Second))
		m.forceLogout()
		return true
	}

	if _, ok := m.sessions.AccessToken(); !ok {
		// logged out elsewhere; nothing left to watch
		m.stopAsync()
		return true
	}

	exp, ok := m.sessions.ExpiresAt()
	if !ok {
		return false
	}
	if time.Until(exp) <= m.cfg.RefreshHorizon {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.CheckInterval)
		err := m.refresh.Refresh(ctx)
		cancel()
		if err != nil {
			m.cfg.Logger.Printf("proactive refresh failed: %v", err)
			m.forceLogout()
			return true
		}
	}
	return false
}

func (m *Monitor) forceLogout() {
	m.logoutOnce.Do(func() {
		if err := m.sessions.Clear(); err != nil {
			m.cfg.Logger.Printf("clearing session: %v", err)
		}
		if m.onLogout != nil {
			m.onLogout()
		}
	})
	m.stopAsync()
}

// Stop tears the monitor down; no checks fire afterwards. Safe to call
// whether or not Start ever ran.
func (m *Monitor) Stop() {
	m.stopAsync()
	if m.started.Load() {
		<-m.done
	}
}

func (m *Monitor) stopAsync() {
	m.stopOnce.Do(func() { close(m.stop) })
}
