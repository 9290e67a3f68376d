// Package realtime maintains a best-effort live feed of server-pushed
// events per authenticated user. A dropped or unreachable socket degrades
// silently; the polling fallback guarantees baseline freshness.
package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"eraiiz/internal/shared/models"
)

// DefaultBackoff is the fixed delay before a reconnect attempt.
const DefaultBackoff = 5 * time.Second

type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	}
	return "unknown"
}

// Handlers receive parsed events. Nil handlers drop their event type.
type Handlers struct {
	OnOrderUpdate    func(models.Order)
	OnNewOrder       func(models.Order)
	OnOrderCancelled func(orderID string)
	OnNotification   func(models.Notification)
}

// Channel dials the per-user WebSocket feed and dispatches typed messages
// until its context ends. Reconnects after a fixed backoff on any drop.
type Channel struct {
	url      string
	backoff  time.Duration
	handlers Handlers
	logger   *log.Logger
	state    atomic.Int32
}

type Option func(*Channel)

func WithBackoff(d time.Duration) Option { return func(c *Channel) { c.backoff = d } }
func WithLogger(l *log.Logger) Option    { return func(c *Channel) { c.logger = l } }

// New builds a channel for the given API base URL and user id. The base
// URL's http(s) scheme is rewritten to ws(s).
func New(baseURL, userID string, h Handlers, opts ...Option) (*Channel, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/ws"
	u.RawQuery = url.Values{"userId": {userID}}.Encode()

	c := &Channel{
		url:      u.String(),
		backoff:  DefaultBackoff,
		handlers: h,
		logger:   log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// State reports the current connection state.
func (c *Channel) State() State { return State(c.state.Load()) }

// Run connects and reads until ctx is cancelled. Connection failures are
// absorbed: log, wait the backoff, dial again. Never returns an error to
// the caller; the channel is explicitly best-effort.
func (c *Channel) Run(ctx context.Context) {
	defer c.state.Store(int32(Disconnected))
	for {
		if ctx.Err() != nil {
			return
		}
		c.state.Store(int32(Connecting))
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err != nil {
			c.state.Store(int32(Disconnected))
			c.logger.Printf("realtime dial: %v", err)
			if !c.sleep(ctx) {
				return
			}
			continue
		}
		c.state.Store(int32(Connected))
		c.readLoop(ctx, conn)
		c.state.Store(int32(Disconnected))
		if !c.sleep(ctx) {
			return
		}
	}
}

// readLoop pumps messages until the socket drops or ctx ends. A watcher
// goroutine closes the socket on cancellation to unblock the read.
func (c *Channel) readLoop(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Printf("realtime read: %v", err)
			}
			return
		}
		c.dispatch(data)
	}
}

// dispatch routes a raw message on its type discriminator. Order events
// carry a reserved type; anything else that looks like a notification is
// one. Malformed payloads are logged and skipped.
func (c *Channel) dispatch(data []byte) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		c.logger.Printf("realtime: malformed message: %v", err)
		return
	}

	switch probe.Type {
	case models.EventOrderUpdate, models.EventNewOrder, models.EventOrderCancelled:
		var ev models.OrderEvent
		if err := json.Unmarshal(data, &ev); err != nil || ev.Order.ID == "" {
			c.logger.Printf("realtime: bad order event: %v", err)
			return
		}
		switch probe.Type {
		case models.EventOrderUpdate:
			if c.handlers.OnOrderUpdate != nil {
				c.handlers.OnOrderUpdate(ev.Order)
			}
		case models.EventNewOrder:
			if c.handlers.OnNewOrder != nil {
				c.handlers.OnNewOrder(ev.Order)
			}
		case models.EventOrderCancelled:
			if c.handlers.OnOrderCancelled != nil {
				c.handlers.OnOrderCancelled(ev.Order.ID)
			}
		}
	default:
		var n models.Notification
		if err := json.Unmarshal(data, &n); err != nil || n.ID == "" || n.Message == "" {
			c.logger.Printf("realtime: unrecognized message %q", truncate(data, 120))
			return
		}
		if c.handlers.OnNotification != nil {
			c.handlers.OnNotification(n)
		}
	}
}

func (c *Channel) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.backoff):
		return true
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
