package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eraiiz/internal/shared/models"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// pushServer upgrades each connection, sends the queued frames, then
// closes. dials counts connection attempts that reached the server.
type pushServer struct {
	frames []string
	dials  atomic.Int64
	hold   bool
}

func (ps *pushServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ps.dials.Add(1)
		if r.URL.Query().Get("userId") == "" {
			http.Error(w, "userId required", http.StatusBadRequest)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range ps.frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		if ps.hold {
			// keep the connection open until the client goes away
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}
	}
}

func waitFor(t *testing.T, cond func() bool, within time.Duration, msg string) {
	t.Helper()
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", within, msg)
}

type collected struct {
	mu            sync.Mutex
	updates       []models.Order
	created       []models.Order
	cancelled     []string
	notifications []models.Notification
}

func (c *collected) handlers() Handlers {
	return Handlers{
		OnOrderUpdate: func(o models.Order) {
			c.mu.Lock()
			c.updates = append(c.updates, o)
			c.mu.Unlock()
		},
		OnNewOrder: func(o models.Order) {
			c.mu.Lock()
			c.created = append(c.created, o)
			c.mu.Unlock()
		},
		OnOrderCancelled: func(id string) {
			c.mu.Lock()
			c.cancelled = append(c.cancelled, id)
			c.mu.Unlock()
		},
		OnNotification: func(n models.Notification) {
			c.mu.Lock()
			c.notifications = append(c.notifications, n)
			c.mu.Unlock()
		},
	}
}

func TestDispatchTypedMessages(t *testing.T) {
	ps := &pushServer{
		frames: []string{
			`{"type":"order_update","order":{"id":"o1","status":"Shipped"}}`,
			`{"type":"new_order","order":{"id":"o2","status":"Pending"}}`,
			`{"type":"order_cancelled","order":{"id":"o3"}}`,
			`{"id":"n1","type":"order","message":"Your order shipped","read":false}`,
			`not json at all`,
			`{"type":"order_update","order":{}}`,
		},
		hold: true,
	}
	srv := httptest.NewServer(ps.handler(t))
	defer srv.Close()

	got := &collected{}
	ch, err := New(srv.URL, "u1", got.handlers(), WithBackoff(10*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { ch.Run(ctx); close(done) }()

	waitFor(t, func() bool {
		got.mu.Lock()
		defer got.mu.Unlock()
		return len(got.updates) == 1 && len(got.created) == 1 &&
			len(got.cancelled) == 1 && len(got.notifications) == 1
	}, 2*time.Second, "all well-formed frames dispatched")

	got.mu.Lock()
	assert.Equal(t, "o1", got.updates[0].ID)
	assert.Equal(t, models.OrderShipped, got.updates[0].Status)
	assert.Equal(t, "o2", got.created[0].ID)
	assert.Equal(t, "o3", got.cancelled[0])
	assert.Equal(t, "n1", got.notifications[0].ID)
	got.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}
}

func TestReconnectAfterDrop(t *testing.T) {
	ps := &pushServer{frames: []string{`{"id":"n1","type":"system","message":"hi"}`}}
	srv := httptest.NewServer(ps.handler(t))
	defer srv.Close()

	got := &collected{}
	ch, err := New(srv.URL, "u1", got.handlers(), WithBackoff(10*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ch.Run(ctx)

	// server closes after each frame; the channel must keep coming back
	waitFor(t, func() bool { return ps.dials.Load() >= 3 }, 2*time.Second, "reconnects after drops")
}

func TestDialFailureDegradesSilently(t *testing.T) {
	// no server listening
	got := &collected{}
	ch, err := New("http://127.0.0.1:1", "u1", got.handlers(), WithBackoff(5*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	ch.Run(ctx) // returns only on ctx, never panics or errors out
	assert.Equal(t, Disconnected, ch.State())
}

func TestURLDerivation(t *testing.T) {
	ch, err := New("https://api.eraiiz.example/", "u-42", Handlers{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ch.url, "wss://api.eraiiz.example/ws?"), ch.url)
	assert.Contains(t, ch.url, "userId=u-42")
}
