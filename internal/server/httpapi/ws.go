package httpapi

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// wsConn wraps a websocket connection with a write lock; gorilla allows
// at most one concurrent writer, and Publish is called from arbitrary
// request goroutines.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub fans realtime events out to the websocket connections of a given
// user. A user may hold several connections at once (multiple tabs).
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]map[*wsConn]struct{}
	logger *log.Logger
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Hub{conns: make(map[string]map[*wsConn]struct{}), logger: logger}
}

func (h *Hub) register(userID string, conn *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*wsConn]struct{})
	}
	h.conns[userID][conn] = struct{}{}
}

func (h *Hub) unregister(userID string, conn *wsConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set := h.conns[userID]; set != nil {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.conns, userID)
		}
	}
}

// Publish sends v as a JSON text frame to every open connection of
// userID. Dead connections are dropped on write failure.
func (h *Hub) Publish(userID string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		h.logger.Printf("ws: marshal event: %v", err)
		return
	}
	h.mu.RLock()
	targets := make([]*wsConn, 0, len(h.conns[userID]))
	for conn := range h.conns[userID] {
		targets = append(targets, conn)
	}
	h.mu.RUnlock()

	for _, conn := range targets {
		if err := conn.write(payload); err != nil {
			h.unregister(userID, conn)
			conn.conn.Close()
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

func (r *Router) handleWS(w http.ResponseWriter, req *http.Request) {
	userID := req.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId required")
		return
	}
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	wc := &wsConn{conn: conn}
	r.hub.register(userID, wc)
	defer func() {
		r.hub.unregister(userID, wc)
		conn.Close()
	}()

	// Inbound frames are not part of the protocol; read until the peer
	// goes away so pings and close frames are serviced.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
