package server

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// reloadEvent is one invalidation notice pushed to clients.
type reloadEvent struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// sendBuffer bounds how far a client may lag before it is dropped.
const sendBuffer = 16

// reloadClient owns one connection. Every write goes through send and is
// performed by a single goroutine, because the connection supports only
// one concurrent writer.
type reloadClient struct {
	conn *websocket.Conn
	send chan reloadEvent
}

// ReloadHub pushes invalidation events to connected clients so they can
// re-import a module whose artifact was just replaced.
type ReloadHub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*reloadClient]struct{}
}

func NewReloadHub() *ReloadHub {
	return &ReloadHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*reloadClient]struct{}),
	}
}

func (h *ReloadHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &reloadClient{conn: conn, send: make(chan reloadEvent, sendBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writeLoop(c)
	go h.readLoop(c)
}

// writeLoop is the connection's only writer; it drains the send channel
// until the client is removed.
func (h *ReloadHub) writeLoop(c *reloadClient) {
	defer c.conn.Close()
	for ev := range c.send {
		if err := c.conn.WriteJSON(ev); err != nil {
			log.Printf("reload push failed: %v", err)
			h.remove(c)
			return
		}
	}
}

// readLoop discards inbound frames; it exists to notice the client going
// away.
func (h *ReloadHub) readLoop(c *reloadClient) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}

// Broadcast tells every connected client that key was re-transformed. The
// per-client sends happen under the lock and never block: a client whose
// buffer is full is dropped rather than waited on.
func (h *ReloadHub) Broadcast(key string) {
	if h == nil {
		return
	}
	ev := reloadEvent{Type: "invalidate", Path: key}
	var slow []*reloadClient
	h.mu.Lock()
	for c := range h.clients {
		select {
		case c.send <- ev:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()
	for _, c := range slow {
		h.remove(c)
	}
}

// ClientCount reports the number of connected clients.
func (h *ReloadHub) ClientCount() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// remove is idempotent. Membership in the map implies send is still open,
// so the close below cannot race a Broadcast send; closing send ends the
// write loop, whose deferred conn.Close in turn ends the read loop.
func (h *ReloadHub) remove(c *reloadClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	h.mu.Unlock()
	if ok {
		close(c.send)
	}
}
