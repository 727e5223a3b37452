// Package events pushes catalog-change notifications to connected browsers
// over WebSocket so pages can refresh their file list without polling.
package events

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/faizansabir7/fileTransfer/internal/ratelimit"
)

// Message is the JSON frame sent to subscribers.
type Message struct {
	Type    string `json:"type"` // "file-added", "file-removed"
	Payload any    `json:"payload,omitempty"`
}

// Event types broadcast by the registry server.
const (
	FileAdded   = "file-added"
	FileRemoved = "file-removed"
)

var upgrader = websocket.Upgrader{
	// LAN-only service, any page origin may subscribe.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type subscriber struct {
	conn *websocket.Conn
	send chan Message
}

// Hub fans out messages to all connected subscribers. Slow subscribers are
// skipped rather than blocking the broadcaster.
type Hub struct {
	mu   sync.Mutex
	subs map[*subscriber]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*subscriber]bool)}
}

// Subscribers returns the current connection count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Broadcast queues msg for every subscriber. Never blocks.
func (h *Hub) Broadcast(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.send <- msg:
		default:
			log.Printf("[events] dropping %s for slow subscriber", msg.Type)
		}
	}
}

// HandleWebSocket upgrades the connection and streams hub messages until the
// client disconnects.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[events] websocket upgrade error: %v", err)
		return
	}

	s := &subscriber{conn: conn, send: make(chan Message, 16)}
	h.mu.Lock()
	h.subs[s] = true
	h.mu.Unlock()

	defer conn.Close()

	// Writer: single goroutine owns all writes to the connection.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range s.send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("[events] websocket write error: %v", err)
				return
			}
		}
	}()

	// Reader: drains client frames to detect disconnect. Inbound traffic is
	// rate limited; subscribers are not expected to send anything meaningful.
	limiter := ratelimit.New(60, time.Minute)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[events] websocket read error: %v", err)
			}
			break
		}
		if !limiter.Allow() {
			break
		}
	}

	// Unregister under the hub lock before closing the send channel so no
	// concurrent Broadcast can write to a closed channel.
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
	close(s.send)
	<-done
}
