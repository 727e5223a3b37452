package events

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// dial connects a test websocket client to the hub.
func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// waitSubscribers polls until the hub sees n subscribers or times out.
func waitSubscribers(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.Subscribers() == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("subscribers = %d, want %d", h.Subscribers(), n)
}

func TestBroadcastReachesSubscriber(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(okHandler(h))
	defer srv.Close()

	conn := dial(t, srv)
	waitSubscribers(t, h, 1)

	h.Broadcast(Message{Type: FileAdded, Payload: map[string]string{"id": "abc"}})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if msg.Type != FileAdded {
		t.Errorf("type = %q, want %q", msg.Type, FileAdded)
	}
}

func TestBroadcastMultipleSubscribers(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(okHandler(h))
	defer srv.Close()

	c1 := dial(t, srv)
	c2 := dial(t, srv)
	waitSubscribers(t, h, 2)

	h.Broadcast(Message{Type: FileRemoved})

	for i, conn := range []*websocket.Conn{c1, c2} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("subscriber %d ReadJSON: %v", i, err)
		}
		if msg.Type != FileRemoved {
			t.Errorf("subscriber %d type = %q, want %q", i, msg.Type, FileRemoved)
		}
	}
}

func TestDisconnectUnregisters(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(okHandler(h))
	defer srv.Close()

	conn := dial(t, srv)
	waitSubscribers(t, h, 1)

	conn.Close()
	waitSubscribers(t, h, 0)

	// Broadcasting to an empty hub must not panic.
	h.Broadcast(Message{Type: FileAdded})
}

func okHandler(h *Hub) http.HandlerFunc {
	return h.HandleWebSocket
}
