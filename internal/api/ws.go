package api

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// hub tracks connected websocket clients and pushes the signals payload to
// all of them after every successful mutation.
type hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func newHub() *hub {
	return &hub{clients: make(map[*websocket.Conn]bool)}
}

// add registers a client and starts a reader goroutine whose only job is to
// detect disconnects.
func (h *hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.clients, conn)
			h.mu.Unlock()
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// broadcast sends a message to all connected clients.  Write errors are
// ignored; the reader goroutine cleans up broken connections.
func (h *hub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.WriteMessage(websocket.TextMessage, msg)
	}
}

// closeAll disconnects every client, used at shutdown.
func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		_ = c.Close()
	}
	h.clients = make(map[*websocket.Conn]bool)
}

// handleWS upgrades the connection and sends an initial state snapshot.
// The snapshot is written before the connection joins the hub so that the
// initial write cannot interleave with a concurrent broadcast.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	if payload, err := s.signalsPayload(); err == nil {
		_ = conn.WriteMessage(websocket.TextMessage, payload)
	}
	s.hub.add(conn)
}
