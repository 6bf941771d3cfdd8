package notify

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub tracks open websocket connections per user and pushes notification
// payloads to them. Delivery is best-effort; the REST feed is the source
// of truth.
type Hub struct {
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[string]map[*websocket.Conn]bool // user id -> connections
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		conns: make(map[string]map[*websocket.Conn]bool),
	}
}

// Handle upgrades an authenticated request and keeps the connection
// registered until the peer closes it. The JWT middleware has already
// placed the user id in the request context.
func (h *Hub) Handle(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(string)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("notify: websocket upgrade failed: %v", err)
		return
	}

	h.register(userID, conn)
	defer h.unregister(userID, conn)

	// Read loop only to observe the close; clients do not send messages.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Push writes the payload as JSON to every open connection of the user.
// Dead connections are dropped on write failure.
func (h *Hub) Push(userID string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns[userID] {
		if err := conn.WriteJSON(payload); err != nil {
			log.Printf("notify: push to user %s failed: %v", userID, err)
			conn.Close()
			delete(h.conns[userID], conn)
		}
	}
}

func (h *Hub) register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*websocket.Conn]bool)
	}
	h.conns[userID][conn] = true
}

func (h *Hub) unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conn.Close()
	delete(h.conns[userID], conn)
	if len(h.conns[userID]) == 0 {
		delete(h.conns, userID)
	}
}
