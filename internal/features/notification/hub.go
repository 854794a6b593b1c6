package notification

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// streamConn is the subset of the websocket connection the hub writes
// to. Narrowed so service tests can register fakes.
type streamConn interface {
	WriteMessage(messageType int, data []byte) error
}

// Hub tracks live websocket subscribers per user. A user may hold
// several connections (multiple tabs); each gets every push.
type Hub struct {
	mu    sync.Mutex
	conns map[string]map[streamConn]struct{}
}

func NewHub() *Hub {
	return &Hub{
		conns: map[string]map[streamConn]struct{}{},
	}
}

func (h *Hub) Register(userID string, conn streamConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userID] == nil {
		h.conns[userID] = map[streamConn]struct{}{}
	}
	h.conns[userID][conn] = struct{}{}
}

func (h *Hub) Unregister(userID string, conn streamConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns[userID], conn)
	if len(h.conns[userID]) == 0 {
		delete(h.conns, userID)
	}
}

// Push writes the payload to every connection of the user. Connections
// that fail to write are dropped; delivery is best effort and the
// persisted record remains the source of truth.
func (h *Hub) Push(userID string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns[userID] {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			delete(h.conns[userID], conn)
		}
	}
	if len(h.conns[userID]) == 0 {
		delete(h.conns, userID)
	}
}
