package api

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rxtech-lab/argo-arbitrage/internal/logger"
	"go.uber.org/zap"
)

// StreamMessage is the envelope pushed to websocket clients.
type StreamMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub fans messages out to connected websocket clients. Slow clients are
// dropped rather than allowed to stall the broadcast.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *logger.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]chan StreamMessage
}

// NewHub creates a Hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger:  log,
		clients: make(map[*websocket.Conn]chan StreamMessage),
	}
}

// Broadcast queues a message for every connected client.
func (h *Hub) Broadcast(msg StreamMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, ch := range h.clients {
		select {
		case ch <- msg:
		default:
			// Backpressure: drop the laggard
			h.removeLocked(conn)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// HandleWS upgrades the request and serves the client until it disconnects.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))

		return
	}

	ch := make(chan StreamMessage, 64)

	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()

	h.logger.Debug("websocket client connected", zap.String("remote", r.RemoteAddr))

	go h.writeLoop(conn, ch)
	go h.readLoop(conn)
}

func (h *Hub) writeLoop(conn *websocket.Conn, ch <-chan StreamMessage) {
	for msg := range ch {
		if err := conn.WriteJSON(msg); err != nil {
			h.remove(conn)

			return
		}
	}
}

// readLoop drains control frames and detects disconnects.
func (h *Hub) readLoop(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.remove(conn)

			return
		}
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(conn)
}

func (h *Hub) removeLocked(conn *websocket.Conn) {
	if ch, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(ch)
		_ = conn.Close()
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		h.removeLocked(conn)
	}
}
