package realtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/velmark/cybercity-backend/internal/platform/logger"
)

const (
	outboundBuffer = 32
	writeTimeout   = 10 * time.Second
	pingInterval   = 20 * time.Second
)

type Client struct {
	ID       uuid.UUID
	Outbound chan Message
	done     chan struct{}
}

// Hub keeps the set of connected WebSocket clients and pushes every
// broadcast to all of them. A client whose outbound buffer is full has the
// message dropped; a client whose socket write fails is removed.
type Hub struct {
	mu      sync.RWMutex
	logger  *logger.Logger
	clients map[*Client]bool

	upgrader websocket.Upgrader
}

var _ Broadcaster = (*Hub)(nil)

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		logger:  log.With("component", "RealtimeHub"),
		clients: make(map[*Client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The API itself is guarded by JWT; the socket carries
			// broadcast-only data, so any origin may listen.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Hub) newClient() *Client {
	return &Client{
		ID:       uuid.New(),
		Outbound: make(chan Message, outboundBuffer),
		done:     make(chan struct{}),
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	total := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("websocket client connected", "clientID", c.ID, "total", total)
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	total := len(h.clients)
	h.mu.Unlock()

	close(c.done)
	h.logger.Info("websocket client disconnected", "clientID", c.ID, "total", total)
}

// Broadcast queues the message for every connected client.
func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.Outbound <- msg:
		default:
			h.logger.Warn("dropping realtime message; outbound buffer full", "clientID", c.ID, "type", msg.Type)
		}
	}
}

// ClientCount reports connected clients, used by the health endpoint.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and pumps broadcasts to the socket until the
// peer goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := h.newClient()
	h.addClient(client)

	go h.readPump(conn, client)
	h.writePump(conn, client)
}

// readPump discards inbound frames; its purpose is noticing the peer
// closing the socket.
func (h *Hub) readPump(conn *websocket.Conn, client *Client) {
	defer h.removeClient(client)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, client *Client) {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		_ = conn.Close()
		h.removeClient(client)
	}()

	for {
		select {
		case <-client.done:
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case msg := <-client.Outbound:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Warn("websocket write failed, removing client", "clientID", client.ID, "error", err)
				return
			}
		}
	}
}
