// Package realtime pushes inventory changes to connected browsers over
// websockets. Connections are grouped by owner; a message for one owner
// never reaches another.
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kitchenbook/kitchenbook-backend/pkg/httputil"
	"github.com/kitchenbook/kitchenbook-backend/pkg/logger"
	"github.com/kitchenbook/kitchenbook-backend/pkg/owner"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 64
)

// Message is the envelope every push is wrapped in
type Message struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

type client struct {
	id      string
	ownerID string
	conn    *websocket.Conn
	send    chan []byte
}

// Hub tracks live connections per owner
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[string]*client
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

// NewHub creates a hub. allowedOrigins limits browser origins; empty allows all.
func NewHub(allowedOrigins []string, log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}

	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return &Hub{
		clients: make(map[string]map[string]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin] || allowed["*"]
			},
		},
		logger: log.WithComponent("realtime"),
	}
}

// ServeWS upgrades the request and registers the connection under the
// owner resolved by the owner middleware
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ownerID, err := owner.OwnerID(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{
		id:      uuid.NewString(),
		ownerID: ownerID,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
	}
	h.register(c)

	go h.writePump(c)
	go h.readPump(c)
}

// Broadcast sends payload to every connection of ownerID. Slow clients whose
// buffer is full are dropped.
func (h *Hub) Broadcast(ownerID, kind string, payload interface{}) {
	if h == nil {
		return
	}

	data, err := json.Marshal(Message{Type: kind, Timestamp: time.Now().UTC(), Data: payload})
	if err != nil {
		h.logger.Error().Err(err).Str("type", kind).Msg("failed to encode push message")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients[ownerID] {
		select {
		case c.send <- data:
		default:
			h.logger.Warn().Str("client_id", id).Str("owner_id", ownerID).Msg("dropping slow websocket client")
			h.removeLocked(c)
		}
	}
}

// Connections counts the live connections of an owner
func (h *Hub) Connections(ownerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[ownerID])
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, conns := range h.clients {
		for _, c := range conns {
			h.removeLocked(c)
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[c.ownerID] == nil {
		h.clients[c.ownerID] = make(map[string]*client)
	}
	h.clients[c.ownerID][c.id] = c

	h.logger.Debug().Str("client_id", c.id).Str("owner_id", c.ownerID).Msg("websocket client connected")
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

// removeLocked must be called with mu held. Closing send stops the write pump.
func (h *Hub) removeLocked(c *client) {
	conns, ok := h.clients[c.ownerID]
	if !ok {
		return
	}
	if _, ok := conns[c.id]; !ok {
		return
	}

	delete(conns, c.id)
	if len(conns) == 0 {
		delete(h.clients, c.ownerID)
	}
	close(c.send)

	h.logger.Debug().Str("client_id", c.id).Str("owner_id", c.ownerID).Msg("websocket client disconnected")
}

// readPump discards client input and keeps the read deadline fresh
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Debug().Err(err).Str("client_id", c.id).Msg("websocket read error")
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
