package ws

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"fleet-tracker/internal/common/log"
)

const (
	writeTimeout = 5 * time.Second
	pingEvery    = 30 * time.Second
	sendBuffer   = 64
)

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
		_ = c.conn.Close()
	})
}

// Hub stores all active viewer connections keyed by connection id. Each
// connection has one writer goroutine; broadcasts never block on a slow
// viewer, they drop the frame for it instead.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	logger  *log.Logger
	dropped atomic.Uint64
}

func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Nop()
	}
	return &Hub{
		clients: make(map[string]*client),
		logger:  logger,
	}
}

// Add registers conn under id, replacing and closing any previous one.
func (h *Hub) Add(id string, conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	if old, ok := h.clients[id]; ok {
		old.close()
	}
	h.clients[id] = c
	h.mu.Unlock()

	go h.writeLoop(id, c)
	h.logger.Debug(context.Background(), "ws_registered", "Viewer registered", map[string]any{"id": id})
}

// Remove deletes and closes a connection.
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	h.mu.Unlock()

	if ok {
		c.close()
		h.logger.Debug(context.Background(), "ws_removed", "Viewer removed", map[string]any{"id": id})
	}
}

// Send queues a JSON message for one viewer. Unknown ids are ignored.
func (h *Hub) Send(id string, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[id]; ok {
		h.offer(c, body)
	}
	return nil
}

// Broadcast queues a JSON message for every viewer.
func (h *Hub) Broadcast(msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		h.offer(c, body)
	}
	return nil
}

// ListConnected returns all connected ids.
func (h *Hub) ListConnected() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	keys := make([]string, 0, len(h.clients))
	for k := range h.clients {
		keys = append(keys, k)
	}
	return keys
}

// Dropped counts frames discarded for slow viewers.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Close disconnects every viewer.
func (h *Hub) Close() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[string]*client)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// offer must run under h.mu so close(c.send) cannot race with it.
func (h *Hub) offer(c *client, body []byte) {
	select {
	case c.send <- body:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hub) writeLoop(id string, c *client) {
	ping := time.NewTicker(pingEvery)
	defer ping.Stop()

	for {
		select {
		case body, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, body); err != nil {
				h.logger.Debug(context.Background(), "ws_write_failed", "Dropping viewer after write failure",
					map[string]any{"id": id, "error": err.Error()})
				h.Remove(id)
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				h.Remove(id)
				return
			}
		}
	}
}
