// Package live pushes fixture updates to websocket clients.
package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/preston-bernstein/epl-fixtures-service/internal/logging"
	"github.com/preston-bernstein/epl-fixtures-service/internal/metrics"
)

const (
	TypeConnected = "connected"
	TypeFixtures  = "fixtures"

	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
	maxMessageSize  = 512
	sendBuffer      = 16
	broadcastBuffer = 16
)

// Message is the envelope written to clients.
type Message struct {
	Type      string `json:"type"`
	Version   uint64 `json:"version,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// Hub fans messages out to connected clients. Run owns the client set; all
// other methods talk to it through channels.
type Hub struct {
	logger  *slog.Logger
	metrics *metrics.Recorder
	initial func() (Message, bool)
	now     func() time.Time

	upgrader   websocket.Upgrader
	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
	count      atomic.Int64
}

// NewHub constructs a Hub. initial, when set, supplies the message every new
// client receives first.
func NewHub(initial func() (Message, bool), logger *slog.Logger, recorder *metrics.Recorder) *Hub {
	return &Hub{
		logger:  logger,
		metrics: recorder,
		initial: initial,
		now:     time.Now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, broadcastBuffer),
		done:       make(chan struct{}),
	}
}

// Run serves registrations and broadcasts until ctx ends, then disconnects
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for c := range h.clients {
			h.remove(c)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.count.Add(1)
			h.metrics.RecordLiveClients(1)
			logging.Debug(h.logger, "live client registered", logging.FieldCount, len(h.clients))
		case c := <-h.unregister:
			h.remove(c)
		case data := <-h.broadcast:
			delivered := 0
			for c := range h.clients {
				select {
				case c.send <- data:
					delivered++
				default:
					// Slow consumer.
					h.remove(c)
				}
			}
			h.metrics.RecordBroadcast(delivered)
		}
	}
}

func (h *Hub) remove(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.count.Add(-1)
	h.metrics.RecordLiveClients(-1)
	logging.Debug(h.logger, "live client unregistered", logging.FieldCount, len(h.clients))
}

// Broadcast queues msg for every client. It never blocks: when the queue is
// full or the hub has stopped the message is dropped.
func (h *Hub) Broadcast(msg Message) {
	data, err := h.marshal(msg)
	if err != nil {
		logging.Error(h.logger, "live message encode failed", err)
		return
	}
	select {
	case <-h.done:
	case h.broadcast <- data:
	default:
		logging.Warn(h.logger, "live broadcast dropped", "type", msg.Type)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	return int(h.count.Load())
}

// ServeHTTP upgrades the request and registers the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn(logging.FromContext(r.Context(), h.logger), "websocket upgrade failed", "error", err)
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, sendBuffer)}
	c.send <- h.mustMarshal(Message{Type: TypeConnected})
	if h.initial != nil {
		if msg, ok := h.initial(); ok {
			if data, err := h.marshal(msg); err == nil {
				c.send <- data
			}
		}
	}

	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) marshal(msg Message) ([]byte, error) {
	if msg.Timestamp == 0 {
		msg.Timestamp = h.now().Unix()
	}
	return json.Marshal(msg)
}

func (h *Hub) mustMarshal(msg Message) []byte {
	data, err := h.marshal(msg)
	if err != nil {
		return []byte("{}")
	}
	return data
}
