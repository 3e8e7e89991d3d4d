package app

import (
	"alertdash/clients/notifier"
	"alertdash/internal/metrics"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	clientBuffer   = 64
)

const (
	frameView   = "view"
	frameNotice = "notice"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Frame is one websocket message pushed to dashboard pages.
type Frame struct {
	Type   string           `json:"type"`
	View   *View            `json:"view,omitempty"`
	Notice *notifier.Notice `json:"notice,omitempty"`
}

// Hub fans redrawn views and notices out to connected pages.
// New connections get the latest view immediately.
type Hub struct {
	logger  *zap.Logger
	metrics *metrics.Recorder

	register   chan *hubClient
	unregister chan *hubClient
	broadcast  chan []byte
	clients    map[*hubClient]struct{}
	count      atomic.Int64

	latestMu sync.RWMutex
	latest   []byte

	done      chan struct{}
	closeOnce sync.Once
}

type hubClient struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func NewHub(logger *zap.Logger, rec *metrics.Recorder) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:     logger,
		metrics:    rec,
		register:   make(chan *hubClient),
		unregister: make(chan *hubClient),
		broadcast:  make(chan []byte, 256),
		clients:    make(map[*hubClient]struct{}),
		done:       make(chan struct{}),
	}
}

// Run is the hub loop. It returns when ctx is cancelled or the hub is closed,
// disconnecting every client.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		h.Close()
		h.dropAll()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.clientsChanged()
			if latest := h.Latest(); latest != nil {
				c.send <- latest
			}

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.clientsChanged()
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.logger.Warn("dropping slow view client", zap.String("remote", c.conn.RemoteAddr().String()))
					delete(h.clients, c)
					close(c.send)
					h.clientsChanged()
				}
			}
		}
	}
}

// PublishView stores v as the latest view and pushes it to every client.
func (h *Hub) PublishView(v View) {
	data, err := json.Marshal(Frame{Type: frameView, View: &v})
	if err != nil {
		h.logger.Error("failed to encode view", zap.Error(err))
		return
	}

	h.latestMu.Lock()
	h.latest = data
	h.latestMu.Unlock()

	h.push(data)
}

// SendNotice pushes a notice frame. Notices are not replayed to later clients.
func (h *Hub) SendNotice(n notifier.Notice) {
	data, err := json.Marshal(Frame{Type: frameNotice, Notice: &n})
	if err != nil {
		h.logger.Error("failed to encode notice", zap.Error(err))
		return
	}
	h.push(data)
}

// Close stops the hub loop. Safe to call more than once.
func (h *Hub) Close() error {
	h.closeOnce.Do(func() { close(h.done) })
	return nil
}

// Latest returns the encoded latest view frame, or nil before the first view.
func (h *Hub) Latest() []byte {
	h.latestMu.RLock()
	defer h.latestMu.RUnlock()
	return h.latest
}

// ClientCount returns the number of connected pages.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// ServeWS upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &hubClient{
		hub:  h,
		conn: conn,
		send: make(chan []byte, clientBuffer),
	}

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) push(data []byte) {
	select {
	case h.broadcast <- data:
	case <-h.done:
	}
}

func (h *Hub) clientsChanged() {
	h.count.Store(int64(len(h.clients)))
	h.metrics.SetViewClients(len(h.clients))
}

func (h *Hub) dropAll() {
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	h.clientsChanged()
}

// readPump keeps the read deadline fresh and notices disconnects. Pages do
// not send commands over the socket; anything received is discarded.
func (c *hubClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
	}
}

func (c *hubClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
