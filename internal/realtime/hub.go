// Package realtime pushes "refresh" events to dashboards watching a company.
package realtime

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

type Event struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	CompanyID string `json:"company_id"`
}

// client owns one connection. Only its write loop writes to conn; everyone
// else queues on events.
type client struct {
	conn   *websocket.Conn
	events chan Event
	once   sync.Once
}

func newClient(conn *websocket.Conn) *client {
	return &client{conn: conn, events: make(chan Event, sendBuffer)}
}

// enqueue never blocks. It reports false when the queue is full.
func (c *client) enqueue(ev Event) bool {
	select {
	case c.events <- ev:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.once.Do(func() { c.conn.Close() })
}

// writeLoop drains the queue and keeps the connection alive until done is
// closed or a write fails.
func (c *client) writeLoop(done <-chan struct{}) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return nil
		case ev := <-c.events:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return err
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return err
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return err
			}
		}
	}
}

type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]struct{}
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewHub(origins []string, log *slog.Logger) *Hub {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}

	return &Hub{
		clients: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return allowed[r.Header.Get("Origin")]
			},
		},
		log: log,
	}
}

func (h *Hub) register(companyID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[companyID] == nil {
		h.clients[companyID] = make(map[*client]struct{})
	}
	h.clients[companyID][c] = struct{}{}
}

func (h *Hub) unregister(companyID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[companyID]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.clients, companyID)
		}
	}
}

// Clients reports how many connections watch companyID.
func (h *Hub) Clients(companyID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients[companyID])
}

// CompanyChanged tells every dashboard of companyID to reload. It only
// queues the event; a client whose queue is full is disconnected.
func (h *Hub) CompanyChanged(companyID string) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients[companyID]))
	for c := range h.clients[companyID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	event := Event{Type: "refresh", Message: "Dashboard data updated", CompanyID: companyID}

	for _, c := range clients {
		if !c.enqueue(event) {
			h.log.Warn("dropping slow websocket client", "company_id", companyID)
			h.unregister(companyID, c)
			c.close()
		}
	}
}

// Serve upgrades the request and blocks until the client goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, companyID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "company_id", companyID, "error", err)
		return
	}

	c := newClient(conn)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	c.enqueue(Event{Type: "connected", Message: "WebSocket connection established", CompanyID: companyID})
	h.register(companyID, c)

	done := make(chan struct{})

	defer func() {
		close(done)
		h.unregister(companyID, c)
		c.close()
		h.log.Debug("websocket connection closed", "company_id", companyID)
	}()

	go func() {
		if err := c.writeLoop(done); err != nil {
			h.log.Debug("websocket write failed", "company_id", companyID, "error", err)
			// unblocks the read loop below
			c.close()
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn("websocket read failed", "company_id", companyID, "error", err)
			}
			return
		}
	}
}
