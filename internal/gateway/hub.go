// Package gateway streams bot events to WebSocket clients.
package gateway

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"ganaka-trader/internal/model"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Envelope is the message written to WebSocket clients.
type Envelope struct {
	Seq   int64       `json:"seq"`
	Event model.Event `json:"event"`
}

// Hub tracks connected clients and broadcasts events to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	seq     int64
	backlog *Backlog
}

// NewHub creates a Hub that keeps the last backlogSize envelopes for
// reconnecting clients.
func NewHub(backlogSize int) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		backlog: NewBacklog(backlogSize),
	}
}

// Run broadcasts events from ch until ctx is cancelled or ch is closed.
func (h *Hub) Run(ctx context.Context, ch <-chan model.Event) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case ev, ok := <-ch:
			if !ok {
				h.closeAll()
				return
			}
			h.Broadcast(ev)
		}
	}
}

// Broadcast stamps ev with the next sequence number and queues it for every
// interested client. Slow clients drop the message.
func (h *Hub) Broadcast(ev model.Event) {
	h.mu.Lock()
	h.seq++
	seq := h.seq
	h.mu.Unlock()

	data, err := json.Marshal(Envelope{Seq: seq, Event: ev})
	if err != nil {
		log.Printf("[gateway] encode %s event: %v", ev.Type, err)
		return
	}
	h.backlog.Push(seq, ev.Symbol, data)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.wants(ev.Symbol) {
			continue
		}
		select {
		case c.send <- data:
		default:
		}
	}
}

// ServeHTTP upgrades the request to a WebSocket connection.
//
// Query parameters: symbols=A,B restricts symbol-scoped events (snapshots
// and summaries are always delivered); since=N replays buffered envelopes
// with seq > N before live delivery.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[gateway] ws upgrade error: %v", err)
		return
	}

	c := newClient(h, conn, parseSymbols(r.URL.Query().Get("symbols")))

	h.mu.Lock()
	h.clients[c] = true
	count := len(h.clients)
	h.mu.Unlock()
	log.Printf("[gateway] ws client connected (%d total)", count)

	if s := r.URL.Query().Get("since"); s != "" {
		if since, err := strconv.ParseInt(s, 10, 64); err == nil {
			c.replay(h.backlog.Since(since))
		}
	}

	go c.writePump()
	go c.readPump()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Seq returns the last assigned sequence number.
func (h *Hub) Seq() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.seq
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func parseSymbols(s string) map[string]bool {
	if s == "" {
		return nil
	}
	out := make(map[string]bool)
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out[strings.ToUpper(p)] = true
		}
	}
	return out
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)
