package gateway

import (
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client is a single WebSocket peer.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu      sync.RWMutex
	symbols map[string]bool // nil means every symbol
}

func newClient(h *Hub, conn *websocket.Conn, symbols map[string]bool) *Client {
	return &Client{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, 256),
		symbols: symbols,
	}
}

// wants reports whether an event for symbol should reach this client.
// Events without a symbol (snapshots, summaries) always do.
func (c *Client) wants(symbol string) bool {
	if symbol == "" {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.symbols == nil || c.symbols[symbol]
}

func (c *Client) replay(entries []backlogEntry) {
	for _, e := range entries {
		if !c.wants(e.Symbol) {
			continue
		}
		select {
		case c.send <- e.Data:
		default:
			return
		}
	}
}

// filterMsg lets a connected client change its symbol filter:
// {"symbols":["TCS","INFY"]}; an empty list restores every symbol.
type filterMsg struct {
	Symbols []string `json:"symbols"`
}

func (c *Client) readPump() {
	defer func() {
		c.hub.remove(c)
		c.conn.Close()
		log.Println("[gateway] ws client disconnected")
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var f filterMsg
		if json.Unmarshal(msg, &f) != nil {
			continue
		}
		c.mu.Lock()
		if len(f.Symbols) == 0 {
			c.symbols = nil
		} else {
			c.symbols = make(map[string]bool, len(f.Symbols))
			for _, s := range f.Symbols {
				c.symbols[strings.ToUpper(s)] = true
			}
		}
		c.mu.Unlock()
	}
}

func (c *Client) writePump() {
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
