// Package ws carries the change feed: whenever a clear request relevant to a
// user is inserted or updated, the affected users' open connections receive
// an event. Delivery is best-effort; clients reconcile over HTTP after
// (re)connecting.
package ws

import (
	"context"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Event is the envelope written to feed connections
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// EventTypeClearRequest labels clear-request feed events
const EventTypeClearRequest = "clear_request"

// Client is one open feed connection for a user
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan Event

	ctx    context.Context
	cancel context.CancelFunc
}

// Hub tracks open feed connections per user id
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		clients: map[string]map[*Client]struct{}{},
	}
}

// AddClient registers a connection for a user and starts its write and
// keepalive loops.
func (h *Hub) AddClient(userID string, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	c := &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan Event, 64),
		ctx:    ctx,
		cancel: cancel,
	}

	h.mu.Lock()
	if h.clients[userID] == nil {
		h.clients[userID] = map[*Client]struct{}{}
	}
	h.clients[userID][c] = struct{}{}
	h.mu.Unlock()

	go c.writeLoop()
	go c.keepAliveLoop()

	return c
}

// RemoveClient unregisters and closes a connection
func (h *Hub) RemoveClient(c *Client) {
	c.cancel()

	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.clients[c.UserID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.UserID)
		}
	}

	_ = c.Conn.Close(websocket.StatusNormalClosure, "bye")
}

// BroadcastToUsers fans an event out to every open connection of the given
// users. Duplicate ids are delivered once (the self-pairing case passes the
// same id as both sender and receiver).
func (h *Hub) BroadcastToUsers(userIDs []string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]struct{}, len(userIDs))
	for _, uid := range userIDs {
		if _, dup := seen[uid]; dup {
			continue
		}
		seen[uid] = struct{}{}
		for c := range h.clients[uid] {
			select {
			case c.Send <- ev:
			default:
				// channel full: drop, the client will reconcile
			}
		}
	}
}

func (c *Client) writeLoop() {
	// Send is never closed: a broadcast may race a disconnect, and sending
	// into an abandoned buffered channel is harmless while sending into a
	// closed one is not.
	for {
		select {
		case <-c.ctx.Done():
			return
		case ev := <-c.Send:
			writeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			_ = wsjson.Write(writeCtx, c.Conn, ev)
			cancel()
		}
	}
}

func (c *Client) keepAliveLoop() {
	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = c.Conn.Ping(pingCtx)
			cancel()
		}
	}
}
