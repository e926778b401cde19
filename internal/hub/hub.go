// Package hub fans live updates out to connected WebSocket clients.
package hub

import (
	"encoding/json"
	"sync"
	"time"

	appLog "festgrid/internal/log"
)

// Message types.
const (
	TypeFavoritesUpdated    = "favorites_updated"
	TypeNowTick             = "now_tick"
	TypePerformancesUpdated = "performances_updated" // after an import or reset
)

// Message is one broadcast notification.
type Message struct {
	Type      string   `json:"type"`
	Favorites []string `json:"favorites,omitempty"`
	Now       string   `json:"now,omitempty"`
	Date      string   `json:"date,omitempty"`
}

// FavoritesUpdated reports the new favorites set. An empty set is sent
// without the field; clients treat a missing list as empty.
func FavoritesUpdated(ids []string) Message {
	return Message{Type: TypeFavoritesUpdated, Favorites: ids}
}

// NowTick tells clients to recompute the now indicator.
func NowTick(now time.Time) Message {
	return Message{
		Type: TypeNowTick,
		Now:  now.Format(time.RFC3339),
		Date: now.Format("2006-01-02"),
	}
}

// Hub maintains the set of active clients.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func New() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client and closes its send channel. Repeated calls
// are no-ops.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast queues msg for every client. Clients with a full buffer miss it.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		appLog.Error("hub: marshal broadcast", err, "type", msg.Type)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
