package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/guildtools/stockpile/internal/model"
)

// Message is one change notification broadcast to all dashboard
// clients.
type Message struct {
	Type     string       `json:"type"`
	Domain   model.Domain `json:"domain,omitempty"`
	Category string       `json:"category,omitempty"`
	Name     string       `json:"name,omitempty"`
	Action   string       `json:"action"`
}

// NewMessage builds a Message with Type derived from domain and action.
func NewMessage(domain model.Domain, category, name, action string) Message {
	return Message{
		Type:     fmt.Sprintf("%s_%s", domain, action),
		Domain:   domain,
		Category: category,
		Name:     name,
		Action:   action,
	}
}

// Hub maintains the set of connected WebSocket clients and fans
// messages out to them. A client that cannot keep up drops messages
// instead of blocking the sender.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("client registered", "client", c.id)
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Broadcast sends a message to every connected client.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Client buffer full, drop rather than stall the mutation path.
		}
	}
}

// NotifyChange satisfies the coordinator and synchronizer notifier
// contract.
func (h *Hub) NotifyChange(domain model.Domain, category, name, action string) {
	h.Broadcast(NewMessage(domain, category, name, action))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
