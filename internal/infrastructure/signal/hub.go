package signal

import (
	"errors"
	"sync"

	"callroom/internal/core/domain"
)

var (
	ErrConnectionNotFound = errors.New("connection not found")
	ErrSendQueueFull      = errors.New("send queue full")
)

// Hub tracks live connections on this instance and the broadcast group of
// every room they belong to. It implements ports.Notifier.
type Hub struct {
	mu      sync.RWMutex
	clients map[domain.ConnectionID]*Client
	groups  map[domain.RoomCode]map[domain.ConnectionID]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[domain.ConnectionID]*Client),
		groups:  make(map[domain.RoomCode]map[domain.ConnectionID]struct{}),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
}

// unregister drops the client and removes it from every group.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.clients[c.id]; ok && current == c {
		delete(h.clients, c.id)
	}
	for code, members := range h.groups {
		delete(members, c.id)
		if len(members) == 0 {
			delete(h.groups, code)
		}
	}
}

func (h *Hub) client(connID domain.ConnectionID) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[connID]
	return c, ok
}

func (h *Hub) Notify(connID domain.ConnectionID, event string, payload interface{}) error {
	c, ok := h.client(connID)
	if !ok {
		return ErrConnectionNotFound
	}
	return c.sendEvent(event, payload)
}

func (h *Hub) JoinGroup(connID domain.ConnectionID, code domain.RoomCode) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.groups[code]
	if !ok {
		members = make(map[domain.ConnectionID]struct{})
		h.groups[code] = members
	}
	members[connID] = struct{}{}
}

func (h *Hub) LeaveGroup(connID domain.ConnectionID, code domain.RoomCode) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.groups[code]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.groups, code)
	}
}

func (h *Hub) GroupExists(code domain.RoomCode) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[code]) > 0
}

func (h *Hub) CloseConnection(connID domain.ConnectionID) {
	if c, ok := h.client(connID); ok {
		c.close()
	}
}

// CloseAll closes every live connection; used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.close()
	}
}

// ConnectionCount reports live connections on this instance.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomCount reports rooms with at least one connection on this instance.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups)
}
