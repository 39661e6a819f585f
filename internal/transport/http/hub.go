package http

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
	"trivia-service/internal/domain"
)

const sendBuffer = 64

type client struct {
	id   string
	send chan []byte
}

// Hub tracks websocket clients and room membership. It implements app.Publisher: events are
// encoded once and queued on each recipient's buffered channel; a full queue drops the event
// for that client rather than stalling the room.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	rooms   map[string]map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*client),
		rooms:   make(map[string]map[string]struct{}),
	}
}

func (h *Hub) register(id string) *client {
	c := &client{id: id, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	h.clients[id] = c
	h.mu.Unlock()
	return c
}

// unregister forgets the client and closes its queue, which stops its writer.
func (h *Hub) unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[id]
	if !ok {
		return
	}
	delete(h.clients, id)
	for code, members := range h.rooms {
		delete(members, id)
		if len(members) == 0 {
			delete(h.rooms, code)
		}
	}
	close(c.send)
}

func (h *Hub) Attach(roomCode, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[connID]; !ok {
		return
	}
	members, ok := h.rooms[roomCode]
	if !ok {
		members = make(map[string]struct{})
		h.rooms[roomCode] = members
	}
	members[connID] = struct{}{}
}

func (h *Hub) Detach(roomCode, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[roomCode]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, roomCode)
		}
	}
}

func (h *Hub) Broadcast(roomCode string, event domain.Event) {
	data, ok := encode(event)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id := range h.rooms[roomCode] {
		if c, ok := h.clients[id]; ok {
			c.enqueue(data, event.Type)
		}
	}
}

func (h *Hub) Send(connID string, event domain.Event) {
	data, ok := encode(event)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[connID]; ok {
		c.enqueue(data, event.Type)
	}
}

func (h *Hub) CloseRoom(roomCode string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, roomCode)
}

// Members returns the number of connections attached to a room.
func (h *Hub) Members(roomCode string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomCode])
}

func (c *client) enqueue(data []byte, typ domain.EventType) {
	select {
	case c.send <- data:
	default:
		log.Warn().Str("conn", c.id).Str("event", string(typ)).Msg("send buffer full, dropping event")
	}
}

func encode(event domain.Event) ([]byte, bool) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("event", string(event.Type)).Msg("failed to encode event")
		return nil, false
	}
	return data, true
}
