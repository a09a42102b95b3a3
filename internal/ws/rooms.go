package ws

import (
	"sync"

	"support-chat/internal/domain"
)

// RoomRouter administra la membresía por sesión. La autorización de acceso
// es regla del dominio (ChatSession.CanAccess); aquí solo vive quién está
// unido a qué sala y la difusión a sus miembros.
type RoomRouter struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewRoomRouter() *RoomRouter {
	return &RoomRouter{
		rooms: make(map[string]map[*Client]struct{}),
	}
}

func (r *RoomRouter) Join(c *Client, sessionID string) {
	r.mu.Lock()
	room, ok := r.rooms[sessionID]
	if !ok {
		room = make(map[*Client]struct{})
		r.rooms[sessionID] = room
	}
	room[c] = struct{}{}
	r.mu.Unlock()

	c.markJoined(sessionID)
}

// Leave saca la conexión de la sala. Salir de una sala a la que nunca se
// unió es un no-op, no un error.
func (r *RoomRouter) Leave(c *Client, sessionID string) {
	r.mu.Lock()
	if room, ok := r.rooms[sessionID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(r.rooms, sessionID)
		}
	}
	r.mu.Unlock()

	c.markLeft(sessionID)
}

// LeaveAll es la salida implícita al desconectar: quita la conexión de todas
// sus salas sin requerir leave explícito y devuelve cuáles dejó.
func (r *RoomRouter) LeaveAll(c *Client) []string {
	left := c.joinedRooms()
	for _, sessionID := range left {
		r.Leave(c, sessionID)
	}
	return left
}

// BroadcastToRoom entrega el evento a cada conexión unida a la sala,
// exactamente una vez por conexión.
func (r *RoomRouter) BroadcastToRoom(sessionID, event string, payload any) {
	r.broadcast(sessionID, nil, event, payload)
}

// BroadcastToRoomExcept difunde a la sala excluyendo al emisor; lo usan las
// señales de tipeo, que el propio emisor no necesita recibir de vuelta.
func (r *RoomRouter) BroadcastToRoomExcept(sessionID string, except *Client, event string, payload any) {
	r.broadcast(sessionID, except, event, payload)
}

func (r *RoomRouter) broadcast(sessionID string, except *Client, event string, payload any) {
	r.mu.RLock()
	targets := make([]*Client, 0, len(r.rooms[sessionID]))
	for c := range r.rooms[sessionID] {
		if c == except {
			continue
		}
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	for _, c := range targets {
		c.Enqueue(domain.Event{Type: event, Payload: payload})
	}
}

// Members devuelve cuántas conexiones miran la sala.
func (r *RoomRouter) Members(sessionID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[sessionID])
}
