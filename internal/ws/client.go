package ws

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"support-chat/internal/domain"
)

const sendBufferSize = 256

// Client es una conexión viva: identidad verificada, socket y cola de envío.
// Una identidad puede tener varios Client simultáneos (varias pestañas);
// nada de esto se persiste y un reinicio del proceso lo pierde todo.
type Client struct {
	id       string
	identity domain.Identity
	conn     *websocket.Conn
	send     chan domain.Event
	ctx      context.Context
	cancel   context.CancelFunc

	mu     sync.Mutex
	joined map[string]struct{}
}

func newClient(identity domain.Identity, conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		id:       uuid.NewString(),
		identity: identity,
		conn:     conn,
		send:     make(chan domain.Event, sendBufferSize),
		ctx:      ctx,
		cancel:   cancel,
		joined:   make(map[string]struct{}),
	}
}

func (c *Client) Identity() domain.Identity {
	return c.identity
}

// Enqueue encola un evento sin bloquear. Si la cola está llena el cliente se
// da por muerto y se cancela su conexión; los demás clientes no esperan.
func (c *Client) Enqueue(event domain.Event) bool {
	select {
	case c.send <- event:
		return true
	default:
		c.cancel()
		return false
	}
}

// Joined informa si esta conexión está unida a la sala de la sesión.
func (c *Client) Joined(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.joined[sessionID]
	return ok
}

func (c *Client) markJoined(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.joined[sessionID] = struct{}{}
}

func (c *Client) markLeft(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.joined, sessionID)
}

func (c *Client) joinedRooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	rooms := make([]string, 0, len(c.joined))
	for id := range c.joined {
		rooms = append(rooms, id)
	}
	return rooms
}
