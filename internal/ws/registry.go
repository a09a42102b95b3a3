package ws

import (
	"sync"

	"support-chat/internal/domain"
)

// Registry mapea identidad → conexiones vivas y mantiene el subconjunto de
// conexiones de staff como campo propio del registro, no como estado global
// del proceso. Todas las mutaciones son seguras bajo concurrencia: registrar,
// desregistrar y difundir no producen vistas rotas del conjunto de staff.
type Registry struct {
	mu         sync.RWMutex
	byIdentity map[string]map[*Client]struct{}
	staff      map[*Client]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		byIdentity: make(map[string]map[*Client]struct{}),
		staff:      make(map[*Client]struct{}),
	}
}

func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.byIdentity[c.identity.ID]
	if !ok {
		conns = make(map[*Client]struct{})
		r.byIdentity[c.identity.ID] = conns
	}
	conns[c] = struct{}{}

	if c.identity.IsStaff() {
		r.staff[c] = struct{}{}
	}
}

// Unregister quita una sola conexión; otras conexiones de la misma identidad
// no se ven afectadas. Es idempotente.
func (r *Registry) Unregister(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conns, ok := r.byIdentity[c.identity.ID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(r.byIdentity, c.identity.ID)
		}
	}
	delete(r.staff, c)
}

// ConnectionsFor devuelve las conexiones vivas de una identidad.
func (r *Registry) ConnectionsFor(identityID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*Client, 0, len(r.byIdentity[identityID]))
	for c := range r.byIdentity[identityID] {
		conns = append(conns, c)
	}
	return conns
}

// BroadcastToStaff entrega el evento a cada conexión de staff exactamente una
// vez, sin importar cuántas salas esté mirando. La foto del conjunto se toma
// bajo el lock de lectura y el envío ocurre fuera de él.
func (r *Registry) BroadcastToStaff(event string, payload any) {
	r.mu.RLock()
	targets := make([]*Client, 0, len(r.staff))
	for c := range r.staff {
		targets = append(targets, c)
	}
	r.mu.RUnlock()

	for _, c := range targets {
		c.Enqueue(domain.Event{Type: event, Payload: payload})
	}
}

// StaffCount existe para observabilidad y tests.
func (r *Registry) StaffCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.staff)
}
