package domain

import "time"

// Estados posibles de una sesión de soporte.
const (
	SessionOpen       = "open"
	SessionInProgress = "in_progress"
	SessionResolved   = "resolved"
	SessionClosed     = "closed"
)

// Prioridades reconocidas al abrir una sesión.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Razones de cierre registradas en la sesión.
const (
	CloseReasonResolved = "resolved"
	CloseReasonClosed   = "closed"
	CloseReasonExpired  = "expired"
)

// ChatSession representa una conversación de soporte entre un cliente y el staff.
// Las sesiones cerradas se conservan como historial, nunca se eliminan.
type ChatSession struct {
	ID                 string     `json:"id"`
	CustomerID         string     `json:"customer_id"`
	CustomerName       string     `json:"customer_name,omitempty"`
	AssignedStaffID    string     `json:"assigned_staff_id,omitempty"`
	AssignedStaffName  string     `json:"assigned_staff_name,omitempty"`
	Status             string     `json:"status"`
	Priority           string     `json:"priority"`
	Category           string     `json:"category,omitempty"`
	Subject            string     `json:"subject,omitempty"`
	ResolutionNotes    string     `json:"resolution_notes,omitempty"`
	CloseReason        string     `json:"close_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	LastMessageAt      time.Time  `json:"last_message_at"`
	LastSeenByCustomer *time.Time `json:"last_seen_by_customer,omitempty"`
	LastSeenByStaff    *time.Time `json:"last_seen_by_staff,omitempty"`
	ClosedAt           *time.Time `json:"closed_at,omitempty"`
}

// IsClosed indica si la sesión está en su estado terminal.
func (s ChatSession) IsClosed() bool {
	return s.Status == SessionClosed
}

// CanAccess decide si una identidad puede unirse o publicar en la sala de la
// sesión: el staff siempre puede; un cliente solo si es el participante
// registrado o el staff asignado (simetría con sesiones abiertas por staff).
func (s ChatSession) CanAccess(id Identity) bool {
	if id.IsStaff() {
		return true
	}
	return id.ID == s.CustomerID || (s.AssignedStaffID != "" && id.ID == s.AssignedStaffID)
}

// CanTransition valida el autómata de estados de la sesión.
func CanTransition(from, to string) bool {
	switch from {
	case SessionOpen:
		return to == SessionInProgress || to == SessionClosed
	case SessionInProgress:
		return to == SessionResolved || to == SessionClosed
	case SessionResolved:
		return to == SessionClosed
	case SessionClosed:
		return false
	}
	return false
}

// ValidPriority normaliza prioridades desconocidas a "normal".
func ValidPriority(p string) string {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return p
	}
	return PriorityNormal
}
