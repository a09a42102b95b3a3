package domain

import "time"

// Tipos de mensaje dentro de una sesión.
const (
	MessageText       = "text"
	MessageSystem     = "system"
	MessageAutoNotice = "auto_notice"
)

// Estados de entrega de un mensaje.
const (
	DeliverySent      = "sent"
	DeliveryDelivered = "delivered"
	DeliveryRead      = "read"
)

// Message pertenece siempre a una única ChatSession. Es inmutable salvo por
// el avance del estado de entrega y el camino explícito de edición, que
// conserva el contenido anterior en el historial de ediciones.
type Message struct {
	ID             string     `json:"id"`
	SessionID      string     `json:"session_id"`
	SenderID       string     `json:"sender_id"`
	SenderName     string     `json:"sender_name,omitempty"`
	FromStaff      bool       `json:"from_staff"`
	Content        string     `json:"content"`
	Type           string     `json:"type"`
	DeliveryStatus string     `json:"delivery_status"`
	ReplyToID      string     `json:"reply_to_id,omitempty"`
	Edited         bool       `json:"edited"`
	EditedAt       *time.Time `json:"edited_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// MessageEdit guarda una versión previa del contenido de un mensaje.
type MessageEdit struct {
	ID        string    `json:"id"`
	MessageID string    `json:"message_id"`
	Content   string    `json:"content"`
	EditedAt  time.Time `json:"edited_at"`
}

// ValidMessageType acepta solo los tipos conocidos; el resto cae a "text".
func ValidMessageType(t string) string {
	switch t {
	case MessageText, MessageSystem, MessageAutoNotice:
		return t
	}
	return MessageText
}
