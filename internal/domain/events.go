package domain

// Eventos entrantes sobre la conexión persistente.
const (
	EventJoinRoom      = "join_room"
	EventLeaveRoom     = "leave_room"
	EventSendMessage   = "send_message"
	EventEditMessage   = "edit_message"
	EventMarkRead      = "mark_read"
	EventTypingStart   = "typing_start"
	EventTypingStop    = "typing_stop"
	EventAssignSession = "assign_session"
	EventCloseSession  = "close_session"
)

// Eventos salientes hacia los clientes conectados.
const (
	EventConnected            = "connected"
	EventJoinedRoom           = "joined_room"
	EventLeftRoom             = "left_room"
	EventNewMessage           = "new_message"
	EventMessageEdited        = "message_edited"
	EventMessagesRead         = "messages_read"
	EventUserTyping           = "user_typing"
	EventSessionCreated       = "session_created"
	EventSessionAssigned      = "session_assigned"
	EventSessionStatusChanged = "session_status_changed"
	EventSessionClosed        = "session_closed"
	EventSessionActivity      = "session_activity"
	EventError                = "error"
)

// Event es el sobre común de todos los mensajes del protocolo websocket.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// ErrorPayload acompaña a todo evento "error" con la razón explícita;
// nunca se descarta una operación en silencio.
type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type TypingPayload struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	UserName  string `json:"user_name,omitempty"`
	IsTyping  bool   `json:"is_typing"`
}

type SessionAssignedPayload struct {
	SessionID string `json:"session_id"`
	StaffID   string `json:"staff_id"`
	StaffName string `json:"staff_name,omitempty"`
}

type SessionStatusPayload struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

type SessionClosedPayload struct {
	SessionID string `json:"session_id"`
	Reason    string `json:"reason"`
}

// ActivityPayload es el aviso liviano que reciben todos los miembros del
// staff conectados cuando un cliente escribe, estén o no mirando la sala.
type ActivityPayload struct {
	SessionID  string `json:"session_id"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name,omitempty"`
	Preview    string `json:"preview,omitempty"`
}

type MessagesReadPayload struct {
	SessionID string `json:"session_id"`
	ReaderID  string `json:"reader_id"`
}
