package ws

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"support-chat/internal/domain"
	"support-chat/internal/service"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// ErrUnknownEvent responde a tipos de evento que el protocolo no reconoce.
var ErrUnknownEvent = errors.New("unknown event type")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler atiende la conexión persistente: verifica la credencial, registra
// la conexión y despacha los eventos entrantes hacia los servicios.
type Handler struct {
	logger   *zap.Logger
	auth     *service.AuthService
	registry *Registry
	rooms    *RoomRouter
	presence service.PresenceStore
	sessions *service.SessionService
	messages *service.MessageService
}

func NewHandler(
	logger *zap.Logger,
	auth *service.AuthService,
	registry *Registry,
	rooms *RoomRouter,
	presence service.PresenceStore,
	sessions *service.SessionService,
	messages *service.MessageService,
) *Handler {
	return &Handler{
		logger:   logger,
		auth:     auth,
		registry: registry,
		rooms:    rooms,
		presence: presence,
		sessions: sessions,
		messages: messages,
	}
}

// inboundEvent difiere el parseo del payload hasta conocer el tipo.
type inboundEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Serve maneja GET /ws. Cualquier fallo de verificación rechaza el intento
// antes de registrar estado alguno.
func (h *Handler) Serve(c *gin.Context) {
	credential := c.Query("token")
	if credential == "" {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if strings.HasPrefix(strings.ToLower(header), "bearer ") {
			credential = strings.TrimSpace(header[len("Bearer "):])
		}
	}

	identity, err := h.auth.Verify(c.Request.Context(), credential)
	if err != nil {
		h.logger.Warn("connection rejected", zap.String("reason", service.ErrorKind(err)))
		c.JSON(http.StatusUnauthorized, gin.H{"error": service.ErrorKind(err)})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newClient(identity, conn)
	h.registry.Register(client)
	client.Enqueue(domain.Event{Type: domain.EventConnected, Payload: identity})

	h.logger.Info("client connected",
		zap.String("user_id", identity.ID),
		zap.String("role", identity.Role),
	)

	go h.writePump(client)
	h.readPump(client)
}

// readPump procesa los eventos del cliente. Al salir por cualquier motivo la
// conexión queda fuera del registro y de todas sus salas: desconectar es un
// leave-everything implícito.
func (h *Handler) readPump(client *Client) {
	defer func() {
		client.cancel()
		for _, sessionID := range h.rooms.LeaveAll(client) {
			h.forgetPresence(client, sessionID)
		}
		h.registry.Unregister(client)
		client.conn.Close()
		h.logger.Info("client disconnected", zap.String("user_id", client.identity.ID))
	}()

	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var event inboundEvent
		if err := client.conn.ReadJSON(&event); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read", zap.Error(err))
			}
			return
		}
		h.dispatch(client, event)
	}
}

func (h *Handler) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case <-client.ctx.Done():
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			client.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case event := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteJSON(event); err != nil {
				return
			}

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Handler) dispatch(client *Client, event inboundEvent) {
	switch event.Type {
	case domain.EventJoinRoom:
		h.handleJoin(client, event.Payload)
	case domain.EventLeaveRoom:
		h.handleLeave(client, event.Payload)
	case domain.EventSendMessage:
		h.handleSend(client, event.Payload)
	case domain.EventEditMessage:
		h.handleEdit(client, event.Payload)
	case domain.EventMarkRead:
		h.handleMarkRead(client, event.Payload)
	case domain.EventTypingStart:
		h.handleTyping(client, event.Payload, true)
	case domain.EventTypingStop:
		h.handleTyping(client, event.Payload, false)
	case domain.EventAssignSession:
		h.handleAssign(client, event.Payload)
	case domain.EventCloseSession:
		h.handleClose(client, event.Payload)
	default:
		h.sendError(client, ErrUnknownEvent)
	}
}

type roomPayload struct {
	SessionID string `json:"session_id"`
}

func (h *Handler) handleJoin(client *Client, raw json.RawMessage) {
	var p roomPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.SessionID == "" {
		h.sendError(client, service.ErrInvalidMessage)
		return
	}

	session, err := h.sessions.Get(client.ctx, p.SessionID)
	if err != nil {
		h.sendError(client, err)
		return
	}
	if !session.CanAccess(client.identity) {
		h.sendError(client, service.ErrAccessDenied)
		return
	}

	h.rooms.Join(client, session.ID)
	if err := h.presence.Add(session.ID, client.identity); err != nil {
		h.logger.Warn("presence add failed", zap.Error(err))
	}

	client.Enqueue(domain.Event{Type: domain.EventJoinedRoom, Payload: roomPayload{SessionID: session.ID}})
}

func (h *Handler) handleLeave(client *Client, raw json.RawMessage) {
	var p roomPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.SessionID == "" {
		return
	}

	h.rooms.Leave(client, p.SessionID)
	h.forgetPresence(client, p.SessionID)
	client.Enqueue(domain.Event{Type: domain.EventLeftRoom, Payload: roomPayload{SessionID: p.SessionID}})
}

// forgetPresence quita la identidad de la lista de presencia solo si esta
// era su última conexión mirando la sala.
func (h *Handler) forgetPresence(client *Client, sessionID string) {
	for _, other := range h.registry.ConnectionsFor(client.identity.ID) {
		if other != client && other.Joined(sessionID) {
			return
		}
	}
	if err := h.presence.Remove(sessionID, client.identity.ID); err != nil {
		h.logger.Warn("presence remove failed", zap.Error(err))
	}
}

type sendPayload struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
	Type      string `json:"type"`
	ReplyToID string `json:"reply_to_id"`
}

func (h *Handler) handleSend(client *Client, raw json.RawMessage) {
	var p sendPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.SessionID == "" {
		h.sendError(client, service.ErrInvalidMessage)
		return
	}

	if _, err := h.messages.Send(client.ctx, client.identity, p.SessionID, p.Content, p.Type, p.ReplyToID); err != nil {
		h.sendError(client, err)
	}
}

type editPayload struct {
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
}

func (h *Handler) handleEdit(client *Client, raw json.RawMessage) {
	var p editPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.MessageID == "" {
		h.sendError(client, service.ErrInvalidMessage)
		return
	}

	if _, err := h.messages.Edit(client.ctx, client.identity, p.MessageID, p.Content); err != nil {
		h.sendError(client, err)
	}
}

func (h *Handler) handleMarkRead(client *Client, raw json.RawMessage) {
	var p roomPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.SessionID == "" {
		return
	}

	if err := h.messages.MarkRead(client.ctx, client.identity, p.SessionID); err != nil {
		h.sendError(client, err)
	}
}

// handleTyping difunde la señal a la sala sin persistir nada. Es mejor
// esfuerzo: fuera de la sala se ignora en silencio, perder la señal no es
// una condición de error.
func (h *Handler) handleTyping(client *Client, raw json.RawMessage, isTyping bool) {
	var p roomPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.SessionID == "" {
		return
	}
	if !client.Joined(p.SessionID) {
		return
	}

	h.rooms.BroadcastToRoomExcept(p.SessionID, client, domain.EventUserTyping, domain.TypingPayload{
		SessionID: p.SessionID,
		UserID:    client.identity.ID,
		UserName:  client.identity.DisplayName,
		IsTyping:  isTyping,
	})
}

type assignPayload struct {
	SessionID string `json:"session_id"`
	StaffID   string `json:"staff_id"`
	StaffName string `json:"staff_name"`
}

func (h *Handler) handleAssign(client *Client, raw json.RawMessage) {
	var p assignPayload
	if err := json.Unmarshal(raw, &p); err != nil || p.SessionID == "" {
		h.sendError(client, service.ErrInvalidMessage)
		return
	}

	if _, err := h.sessions.Assign(client.ctx, p.SessionID, client.identity, p.StaffID, p.StaffName); err != nil {
		h.sendError(client, err)
	}
}

type closePayload struct {
	SessionID string `json:"session_id"`
	Notes     string `json:"notes"`
}

func (h *Handler) handleClose(client *Client, raw json.RawMessage) {
	var p closePayload
	if err := json.Unmarshal(raw, &p); err != nil || p.SessionID == "" {
		h.sendError(client, service.ErrInvalidMessage)
		return
	}

	if _, err := h.sessions.Close(client.ctx, p.SessionID, client.identity, p.Notes); err != nil {
		h.sendError(client, err)
	}
}

// sendError reporta el fallo solo a la conexión que originó la operación.
// Hacia el cliente va un texto fijo por tipo de fallo; el error crudo se
// registra únicamente en el log.
func (h *Handler) sendError(client *Client, err error) {
	kind := service.ErrorKind(err)
	message := service.ErrorMessage(err)
	if errors.Is(err, ErrUnknownEvent) {
		kind = "unknown_event"
		message = ErrUnknownEvent.Error()
	}

	h.logger.Warn("client operation failed",
		zap.String("user_id", client.identity.ID),
		zap.String("kind", kind),
		zap.Error(err),
	)
	client.Enqueue(domain.Event{
		Type:    domain.EventError,
		Payload: domain.ErrorPayload{Kind: kind, Message: message},
	})
}
