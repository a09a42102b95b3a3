package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"support-chat/internal/service"
)

// SessionHandler mantiene dependencias para los endpoints REST de sesiones.
type SessionHandler struct {
	logger   *zap.Logger
	sessions *service.SessionService
	messages *service.MessageService
	presence service.PresenceStore
}

func NewSessionHandler(
	logger *zap.Logger,
	sessions *service.SessionService,
	messages *service.MessageService,
	presence service.PresenceStore,
) *SessionHandler {
	return &SessionHandler{
		logger:   logger,
		sessions: sessions,
		messages: messages,
		presence: presence,
	}
}

// CreateSession maneja POST /api/sessions: un cliente inicia contacto.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	identity, ok := GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	var req struct {
		Subject  string `json:"subject"`
		Category string `json:"category"`
		Priority string `json:"priority"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	session, err := h.sessions.Create(c.Request.Context(), identity, req.Subject, req.Category, req.Priority)
	if err != nil {
		h.logger.Error("create session failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": service.ErrorKind(err)})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"session": session})
}

// ListMessages maneja GET /api/sessions/:id/messages con paginación simple.
func (h *SessionHandler) ListMessages(c *gin.Context) {
	identity, ok := GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	msgs, err := h.messages.History(c.Request.Context(), identity, c.Param("id"), limit, offset)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrAccessDenied) {
			status = http.StatusForbidden
		}
		c.JSON(status, gin.H{"error": service.ErrorKind(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs, "count": len(msgs)})
}

// OnlineUsers maneja GET /api/sessions/:id/online.
func (h *SessionHandler) OnlineUsers(c *gin.Context) {
	identity, ok := GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	sessionID := c.Param("id")
	session, err := h.sessions.Get(c.Request.Context(), sessionID)
	if err != nil || !session.CanAccess(identity) {
		c.JSON(http.StatusForbidden, gin.H{"error": service.ErrorKind(service.ErrAccessDenied)})
		return
	}

	users, err := h.presence.List(sessionID)
	if err != nil {
		h.logger.Warn("presence list failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "count": len(users), "users": users})
}
