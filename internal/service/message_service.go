package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"support-chat/internal/domain"
	"support-chat/internal/repository"
)

const activityPreviewLen = 80

// MessageService es el pipeline de mensajes: valida, persiste y difunde.
// Un mensaje jamás se difunde antes de quedar persistido; un cliente nunca
// debe ver un mensaje que desaparece al recargar.
type MessageService struct {
	logger    *zap.Logger
	messages  repository.MessageRepository
	sessions  repository.SessionRepository
	lifecycle *SessionService
	rooms     RoomBroadcaster
	staff     StaffBroadcaster
	maxLen    int

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMessageService(
	logger *zap.Logger,
	messages repository.MessageRepository,
	sessions repository.SessionRepository,
	lifecycle *SessionService,
	rooms RoomBroadcaster,
	staff StaffBroadcaster,
	maxLen int,
) *MessageService {
	if maxLen <= 0 {
		maxLen = 2000
	}
	return &MessageService{
		logger:    logger,
		messages:  messages,
		sessions:  sessions,
		lifecycle: lifecycle,
		rooms:     rooms,
		staff:     staff,
		maxLen:    maxLen,
		locks:     make(map[string]*sync.Mutex),
	}
}

// sessionLock devuelve el candado de la sesión, creándolo la primera vez.
func (s *MessageService) sessionLock(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[sessionID] = lock
	}
	return lock
}

// Send ejecuta los pasos del pipeline en orden estricto: validación,
// re-autorización contra el estado vigente de la sesión, persistencia,
// difusión a la sala y, si el autor es un cliente, aviso a todo el staff.
// Cualquier fallo previo a la persistencia no deja efecto alguno.
func (s *MessageService) Send(ctx context.Context, sender domain.Identity, sessionID, content, msgType, replyToID string) (domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" || utf8.RuneCountInString(content) > s.maxLen {
		return domain.Message{}, ErrInvalidMessage
	}

	session, err := s.lifecycle.Get(ctx, sessionID)
	if err != nil {
		return domain.Message{}, err
	}
	if session.IsClosed() {
		return domain.Message{}, ErrSessionClosed
	}
	if !session.CanAccess(sender) {
		return domain.Message{}, ErrAccessDenied
	}

	now := time.Now().UTC()
	msg := domain.Message{
		ID:             uuid.NewString(),
		SessionID:      sessionID,
		SenderID:       sender.ID,
		SenderName:     sender.DisplayName,
		FromStaff:      sender.IsStaff(),
		Content:        content,
		Type:           domain.ValidMessageType(msgType),
		DeliveryStatus: domain.DeliverySent,
		ReplyToID:      replyToID,
		CreatedAt:      now,
	}

	// El candado por sesión mantiene atómica la ventana persistir→difundir:
	// dentro de una sala los mensajes se difunden en el mismo orden en que
	// se completó su persistencia. Sesiones distintas no se serializan.
	lock := s.sessionLock(sessionID)
	lock.Lock()
	if err := s.messages.Create(ctx, msg); err != nil {
		lock.Unlock()
		return domain.Message{}, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	if err := s.sessions.TouchLastMessage(ctx, sessionID, now); err != nil {
		// El mensaje ya está persistido: se difunde igual y el próximo
		// envío vuelve a empujar last_message_at.
		s.logger.Warn("touch last message failed",
			zap.String("session_id", sessionID), zap.Error(err))
	}
	s.rooms.BroadcastToRoom(sessionID, domain.EventNewMessage, msg)
	lock.Unlock()

	if !sender.IsStaff() {
		s.staff.BroadcastToStaff(domain.EventSessionActivity, domain.ActivityPayload{
			SessionID:  sessionID,
			SenderID:   sender.ID,
			SenderName: sender.DisplayName,
			Preview:    preview(content),
		})
	}

	return msg, nil
}

// Edit reemplaza el contenido de un mensaje propio conservando la versión
// anterior en el historial de ediciones.
func (s *MessageService) Edit(ctx context.Context, editor domain.Identity, messageID, content string) (domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" || utf8.RuneCountInString(content) > s.maxLen {
		return domain.Message{}, ErrInvalidMessage
	}

	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return domain.Message{}, ErrAccessDenied
	}
	if msg.SenderID != editor.ID {
		return domain.Message{}, ErrAccessDenied
	}

	session, err := s.lifecycle.Get(ctx, msg.SessionID)
	if err != nil {
		return domain.Message{}, err
	}
	if session.IsClosed() {
		return domain.Message{}, ErrSessionClosed
	}

	now := time.Now().UTC()
	if err := s.messages.Edit(ctx, messageID, content, now); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	msg.Content = content
	msg.Edited = true
	msg.EditedAt = &now
	s.rooms.BroadcastToRoom(msg.SessionID, domain.EventMessageEdited, msg)
	return msg, nil
}

// MarkRead avanza el estado de entrega de los mensajes de la contraparte y
// actualiza la marca de última vista del lector.
func (s *MessageService) MarkRead(ctx context.Context, reader domain.Identity, sessionID string) error {
	session, err := s.lifecycle.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if !session.CanAccess(reader) {
		return ErrAccessDenied
	}

	if err := s.messages.MarkRead(ctx, sessionID, reader.IsStaff()); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	if err := s.sessions.UpdateLastSeen(ctx, sessionID, reader.IsStaff(), time.Now().UTC()); err != nil {
		s.logger.Warn("update last seen failed",
			zap.String("session_id", sessionID), zap.Error(err))
	}

	s.rooms.BroadcastToRoom(sessionID, domain.EventMessagesRead, domain.MessagesReadPayload{
		SessionID: sessionID,
		ReaderID:  reader.ID,
	})
	return nil
}

// History lista los mensajes persistidos de una sesión accesible al lector.
func (s *MessageService) History(ctx context.Context, reader domain.Identity, sessionID string, limit, offset int) ([]domain.Message, error) {
	session, err := s.lifecycle.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.CanAccess(reader) {
		return nil, ErrAccessDenied
	}
	msgs, err := s.messages.ListBySessionID(ctx, sessionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	return msgs, nil
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= activityPreviewLen {
		return content
	}
	return string(runes[:activityPreviewLen])
}
