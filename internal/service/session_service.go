package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"support-chat/internal/domain"
	"support-chat/internal/repository"
)

// SessionService es el dueño del autómata de estados de la sesión:
// asignación, cambios de estado y cierre (por staff o forzado).
type SessionService struct {
	logger   *zap.Logger
	sessions repository.SessionRepository
	rooms    RoomBroadcaster
	staff    StaffBroadcaster
}

func NewSessionService(logger *zap.Logger, sessions repository.SessionRepository, rooms RoomBroadcaster, staff StaffBroadcaster) *SessionService {
	return &SessionService{
		logger:   logger,
		sessions: sessions,
		rooms:    rooms,
		staff:    staff,
	}
}

// Create abre una sesión nueva cuando un cliente inicia contacto y avisa al
// staff conectado.
func (s *SessionService) Create(ctx context.Context, customer domain.Identity, subject, category, priority string) (domain.ChatSession, error) {
	now := time.Now().UTC()
	session := domain.ChatSession{
		ID:            uuid.NewString(),
		CustomerID:    customer.ID,
		CustomerName:  customer.DisplayName,
		Status:        domain.SessionOpen,
		Priority:      domain.ValidPriority(priority),
		Category:      strings.TrimSpace(category),
		Subject:       strings.TrimSpace(subject),
		CreatedAt:     now,
		LastMessageAt: now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return domain.ChatSession{}, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	s.staff.BroadcastToStaff(domain.EventSessionCreated, session)
	return session, nil
}

func (s *SessionService) Get(ctx context.Context, id string) (domain.ChatSession, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.ChatSession{}, ErrAccessDenied
	}
	if err != nil {
		return domain.ChatSession{}, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	return session, nil
}

// Assign pasa una sesión abierta a in_progress y fija el staff asignado.
// Dos staff compitiendo por la misma sesión resuelven en la base: gana la
// primera escritura y el perdedor observa la sesión ya asignada, sin error.
func (s *SessionService) Assign(ctx context.Context, sessionID string, actor domain.Identity, assigneeID, assigneeName string) (domain.ChatSession, error) {
	if !actor.IsStaff() {
		return domain.ChatSession{}, ErrAccessDenied
	}
	if assigneeID == "" {
		assigneeID = actor.ID
		assigneeName = actor.DisplayName
	}

	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return domain.ChatSession{}, err
	}
	if session.IsClosed() {
		return domain.ChatSession{}, ErrSessionClosed
	}
	if !domain.CanTransition(session.Status, domain.SessionInProgress) {
		// Ya asignada o resuelta: se devuelve el estado vigente sin anunciar.
		return session, nil
	}

	won, err := s.sessions.Assign(ctx, sessionID, assigneeID, assigneeName)
	if err != nil {
		return domain.ChatSession{}, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	session, err = s.Get(ctx, sessionID)
	if err != nil {
		return domain.ChatSession{}, err
	}
	if !won {
		// Perdió la carrera: el estado vigente ya refleja al ganador.
		return session, nil
	}

	assigned := domain.SessionAssignedPayload{
		SessionID: session.ID,
		StaffID:   session.AssignedStaffID,
		StaffName: session.AssignedStaffName,
	}
	status := domain.SessionStatusPayload{SessionID: session.ID, Status: session.Status}
	s.rooms.BroadcastToRoom(session.ID, domain.EventSessionAssigned, assigned)
	s.rooms.BroadcastToRoom(session.ID, domain.EventSessionStatusChanged, status)
	s.staff.BroadcastToStaff(domain.EventSessionAssigned, assigned)

	s.logger.Info("session assigned",
		zap.String("session_id", session.ID),
		zap.String("staff_id", assigneeID),
	)
	return session, nil
}

// Close es el cierre iniciado por staff: registra notas de resolución y
// lleva la sesión a resolved (si estaba siendo atendida) o closed.
func (s *SessionService) Close(ctx context.Context, sessionID string, actor domain.Identity, notes string) (domain.ChatSession, error) {
	if !actor.IsStaff() {
		return domain.ChatSession{}, ErrAccessDenied
	}

	session, err := s.Get(ctx, sessionID)
	if err != nil {
		return domain.ChatSession{}, err
	}
	if session.IsClosed() {
		return domain.ChatSession{}, ErrSessionClosed
	}

	status := domain.SessionClosed
	reason := domain.CloseReasonClosed
	if session.Status == domain.SessionInProgress {
		status = domain.SessionResolved
		reason = domain.CloseReasonResolved
	}
	if !domain.CanTransition(session.Status, status) {
		return domain.ChatSession{}, ErrSessionClosed
	}

	changed, err := s.sessions.Close(ctx, sessionID, status, strings.TrimSpace(notes), reason, time.Now().UTC())
	if err != nil {
		return domain.ChatSession{}, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	if !changed {
		return domain.ChatSession{}, ErrSessionClosed
	}

	session, err = s.Get(ctx, sessionID)
	if err != nil {
		return domain.ChatSession{}, err
	}

	s.broadcastClosed(session.ID, session.Status, reason)
	s.logger.Info("session closed by staff",
		zap.String("session_id", session.ID),
		zap.String("staff_id", actor.ID),
		zap.String("status", session.Status),
	)
	return session, nil
}

// ForceClose cierra una sesión sin actor, con la razón indicada; lo usa el
// barredor de inactividad. Es idempotente: sobre una sesión ya cerrada no
// hace nada y no produce un segundo aviso.
func (s *SessionService) ForceClose(ctx context.Context, session domain.ChatSession, reason string) (bool, error) {
	if !domain.CanTransition(session.Status, domain.SessionClosed) {
		return false, nil
	}
	changed, err := s.sessions.Close(ctx, session.ID, domain.SessionClosed, "", reason, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}
	if !changed {
		return false, nil
	}

	s.broadcastClosed(session.ID, domain.SessionClosed, reason)
	return true, nil
}

func (s *SessionService) broadcastClosed(sessionID, status, reason string) {
	closed := domain.SessionClosedPayload{SessionID: sessionID, Reason: reason}
	s.rooms.BroadcastToRoom(sessionID, domain.EventSessionStatusChanged, domain.SessionStatusPayload{SessionID: sessionID, Status: status})
	s.rooms.BroadcastToRoom(sessionID, domain.EventSessionClosed, closed)
	s.staff.BroadcastToStaff(domain.EventSessionClosed, closed)
}
