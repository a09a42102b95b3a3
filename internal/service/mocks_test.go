package service

import (
	"context"
	"sync"
	"time"

	"support-chat/internal/domain"
	"support-chat/internal/repository"
)

// fakeSessionRepo implementa SessionRepository sobre un mapa en memoria con
// la misma semántica condicional que la implementación de Postgres.
type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]domain.ChatSession

	createErr error
	getErr    error
	assignErr error
	closeErr  error
	listErr   error
	touchErr  error
}

func newFakeSessionRepo(seed ...domain.ChatSession) *fakeSessionRepo {
	repo := &fakeSessionRepo{sessions: make(map[string]domain.ChatSession)}
	for _, s := range seed {
		repo.sessions[s.ID] = s
	}
	return repo
}

func (r *fakeSessionRepo) Create(_ context.Context, session domain.ChatSession) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session
	return nil
}

func (r *fakeSessionRepo) GetByID(_ context.Context, id string) (domain.ChatSession, error) {
	if r.getErr != nil {
		return domain.ChatSession{}, r.getErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return domain.ChatSession{}, repository.ErrNotFound
	}
	return session, nil
}

func (r *fakeSessionRepo) Assign(_ context.Context, sessionID, staffID, staffName string) (bool, error) {
	if r.assignErr != nil {
		return false, r.assignErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok || session.Status != domain.SessionOpen {
		return false, nil
	}
	session.AssignedStaffID = staffID
	session.AssignedStaffName = staffName
	session.Status = domain.SessionInProgress
	r.sessions[sessionID] = session
	return true, nil
}

func (r *fakeSessionRepo) Close(_ context.Context, sessionID, status, notes, reason string, at time.Time) (bool, error) {
	if r.closeErr != nil {
		return false, r.closeErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok || session.Status == domain.SessionClosed {
		return false, nil
	}
	session.Status = status
	session.ResolutionNotes = notes
	session.CloseReason = reason
	session.ClosedAt = &at
	r.sessions[sessionID] = session
	return true, nil
}

func (r *fakeSessionRepo) TouchLastMessage(_ context.Context, sessionID string, at time.Time) error {
	if r.touchErr != nil {
		return r.touchErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if ok && at.After(session.LastMessageAt) {
		session.LastMessageAt = at
		r.sessions[sessionID] = session
	}
	return nil
}

func (r *fakeSessionRepo) UpdateLastSeen(_ context.Context, sessionID string, byStaff bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return repository.ErrNotFound
	}
	if byStaff {
		session.LastSeenByStaff = &at
	} else {
		session.LastSeenByCustomer = &at
	}
	r.sessions[sessionID] = session
	return nil
}

func (r *fakeSessionRepo) ListIdleBefore(_ context.Context, cutoff time.Time) ([]domain.ChatSession, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var stale []domain.ChatSession
	for _, session := range r.sessions {
		if session.Status != domain.SessionClosed && session.LastMessageAt.Before(cutoff) {
			stale = append(stale, session)
		}
	}
	return stale, nil
}

func (r *fakeSessionRepo) get(id string) domain.ChatSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[id]
}

// fakeMessageRepo implementa MessageRepository en memoria. createdOrder
// registra el orden en que terminó cada persistencia; createHook, si está
// definido, corre después de cada escritura (sin el candado del repo) para
// ensanchar la ventana entre persistir y difundir.
type fakeMessageRepo struct {
	mu           sync.Mutex
	messages     map[string]domain.Message
	edits        []domain.MessageEdit
	createdOrder []string

	createErr  error
	editErr    error
	readErr    error
	createHook func()
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[string]domain.Message)}
}

func (r *fakeMessageRepo) Create(_ context.Context, message domain.Message) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	r.messages[message.ID] = message
	r.createdOrder = append(r.createdOrder, message.ID)
	r.mu.Unlock()
	if r.createHook != nil {
		r.createHook()
	}
	return nil
}

func (r *fakeMessageRepo) GetByID(_ context.Context, id string) (domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[id]
	if !ok {
		return domain.Message{}, repository.ErrNotFound
	}
	return msg, nil
}

func (r *fakeMessageRepo) ListBySessionID(_ context.Context, sessionID string, _, _ int) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var msgs []domain.Message
	for _, msg := range r.messages {
		if msg.SessionID == sessionID {
			msgs = append(msgs, msg)
		}
	}
	return msgs, nil
}

func (r *fakeMessageRepo) Edit(_ context.Context, messageID, newContent string, at time.Time) error {
	if r.editErr != nil {
		return r.editErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[messageID]
	if !ok {
		return repository.ErrNotFound
	}
	r.edits = append(r.edits, domain.MessageEdit{MessageID: messageID, Content: msg.Content, EditedAt: at})
	msg.Content = newContent
	msg.Edited = true
	msg.EditedAt = &at
	r.messages[messageID] = msg
	return nil
}

func (r *fakeMessageRepo) MarkRead(_ context.Context, sessionID string, readerIsStaff bool) error {
	if r.readErr != nil {
		return r.readErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, msg := range r.messages {
		if msg.SessionID == sessionID && msg.FromStaff == !readerIsStaff {
			msg.DeliveryStatus = domain.DeliveryRead
			r.messages[id] = msg
		}
	}
	return nil
}

func (r *fakeMessageRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func (r *fakeMessageRepo) order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.createdOrder))
	copy(out, r.createdOrder)
	return out
}

type recordedEvent struct {
	target  string
	event   string
	payload any
}

// eventRecorder captura las difusiones a salas y al staff.
type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *eventRecorder) BroadcastToRoom(sessionID, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{target: "room:" + sessionID, event: event, payload: payload})
}

func (r *eventRecorder) BroadcastToStaff(event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{target: "staff", event: event, payload: payload})
}

func (r *eventRecorder) byEvent(event string) []recordedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []recordedEvent
	for _, e := range r.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

func (r *eventRecorder) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
