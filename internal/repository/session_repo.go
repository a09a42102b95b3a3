package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"support-chat/internal/domain"
)

// ErrNotFound se devuelve cuando la fila consultada no existe.
var ErrNotFound = errors.New("not found")

type SessionRepository interface {
	Create(ctx context.Context, session domain.ChatSession) error
	GetByID(ctx context.Context, id string) (domain.ChatSession, error)
	// Assign asigna staff a una sesión abierta. Devuelve false si la sesión
	// ya no estaba en estado open (otro staff ganó la carrera).
	Assign(ctx context.Context, sessionID, staffID, staffName string) (bool, error)
	// Close lleva la sesión a un estado terminal. Condicional sobre
	// status <> closed, de modo que cerrar dos veces es un no-op.
	Close(ctx context.Context, sessionID, status, notes, reason string, at time.Time) (bool, error)
	TouchLastMessage(ctx context.Context, sessionID string, at time.Time) error
	UpdateLastSeen(ctx context.Context, sessionID string, byStaff bool, at time.Time) error
	ListIdleBefore(ctx context.Context, cutoff time.Time) ([]domain.ChatSession, error)
}

type PgSessionRepository struct {
	pool *pgxpool.Pool
}

func NewPgSessionRepository(pool *pgxpool.Pool) *PgSessionRepository {
	return &PgSessionRepository{pool: pool}
}

const sessionColumns = `
	id, customer_id, customer_name, assigned_staff_id, assigned_staff_name,
	status, priority, category, subject, resolution_notes, close_reason,
	created_at, last_message_at, last_seen_by_customer, last_seen_by_staff, closed_at
`

func (r *PgSessionRepository) Create(ctx context.Context, session domain.ChatSession) error {
	const query = `
		INSERT INTO chat_sessions (
			id, customer_id, customer_name, status, priority, category, subject,
			created_at, last_message_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.CustomerID,
		session.CustomerName,
		session.Status,
		session.Priority,
		session.Category,
		session.Subject,
		session.CreatedAt,
		session.LastMessageAt,
	)
	return err
}

func (r *PgSessionRepository) GetByID(ctx context.Context, id string) (domain.ChatSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM chat_sessions WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, id)
	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ChatSession{}, ErrNotFound
	}
	return session, err
}

func (r *PgSessionRepository) Assign(ctx context.Context, sessionID, staffID, staffName string) (bool, error) {
	const query = `
		UPDATE chat_sessions
		SET assigned_staff_id = $2, assigned_staff_name = $3, status = $4
		WHERE id = $1 AND status = $5
	`
	tag, err := r.pool.Exec(ctx, query, sessionID, staffID, staffName, domain.SessionInProgress, domain.SessionOpen)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgSessionRepository) Close(ctx context.Context, sessionID, status, notes, reason string, at time.Time) (bool, error) {
	const query = `
		UPDATE chat_sessions
		SET status = $2, resolution_notes = $3, close_reason = $4, closed_at = $5
		WHERE id = $1 AND status <> $6
	`
	tag, err := r.pool.Exec(ctx, query, sessionID, status, notes, reason, at, domain.SessionClosed)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgSessionRepository) TouchLastMessage(ctx context.Context, sessionID string, at time.Time) error {
	// GREATEST mantiene last_message_at monótonamente no decreciente aun
	// con envíos concurrentes que persisten fuera de orden.
	const query = `
		UPDATE chat_sessions
		SET last_message_at = GREATEST(last_message_at, $2)
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, sessionID, at)
	return err
}

func (r *PgSessionRepository) UpdateLastSeen(ctx context.Context, sessionID string, byStaff bool, at time.Time) error {
	column := "last_seen_by_customer"
	if byStaff {
		column = "last_seen_by_staff"
	}
	query := `UPDATE chat_sessions SET ` + column + ` = $2 WHERE id = $1`
	_, err := r.pool.Exec(ctx, query, sessionID, at)
	return err
}

func (r *PgSessionRepository) ListIdleBefore(ctx context.Context, cutoff time.Time) ([]domain.ChatSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM chat_sessions
		WHERE status <> $1 AND last_message_at < $2
		ORDER BY last_message_at ASC
	`
	rows, err := r.pool.Query(ctx, query, domain.SessionClosed, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.ChatSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func scanSession(row pgx.Row) (domain.ChatSession, error) {
	var (
		s          domain.ChatSession
		staffID    *string
		staffName  *string
		category   *string
		subject    *string
		notes      *string
		reason     *string
		seenByCust *time.Time
		seenByStaf *time.Time
		closedAt   *time.Time
	)
	err := row.Scan(
		&s.ID,
		&s.CustomerID,
		&s.CustomerName,
		&staffID,
		&staffName,
		&s.Status,
		&s.Priority,
		&category,
		&subject,
		&notes,
		&reason,
		&s.CreatedAt,
		&s.LastMessageAt,
		&seenByCust,
		&seenByStaf,
		&closedAt,
	)
	if err != nil {
		return domain.ChatSession{}, err
	}
	if staffID != nil {
		s.AssignedStaffID = *staffID
	}
	if staffName != nil {
		s.AssignedStaffName = *staffName
	}
	if category != nil {
		s.Category = *category
	}
	if subject != nil {
		s.Subject = *subject
	}
	if notes != nil {
		s.ResolutionNotes = *notes
	}
	if reason != nil {
		s.CloseReason = *reason
	}
	s.LastSeenByCustomer = seenByCust
	s.LastSeenByStaff = seenByStaf
	s.ClosedAt = closedAt
	return s, nil
}
