package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"support-chat/internal/domain"
)

type MessageRepository interface {
	Create(ctx context.Context, message domain.Message) error
	GetByID(ctx context.Context, id string) (domain.Message, error)
	ListBySessionID(ctx context.Context, sessionID string, limit, offset int) ([]domain.Message, error)
	// Edit reemplaza el contenido y conserva la versión anterior en
	// message_edits. Solo el autor puede editar; el chequeo es del servicio.
	Edit(ctx context.Context, messageID, newContent string, at time.Time) error
	// MarkRead avanza a "read" los mensajes de la sesión escritos por la
	// contraparte del lector. El avance es de una sola dirección.
	MarkRead(ctx context.Context, sessionID string, readerIsStaff bool) error
}

type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

const messageColumns = `
	id, session_id, sender_id, sender_name, from_staff, content, type,
	delivery_status, reply_to_id, edited, edited_at, created_at
`

func (r *PgMessageRepository) Create(ctx context.Context, message domain.Message) error {
	const query = `
		INSERT INTO messages (
			id, session_id, sender_id, sender_name, from_staff, content, type,
			delivery_status, reply_to_id, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	var replyTo any
	if message.ReplyToID != "" {
		replyTo = message.ReplyToID
	}

	_, err := r.pool.Exec(ctx, query,
		message.ID,
		message.SessionID,
		message.SenderID,
		message.SenderName,
		message.FromStaff,
		message.Content,
		message.Type,
		message.DeliveryStatus,
		replyTo,
		message.CreatedAt,
	)
	return err
}

func (r *PgMessageRepository) GetByID(ctx context.Context, id string) (domain.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, id)
	msg, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Message{}, ErrNotFound
	}
	return msg, err
}

func (r *PgMessageRepository) ListBySessionID(ctx context.Context, sessionID string, limit, offset int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE session_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, sessionID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (r *PgMessageRepository) Edit(ctx context.Context, messageID, newContent string, at time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const keep = `
		INSERT INTO message_edits (id, message_id, content, edited_at)
		SELECT $1, id, content, $2 FROM messages WHERE id = $3
	`
	if _, err := tx.Exec(ctx, keep, uuid.NewString(), at, messageID); err != nil {
		return err
	}

	const update = `
		UPDATE messages
		SET content = $2, edited = TRUE, edited_at = $3
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, update, messageID, newContent, at); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PgMessageRepository) MarkRead(ctx context.Context, sessionID string, readerIsStaff bool) error {
	const query = `
		UPDATE messages
		SET delivery_status = $2
		WHERE session_id = $1 AND from_staff = $3 AND delivery_status <> $2
	`
	// El lector marca como leídos los mensajes escritos por el otro lado.
	_, err := r.pool.Exec(ctx, query, sessionID, domain.DeliveryRead, !readerIsStaff)
	return err
}

func scanMessage(row pgx.Row) (domain.Message, error) {
	var (
		m        domain.Message
		sender   *string
		replyTo  *string
		editedAt *time.Time
	)
	err := row.Scan(
		&m.ID,
		&m.SessionID,
		&m.SenderID,
		&sender,
		&m.FromStaff,
		&m.Content,
		&m.Type,
		&m.DeliveryStatus,
		&replyTo,
		&m.Edited,
		&editedAt,
		&m.CreatedAt,
	)
	if err != nil {
		return domain.Message{}, err
	}
	if sender != nil {
		m.SenderName = *sender
	}
	if replyTo != nil {
		m.ReplyToID = *replyTo
	}
	m.EditedAt = editedAt
	return m, nil
}
