package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"relay/internal/domain"

	log "github.com/sirupsen/logrus"
)

type postgresChatRepository struct {
	db *sql.DB
}

func NewPostgresChatRepository(db *sql.DB) *postgresChatRepository {
	return &postgresChatRepository{db: db}
}

func (r *postgresChatRepository) CreateSession(ctx context.Context, session *domain.ChatSession) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	log.WithFields(log.Fields{
		"session_id": session.SessionID,
		"client_id":  session.ClientID,
	}).Info("Creating chat session")

	query := `
		INSERT INTO chat_sessions (session_id, client_id, visitor_name, page, status)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		session.SessionID,
		session.ClientID,
		session.VisitorName,
		session.Page,
		session.Status,
	)

	if err != nil {
		log.WithError(err).WithField("session_id", session.SessionID).Error("Failed to create chat session")
		return fmt.Errorf("failed to create chat session: %w", err)
	}

	return nil
}

func (r *postgresChatRepository) GetSession(ctx context.Context, sessionID string) (*domain.ChatSession, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT session_id, client_id, visitor_name, page, status, started_at
		FROM chat_sessions
		WHERE session_id = $1
	`

	var session domain.ChatSession
	err := r.db.QueryRowContext(ctx, query, sessionID).Scan(
		&session.SessionID,
		&session.ClientID,
		&session.VisitorName,
		&session.Page,
		&session.Status,
		&session.StartedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrSessionNotFound
		}
		log.WithError(err).WithField("session_id", sessionID).Error("Failed to get chat session")
		return nil, fmt.Errorf("failed to get chat session: %w", err)
	}

	return &session, nil
}

func (r *postgresChatRepository) CloseSession(ctx context.Context, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `UPDATE chat_sessions SET status = $1 WHERE session_id = $2`

	result, err := r.db.ExecContext(ctx, query, domain.ChatStatusClosed, sessionID)
	if err != nil {
		log.WithError(err).WithField("session_id", sessionID).Error("Failed to close chat session")
		return fmt.Errorf("failed to close chat session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not determine rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return domain.ErrSessionNotFound
	}

	return nil
}

func (r *postgresChatRepository) AddMessage(ctx context.Context, sessionID, sender, body string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		INSERT INTO chat_messages (session_id, sender, body)
		VALUES ($1, $2, $3)
	`

	if _, err := r.db.ExecContext(ctx, query, sessionID, sender, body); err != nil {
		log.WithError(err).WithField("session_id", sessionID).Error("Failed to add chat message")
		return fmt.Errorf("failed to add chat message: %w", err)
	}

	return nil
}

// MessagesSince returns messages sent strictly after the given epoch second.
// since = 0 returns the whole session transcript.
func (r *postgresChatRepository) MessagesSince(ctx context.Context, sessionID string, since int64) ([]domain.ChatMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT id, session_id, sender, body, sent_at
		FROM chat_messages
		WHERE session_id = $1 AND sent_at > TO_TIMESTAMP($2)
		ORDER BY sent_at
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID, since)
	if err != nil {
		log.WithError(err).WithField("session_id", sessionID).Error("Failed to list chat messages")
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.ChatMessage
	for rows.Next() {
		var msg domain.ChatMessage

		err := rows.Scan(
			&msg.ID,
			&msg.SessionID,
			&msg.Sender,
			&msg.Body,
			&msg.SentAt,
		)
		if err != nil {
			log.WithError(err).Error("Failed to scan chat message row")
			return nil, fmt.Errorf("failed to scan chat message row: %w", err)
		}

		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over chat message rows: %w", err)
	}

	return messages, nil
}

func (r *postgresChatRepository) OpenSessions(ctx context.Context, clientID int64) ([]domain.ChatSession, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT session_id, client_id, visitor_name, page, status, started_at
		FROM chat_sessions
		WHERE client_id = $1 AND status = $2
		ORDER BY started_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, clientID, domain.ChatStatusOpen)
	if err != nil {
		log.WithError(err).WithField("client_id", clientID).Error("Failed to list open chat sessions")
		return nil, fmt.Errorf("failed to list open chat sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.ChatSession
	for rows.Next() {
		var session domain.ChatSession

		err := rows.Scan(
			&session.SessionID,
			&session.ClientID,
			&session.VisitorName,
			&session.Page,
			&session.Status,
			&session.StartedAt,
		)
		if err != nil {
			log.WithError(err).Error("Failed to scan chat session row")
			return nil, fmt.Errorf("failed to scan chat session row: %w", err)
		}

		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over chat session rows: %w", err)
	}

	return sessions, nil
}
