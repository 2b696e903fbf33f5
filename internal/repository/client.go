package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"relay/internal/domain"

	log "github.com/sirupsen/logrus"

	_ "github.com/lib/pq"
)

type postgresClientRepository struct {
	db *sql.DB
}

func NewPostgresClientRepository(db *sql.DB) *postgresClientRepository {
	return &postgresClientRepository{db: db}
}

func (r *postgresClientRepository) GetBySlug(ctx context.Context, slug string) (*domain.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT id, slug, name, api_secret, telegram_chat_id,
			currency_symbol, timezone, active, created_at
		FROM clients
		WHERE slug = $1 AND active = TRUE
	`

	return r.scanClient(r.db.QueryRowContext(ctx, query, slug))
}

func (r *postgresClientRepository) GetByID(ctx context.Context, id int64) (*domain.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT id, slug, name, api_secret, telegram_chat_id,
			currency_symbol, timezone, active, created_at
		FROM clients
		WHERE id = $1
	`

	return r.scanClient(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresClientRepository) scanClient(row *sql.Row) (*domain.Client, error) {
	var client domain.Client
	var chatID sql.NullInt64

	err := row.Scan(
		&client.ID,
		&client.Slug,
		&client.Name,
		&client.APISecret,
		&chatID,
		&client.CurrencySymbol,
		&client.Timezone,
		&client.Active,
		&client.CreatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrClientNotFound
		}
		log.WithError(err).Error("Failed to get client")
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	if chatID.Valid {
		client.TelegramChatID = &chatID.Int64
	}

	return &client, nil
}

func (r *postgresClientRepository) Create(ctx context.Context, req domain.CreateClientRequest) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	log.WithFields(log.Fields{
		"slug": req.Slug,
		"name": req.Name,
	}).Info("Registering new client")

	query := `
		INSERT INTO clients (slug, name, api_secret, currency_symbol, timezone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		req.Slug,
		req.Name,
		req.APISecret,
		req.CurrencySymbol,
		req.Timezone,
	).Scan(&id)

	if err != nil {
		log.WithError(err).WithField("slug", req.Slug).Error("Failed to create client")
		return 0, fmt.Errorf("failed to create client: %w", err)
	}

	return id, nil
}

func (r *postgresClientRepository) SetChat(ctx context.Context, clientID, chatID int64, chatType, label string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO telegram_chats (client_id, chat_id, chat_type, label)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (client_id, chat_id) DO UPDATE SET
			active = TRUE,
			label  = EXCLUDED.label
	`

	if _, err := tx.ExecContext(ctx, query, clientID, chatID, chatType, label); err != nil {
		log.WithError(err).WithField("client_id", clientID).Error("Failed to upsert telegram chat")
		return fmt.Errorf("failed to upsert telegram chat: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE clients SET telegram_chat_id = $1 WHERE id = $2`, chatID, clientID); err != nil {
		log.WithError(err).WithField("client_id", clientID).Error("Failed to link chat to client")
		return fmt.Errorf("failed to link chat to client: %w", err)
	}

	return tx.Commit()
}

func (r *postgresClientRepository) ListActive(ctx context.Context) ([]domain.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT id, slug, name, api_secret, telegram_chat_id,
			currency_symbol, timezone, active, created_at
		FROM clients
		WHERE active = TRUE AND telegram_chat_id IS NOT NULL
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		log.WithError(err).Error("Failed to list active clients")
		return nil, fmt.Errorf("failed to list active clients: %w", err)
	}
	defer rows.Close()

	var clients []domain.Client
	for rows.Next() {
		var client domain.Client
		var chatID sql.NullInt64

		err := rows.Scan(
			&client.ID,
			&client.Slug,
			&client.Name,
			&client.APISecret,
			&chatID,
			&client.CurrencySymbol,
			&client.Timezone,
			&client.Active,
			&client.CreatedAt,
		)
		if err != nil {
			log.WithError(err).Error("Failed to scan client row")
			return nil, fmt.Errorf("failed to scan client row: %w", err)
		}

		if chatID.Valid {
			client.TelegramChatID = &chatID.Int64
		}

		clients = append(clients, client)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over client rows: %w", err)
	}

	return clients, nil
}
