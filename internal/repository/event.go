package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

type postgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) *postgresEventRepository {
	return &postgresEventRepository{db: db}
}

func (r *postgresEventRepository) Log(ctx context.Context, clientID int64, eventType string, payload map[string]interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if payload == nil {
		payload = map[string]interface{}{}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	query := `
		INSERT INTO events (client_id, event_type, payload)
		VALUES ($1, $2, $3)
	`

	if _, err := r.db.ExecContext(ctx, query, clientID, eventType, raw); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"client_id":  clientID,
			"event_type": eventType,
		}).Error("Failed to log event")
		return fmt.Errorf("failed to log event: %w", err)
	}

	return nil
}
