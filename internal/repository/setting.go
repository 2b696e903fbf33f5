package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

type postgresSettingRepository struct {
	db *sql.DB
}

func NewPostgresSettingRepository(db *sql.DB) *postgresSettingRepository {
	return &postgresSettingRepository{db: db}
}

// Get returns the stored value, or "" when the key has never been set.
func (r *postgresSettingRepository) Get(ctx context.Context, clientID int64, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `SELECT value FROM settings WHERE client_id = $1 AND key = $2`

	var value string
	err := r.db.QueryRowContext(ctx, query, clientID, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		log.WithError(err).WithFields(log.Fields{
			"client_id": clientID,
			"key":       key,
		}).Error("Failed to get setting")
		return "", fmt.Errorf("failed to get setting: %w", err)
	}

	return value, nil
}

func (r *postgresSettingRepository) Set(ctx context.Context, clientID int64, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		INSERT INTO settings (client_id, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (client_id, key) DO UPDATE SET
			value      = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, clientID, key, value); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"client_id": clientID,
			"key":       key,
		}).Error("Failed to set setting")
		return fmt.Errorf("failed to set setting: %w", err)
	}

	return nil
}
