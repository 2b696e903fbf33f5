package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"relay/internal/domain"

	log "github.com/sirupsen/logrus"
)

type postgresOrderRepository struct {
	db *sql.DB
}

func NewPostgresOrderRepository(db *sql.DB) *postgresOrderRepository {
	return &postgresOrderRepository{db: db}
}

func (r *postgresOrderRepository) Record(ctx context.Context, order *domain.Order) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	log.WithFields(log.Fields{
		"client_id":    order.ClientID,
		"order_number": order.OrderNumber,
		"total":        order.Total,
	}).Info("Recording order")

	query := `
		INSERT INTO orders (client_id, order_number, customer_name, total, item_count, status, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		order.ClientID,
		order.OrderNumber,
		order.CustomerName,
		order.Total,
		order.ItemCount,
		order.Status,
		order.ReceivedAt,
	).Scan(&id)

	if err != nil {
		log.WithError(err).WithField("order_number", order.OrderNumber).Error("Failed to record order")
		return 0, fmt.Errorf("failed to record order: %w", err)
	}

	return id, nil
}

func (r *postgresOrderRepository) Recent(ctx context.Context, clientID int64, limit int) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT id, client_id, order_number, customer_name, total, item_count, status, received_at, created_at
		FROM orders
		WHERE client_id = $1
		ORDER BY received_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, clientID, limit)
	if err != nil {
		log.WithError(err).WithField("client_id", clientID).Error("Failed to list recent orders")
		return nil, fmt.Errorf("failed to list recent orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var order domain.Order
		var customerName sql.NullString

		err := rows.Scan(
			&order.ID,
			&order.ClientID,
			&order.OrderNumber,
			&customerName,
			&order.Total,
			&order.ItemCount,
			&order.Status,
			&order.ReceivedAt,
			&order.CreatedAt,
		)
		if err != nil {
			log.WithError(err).Error("Failed to scan order row")
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}

		if customerName.Valid {
			order.CustomerName = customerName.String
		}

		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over order rows: %w", err)
	}

	return orders, nil
}

func (r *postgresOrderRepository) StatsSince(ctx context.Context, clientID int64, since int64) (*domain.Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
		SELECT
			COUNT(*),
			COALESCE(SUM(total), 0),
			COALESCE(AVG(total), 0)
		FROM orders
		WHERE client_id = $1 AND received_at >= $2 AND status != $3
	`

	var stats domain.Stats
	err := r.db.QueryRowContext(ctx, query, clientID, since, domain.OrderStatusCancelled).Scan(
		&stats.OrderCount,
		&stats.Revenue,
		&stats.AvgOrder,
	)

	if err != nil {
		log.WithError(err).WithField("client_id", clientID).Error("Failed to compute order stats")
		return nil, fmt.Errorf("failed to compute order stats: %w", err)
	}

	return &stats, nil
}
