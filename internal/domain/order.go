package domain

import (
	"errors"
	"time"
)

// Order status constants
const (
	OrderStatusPending   = "pending"
	OrderStatusFulfilled = "fulfilled"
	OrderStatusCancelled = "cancelled"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidOrderNumber = errors.New("invalid order number")
	ErrInvalidOrderTotal  = errors.New("invalid order total")
)

type Order struct {
	ID           int64     `json:"id"`
	ClientID     int64     `json:"client_id"`
	OrderNumber  string    `json:"order_number"`
	CustomerName string    `json:"customer_name"`
	Total        float64   `json:"total"`
	ItemCount    int       `json:"item_count"`
	Status       string    `json:"status"`
	ReceivedAt   int64     `json:"received_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// OrderEventRequest is the body of POST /event/:slug/order. Field defaults
// mirror what storefront glue actually sends: customer name and item count
// are often missing.
type OrderEventRequest struct {
	OrderNumber  string  `json:"order_number"`
	CustomerName string  `json:"customer_name"`
	Total        float64 `json:"total"`
	ItemCount    int     `json:"item_count"`
	ReceivedAt   int64   `json:"received_at"`
}

// Normalize fills the defaults the original API applied on its request model.
func (r *OrderEventRequest) Normalize(now time.Time) {
	if r.CustomerName == "" {
		r.CustomerName = "Unknown"
	}
	if r.ItemCount <= 0 {
		r.ItemCount = 1
	}
	if r.ReceivedAt <= 0 {
		r.ReceivedAt = now.Unix()
	}
}

// Stats is an aggregate over a time window of non-cancelled orders.
type Stats struct {
	OrderCount int     `json:"order_count"`
	Revenue    float64 `json:"revenue"`
	AvgOrder   float64 `json:"avg_order"`
}
