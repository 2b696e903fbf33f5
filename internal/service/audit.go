package service

import (
	"context"
	"time"

	"relay/internal/domain"

	log "github.com/sirupsen/logrus"
)

type AuditPublisher interface {
	Publish(ctx context.Context, event domain.AuditEvent) error
}

// AuditService mirrors every accepted event onto the audit stream. A nil
// AuditService (Kafka not configured) is valid and records nothing.
type AuditService struct {
	publisher AuditPublisher
}

func NewAuditService(publisher AuditPublisher) *AuditService {
	return &AuditService{publisher: publisher}
}

func (s *AuditService) RecordOrderReceived(client *domain.Client, order *domain.Order) {
	if s == nil || s.publisher == nil {
		return
	}

	s.publish(domain.AuditEvent{
		Service:    "relay",
		EventType:  "order_received",
		ClientSlug: client.Slug,
		OccurredAt: time.Now().UTC(),
		Payload: map[string]interface{}{
			"order_number":  order.OrderNumber,
			"customer_name": order.CustomerName,
			"total":         order.Total,
			"item_count":    order.ItemCount,
			"received_at":   order.ReceivedAt,
		},
	})
}

func (s *AuditService) RecordEventReceived(client *domain.Client, eventType string, payload map[string]interface{}) {
	if s == nil || s.publisher == nil {
		return
	}

	s.publish(domain.AuditEvent{
		Service:    "relay",
		EventType:  eventType,
		ClientSlug: client.Slug,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
}

func (s *AuditService) publish(event domain.AuditEvent) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := s.publisher.Publish(ctx, event); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"event_type":  event.EventType,
				"client_slug": event.ClientSlug,
			}).Warn("Failed to publish audit event")
		}
	}()
}
