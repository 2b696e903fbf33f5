package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"relay/internal/domain"
	"relay/internal/repository"

	log "github.com/sirupsen/logrus"
)

// Notifier delivers owner notifications. Implementations are best-effort;
// the service logs failures and never lets them affect the request that
// triggered them.
type Notifier interface {
	NotifyOrder(ctx context.Context, client *domain.Client, order *domain.Order) error
	NotifyEvent(ctx context.Context, client *domain.Client, eventType string, payload map[string]interface{}) error
	NotifyChatStarted(ctx context.Context, client *domain.Client, session *domain.ChatSession, firstMessage string) error
	NotifyChatMessage(ctx context.Context, client *domain.Client, session *domain.ChatSession, message string) error
}

type RelayServiceInterface interface {
	ClientBySlug(ctx context.Context, slug string) (*domain.Client, error)
	ReceiveOrder(ctx context.Context, client *domain.Client, req domain.OrderEventRequest) (*domain.Order, error)
	ReceiveEvent(ctx context.Context, client *domain.Client, req domain.GenericEventRequest) error
	LinkTelegramChat(ctx context.Context, client *domain.Client, chatID int64, chatType, label string) error
	MaintenanceStatus(ctx context.Context, client *domain.Client) (string, error)
	SetMaintenance(ctx context.Context, client *domain.Client, value string) error
	TodayStats(ctx context.Context, client *domain.Client) (*domain.Stats, error)
	WeekStats(ctx context.Context, client *domain.Client) (*domain.Stats, error)
	MonthStats(ctx context.Context, client *domain.Client) (*domain.Stats, error)
	RecentOrders(ctx context.Context, client *domain.Client, limit int) ([]domain.Order, error)
	StartChat(ctx context.Context, client *domain.Client, req domain.ChatStartRequest) (*domain.ChatSession, error)
	PostVisitorMessage(ctx context.Context, client *domain.Client, req domain.ChatMessageRequest) error
	PollChat(ctx context.Context, sessionID string, since int64) (*domain.ChatSession, []domain.ChatMessage, error)
	CloseChat(ctx context.Context, sessionID string) error
	PostOwnerReply(ctx context.Context, client *domain.Client, sessionID, message string) error
	OpenChats(ctx context.Context, client *domain.Client) ([]domain.ChatSession, error)
}

type RelayService struct {
	clients  repository.ClientRepository
	orders   repository.OrderRepository
	events   repository.EventRepository
	settings repository.SettingRepository
	chats    repository.ChatRepository
	notifier Notifier
	audit    *AuditService
}

func NewRelayService(
	clients repository.ClientRepository,
	orders repository.OrderRepository,
	events repository.EventRepository,
	settings repository.SettingRepository,
	chats repository.ChatRepository,
	notifier Notifier,
	audit *AuditService,
) *RelayService {
	return &RelayService{
		clients:  clients,
		orders:   orders,
		events:   events,
		settings: settings,
		chats:    chats,
		notifier: notifier,
		audit:    audit,
	}
}

func (s *RelayService) ClientBySlug(ctx context.Context, slug string) (*domain.Client, error) {
	if !domain.ValidSlug(slug) {
		return nil, domain.ErrClientNotFound
	}
	return s.clients.GetBySlug(ctx, slug)
}

func (s *RelayService) ReceiveOrder(ctx context.Context, client *domain.Client, req domain.OrderEventRequest) (*domain.Order, error) {
	if strings.TrimSpace(req.OrderNumber) == "" {
		return nil, domain.ErrInvalidOrderNumber
	}
	if req.Total < 0 {
		return nil, domain.ErrInvalidOrderTotal
	}
	req.Normalize(time.Now())

	order := &domain.Order{
		ClientID:     client.ID,
		OrderNumber:  req.OrderNumber,
		CustomerName: req.CustomerName,
		Total:        req.Total,
		ItemCount:    req.ItemCount,
		Status:       domain.OrderStatusPending,
		ReceivedAt:   req.ReceivedAt,
	}

	id, err := s.orders.Record(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("failed to receive order: %w", err)
	}
	order.ID = id

	s.fanOut(client.Slug, "order notification", func(ctx context.Context) error {
		return s.notifier.NotifyOrder(ctx, client, order)
	})
	s.audit.RecordOrderReceived(client, order)

	return order, nil
}

func (s *RelayService) ReceiveEvent(ctx context.Context, client *domain.Client, req domain.GenericEventRequest) error {
	if strings.TrimSpace(req.EventType) == "" {
		return domain.ErrInvalidEventType
	}
	if req.Payload == nil {
		req.Payload = map[string]interface{}{}
	}

	if err := s.events.Log(ctx, client.ID, req.EventType, req.Payload); err != nil {
		return fmt.Errorf("failed to receive event: %w", err)
	}

	s.fanOut(client.Slug, "event notification", func(ctx context.Context) error {
		return s.notifier.NotifyEvent(ctx, client, req.EventType, req.Payload)
	})
	s.audit.RecordEventReceived(client, req.EventType, req.Payload)

	return nil
}

// LinkTelegramChat records the owner's chat as the notification target. The
// bot service calls this after verifying a /start handshake. The client is
// reloaded before the confirmation goes out so it carries the new chat ID.
func (s *RelayService) LinkTelegramChat(ctx context.Context, client *domain.Client, chatID int64, chatType, label string) error {
	if chatID == 0 {
		return domain.ErrInvalidChatID
	}
	if chatType == "" {
		chatType = "private"
	}

	if err := s.clients.SetChat(ctx, client.ID, chatID, chatType, label); err != nil {
		return fmt.Errorf("failed to link telegram chat: %w", err)
	}

	linked, err := s.clients.GetByID(ctx, client.ID)
	if err != nil {
		return fmt.Errorf("failed to reload client after linking: %w", err)
	}

	s.fanOut(linked.Slug, "link confirmation", func(ctx context.Context) error {
		return s.notifier.NotifyEvent(ctx, linked, domain.EventTelegramLinked, map[string]interface{}{
			"store_name": linked.Name,
		})
	})

	log.WithFields(log.Fields{
		"slug":    linked.Slug,
		"chat_id": chatID,
	}).Info("Telegram chat linked")
	return nil
}

func (s *RelayService) MaintenanceStatus(ctx context.Context, client *domain.Client) (string, error) {
	value, err := s.settings.Get(ctx, client.ID, domain.SettingMaintenance)
	if err != nil {
		return "", err
	}
	if value != domain.MaintenanceOn {
		return domain.MaintenanceOff, nil
	}
	return domain.MaintenanceOn, nil
}

func (s *RelayService) SetMaintenance(ctx context.Context, client *domain.Client, value string) error {
	if value != domain.MaintenanceOn && value != domain.MaintenanceOff {
		return fmt.Errorf("maintenance value must be %q or %q", domain.MaintenanceOn, domain.MaintenanceOff)
	}

	if err := s.settings.Set(ctx, client.ID, domain.SettingMaintenance, value); err != nil {
		return err
	}

	eventType := domain.EventMaintenanceOff
	if value == domain.MaintenanceOn {
		eventType = domain.EventMaintenanceOn
	}
	s.fanOut(client.Slug, "maintenance notification", func(ctx context.Context) error {
		return s.notifier.NotifyEvent(ctx, client, eventType, map[string]interface{}{})
	})

	log.WithFields(log.Fields{
		"slug":  client.Slug,
		"value": value,
	}).Info("Maintenance mode changed")
	return nil
}

func (s *RelayService) TodayStats(ctx context.Context, client *domain.Client) (*domain.Stats, error) {
	// Midnight boundary in whole days, matching how received_at epochs are
	// bucketed everywhere else.
	todayStart := time.Now().Unix() / 86400 * 86400
	return s.orders.StatsSince(ctx, client.ID, todayStart)
}

func (s *RelayService) WeekStats(ctx context.Context, client *domain.Client) (*domain.Stats, error) {
	return s.orders.StatsSince(ctx, client.ID, time.Now().Unix()-7*86400)
}

func (s *RelayService) MonthStats(ctx context.Context, client *domain.Client) (*domain.Stats, error) {
	return s.orders.StatsSince(ctx, client.ID, time.Now().Unix()-30*86400)
}

func (s *RelayService) RecentOrders(ctx context.Context, client *domain.Client, limit int) ([]domain.Order, error) {
	if limit <= 0 || limit > 50 {
		limit = 5
	}
	return s.orders.Recent(ctx, client.ID, limit)
}

// fanOut runs a notification delivery in the background, detached from the
// request context so a finished request does not cancel it. Failures are
// logged and dropped.
func (s *RelayService) fanOut(slug, what string, deliver func(ctx context.Context) error) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := deliver(ctx); err != nil {
			log.WithError(err).WithField("slug", slug).Warnf("Failed to deliver %s", what)
		}
	}()
}
