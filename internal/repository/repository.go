package repository

import (
	"context"

	"relay/internal/domain"
)

// ClientRepository resolves and manages registered stores.
type ClientRepository interface {
	GetBySlug(ctx context.Context, slug string) (*domain.Client, error)
	GetByID(ctx context.Context, id int64) (*domain.Client, error)
	Create(ctx context.Context, req domain.CreateClientRequest) (int64, error)
	SetChat(ctx context.Context, clientID, chatID int64, chatType, label string) error
	ListActive(ctx context.Context) ([]domain.Client, error)
}

// OrderRepository tracks orders received from storefronts.
type OrderRepository interface {
	Record(ctx context.Context, order *domain.Order) (int64, error)
	Recent(ctx context.Context, clientID int64, limit int) ([]domain.Order, error)
	StatsSince(ctx context.Context, clientID int64, since int64) (*domain.Stats, error)
}

// EventRepository logs generic events as received.
type EventRepository interface {
	Log(ctx context.Context, clientID int64, eventType string, payload map[string]interface{}) error
}

// SettingRepository is a per-client key/value store (maintenance flag lives here).
type SettingRepository interface {
	Get(ctx context.Context, clientID int64, key string) (string, error)
	Set(ctx context.Context, clientID int64, key, value string) error
}

// ChatRepository manages website chat sessions and their messages.
type ChatRepository interface {
	CreateSession(ctx context.Context, session *domain.ChatSession) error
	GetSession(ctx context.Context, sessionID string) (*domain.ChatSession, error)
	CloseSession(ctx context.Context, sessionID string) error
	AddMessage(ctx context.Context, sessionID, sender, body string) error
	MessagesSince(ctx context.Context, sessionID string, since int64) ([]domain.ChatMessage, error)
	OpenSessions(ctx context.Context, clientID int64) ([]domain.ChatSession, error)
}
