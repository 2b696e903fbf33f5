package service

import (
	"context"
	"fmt"
	"strings"

	"relay/internal/domain"

	"github.com/google/uuid"
)

// newSessionID derives a short shareable session ID. Eight hex chars are
// enough: the ID only needs to be unguessable for the lifetime of a chat,
// and collisions are rejected by the primary key.
func newSessionID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}

func (s *RelayService) StartChat(ctx context.Context, client *domain.Client, req domain.ChatStartRequest) (*domain.ChatSession, error) {
	if strings.TrimSpace(req.FirstMessage) == "" {
		return nil, fmt.Errorf("first_message is required")
	}
	req.Normalize()

	session := &domain.ChatSession{
		SessionID:   newSessionID(),
		ClientID:    client.ID,
		VisitorName: req.VisitorName,
		Page:        req.Page,
		Status:      domain.ChatStatusOpen,
	}

	if err := s.chats.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to start chat: %w", err)
	}

	if err := s.chats.AddMessage(ctx, session.SessionID, domain.ChatSenderVisitor, req.FirstMessage); err != nil {
		return nil, fmt.Errorf("failed to save first chat message: %w", err)
	}

	firstMessage := req.FirstMessage
	s.fanOut(client.Slug, "chat notification", func(ctx context.Context) error {
		return s.notifier.NotifyChatStarted(ctx, client, session, firstMessage)
	})

	return session, nil
}

func (s *RelayService) PostVisitorMessage(ctx context.Context, client *domain.Client, req domain.ChatMessageRequest) error {
	if strings.TrimSpace(req.Message) == "" {
		return fmt.Errorf("message is required")
	}

	session, err := s.chats.GetSession(ctx, req.SessionID)
	if err != nil {
		return err
	}
	if session.ClientID != client.ID {
		// A session belonging to another store is indistinguishable from a
		// missing one for the caller.
		return domain.ErrSessionNotFound
	}
	if session.Status == domain.ChatStatusClosed {
		return domain.ErrSessionClosed
	}

	if err := s.chats.AddMessage(ctx, session.SessionID, domain.ChatSenderVisitor, req.Message); err != nil {
		return fmt.Errorf("failed to save chat message: %w", err)
	}

	message := req.Message
	s.fanOut(client.Slug, "chat notification", func(ctx context.Context) error {
		return s.notifier.NotifyChatMessage(ctx, client, session, message)
	})

	return nil
}

// PollChat has no auth on purpose: the unguessable session ID is the secret.
func (s *RelayService) PollChat(ctx context.Context, sessionID string, since int64) (*domain.ChatSession, []domain.ChatMessage, error) {
	session, err := s.chats.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	messages, err := s.chats.MessagesSince(ctx, sessionID, since)
	if err != nil {
		return nil, nil, err
	}

	return session, messages, nil
}

func (s *RelayService) CloseChat(ctx context.Context, sessionID string) error {
	return s.chats.CloseSession(ctx, sessionID)
}

// PostOwnerReply records a store owner's reply; the widget picks it up on
// its next poll. The reply arrives over the authenticated API (the bot
// service fronts Telegram and calls in here).
func (s *RelayService) PostOwnerReply(ctx context.Context, client *domain.Client, sessionID, message string) error {
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("message is required")
	}

	session, err := s.chats.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.ClientID != client.ID {
		return domain.ErrSessionNotFound
	}
	if session.Status == domain.ChatStatusClosed {
		return domain.ErrSessionClosed
	}

	return s.chats.AddMessage(ctx, sessionID, domain.ChatSenderOwner, message)
}

func (s *RelayService) OpenChats(ctx context.Context, client *domain.Client) ([]domain.ChatSession, error) {
	return s.chats.OpenSessions(ctx, client.ID)
}
