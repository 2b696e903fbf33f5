// Package telegram delivers owner notifications through the Telegram Bot
// API. Inbound bot traffic (commands, callbacks) is handled by a separate
// service; this package only sends.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"relay/internal/domain"

	log "github.com/sirupsen/logrus"
)

const defaultAPIBase = "https://api.telegram.org"

type Sender struct {
	token   string
	apiBase string
	client  *http.Client
}

// NewSender returns a sender for the given bot token. An empty token yields
// a sender that silently drops every message, so callers need no nil checks.
func NewSender(token string) *Sender {
	return &Sender{
		token:   token,
		apiBase: defaultAPIBase,
		client:  &http.Client{Timeout: 3 * time.Second},
	}
}

// NewSenderWithBase is used by tests to point the sender at a fake Bot API.
func NewSenderWithBase(token, apiBase string) *Sender {
	s := NewSender(token)
	s.apiBase = strings.TrimRight(apiBase, "/")
	return s
}

func (s *Sender) send(ctx context.Context, chatID int64, text string) error {
	if s.token == "" || text == "" {
		return nil
	}

	body, err := json.Marshal(map[string]interface{}{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return fmt.Errorf("failed to marshal telegram message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}

// notifiable returns the linked chat ID, or false when the client never
// linked a Telegram chat and notifications should be skipped.
func notifiable(client *domain.Client) (int64, bool) {
	if client == nil || client.TelegramChatID == nil {
		return 0, false
	}
	return *client.TelegramChatID, true
}

func (s *Sender) NotifyOrder(ctx context.Context, client *domain.Client, order *domain.Order) error {
	chatID, ok := notifiable(client)
	if !ok {
		return nil
	}
	return s.send(ctx, chatID, OrderMessage(client, order))
}

func (s *Sender) NotifyEvent(ctx context.Context, client *domain.Client, eventType string, payload map[string]interface{}) error {
	chatID, ok := notifiable(client)
	if !ok {
		return nil
	}

	text := EventMessage(eventType, payload, client.CurrencySymbol)
	if text == "" {
		log.WithField("event_type", eventType).Debug("No telegram format for event, skipping")
		return nil
	}
	return s.send(ctx, chatID, text)
}

func (s *Sender) NotifyChatStarted(ctx context.Context, client *domain.Client, session *domain.ChatSession, firstMessage string) error {
	chatID, ok := notifiable(client)
	if !ok {
		return nil
	}
	return s.send(ctx, chatID, ChatStartedMessage(session, firstMessage))
}

func (s *Sender) NotifyChatMessage(ctx context.Context, client *domain.Client, session *domain.ChatSession, message string) error {
	chatID, ok := notifiable(client)
	if !ok {
		return nil
	}
	return s.send(ctx, chatID, ChatFollowupMessage(session, message))
}
