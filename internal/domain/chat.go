package domain

import (
	"errors"
	"time"
)

// Chat session status constants
const (
	ChatStatusOpen   = "open"
	ChatStatusClosed = "closed"
)

// Chat message senders
const (
	ChatSenderVisitor = "visitor"
	ChatSenderOwner   = "owner"
)

var (
	ErrSessionNotFound = errors.New("chat session not found")
	ErrSessionClosed   = errors.New("chat session is closed")
)

type ChatSession struct {
	SessionID   string    `json:"session_id"`
	ClientID    int64     `json:"client_id"`
	VisitorName string    `json:"visitor_name"`
	Page        string    `json:"page"`
	Status      string    `json:"status"`
	StartedAt   time.Time `json:"started_at"`
}

type ChatMessage struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Sender    string    `json:"sender"`
	Body      string    `json:"body"`
	SentAt    time.Time `json:"sent_at"`
}

// ChatStartRequest is the body of POST /chat/:slug/start. The first message
// travels with session creation so the widget needs a single round trip.
type ChatStartRequest struct {
	VisitorName  string `json:"visitor_name"`
	Page         string `json:"page"`
	FirstMessage string `json:"first_message"`
}

func (r *ChatStartRequest) Normalize() {
	if r.VisitorName == "" {
		r.VisitorName = "Visitor"
	}
	if r.Page == "" {
		r.Page = "/"
	}
}

type ChatMessageRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}
