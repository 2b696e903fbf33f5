package domain

import (
	"errors"
	"regexp"
	"time"
)

// Client errors
var (
	ErrClientNotFound = errors.New("client not found")
	ErrClientInactive = errors.New("client is inactive")
	ErrInvalidSlug    = errors.New("invalid client slug")
	ErrInvalidChatID  = errors.New("invalid telegram chat id")
)

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidSlug reports whether s is a usable store slug (lowercase, dash-separated).
func ValidSlug(s string) bool {
	return s != "" && len(s) <= 50 && slugRegex.MatchString(s)
}

// Client is a registered store (tenant). Every other table hangs off its ID.
type Client struct {
	ID             int64     `json:"id"`
	Slug           string    `json:"slug"`
	Name           string    `json:"name"`
	APISecret      string    `json:"-"`
	TelegramChatID *int64    `json:"telegram_chat_id,omitempty"`
	CurrencySymbol string    `json:"currency_symbol"`
	Timezone       string    `json:"timezone"`
	Active         bool      `json:"active"`
	CreatedAt      time.Time `json:"created_at"`
}

type CreateClientRequest struct {
	Slug           string `json:"slug"`
	Name           string `json:"name"`
	APISecret      string `json:"api_secret"`
	CurrencySymbol string `json:"currency_symbol"`
	Timezone       string `json:"timezone"`
}
