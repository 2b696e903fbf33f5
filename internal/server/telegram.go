package server

import (
	"errors"
	"net/http"

	"relay/internal/domain"

	log "github.com/sirupsen/logrus"

	"github.com/labstack/echo/v4"
)

// TelegramLinkRequest - request structure to link a telegram chat
type TelegramLinkRequest struct {
	ChatID   int64  `json:"chat_id"`
	ChatType string `json:"chat_type"`
	Label    string `json:"label"`
}

// TelegramLink binds the owner's chat to the store. The bot service calls
// this after it has verified the slug and secret from a /start message.
func (s *Server) TelegramLink(c echo.Context) error {
	client := s.authorizedClient(c, c.Param("slug"))
	if client == nil {
		return nil
	}

	var req TelegramLinkRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	ctx := c.Request().Context()
	if err := s.relayService.LinkTelegramChat(ctx, client, req.ChatID, req.ChatType, req.Label); err != nil {
		if errors.Is(err, domain.ErrInvalidChatID) {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "chat_id is required",
			})
		}
		log.WithError(err).WithField("slug", client.Slug).Error("Failed to link telegram chat")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
	}

	return c.JSON(http.StatusOK, map[string]bool{
		"ok": true,
	})
}
