package server

import (
	"errors"
	"net/http"
	"strconv"

	"relay/internal/domain"

	log "github.com/sirupsen/logrus"

	"github.com/labstack/echo/v4"
)

func (s *Server) ChatStart(c echo.Context) error {
	client := s.authorizedClient(c, c.Param("id"))
	if client == nil {
		return nil
	}

	var req domain.ChatStartRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}
	if req.FirstMessage == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "first_message is required",
		})
	}

	ctx := c.Request().Context()
	session, err := s.relayService.StartChat(ctx, client, req)
	if err != nil {
		log.WithError(err).WithField("slug", client.Slug).Error("Failed to start chat session")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"ok":         true,
		"session_id": session.SessionID,
	})
}

func (s *Server) ChatMessage(c echo.Context) error {
	client := s.authorizedClient(c, c.Param("id"))
	if client == nil {
		return nil
	}

	var req domain.ChatMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	ctx := c.Request().Context()
	if err := s.relayService.PostVisitorMessage(ctx, client, req); err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "session not found",
			})
		case errors.Is(err, domain.ErrSessionClosed):
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "session is closed",
			})
		}
		log.WithError(err).WithField("session_id", req.SessionID).Error("Failed to post chat message")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
	}

	return c.JSON(http.StatusOK, map[string]bool{
		"ok": true,
	})
}

// ChatPoll is unauthenticated: the widget only holds the session ID, and
// that ID is unguessable.
func (s *Server) ChatPoll(c echo.Context) error {
	sessionID := c.Param("id")

	since := int64(0)
	if sinceStr := c.QueryParam("since"); sinceStr != "" {
		if v, err := strconv.ParseInt(sinceStr, 10, 64); err == nil && v > 0 {
			since = v
		}
	}

	ctx := c.Request().Context()
	session, messages, err := s.relayService.PollChat(ctx, sessionID, since)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "session not found",
			})
		}
		log.WithError(err).WithField("session_id", sessionID).Error("Failed to poll chat session")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
	}

	if messages == nil {
		messages = []domain.ChatMessage{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   session.Status,
		"messages": messages,
	})
}

// ChatReplyRequest - request structure for an owner reply
type ChatReplyRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// ChatReply lets the bot service push an owner reply into a session.
func (s *Server) ChatReply(c echo.Context) error {
	client := s.authorizedClient(c, c.Param("id"))
	if client == nil {
		return nil
	}

	var req ChatReplyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	ctx := c.Request().Context()
	if err := s.relayService.PostOwnerReply(ctx, client, req.SessionID, req.Message); err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "session not found",
			})
		case errors.Is(err, domain.ErrSessionClosed):
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "session is closed",
			})
		}
		log.WithError(err).WithField("session_id", req.SessionID).Error("Failed to post owner reply")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
	}

	return c.JSON(http.StatusOK, map[string]bool{
		"ok": true,
	})
}

func (s *Server) ChatOpenList(c echo.Context) error {
	client := s.authorizedClient(c, c.Param("id"))
	if client == nil {
		return nil
	}

	ctx := c.Request().Context()
	sessions, err := s.relayService.OpenChats(ctx, client)
	if err != nil {
		log.WithError(err).WithField("slug", client.Slug).Error("Failed to list open chat sessions")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
	}

	if sessions == nil {
		sessions = []domain.ChatSession{}
	}
	return c.JSON(http.StatusOK, sessions)
}

func (s *Server) ChatClose(c echo.Context) error {
	sessionID := c.Param("id")

	ctx := c.Request().Context()
	if err := s.relayService.CloseChat(ctx, sessionID); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "session not found",
			})
		}
		log.WithError(err).WithField("session_id", sessionID).Error("Failed to close chat session")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
	}

	return c.JSON(http.StatusOK, map[string]bool{
		"ok": true,
	})
}
