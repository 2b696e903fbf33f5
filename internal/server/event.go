package server

import (
	"errors"
	"net/http"

	"relay/internal/domain"

	log "github.com/sirupsen/logrus"

	"github.com/labstack/echo/v4"
)

func (s *Server) ReceiveOrder(c echo.Context) error {
	client := s.authorizedClient(c, c.Param("slug"))
	if client == nil {
		return nil
	}

	var req domain.OrderEventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	ctx := c.Request().Context()
	order, err := s.relayService.ReceiveOrder(ctx, client, req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidOrderNumber) || errors.Is(err, domain.ErrInvalidOrderTotal) {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": err.Error(),
			})
		}
		log.WithError(err).WithField("slug", client.Slug).Error("Failed to receive order")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"ok": true,
		"id": order.ID,
	})
}

func (s *Server) ReceiveGenericEvent(c echo.Context) error {
	client := s.authorizedClient(c, c.Param("slug"))
	if client == nil {
		return nil
	}

	var req domain.GenericEventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	ctx := c.Request().Context()
	if err := s.relayService.ReceiveEvent(ctx, client, req); err != nil {
		if errors.Is(err, domain.ErrInvalidEventType) {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "event_type is required",
			})
		}
		log.WithError(err).WithFields(log.Fields{
			"slug":       client.Slug,
			"event_type": req.EventType,
		}).Error("Failed to receive event")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
	}

	return c.JSON(http.StatusOK, map[string]bool{
		"ok": true,
	})
}
