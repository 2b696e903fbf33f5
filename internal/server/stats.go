package server

import (
	"net/http"
	"strconv"

	"relay/internal/domain"
	"relay/internal/telegram"

	log "github.com/sirupsen/logrus"

	"github.com/labstack/echo/v4"
)

func (s *Server) GetStats(c echo.Context) error {
	client := s.authorizedClient(c, c.Param("slug"))
	if client == nil {
		return nil
	}

	ctx := c.Request().Context()

	var stats *domain.Stats
	var err error
	var title string
	period := c.Param("period")
	switch period {
	case "today":
		title = "Today"
		stats, err = s.relayService.TodayStats(ctx, client)
	case "week":
		title = "Last 7 Days"
		stats, err = s.relayService.WeekStats(ctx, client)
	case "month":
		title = "Last 30 Days"
		stats, err = s.relayService.MonthStats(ctx, client)
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "period must be today, week or month",
		})
	}

	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"slug":   client.Slug,
			"period": period,
		}).Error("Failed to compute stats")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
	}

	// The bot service fetches preformatted markdown so it can forward the
	// reply to Telegram as-is.
	if c.QueryParam("format") == "text" {
		return c.String(http.StatusOK, telegram.StatsMessage(client, title, stats))
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) GetRecentOrders(c echo.Context) error {
	client := s.authorizedClient(c, c.Param("slug"))
	if client == nil {
		return nil
	}

	limit := 5
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	ctx := c.Request().Context()
	orders, err := s.relayService.RecentOrders(ctx, client, limit)
	if err != nil {
		log.WithError(err).WithField("slug", client.Slug).Error("Failed to list recent orders")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
	}

	if orders == nil {
		orders = []domain.Order{}
	}
	if c.QueryParam("format") == "text" {
		return c.String(http.StatusOK, telegram.RecentOrdersMessage(client, orders))
	}
	return c.JSON(http.StatusOK, orders)
}
