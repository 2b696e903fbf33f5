package server

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/labstack/echo/v4"
)

func (s *Server) GetMaintenance(c echo.Context) error {
	client := s.authorizedClient(c, c.Param("slug"))
	if client == nil {
		return nil
	}

	ctx := c.Request().Context()
	status, err := s.relayService.MaintenanceStatus(ctx, client)
	if err != nil {
		log.WithError(err).WithField("slug", client.Slug).Error("Failed to read maintenance status")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"maintenance": status,
	})
}

// SetMaintenanceRequest - request structure to toggle maintenance mode
type SetMaintenanceRequest struct {
	Maintenance string `json:"maintenance"`
}

func (s *Server) SetMaintenance(c echo.Context) error {
	client := s.authorizedClient(c, c.Param("slug"))
	if client == nil {
		return nil
	}

	var req SetMaintenanceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	ctx := c.Request().Context()
	if err := s.relayService.SetMaintenance(ctx, client, req.Maintenance); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"maintenance": req.Maintenance,
	})
}
