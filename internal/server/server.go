package server

import (
	"crypto/subtle"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"relay/internal/domain"
	"relay/internal/service"

	log "github.com/sirupsen/logrus"

	"github.com/labstack/echo/v4"
)

type Server struct {
	relayService service.RelayServiceInterface
	db           *sql.DB
}

func NewServer(relayService service.RelayServiceInterface, db *sql.DB) *Server {
	return &Server{
		relayService: relayService,
		db:           db,
	}
}

// Register wires all routes onto the echo instance.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/health", s.HealthCheck)

	e.POST("/event/:slug/order", s.ReceiveOrder)
	e.POST("/event/:slug/generic", s.ReceiveGenericEvent)

	e.GET("/maintenance/:slug", s.GetMaintenance)
	e.POST("/maintenance/:slug", s.SetMaintenance)

	e.POST("/telegram/:slug/link", s.TelegramLink)

	e.GET("/stats/:slug/:period", s.GetStats)
	e.GET("/orders/:slug/recent", s.GetRecentOrders)

	// Chat routes share one :id param: it is the store slug on the
	// widget-to-store routes and the session ID on the session routes.
	// Echo cannot mix param names at the same path depth.
	e.POST("/chat/:id/start", s.ChatStart)
	e.POST("/chat/:id/message", s.ChatMessage)
	e.POST("/chat/:id/reply", s.ChatReply)
	e.GET("/chat/:id/open", s.ChatOpenList)
	e.GET("/chat/:id/poll", s.ChatPoll)
	e.POST("/chat/:id/close", s.ChatClose)
}

func (s *Server) HealthCheck(c echo.Context) error {
	if err := s.db.Ping(); err != nil {
		log.WithField("error", err).Error("Health check failed: database is down")
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  "database connection error",
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"service": "relay",
		"time":    time.Now().Unix(),
	})
}

// authorizedClient resolves the slug and checks the bearer secret. On
// failure it writes the error response itself and returns nil.
func (s *Server) authorizedClient(c echo.Context, slug string) *domain.Client {
	ctx := c.Request().Context()
	client, err := s.relayService.ClientBySlug(ctx, slug)
	if err != nil {
		if err == domain.ErrClientNotFound {
			c.JSON(http.StatusNotFound, map[string]string{
				"error": "client not found",
			})
			return nil
		}
		log.WithError(err).WithField("slug", slug).Error("Failed to resolve client")
		c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal server error",
		})
		return nil
	}

	authorization := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(authorization, "Bearer ") {
		c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "missing Authorization header",
		})
		return nil
	}

	incoming := strings.TrimSpace(strings.TrimPrefix(authorization, "Bearer "))
	if subtle.ConstantTimeCompare([]byte(incoming), []byte(client.APISecret)) != 1 {
		c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "invalid secret",
		})
		return nil
	}

	return client
}
