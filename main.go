package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"

	"relay/internal/config"
	"relay/internal/publisher"
	"relay/internal/repository"
	"relay/internal/server"
	"relay/internal/service"
	"relay/internal/telegram"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	log "github.com/sirupsen/logrus"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	log.SetOutput(os.Stdout)
	log.SetLevel(log.DebugLevel)

	if err := godotenv.Load(); err != nil {
		log.Warn("Could not load .env file.")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithField("error", err).Fatal("Could not load configuration")
	}

	log.Info("Starting database migration...")
	m, err := migrate.New(cfg.DB.MigrationsPath, cfg.DB.URL)
	if err != nil {
		log.WithField("error", err).Fatal("Could not create migrate instance")
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.WithField("error", err).Fatal("Could not apply migration")
	}
	log.Info("Database migration finished successfully.")

	db, err := sql.Open("postgres", cfg.DB.URL)
	if err != nil {
		log.WithField("error", err).Fatal("Could not connect to the database")
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)

	if err := db.Ping(); err != nil {
		log.WithField("error", err).Fatal("Could not ping the database")
	}
	log.Info("Successfully connected to the PostgreSQL database.")

	// Create repositories
	clientRepository := repository.NewPostgresClientRepository(db)
	orderRepository := repository.NewPostgresOrderRepository(db)
	eventRepository := repository.NewPostgresEventRepository(db)
	settingRepository := repository.NewPostgresSettingRepository(db)
	chatRepository := repository.NewPostgresChatRepository(db)

	// Telegram fan-out (drops everything silently when BOT_TOKEN is unset)
	sender := telegram.NewSender(cfg.Telegram.BotToken)
	if cfg.Telegram.BotToken == "" {
		log.Warn("BOT_TOKEN is not set, telegram notifications disabled")
	}

	// Optional Kafka audit stream
	var auditService *service.AuditService
	if cfg.Kafka.Brokers != "" {
		auditPublisher, err := publisher.NewAuditPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.WithField("error", err).Fatal("Could not create audit publisher")
		}
		defer auditPublisher.Close()
		auditService = service.NewAuditService(auditPublisher)
	}

	// Create service
	relayService := service.NewRelayService(
		clientRepository,
		orderRepository,
		eventRepository,
		settingRepository,
		chatRepository,
		sender,
		auditService,
	)

	// Daily summary scheduler
	if cfg.Summary.Enabled {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go relayService.RunSummaryScheduler(ctx, cfg.Summary.Hour, cfg.Summary.Minute)
	}

	// Create server
	srv := server.NewServer(relayService, db)

	// Setup Echo
	e := echo.New()

	if len(cfg.API.CORSOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.API.CORSOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost},
			AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
		}))
	}

	srv.Register(e)

	addr := cfg.API.Host + ":" + cfg.API.Port
	log.WithField("addr", addr).Info("Relay API is starting with Echo")

	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.WithField("error", err).Fatal("Echo server failed to start")
	}
}
